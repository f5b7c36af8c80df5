package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Shobayosamuel/cloudbox-go/internal/session"
)

// refreshPath is the token exchange endpoint. The refresh token travels in
// the Refresh-Token header; no bearer token is attached (the access token
// is known-stale at that point).
const refreshPath = "/auth/refresh"

// refreshResponse is the JSON shape returned by POST /auth/refresh.
type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// waitResult carries one queued caller's final outcome.
type waitResult struct {
	resp *http.Response
	err  error
}

// waiter is one request queued on an in-flight refresh episode.
type waiter struct {
	req *Request
	ctx context.Context
	ch  chan waitResult // buffered(1); the episode runner never blocks on it
}

// episode collects the callers whose 401s fall into one refresh attempt.
// Waiters are replayed in the order they arrived.
type episode struct {
	waiters []*waiter
}

// refresher coordinates the single-flight token refresh. The first caller
// whose request comes back 401 becomes the initiator: it issues exactly one
// POST /auth/refresh and then settles every queued caller — FIFO replay
// with the new token on success, ErrSessionExpired for all on failure.
// Callers that independently hit 401 while the refresh is outstanding
// queue onto the same episode instead of starting a second refresh.
type refresher struct {
	mu      sync.Mutex
	pending *episode

	exec      *Executor
	store     TokenStore
	logger    *slog.Logger
	onExpired func() // session teardown hook; fired at most once per episode
}

func newRefresher(exec *Executor, store TokenStore, logger *slog.Logger, onExpired func()) *refresher {
	return &refresher{
		exec:      exec,
		store:     store,
		logger:    logger,
		onExpired: onExpired,
	}
}

// resolve is called with a request that just failed with 401. It either
// joins the pending episode or starts a new one, and blocks until the
// caller's outcome is known. Cancelling ctx abandons only this caller: the
// episode keeps running and other queued callers are unaffected.
func (r *refresher) resolve(ctx context.Context, req *Request) (*http.Response, error) {
	w := &waiter{req: req, ctx: ctx, ch: make(chan waitResult, 1)}

	r.mu.Lock()

	if r.pending != nil {
		r.pending.waiters = append(r.pending.waiters, w)
		r.mu.Unlock()

		return w.wait()
	}

	ep := &episode{waiters: []*waiter{w}}
	r.pending = ep
	old, ok := r.store.Pair()
	r.mu.Unlock()

	// The refresh and the replays of other callers must not die with the
	// initiator: a queued cancellation removes one caller, never the episode.
	go r.run(context.WithoutCancel(ctx), ep, old, ok)

	return w.wait()
}

// wait blocks until the episode delivers a result or the caller's context
// is canceled.
func (w *waiter) wait() (*http.Response, error) {
	select {
	case res := <-w.ch:
		return res.resp, res.err
	case <-w.ctx.Done():
		return nil, fmt.Errorf("api: request canceled while awaiting token refresh: %w", w.ctx.Err())
	}
}

// run executes one refresh episode: the single refresh call, then
// settlement of every queued waiter. The pending marker is dropped before
// any result is delivered, so a 401 arriving after the refresh settled
// starts a fresh episode rather than joining a closed one.
func (r *refresher) run(ctx context.Context, ep *episode, old session.Pair, haveSession bool) {
	var (
		updated    session.Pair
		refreshErr error
	)

	if !haveSession {
		refreshErr = errors.New("api: no refresh token available")
	} else {
		updated, refreshErr = r.refresh(ctx, old.Refresh)
	}

	r.mu.Lock()
	waiters := ep.waiters
	r.pending = nil
	r.mu.Unlock()

	if refreshErr != nil {
		r.logger.Warn("token refresh failed, terminating session",
			slog.Int("queued_requests", len(waiters)),
			slog.String("error", refreshErr.Error()),
		)

		r.teardown(new(bool))

		for _, w := range waiters {
			w.ch <- waitResult{err: fmt.Errorf("api: token refresh failed: %w", ErrSessionExpired)}
		}

		return
	}

	// Atomic swap, dropped if the store changed underneath us (an explicit
	// logout raced the refresh — the logout wins and tokens stay cleared).
	if !r.store.Replace(old, updated) {
		r.logger.Info("token store changed during refresh, discarding refreshed tokens")
	}

	r.logger.Debug("token refresh succeeded, replaying queued requests",
		slog.Int("queued_requests", len(waiters)),
	)

	tornDown := new(bool)

	for _, w := range waiters {
		// A caller that canceled while queued has already returned; skip its
		// replay without disturbing the rest of the queue.
		if w.ctx.Err() != nil {
			continue
		}

		resp, err := r.exec.doWithToken(w.ctx, w.req, updated.Access)
		if errors.Is(err, ErrUnauthorized) {
			// A 401 on a just-refreshed token is terminal — never a second
			// refresh, or two expired tokens would loop forever.
			r.teardown(tornDown)

			err = fmt.Errorf("api: request rejected after token refresh: %w", ErrSessionExpired)
		}

		w.ch <- waitResult{resp: resp, err: err}
	}
}

// teardown clears the store and notifies the session-expired hook. The
// fired flag is episode-local, so the side effect happens at most once per
// episode no matter how many waiters fail.
func (r *refresher) teardown(fired *bool) {
	if *fired {
		return
	}

	*fired = true

	r.store.Clear()

	if r.onExpired != nil {
		r.onExpired()
	}
}

// refresh performs the single POST /auth/refresh exchange.
func (r *refresher) refresh(ctx context.Context, refreshToken string) (session.Pair, error) {
	req := &Request{
		Method: http.MethodPost,
		Path:   refreshPath,
		Header: http.Header{"Refresh-Token": {refreshToken}},
	}

	resp, err := r.exec.doWithToken(ctx, req, "")
	if err != nil {
		return session.Pair{}, err
	}
	defer resp.Body.Close()

	var rr refreshResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&rr); decErr != nil {
		return session.Pair{}, fmt.Errorf("api: decoding refresh response: %w", decErr)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if rr.Token == "" || rr.RefreshToken == "" {
		return session.Pair{}, errors.New("api: refresh response missing tokens")
	}

	return session.Pair{Access: rr.Token, Refresh: rr.RefreshToken}, nil
}
