package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Shobayosamuel/cloudbox-go/internal/session"
)

// defaultTimeout bounds every request to the server. A timeout surfaces as
// a TransportError and never triggers a token refresh.
const defaultTimeout = 30 * time.Second

// TokenStore provides the bearer credential pair. Defined at the consumer
// per Go convention "accept interfaces, return structs"; session.Store is
// the real implementation. Implementations must swap both tokens
// atomically — the executor and the refresh coordinator always read the
// pair in a single call.
type TokenStore interface {
	Pair() (session.Pair, bool)
	Set(p session.Pair)
	Replace(old, updated session.Pair) bool
	Clear()
}

// Request describes one replayable API request. GetBody (when non-nil)
// returns a fresh body reader and is invoked once per transmission attempt,
// so a request queued behind a token refresh can be replayed with its body
// intact.
type Request struct {
	Method string
	Path   string
	Header http.Header // extra headers; Content-Type here overrides the JSON default

	GetBody func() (io.Reader, error)
}

func (r *Request) op() string {
	return r.Method + " " + r.Path
}

// Executor issues a single HTTP request against the Cloudbox server with
// the current access token attached. It classifies failures into transport
// errors and status errors, and does nothing else: no retry, no 401
// handling — that is the refresh coordinator's job.
type Executor struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	logger     *slog.Logger
	userAgent  string
}

// NewExecutor creates an Executor. A nil httpClient gets a client with the
// default 30-second timeout; a nil logger falls back to slog.Default().
func NewExecutor(baseURL string, httpClient *http.Client, store TokenStore, logger *slog.Logger, userAgent string) *Executor {
	if store == nil {
		panic("api: NewExecutor requires a TokenStore")
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
		userAgent:  userAgent,
	}
}

// Do executes the request with the access token currently in the store.
// When no session exists the request is sent unauthenticated.
func (e *Executor) Do(ctx context.Context, req *Request) (*http.Response, error) {
	token := ""
	if pair, ok := e.store.Pair(); ok {
		token = pair.Access
	}

	return e.doWithToken(ctx, req, token)
}

// doWithToken executes the request with an explicit bearer token (empty =
// unauthenticated). The refresh coordinator uses this to replay queued
// requests with the freshly issued token and to send the refresh call
// itself without a stale bearer.
func (e *Executor) doWithToken(ctx context.Context, req *Request, token string) (*http.Response, error) {
	var body io.Reader
	if req.GetBody != nil {
		var err error
		if body, err = req.GetBody(); err != nil {
			return nil, fmt.Errorf("api: %s: obtaining request body: %w", req.op(), err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, e.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("api: %s: creating request: %w", req.op(), err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-Id", requestID)
	httpReq.Header.Set("Accept", "application/json")

	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}

	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		// Context cancellation is the caller's doing, not a network fault.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("api: %s: request canceled: %w", req.op(), ctx.Err())
		}

		e.logger.Warn("request transport failure",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)

		return nil, &TransportError{Op: req.op(), Err: err}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		e.logger.Debug("request succeeded",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", requestID),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	e.logger.Debug("request failed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
	)

	return nil, &StatusError{
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Body:       string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}
