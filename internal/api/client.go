package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Client is the composed façade over the executor and the refresh
// coordinator. It is the only entry point to the network for the rest of
// the system; nothing bypasses it to reach the executor directly, which is
// what preserves the single-flight refresh guarantee.
type Client struct {
	exec      *Executor
	refresher *refresher
	logger    *slog.Logger
}

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "https://api.cloudbox.example".
	BaseURL string

	// HTTPClient overrides the default client (30-second timeout).
	HTTPClient *http.Client

	// Store holds the token pair. Required.
	Store TokenStore

	Logger    *slog.Logger
	UserAgent string

	// OnSessionExpired is invoked at most once per refresh episode when the
	// session is terminated (refresh failure, or a replay rejected again).
	// The store is already cleared when it fires.
	OnSessionExpired func()
}

// NewClient builds the authenticated client.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exec := NewExecutor(opts.BaseURL, opts.HTTPClient, opts.Store, logger, opts.UserAgent)

	return &Client{
		exec:      exec,
		refresher: newRefresher(exec, opts.Store, logger, opts.OnSessionExpired),
		logger:    logger,
	}
}

// Do executes a request through the full pipeline: one attempt with the
// current access token, and on 401 a hand-off to the refresh coordinator,
// which settles the request after the (single-flight) refresh resolves.
// Every other outcome — success, transport error, non-401 status — passes
// through untouched.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	resp, err := c.exec.Do(ctx, req)
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		return resp, err
	}

	c.logger.Debug("request unauthorized, entering refresh coordination",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
	)

	return c.refresher.resolve(ctx, req)
}

// GetJSON issues a GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req := &Request{Method: http.MethodGet, Path: path}

	return c.doJSON(ctx, req, out)
}

// PostJSON issues a POST with a JSON body (nil = empty body) and decodes
// the response into out (nil = discard).
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	req := &Request{Method: http.MethodPost, Path: path}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding %s request: %w", path, err)
		}

		req.GetBody = func() (io.Reader, error) {
			return bytes.NewReader(payload), nil
		}
	}

	return c.doJSON(ctx, req, out)
}

// Delete issues a DELETE and discards the response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	req := &Request{Method: http.MethodDelete, Path: path}

	return c.doJSON(ctx, req, nil)
}

// doJSON runs the request and decodes the body into out when requested.
func (c *Client) doJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s response: %w", req.Path, err)
	}

	return nil
}
