// Package apiclient talks to a chessboard-api server over fasthttp.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/park285/chessboard-core/pkg/boarddto"
	"github.com/valyala/fasthttp"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Start(ctx context.Context) (*boarddto.SessionState, error) {
	var st boarddto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/sessions", nil, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) State(ctx context.Context, id string) (*boarddto.SessionState, error) {
	var st boarddto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id), nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Candidates(ctx context.Context, id, cell string) (*boarddto.SelectionDTO, error) {
	var sel boarddto.SelectionDTO
	path := sessionPath(id) + "/candidates?cell=" + url.QueryEscape(cell)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &sel, true); err != nil {
		return nil, err
	}
	return &sel, nil
}

func (c *Client) Select(ctx context.Context, id, cell string) (*boarddto.SelectionDTO, error) {
	var sel boarddto.SelectionDTO
	body := map[string]string{"cell": cell}
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id)+"/selection", body, &sel, false); err != nil {
		return nil, err
	}
	return &sel, nil
}

func (c *Client) Deselect(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id)+"/selection", nil, nil, false)
}

func (c *Client) Move(ctx context.Context, id, from, to string) (*boarddto.MoveSummary, error) {
	var sum boarddto.MoveSummary
	req := boarddto.MoveRequest{From: from, To: to}
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id)+"/moves", req, &sum, false); err != nil {
		return nil, err
	}
	return &sum, nil
}

// BoardPNG fetches the rendered board. cell and view may be empty.
func (c *Client) BoardPNG(ctx context.Context, id, cell, view string) ([]byte, error) {
	q := url.Values{}
	if cell != "" {
		q.Set("cell", cell)
	}
	if view != "" {
		q.Set("view", view)
	}
	path := sessionPath(id) + "/board.png"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.do(ctx, fasthttp.MethodGet, path, nil, true)
}

func (c *Client) End(ctx context.Context, id string) (*boarddto.SessionState, error) {
	var st boarddto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id), nil, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func sessionPath(id string) string {
	return "/sessions/" + url.PathEscape(strings.TrimSpace(id))
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	body, err := c.do(ctx, method, path, in, retry)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do sends the request and returns the response body. Non-2xx responses
// carrying a JSON DomainError are returned as that error.
func (c *Client) do(ctx context.Context, method, path string, in any, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := responseError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return nil, err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func responseError(status int, body []byte) error {
	var de boarddto.DomainError
	if err := json.Unmarshal(body, &de); err == nil && de.Code != "" {
		return de
	}
	return fmt.Errorf("board api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
