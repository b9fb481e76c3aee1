// Package httpapi is the REST adapter for the Schedule Service.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/logger"
	"github.com/julianstephens/fleetboard/internal/service"
	"github.com/julianstephens/fleetboard/internal/validation"
)

var _ service.ScheduleService = (*Client)(nil)

// Client talks to the Schedule Service over HTTP. Reads are retried on
// transient failures; writes are sent once.
type Client struct {
	baseURL   string
	token     string
	session   *http.Client
	retries   int
	backoff   time.Duration
	validator *validation.Validator
}

// Option configures a Client
type Option func(*Client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.session = hc }
}

// WithRetries sets how many times a failed read is retried and the first backoff delay.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// New creates a client for the service rooted at baseURL (e.g. http://host/api/v1).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		session:   &http.Client{Timeout: constants.DefaultHTTPTimeout},
		retries:   constants.DefaultReadRetries,
		backoff:   constants.RetryBaseDelay,
		validator: validation.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client talks to
func (c *Client) BaseURL() string { return c.baseURL }

// HealthStatus is the service's liveness answer
type HealthStatus struct {
	Status  string `json:"status" validate:"required"`
	Version string `json:"version"`
}

// Health queries the unversioned /health endpoint next to the API root.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	root := strings.TrimSuffix(c.baseURL, "/api/v1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+"/health", nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(constants.RequestIDHeader, uuid.NewString())
	resp, err := c.do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()
	return decode[HealthStatus](c, resp.Body)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte, reqID string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(constants.RequestIDHeader, reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, remoteError(resp, b, req.Header.Get(constants.RequestIDHeader))
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) using exponential backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	maxAttempts := c.retries + 1
	backoff := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var re *errors.RemoteError
		if stderrors.As(err, &re) {
			retry = re.Retryable()
		}
		var netErr net.Error
		if !retry && stderrors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}
		logger.Debug("retrying request", "url", req.URL.Path, "attempt", attempt, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

// errorBody covers both error shapes the service sends:
// {"detail": "..."} and {"error": "...", "message": "...", "code": "..."}
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

func remoteError(resp *http.Response, body []byte, reqID string) *errors.RemoteError {
	re := &errors.RemoteError{Status: resp.StatusCode, RequestID: reqID}
	if id := resp.Header.Get(constants.RequestIDHeader); id != "" {
		re.RequestID = id
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		re.Message = strings.TrimSpace(string(body))
		return re
	}
	re.Code = eb.Code
	switch {
	case eb.Message != "":
		re.Message = eb.Message
		if re.Code == "" {
			re.Code = eb.Error
		}
	case eb.Error != "":
		re.Message = eb.Error
	case len(eb.Detail) > 0:
		re.Message = detailMessage(eb.Detail)
	}
	return re
}

// detailMessage flattens a detail field, which is either a string or a list
// of {"loc": [...], "msg": "..."} items.
func detailMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Loc []interface{} `json:"loc"`
		Msg string        `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if n := len(it.Loc); n > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[n-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(raw))
}

// getJSON performs a retried GET and decodes the body into T.
func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (out T, err error) {
	reqID := uuid.NewString()
	defer logger.Time("GET "+path, "req_id", reqID)(&err)

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, path, query, nil, reqID)
	})
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	return decode[T](c, resp.Body)
}

// send performs a single write. out may be nil when the response body is ignored.
// A 2xx answer whose body cannot be read yields an error wrapping
// ErrUnreadableResponse: the write went through.
func send(ctx context.Context, c *Client, method, path string, in, out interface{}) (err error) {
	reqID := uuid.NewString()
	defer logger.Time(method+" "+path, "req_id", reqID)(&err)

	var body []byte
	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := c.newRequest(ctx, method, path, nil, body, reqID)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrUnreadableResponse, &errors.ValidationError{Field: "response", Message: err.Error()})
	}
	if err := c.validator.Value(out); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrUnreadableResponse, err)
	}
	return nil
}

func sendJSON[T any](ctx context.Context, c *Client, method, path string, in interface{}) (T, error) {
	var out T
	err := send(ctx, c, method, path, in, &out)
	return out, err
}

func decode[T any](c *Client, r io.Reader) (T, error) {
	var out T
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, &errors.ValidationError{Field: "response", Message: err.Error()}
	}
	if err := c.validator.Value(out); err != nil {
		return out, err
	}
	return out, nil
}
