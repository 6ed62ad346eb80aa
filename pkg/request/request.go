// Package request implements the HTTP client wrapper used by every API
// facade call: retry with exponential backoff, bearer token injection from
// the local store, content-type driven body classification and uniform
// error normalization.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manas-swain-001/cms-client/pkg/constants"
	"github.com/manas-swain-001/cms-client/pkg/logger"
	"github.com/manas-swain-001/cms-client/pkg/store"
)

// Config is attached once at client construction. Per-call options merge on
// top of it without mutating it.
type Config struct {
	// BaseURL is the API root every path is resolved against. Required.
	BaseURL string
	// Headers sent with every request. Defaults to Content-Type: application/json.
	Headers map[string]string
	// Retries is the retry budget for retryable failures.
	Retries int
	// Debug enables per-request logging.
	Debug bool
	// Binary forces binary classification of every response body.
	Binary bool
	// HTTPClient overrides the underlying transport. Mainly for tests.
	HTTPClient *http.Client
}

// Client is safe for concurrent use. Calls from the same caller are
// independent; no implicit ordering or cancellation beyond ctx.
type Client struct {
	cfg   Config
	http  *http.Client
	store *store.Store
	log   logger.Logger
}

// New builds a Client. The store may be nil, in which case no bearer token
// is ever attached and 401 handling has nothing to clear.
func New(cfg Config, st *store.Store, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, constants.ErrNoBaseURL
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{"Content-Type": "application/json"}
	}
	if cfg.Retries == 0 {
		cfg.Retries = constants.DefaultRetries
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.Default()
	}

	return &Client{cfg: cfg, http: cfg.HTTPClient, store: st, log: log}, nil
}

// CallOption adjusts a single call.
type CallOption func(*callOpts)

type callOpts struct {
	params  url.Values
	headers map[string]string
	binary  bool
}

// WithParams adds query parameters to the call.
func WithParams(params url.Values) CallOption {
	return func(o *callOpts) { o.params = params }
}

// WithHeaders adds headers to the call, overriding base headers on conflict.
func WithHeaders(h map[string]string) CallOption {
	return func(o *callOpts) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		for k, v := range h {
			o.headers[k] = v
		}
	}
}

// WithBinary forces the response body to be returned as binary.
func WithBinary() CallOption {
	return func(o *callOpts) { o.binary = true }
}

func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Body, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, data any, opts ...CallOption) (*Body, error) {
	return c.do(ctx, http.MethodPost, path, data, opts)
}

func (c *Client) Put(ctx context.Context, path string, data any, opts ...CallOption) (*Body, error) {
	return c.do(ctx, http.MethodPut, path, data, opts)
}

func (c *Client) Patch(ctx context.Context, path string, data any, opts ...CallOption) (*Body, error) {
	return c.do(ctx, http.MethodPatch, path, data, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*Body, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts)
}

func (c *Client) do(ctx context.Context, method, path string, data any, opts []CallOption) (*Body, error) {
	var co callOpts
	for _, opt := range opts {
		opt(&co)
	}

	target, err := c.resolve(path, co.params)
	if err != nil {
		return nil, err
	}

	var bodyBytes []byte
	if data != nil {
		switch v := data.(type) {
		case []byte:
			bodyBytes = v
		case string:
			bodyBytes = []byte(v)
		default:
			bodyBytes, err = json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := constants.RetryBaseDelay << (attempt - 1)
			if c.cfg.Debug {
				c.log.Debug("retrying request", "method", method, "url", target, "attempt", attempt, "delay", delay.String())
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.doOnce(ctx, method, target, bodyBytes, co)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable || attempt >= c.cfg.Retries {
			return nil, lastErr
		}
	}
}

// idempotent reports whether failures of this method may be replayed per the
// standard idempotency classification. 429 is retried regardless of method.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (c *Client) doOnce(ctx context.Context, method, target string, body []byte, co callOpts) (*Body, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, false, err
	}

	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range co.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.store != nil {
		if token := c.store.GetString(constants.AuthTokenKey); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Never reached the server. Propagated raw, and always retryable.
		return nil, true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	if c.cfg.Debug {
		c.log.Debug("request completed", "method", method, "url", target, "status", resp.StatusCode)
	}

	parsed := classify(resp.Header.Get("Content-Type"), raw, c.cfg.Binary || co.binary, c.log)
	parsed.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := c.normalize(resp, parsed)
		retryable := resp.StatusCode == http.StatusTooManyRequests || idempotent(method)
		return nil, retryable, apiErr
	}

	// An application-level failure inside a 2xx transport response is
	// treated the same as a transport failure.
	if failure, apiErr := applicationError(parsed, resp.StatusCode); failure {
		return nil, false, apiErr
	}

	return parsed, false, nil
}

func (c *Client) resolve(path string, params url.Values) (string, error) {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	full := base + "/" + strings.TrimPrefix(path, "/")

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("resolving %q against %q: %w", path, c.cfg.BaseURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// normalize turns a non-2xx response into an *APIError. On 401 the store is
// cleared first, logging the user out locally; navigation stays with the
// caller.
func (c *Client) normalize(resp *http.Response, parsed *Body) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Data: parsed.JSON}

	if obj, ok := parsed.JSON.(map[string]any); ok {
		if msg, ok := obj["message"].(string); ok && msg != "" {
			apiErr.Message = msg
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.store != nil {
		c.log.Info("request: 401 received, clearing local session")
		c.store.Clear()
	}

	return apiErr
}

// applicationError detects the backend's success:false envelope in an
// otherwise successful response.
func applicationError(parsed *Body, transportStatus int) (bool, *APIError) {
	if parsed.Kind != KindJSON {
		return false, nil
	}
	obj, ok := parsed.JSON.(map[string]any)
	if !ok {
		return false, nil
	}
	success, present := obj["success"].(bool)
	if !present || success {
		return false, nil
	}

	apiErr := &APIError{Status: transportStatus, Data: obj}
	if st, ok := obj["status"].(float64); ok {
		apiErr.Status = int(st)
	}
	if msg, ok := obj["message"].(string); ok && msg != "" {
		apiErr.Message = msg
	} else {
		apiErr.Message = "request failed"
	}
	return true, apiErr
}
