package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/kbukum/jobflow/resilience"
)

// Adapter sends requests with the configured timeout, retry and circuit breaking.
type Adapter struct {
	httpClient *http.Client
	config     Config

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the underlying *http.Client, e.g. an httptest server's.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		},
		config:   cfg,
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Do executes req. A non-2xx response returns both the response and a classified *Error.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	if a.config.Retry != nil {
		return resilience.Retry(ctx, *a.config.Retry, func() (*Response, error) {
			return a.doOnce(ctx, req)
		})
	}
	return a.doOnce(ctx, req)
}

// Close releases idle connections.
func (a *Adapter) Close() {
	a.httpClient.CloseIdleConnections()
}

func (a *Adapter) doOnce(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := a.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	cb := a.breaker(httpReq.URL.Host)
	if cb == nil {
		return a.send(ctx, httpReq)
	}

	var resp *Response
	err = cb.Execute(func() error {
		var sendErr error
		resp, sendErr = a.send(ctx, httpReq)
		// Client-side rejections say nothing about the host's health.
		if sendErr != nil && !IsRetryable(sendErr) {
			return nil
		}
		return sendErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, &Error{Code: ErrCodeCircuitOpen, Message: "circuit open for " + httpReq.URL.Host, Err: err}
	}
	if err == nil && resp != nil {
		if classErr := ClassifyStatusCode(resp.StatusCode, resp.Body); classErr != nil {
			return resp, classErr
		}
	}
	return resp, err
}

func (a *Adapter) breaker(host string) *resilience.CircuitBreaker {
	if a.config.CircuitBreaker == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	cb, ok := a.breakers[host]
	if !ok {
		cfg := *a.config.CircuitBreaker
		cfg.Name = host
		cb = resilience.NewCircuitBreaker(cfg)
		a.breakers[host] = cb
	}
	return cb
}

func (a *Adapter) send(ctx context.Context, httpReq *http.Request) (*Response, error) {
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}
	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

func (a *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if a.config.BaseURL != "" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid url %q: %v", target, err))
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if a.config.BearerToken != "" && httpReq.Header.Get("Authorization") == "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.config.BearerToken)
	}
	return httpReq, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "application/json", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
