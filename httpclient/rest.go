package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// TypedResponse is a response with its JSON body decoded into T.
type TypedResponse[T any] struct {
	StatusCode int
	Headers    map[string]string
	Data       T
}

// RequestOption configures a single request.
type RequestOption func(*Request)

func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// Get performs a GET and decodes the JSON response into T.
func Get[T any](a *Adapter, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST with a JSON body and decodes the JSON response into T.
func Post[T any](a *Adapter, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodPost, path, body, opts...)
}

func doTyped[T any](a *Adapter, ctx context.Context, method, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := a.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var data T
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, NewDecodeError(resp.StatusCode, resp.Body, err)
	}
	return &TypedResponse[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Data:       data,
	}, nil
}
