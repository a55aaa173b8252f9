package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestOption customizes a Request built by the typed helpers.
type RequestOption func(*Request)

// WithQuery adds a query parameter. Empty values are skipped.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		if value == "" {
			return
		}
		if r.Query == nil {
			r.Query = url.Values{}
		}
		r.Query.Add(key, value)
	}
}

// WithQueryInt adds an integer query parameter when it is non-zero.
func WithQueryInt(key string, value int) RequestOption {
	if value == 0 {
		return func(*Request) {}
	}
	return WithQuery(key, strconv.Itoa(value))
}

// WithQueryValues merges values into the query.
func WithQueryValues(values url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = url.Values{}
		}
		for key, vs := range values {
			for _, v := range vs {
				r.Query.Add(key, v)
			}
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithRequestTimeout overrides the per-attempt timeout.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) RequestOption {
	return func(r *Request) { r.MaxRetries = &n }
}

// Get sends a GET to path and decodes the JSON response into T.
func Get[T any](ctx context.Context, c Client, path string, opts ...RequestOption) (T, error) {
	return send[T](ctx, c, http.MethodGet, path, nil, opts)
}

// Post encodes body as JSON, sends it to path and decodes the response into T.
// A nil body sends no payload.
func Post[T any](ctx context.Context, c Client, path string, body any, opts ...RequestOption) (T, error) {
	return send[T](ctx, c, http.MethodPost, path, body, opts)
}

// Put is Post with PUT.
func Put[T any](ctx context.Context, c Client, path string, body any, opts ...RequestOption) (T, error) {
	return send[T](ctx, c, http.MethodPut, path, body, opts)
}

// Patch is Post with PATCH.
func Patch[T any](ctx context.Context, c Client, path string, body any, opts ...RequestOption) (T, error) {
	return send[T](ctx, c, http.MethodPatch, path, body, opts)
}

// Delete sends a DELETE to path and decodes the response, if any, into T.
func Delete[T any](ctx context.Context, c Client, path string, opts ...RequestOption) (T, error) {
	return send[T](ctx, c, http.MethodDelete, path, nil, opts)
}

// NoContent is the type parameter for calls whose response body is ignored.
type NoContent struct{}

func send[T any](ctx context.Context, c Client, method, path string, body any, opts []RequestOption) (T, error) {
	var out T

	req := &Request{URL: path}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return out, NewValidationError("cannot encode request body", "", err).withRequest(method, path)
		}
		req.Body = payload
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.Do(ctx, method, req)
	if err != nil {
		return out, err
	}

	if err := decodeInto(resp, &out); err != nil {
		return out, NewDecodeError("cannot decode response body", resp.Body, err).withRequest(method, path)
	}
	return out, nil
}

func decodeInto[T any](resp *Response, out *T) error {
	if _, skip := any(out).(*NoContent); skip {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body, out)
}
