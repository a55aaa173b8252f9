package httpclient

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Transport sends a single attempt. It returns an error only when no response
// was received; any status code is a successful send.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport adapts an *http.Client. A nil client gets the default transport
// wrapped with otelhttp, so each attempt becomes a client span and carries W3C
// trace context headers.
//
// Timeouts are applied per attempt through the request context; client.Timeout
// should stay zero.
func NewHTTPTransport(client *http.Client) Transport {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &httpTransport{client: client}
}

func (t *httpTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return t.client.Do(req.WithContext(ctx))
}
