// Package httpclient is a REST client that injects bearer tokens from a session
// provider, refreshes them once per client when the API answers 401, retries
// transient failures with exponential backoff and normalizes every failure into *Error.
package httpclient

import (
	"context"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/examprep/client-go/trace"
)

// HeaderXRequestID is the standard header name for request tracing
const HeaderXRequestID = trace.HeaderXRequestID

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request describes one logical call. It is never mutated by the client, so the
// same value can be sent again by the caller.
type Request struct {
	// URL is absolute or a path resolved against the configured base URL.
	URL     string
	Headers map[string]string
	Query   url.Values
	Body    []byte
	// Timeout overrides the per-attempt timeout.
	Timeout time.Duration
	// MaxRetries overrides the retry budget for transient failures.
	MaxRetries *int
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	// ElapsedTime covers every attempt, backoff and refresh wait.
	ElapsedTime time.Duration
	// CallCount is the number of attempts put on the wire.
	CallCount int64
}

// SessionProvider owns the user's session. The client only reads tokens from it
// and asks it to refresh or sign out; it never stores tokens itself.
type SessionProvider interface {
	// CurrentToken returns the access token to send, or "" when signed out.
	CurrentToken(ctx context.Context) (string, error)
	// Refresh exchanges the refresh token and returns the new access token.
	Refresh(ctx context.Context) (string, error)
	// SignOut discards the session.
	SignOut(ctx context.Context) error
}

// SessionExpiredHandler is called once after a failed refresh has signed the user out.
type SessionExpiredHandler func(ctx context.Context, cause error)

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	// BaseURL is prefixed to relative request URLs.
	BaseURL string
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxRetries is the number of resends allowed for transient failures.
	MaxRetries int
	// RetryDelay is the backoff base: attempt n waits RetryDelay * 2^n.
	RetryDelay time.Duration
	// MaxRetryDelay caps a single backoff wait.
	MaxRetryDelay time.Duration
	// RateLimit is the number of attempts per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	SessionProvider  SessionProvider
	OnSessionExpired SessionExpiredHandler

	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
}

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, trace.EnsureTraceID(ctx))
		}
		return nil
	}
}
