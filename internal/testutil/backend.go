package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// FakeBackendService is the service name of the fake API's server spans.
const FakeBackendService = "examprep-fake-api"

// RecordedRequest is what FakeBackend saw for one request.
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	RequestID     string
	// TraceID is the trace of the server span, set when the client propagated
	// a W3C trace context and a global propagator is installed.
	TraceID string
	Body    []byte
}

// FakeBackend is an echo application standing in for the exam-prep REST API.
// Routes are registered by the test; every request is recorded before it is
// authenticated.
type FakeBackend struct {
	*httptest.Server
	Echo *echo.Echo

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewFakeBackend starts the server. When authorized is not nil, requests whose
// bearer token it rejects get a FastAPI style 401.
func NewFakeBackend(t testing.TB, authorized func(token string) bool) *FakeBackend {
	t.Helper()

	b := &FakeBackend{Echo: echo.New()}
	b.Echo.HideBanner = true
	b.Echo.HidePort = true
	b.Echo.Use(otelecho.Middleware(FakeBackendService))
	b.Echo.Use(b.record)
	if authorized != nil {
		b.Echo.Use(requireBearer(authorized))
	}

	b.Server = httptest.NewServer(b.Echo)
	t.Cleanup(b.Close)
	return b
}

// Handle registers h for method and path. Paths use echo syntax, e.g. /api/v1/questions/:id.
func (b *FakeBackend) Handle(method, path string, h echo.HandlerFunc) {
	b.Echo.Add(method, path, h)
}

// JSON registers a route answering status with body encoded as JSON.
func (b *FakeBackend) JSON(method, path string, status int, body any) {
	b.Handle(method, path, func(c echo.Context) error {
		return c.JSON(status, body)
	})
}

// Requests returns every recorded request in arrival order.
func (b *FakeBackend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (b *FakeBackend) LastRequest() RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return RecordedRequest{}
	}
	return b.requests[len(b.requests)-1]
}

func (b *FakeBackend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		var traceID string
		if sc := oteltrace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}

		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        req.Method,
			Path:          req.URL.Path,
			RawQuery:      req.URL.RawQuery,
			Authorization: req.Header.Get("Authorization"),
			RequestID:     req.Header.Get("X-Request-ID"),
			TraceID:       traceID,
			Body:          body,
		})
		b.mu.Unlock()

		return next(c)
	}
}

func requireBearer(authorized func(string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || !authorized(token) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			}
			return next(c)
		}
	}
}
