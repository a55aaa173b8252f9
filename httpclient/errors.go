package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/tidwall/gjson"
)

// ErrorType classifies every failure the client can return.
type ErrorType string

const (
	// NetworkError means no response was received: refused, reset, DNS failure.
	NetworkError ErrorType = "network"
	// TimeoutError means the attempt exceeded its deadline.
	TimeoutError ErrorType = "timeout"
	// ServerError is a 5xx response.
	ServerError ErrorType = "server"
	// ClientError is a 4xx response other than 401.
	ClientError ErrorType = "client"
	// AuthError is a 401 that could not be recovered by a token refresh.
	AuthError ErrorType = "auth"
	// RefreshError means the session provider failed to refresh the token.
	RefreshError ErrorType = "refresh"
	// CanceledError means the caller's context ended while the request was pending.
	CanceledError ErrorType = "canceled"
	// DecodeError means a 2xx payload could not be decoded.
	DecodeError ErrorType = "decode"
	// InterceptorError means a request or response interceptor rejected the exchange.
	InterceptorError ErrorType = "interceptor"
	// ValidationError means the request was rejected before anything was sent.
	ValidationError ErrorType = "validation"
)

// Error codes carried in Error.Code.
const (
	CodeNetwork      = "ERR_NETWORK"
	CodeTimeout      = "ETIMEDOUT"
	CodeDNS          = "ENOTFOUND"
	CodeConnReset    = "ECONNRESET"
	CodeConnRefused  = "ECONNREFUSED"
	CodeBadResponse  = "ERR_BAD_RESPONSE"
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
	CodeRefresh      = "ERR_REFRESH"
	CodeCanceled     = "ERR_CANCELED"
	CodeDecode       = "ERR_DECODE"
	CodeInterceptor  = "ERR_INTERCEPTOR"
	CodeValidation   = "ERR_VALIDATION"
)

var (
	// ErrEmptyToken is returned when a refresh succeeds without yielding a token.
	ErrEmptyToken = errors.New("session refresh returned no access token")
	// ErrRefreshAborted is handed to queued requests when the refresh never completed.
	ErrRefreshAborted = errors.New("session refresh aborted")
)

// Error is the normalized failure returned by every Client operation.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Status     int       `json:"status,omitempty"`
	StatusText string    `json:"statusText,omitempty"`
	URL        string    `json:"url,omitempty"`
	Method     string    `json:"method,omitempty"`
	Code       string    `json:"code,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	// Body holds the raw response body for HTTP failures.
	Body []byte `json:"-"`
	// Field names the offending input for validation failures.
	Field string `json:"field,omitempty"`
	// Stage is "request" or "response" for interceptor failures.
	Stage string `json:"stage,omitempty"`
	// Timeout is the deadline that was exceeded for timeout failures.
	Timeout time.Duration `json:"-"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	switch {
	case e.Status != 0:
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	case e.Timeout > 0:
		msg = fmt.Sprintf("%s (after %v)", msg, e.Timeout)
	case e.Field != "":
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	case e.Stage != "":
		msg = fmt.Sprintf("%s (stage %s)", msg, e.Stage)
	}
	if e.Method != "" || e.URL != "" {
		msg = fmt.Sprintf("%s [%s %s]", msg, e.Method, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *Error) StatusCode() int { return e.Status }

// Retryable reports whether the failure may succeed when sent again.
func (e *Error) Retryable() bool { return IsRetryable(e.Type) }

func (e *Error) withRequest(method, url string) *Error {
	if e.Method == "" {
		e.Method = method
	}
	if e.URL == "" {
		e.URL = url
	}
	return e
}

func newError(t ErrorType, code, message string, cause error) *Error {
	return &Error{
		Type:      t,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
}

// NewNetworkError creates a retryable failure for requests that got no response.
func NewNetworkError(message string, cause error) *Error {
	return newError(NetworkError, CodeNetwork, message, cause)
}

// NewTimeoutError creates a retryable failure for an attempt that exceeded timeout.
func NewTimeoutError(message string, timeout time.Duration, cause error) *Error {
	e := newError(TimeoutError, CodeTimeout, message, cause)
	e.Timeout = timeout
	return e
}

// NewHTTPError creates the failure for a non-2xx response. The type follows the
// status: 401 is AuthError, 5xx ServerError, anything else ClientError.
func NewHTTPError(message string, status int, body []byte) *Error {
	t, code := ClientError, CodeBadRequest
	switch {
	case status == http.StatusUnauthorized:
		t, code = AuthError, CodeUnauthorized
	case status >= 500:
		t, code = ServerError, CodeBadResponse
	}
	e := newError(t, code, message, nil)
	e.Status = status
	e.StatusText = http.StatusText(status)
	e.Body = body
	return e
}

// NewRefreshError creates the terminal failure returned when a token refresh fails.
func NewRefreshError(message string, cause error) *Error {
	e := newError(RefreshError, CodeRefresh, message, cause)
	e.Status = http.StatusUnauthorized
	e.StatusText = http.StatusText(http.StatusUnauthorized)
	return e
}

// NewCanceledError wraps the context error that ended a pending request.
func NewCanceledError(message string, cause error) *Error {
	return newError(CanceledError, CodeCanceled, message, cause)
}

// NewDecodeError creates the failure for a 2xx payload that does not match the target type.
func NewDecodeError(message string, body []byte, cause error) *Error {
	e := newError(DecodeError, CodeDecode, message, cause)
	e.Body = body
	return e
}

// NewValidationError creates the failure for input rejected before sending.
func NewValidationError(message, field string, cause error) *Error {
	e := newError(ValidationError, CodeValidation, message, cause)
	e.Field = field
	return e
}

// NewInterceptorError creates the failure for an interceptor that returned an error.
func NewInterceptorError(message, stage string, cause error) *Error {
	e := newError(InterceptorError, CodeInterceptor, message, cause)
	e.Stage = stage
	return e
}

// AsError returns the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorType reports whether err carries an *Error of type t.
func IsErrorType(err error, t ErrorType) bool {
	e, ok := AsError(err)
	return ok && e.Type == t
}

// IsHTTPStatusError reports whether err is a failure for the given HTTP status.
func IsHTTPStatusError(err error, statusCode int) bool {
	e, ok := AsError(err)
	return ok && e.Status == statusCode
}

// IsSuccessStatus checks if the status code indicates success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// classifyTransportError maps a transport failure to the closed set of error types.
// parent is the caller's context; a failure caused by it is a cancellation even when
// it surfaced as a deadline, while the per-attempt deadline is a timeout.
func classifyTransportError(parent context.Context, err error, timeout time.Duration) *Error {
	if parent.Err() != nil {
		return NewCanceledError("request canceled", parent.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError("request timed out", timeout, err)
	}

	e := NewNetworkError("no response received", err)

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		e.Code = CodeDNS
		e.Message = "host lookup failed"
	case errors.Is(err, syscall.ECONNRESET):
		e.Code = CodeConnReset
		e.Message = "connection reset by peer"
	case errors.Is(err, syscall.ECONNREFUSED):
		e.Code = CodeConnRefused
		e.Message = "connection refused"
	}
	return e
}

// messagePaths are the body fields checked, in order, for a human readable error.
var messagePaths = []string{"message", "detail", "detail.0.msg", "error_description", "error", "msg"}

// extractErrorMessage pulls the backend's error text out of a JSON body and falls
// back to the status text.
func extractErrorMessage(body []byte, status int) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		for _, path := range messagePaths {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", status)
}
