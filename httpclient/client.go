package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/examprep/client-go/httpclient/internal/tracking"
	"github.com/examprep/client-go/logger"
	"github.com/examprep/client-go/trace"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	contentTypeJSON     = "application/json"

	// All requests of one client share a session, so they share one refresh slot.
	refreshKey = "session"
)

// client implements the Client interface
type client struct {
	logger    logger.Logger
	config    *Config
	transport Transport
	refresher *refreshCoordinator
	limiter   *rate.Limiter
	sleep     func(ctx context.Context, d time.Duration) error
}

// requestState tracks one logical request across attempts.
type requestState struct {
	method     string
	req        *Request
	url        string
	traceID    string
	maxRetries int
	// attempt counts retries already spent on transient failures.
	attempt int
	// retried is set once a 401 has triggered (or waited on) a refresh; a second
	// 401 is then final.
	retried bool
	// token is the refreshed access token; it replaces any Authorization header.
	token string
	start time.Time
	calls int64
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, http.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, http.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, http.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, req)
}

// Do sends req, refreshing the session once on 401 and retrying transient failures.
// Every failure is returned as *Error.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request is nil", "", nil).withRequest(method, "")
	}

	target, err := c.resolveURL(req)
	if err != nil {
		return nil, NewValidationError("invalid request url", "URL", err).withRequest(method, req.URL)
	}

	ctx, traceID := c.ensureTraceID(ctx)

	st := &requestState{
		method:     method,
		req:        req,
		url:        target,
		traceID:    traceID,
		maxRetries: c.config.MaxRetries,
		start:      time.Now(),
	}
	if req.MaxRetries != nil {
		st.maxRetries = max(*req.MaxRetries, 0)
	}

	resp, cerr := c.execute(ctx, st)
	if cerr != nil {
		c.logFailure(st, cerr)
		return nil, cerr
	}
	return resp, nil
}

func (c *client) execute(ctx context.Context, st *requestState) (*Response, *Error) {
	for {
		if err := c.waitLimiter(ctx); err != nil {
			return nil, limiterError(ctx, err).withRequest(st.method, st.url)
		}

		resp, cerr := c.attempt(ctx, st)
		if cerr == nil {
			return resp, nil
		}

		switch {
		case cerr.Type == AuthError && !st.retried && c.config.SessionProvider != nil:
			st.retried = true
			token, rerr := c.refreshSession(ctx, st, cerr)
			if rerr != nil {
				return nil, rerr
			}
			st.token = token

		case cerr.Retryable() && st.attempt < st.maxRetries:
			delay := backoffDelay(c.config.RetryDelay, c.config.MaxRetryDelay, st.attempt)
			tracking.RecordRetry(ctx, st.method, string(cerr.Type))
			c.logger.Warn().
				Str("method", st.method).
				Str("url", st.url).
				Str("request_id", st.traceID).
				Str("error_type", string(cerr.Type)).
				Int("attempt", st.attempt+1).
				Int("max_retries", st.maxRetries).
				Dur("delay", delay).
				Msg("Retrying REST client request")

			if err := c.sleep(ctx, delay); err != nil {
				return nil, NewCanceledError("request canceled during retry backoff", err).withRequest(st.method, st.url)
			}
			st.attempt++

		default:
			return nil, cerr
		}
	}
}

// attempt sends the request once.
func (c *client) attempt(ctx context.Context, st *requestState) (*Response, *Error) {
	timeout := c.config.Timeout
	if st.req.Timeout > 0 {
		timeout = st.req.Timeout
	}
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	httpReq, cerr := c.newHTTPRequest(ctx, attemptCtx, st)
	if cerr != nil {
		return nil, cerr
	}

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(attemptCtx, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err).withRequest(st.method, st.url)
		}
	}

	c.logRequest(httpReq, st.req.Body, st.traceID)

	st.calls++
	sent := time.Now()
	resp, err := c.transport.Send(attemptCtx, httpReq)
	if err != nil {
		cerr := classifyTransportError(ctx, err, timeout).withRequest(st.method, st.url)
		tracking.RecordAttempt(ctx, st.method, 0, string(cerr.Type), time.Since(sent))
		return nil, cerr
	}
	defer resp.Body.Close()

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(attemptCtx, httpReq, resp); err != nil {
			return nil, NewInterceptorError("response interceptor failed", "response", err).withRequest(st.method, st.url)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		cerr := classifyTransportError(ctx, err, timeout).withRequest(st.method, st.url)
		cerr.Status = resp.StatusCode
		tracking.RecordAttempt(ctx, st.method, resp.StatusCode, string(cerr.Type), time.Since(sent))
		return nil, cerr
	}
	tracking.RecordAttempt(ctx, st.method, resp.StatusCode, "", time.Since(sent))

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(st.start),
			CallCount:   st.calls,
		},
	}
	c.logResponse(response, st.traceID)

	if !IsSuccessStatus(resp.StatusCode) {
		return nil, NewHTTPError(extractErrorMessage(body, resp.StatusCode), resp.StatusCode, body).withRequest(st.method, st.url)
	}
	return response, nil
}

// newHTTPRequest builds the wire request for one attempt. The token lookup uses
// ctx rather than attemptCtx so a slow provider does not eat the attempt timeout.
func (c *client) newHTTPRequest(ctx, attemptCtx context.Context, st *requestState) (*http.Request, *Error) {
	var body io.Reader = http.NoBody
	if len(st.req.Body) > 0 {
		body = bytes.NewReader(st.req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, st.method, st.url, body)
	if err != nil {
		return nil, NewValidationError("cannot build request", "", err).withRequest(st.method, st.url)
	}

	httpReq.Header.Set(headerAccept, contentTypeJSON)
	if len(st.req.Body) > 0 {
		httpReq.Header.Set(headerContentType, contentTypeJSON)
	}
	for k, v := range c.config.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range st.req.Headers {
		httpReq.Header.Set(k, v)
	}

	traceHeader := c.config.TraceIDHeader
	if traceHeader == "" {
		traceHeader = HeaderXRequestID
	}
	if httpReq.Header.Get(traceHeader) == "" {
		httpReq.Header.Set(traceHeader, st.traceID)
	}

	c.applyAuthorization(ctx, httpReq, st)
	return httpReq, nil
}

func (c *client) applyAuthorization(ctx context.Context, httpReq *http.Request, st *requestState) {
	if st.token != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+st.token)
		return
	}
	if c.config.SessionProvider == nil || httpReq.Header.Get(headerAuthorization) != "" {
		return
	}

	token, err := c.config.SessionProvider.CurrentToken(ctx)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("request_id", st.traceID).
			Msg("Could not obtain session token, sending request without it")
		return
	}
	if token != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+token)
	}
}

// refreshSession refreshes the token or waits for the refresh already running.
func (c *client) refreshSession(ctx context.Context, st *requestState, authErr *Error) (string, *Error) {
	token, leader, err := c.refresher.RunExclusive(ctx, refreshKey, func(rctx context.Context) (string, error) {
		return c.runRefresh(rctx, st)
	})
	if err == nil {
		return token, nil
	}

	if !leader && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return "", NewCanceledError("request canceled while waiting for session refresh", err).withRequest(st.method, st.url)
	}

	rerr := NewRefreshError("session refresh failed", err).withRequest(st.method, st.url)
	rerr.Body = authErr.Body
	return "", rerr
}

// runRefresh runs on the leader only. Sign-out and the expiry hook happen here so
// they run once, before any queued request is released.
func (c *client) runRefresh(ctx context.Context, st *requestState) (string, error) {
	started := time.Now()
	token, err := c.config.SessionProvider.Refresh(ctx)
	if err == nil && token == "" {
		err = ErrEmptyToken
	}

	if err != nil {
		tracking.RecordRefresh(ctx, tracking.OutcomeFailure)
		c.logger.Error().
			Err(err).
			Str("request_id", st.traceID).
			Dur("elapsed", time.Since(started)).
			Msg("Session refresh failed, signing out")
		c.expireSession(ctx, err)
		return "", err
	}

	tracking.RecordRefresh(ctx, tracking.OutcomeSuccess)
	c.logger.Info().
		Str("request_id", st.traceID).
		Dur("elapsed", time.Since(started)).
		Msg("Session token refreshed")
	return token, nil
}

func (c *client) expireSession(ctx context.Context, cause error) {
	if err := c.config.SessionProvider.SignOut(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Sign out after failed refresh returned an error")
	}
	if c.config.OnSessionExpired != nil {
		c.config.OnSessionExpired(ctx, cause)
	}
}

func (c *client) onRefreshQueued(ctx context.Context) {
	tracking.RecordQueuedWaiter(ctx)
	if id, ok := trace.IDFromContext(ctx); ok {
		c.logger.Debug().Str("request_id", id).Msg("Request queued behind session refresh")
	}
}

// limiterError reports a canceled context as CanceledError. Anything else means the
// wait ran into, or would overrun, the deadline.
func limiterError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return NewCanceledError("request canceled while rate limited", err)
	}
	return NewTimeoutError("rate limit wait would exceed the deadline", 0, err)
}

func (c *client) waitLimiter(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *client) ensureTraceID(ctx context.Context) (context.Context, string) {
	if id, ok := trace.IDFromContext(ctx); ok {
		return ctx, id
	}
	gen := c.config.NewTraceID
	if gen == nil {
		gen = trace.NewID
	}
	id := gen()
	return trace.WithTraceID(ctx, id), id
}

// resolveURL joins relative URLs to the base URL and appends the request query.
func (c *client) resolveURL(req *Request) (string, error) {
	raw := req.URL
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if !u.IsAbs() {
		if c.config.BaseURL == "" {
			return "", errors.New("relative url without base url")
		}
		joined := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(raw, "/")
		if u, err = url.Parse(joined); err != nil {
			return "", err
		}
	}

	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *client) logFailure(st *requestState, cerr *Error) {
	event := c.logger.Error()
	if cerr.Type == ClientError || cerr.Type == ValidationError || cerr.Type == CanceledError {
		event = c.logger.Warn()
	}
	event.
		Str("method", st.method).
		Str("url", st.url).
		Str("request_id", st.traceID).
		Str("error_type", string(cerr.Type)).
		Str("code", cerr.Code).
		Int("status", cerr.Status).
		Int64("call_count", st.calls).
		Dur("elapsed", time.Since(st.start)).
		Msg(cerr.Message)
}
