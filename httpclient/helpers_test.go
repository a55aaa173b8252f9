package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/examprep/client-go/logger"
)

const (
	testOldToken = "old-token"
	testNewToken = "new-token"
)

var errRefreshRejected = errors.New("refresh token revoked")

// fakeSession is a SessionProvider whose refresh can be held open by the test.
type fakeSession struct {
	mu         sync.Mutex
	token      string
	tokenErr   error
	refreshTok string
	refreshErr error
	// hold, when set, blocks Refresh until it is closed.
	hold chan struct{}
	// refreshing is closed when Refresh is entered for the first time.
	refreshing chan struct{}

	refreshCalls atomic.Int32
	signOutCalls atomic.Int32
	refreshDone  atomic.Bool
}

func newFakeSession(token string) *fakeSession {
	return &fakeSession{token: token, refreshTok: testNewToken, refreshing: make(chan struct{})}
}

func (s *fakeSession) CurrentToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.tokenErr
}

func (s *fakeSession) Refresh(ctx context.Context) (string, error) {
	if s.refreshCalls.Add(1) == 1 {
		close(s.refreshing)
	}
	if s.hold != nil {
		<-s.hold
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refreshDone.Store(true)
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.token = s.refreshTok
	return s.refreshTok, nil
}

func (s *fakeSession) SignOut(context.Context) error {
	s.signOutCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// tokenServer answers 200 for the accepted bearer token and 401 otherwise.
type tokenServer struct {
	*httptest.Server
	accept string

	mu   sync.Mutex
	seen []string
	// sawNewBeforeRefresh is set when the accepted token arrives before session.refreshDone.
	sawNewBeforeRefresh atomic.Bool
	session             *fakeSession
}

func newTokenServer(t *testing.T, accept string, session *fakeSession) *tokenServer {
	t.Helper()
	ts := &tokenServer{accept: accept, session: session}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get(headerAuthorization)
		ts.mu.Lock()
		ts.seen = append(ts.seen, auth)
		ts.mu.Unlock()

		if auth == "Bearer "+ts.accept {
			if ts.session != nil && !ts.session.refreshDone.Load() {
				ts.sawNewBeforeRefresh.Store(true)
			}
			w.Header().Set(headerContentType, contentTypeJSON)
			_, _ = io.WriteString(w, `{"ok":true}`)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"JWT expired"}`)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) requests() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.seen...)
}

// scriptedTransport replays a fixed sequence of outcomes and records requests.
type scriptedTransport struct {
	mu       sync.Mutex
	steps    []func(*http.Request) (*http.Response, error)
	requests []*http.Request
}

func (s *scriptedTransport) Send(_ context.Context, req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if idx >= len(s.steps) {
		return jsonResponse(http.StatusOK, `{}`), nil
	}
	return s.steps[idx](req)
}

func (s *scriptedTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) { return jsonResponse(status, body), nil }
}

func fail(err error) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) { return nil, err }
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{headerContentType: []string{contentTypeJSON}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// sleepRecorder replaces the backoff sleep and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// newTestClient builds a client with quiet logging and recorded backoff.
func newTestClient(b *Builder) (*client, *sleepRecorder) {
	c := b.Build().(*client)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	return c, rec
}

func quietBuilder() *Builder {
	return NewBuilder(logger.Nop())
}
