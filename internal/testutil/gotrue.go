package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// FakeGoTrue is an in-process Supabase auth server. It issues opaque tokens and
// rotates refresh tokens: every refresh token can be exchanged exactly once.
type FakeGoTrue struct {
	*httptest.Server

	// ExpiresIn is the lifetime in seconds reported for new access tokens.
	ExpiresIn int

	anonKey string
	now     func() time.Time

	mu       sync.Mutex
	seq      int
	users    map[string]fakeUser
	access   map[string]string // access token -> email
	refresh  map[string]string // unused refresh token -> email
	failNext int

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

type fakeUser struct {
	id       string
	password string
}

type goTrueTokenRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type goTrueTokenResponse struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         goTrueUser `json:"user"`
}

// NewFakeGoTrue starts the server and registers TestEmail/TestPassword.
// It is closed when the test ends.
func NewFakeGoTrue(t testing.TB) *FakeGoTrue {
	t.Helper()

	f := &FakeGoTrue{
		ExpiresIn: 3600,
		anonKey:   TestAnonKey,
		now:       time.Now,
		users:     make(map[string]fakeUser),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
	}
	f.AddUser(TestEmail, TestPassword)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	g := e.Group("/auth/v1", f.requireAPIKey)
	g.POST("/token", f.token)
	g.POST("/logout", f.logout)
	g.GET("/user", f.user)

	f.Server = httptest.NewServer(e)
	t.Cleanup(f.Close)
	return f
}

// AddUser registers an account.
func (f *FakeGoTrue) AddUser(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeUser{id: fmt.Sprintf("user-%d", len(f.users)+1), password: password}
}

// Authorized reports whether token is a live access token. It is suitable as the
// token check of a FakeBackend.
func (f *FakeGoTrue) Authorized(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.access[token]
	return ok
}

// ExpireAccessTokens invalidates every issued access token, as if they had all expired.
func (f *FakeGoTrue) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.access)
}

// FailNextRefreshes makes the next n refresh exchanges fail with invalid_grant.
func (f *FakeGoTrue) FailNextRefreshes(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// RefreshCalls returns the number of refresh_token grants received.
func (f *FakeGoTrue) RefreshCalls() int { return int(f.refreshCalls.Load()) }

// LogoutCalls returns the number of logout requests received.
func (f *FakeGoTrue) LogoutCalls() int { return int(f.logoutCalls.Load()) }

func (f *FakeGoTrue) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("apikey") != f.anonKey {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "No API key found in request"})
		}
		return next(c)
	}
}

func (f *FakeGoTrue) token(c echo.Context) error {
	var req goTrueTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request", "error_description": err.Error()})
	}

	switch c.QueryParam("grant_type") {
	case "password":
		return f.passwordGrant(c, req)
	case "refresh_token":
		f.refreshCalls.Add(1)
		return f.refreshGrant(c, req)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type", "error_description": "unsupported grant type"})
	}
}

func (f *FakeGoTrue) passwordGrant(c echo.Context, req goTrueTokenRequest) error {
	f.mu.Lock()
	user, ok := f.users[req.Email]
	if !ok || user.password != req.Password {
		f.mu.Unlock()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
	}
	resp := f.issueLocked(req.Email, user.id)
	f.mu.Unlock()
	return c.JSON(http.StatusOK, resp)
}

func (f *FakeGoTrue) refreshGrant(c echo.Context, req goTrueTokenRequest) error {
	f.mu.Lock()
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Refresh Token Not Found"})
	}
	email, ok := f.refresh[req.RefreshToken]
	if !ok {
		f.mu.Unlock()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid Refresh Token: Already Used"})
	}
	delete(f.refresh, req.RefreshToken)
	resp := f.issueLocked(email, f.users[email].id)
	f.mu.Unlock()
	return c.JSON(http.StatusOK, resp)
}

func (f *FakeGoTrue) issueLocked(email, id string) goTrueTokenResponse {
	f.seq++
	access := fmt.Sprintf("access-%d", f.seq)
	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.access[access] = email
	f.refresh[refresh] = email

	return goTrueTokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    f.ExpiresIn,
		ExpiresAt:    f.now().Add(time.Duration(f.ExpiresIn) * time.Second).Unix(),
		RefreshToken: refresh,
		User:         goTrueUser{ID: id, Email: email},
	}
}

func (f *FakeGoTrue) logout(c echo.Context) error {
	f.logoutCalls.Add(1)
	token := bearer(c.Request())

	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.access[token]
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
	}
	for k, v := range f.access {
		if v == email {
			delete(f.access, k)
		}
	}
	for k, v := range f.refresh {
		if v == email {
			delete(f.refresh, k)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (f *FakeGoTrue) user(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.access[bearer(c.Request())]
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
	}
	return c.JSON(http.StatusOK, goTrueUser{ID: f.users[email].id, Email: email})
}

func bearer(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token
}
