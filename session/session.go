// Package session keeps the signed-in user's Supabase session and exposes it to
// httpclient as a SessionProvider.
package session

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// User identifies the account a session belongs to.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a Supabase auth session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is expired at now, or will be within skew.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}

// tokenResponse is the GoTrue /token payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

var errNoAccessToken = errors.New("auth server returned no access token")

func (r *tokenResponse) session(now time.Time) (*Session, error) {
	if r.AccessToken == "" {
		return nil, errNoAccessToken
	}

	s := &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		User:         r.User,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}
	return s, nil
}
