package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/examprep/client-go/config"
	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/logger"
)

const (
	tokenPath  = "/auth/v1/token"
	logoutPath = "/auth/v1/logout"

	// DefaultExpirySkew refreshes tokens this long before they expire.
	DefaultExpirySkew = 30 * time.Second

	refreshGroupKey = "refresh"
)

// SupabaseProvider signs users in against Supabase auth (GoTrue) and keeps their
// session in a Store. It implements httpclient.SessionProvider.
type SupabaseProvider struct {
	client httpclient.Client
	store  Store
	logger logger.Logger
	now    func() time.Time
	skew   time.Duration

	refreshes singleflight.Group
}

var _ httpclient.SessionProvider = (*SupabaseProvider)(nil)

// ProviderOption customizes a SupabaseProvider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	now       func() time.Time
	skew      time.Duration
	transport httpclient.Transport
	timeout   time.Duration
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProviderOption {
	return func(o *providerOptions) { o.now = now }
}

// WithExpirySkew sets how early an access token counts as expired.
func WithExpirySkew(d time.Duration) ProviderOption {
	return func(o *providerOptions) { o.skew = d }
}

// WithTransport sends auth requests through t.
func WithTransport(t httpclient.Transport) ProviderOption {
	return func(o *providerOptions) { o.transport = t }
}

// WithTimeout sets the per-attempt timeout of auth requests.
func WithTimeout(d time.Duration) ProviderOption {
	return func(o *providerOptions) { o.timeout = d }
}

// NewSupabaseProvider creates a provider for the configured Supabase project.
// Its HTTP client carries the anon key and has no session provider of its own.
func NewSupabaseProvider(log logger.Logger, cfg *config.SupabaseConfig, store Store, opts ...ProviderOption) (*SupabaseProvider, error) {
	if !config.IsSupabaseConfigured(cfg) {
		return nil, config.NewNotConfiguredError("supabase auth", config.EnvVarName("supabase.url"), "supabase.url")
	}
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	if log == nil {
		log = logger.Nop()
	}

	o := providerOptions{now: time.Now, skew: DefaultExpirySkew}
	for _, opt := range opts {
		opt(&o)
	}

	b := httpclient.NewBuilder(log).
		WithBaseURL(cfg.URL).
		WithDefaultHeader("apikey", cfg.AnonKey)
	if o.timeout > 0 {
		b = b.WithTimeout(o.timeout)
	}
	if o.transport != nil {
		b = b.WithTransport(o.transport)
	}

	return &SupabaseProvider{
		client: b.Build(),
		store:  store,
		logger: log,
		now:    o.now,
		skew:   o.skew,
	}, nil
}

// SignInWithPassword exchanges email and password for a session and stores it.
func (p *SupabaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, httpclient.NewValidationError("email and password are required", "email", nil)
	}

	resp, err := httpclient.Post[tokenResponse](ctx, p.client, tokenPath,
		map[string]string{"email": email, "password": password},
		httpclient.WithQuery("grant_type", "password"),
	)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	s, err := resp.session(p.now())
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := p.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	p.logger.Info().
		Str("user_id", s.User.ID).
		Str("expires_at", s.ExpiresAt.Format(time.RFC3339)).
		Msg("Signed in")
	return s, nil
}

// Session returns the stored session or ErrNoSession.
func (p *SupabaseProvider) Session(ctx context.Context) (*Session, error) {
	return p.store.Load(ctx)
}

// CurrentToken returns the access token, refreshing it first when it is about to
// expire. It returns "" when nobody is signed in, so anonymous requests still go out.
// When the early refresh fails the stale token is returned and the API's 401 drives
// the client's own refresh and sign-out.
func (p *SupabaseProvider) CurrentToken(ctx context.Context) (string, error) {
	s, err := p.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if !s.Expired(p.now(), p.skew) || s.RefreshToken == "" {
		return s.AccessToken, nil
	}

	token, err := p.Refresh(ctx)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("user_id", s.User.ID).
			Msg("Early token refresh failed, using stored token")
		return s.AccessToken, nil
	}
	return token, nil
}

// Refresh exchanges the stored refresh token for a new session. Concurrent calls
// share one exchange: refresh tokens rotate and each can be spent only once.
func (p *SupabaseProvider) Refresh(ctx context.Context) (string, error) {
	v, err, shared := p.refreshes.Do(refreshGroupKey, func() (any, error) {
		return p.refresh(ctx)
	})
	if shared {
		p.logger.Debug().Msg("Joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *SupabaseProvider) refresh(ctx context.Context) (string, error) {
	current, err := p.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if current.RefreshToken == "" {
		return "", fmt.Errorf("refresh session: %w", ErrNoSession)
	}

	// The exchange spends the refresh token, so it is never resent.
	resp, err := httpclient.Post[tokenResponse](ctx, p.client, tokenPath,
		map[string]string{"refresh_token": current.RefreshToken},
		httpclient.WithQuery("grant_type", "refresh_token"),
		httpclient.WithMaxRetries(0),
	)
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}

	s, err := resp.session(p.now())
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}
	if s.User.ID == "" {
		s.User = current.User
	}
	if err := p.store.Save(ctx, s); err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}

	p.logger.Info().
		Str("user_id", s.User.ID).
		Str("expires_at", s.ExpiresAt.Format(time.RFC3339)).
		Msg("Session refreshed")
	return s.AccessToken, nil
}

// SignOut revokes the session on the server when possible and always clears the
// local copy. Only a failure to clear the store is returned.
func (p *SupabaseProvider) SignOut(ctx context.Context) error {
	s, err := p.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil
	case err != nil:
		p.logger.Warn().Err(err).Msg("Could not read session before sign out")
	default:
		_, lerr := httpclient.Post[httpclient.NoContent](ctx, p.client, logoutPath, nil,
			httpclient.WithHeader("Authorization", "Bearer "+s.AccessToken),
			httpclient.WithMaxRetries(0),
		)
		if lerr != nil {
			p.logger.Warn().Err(lerr).Str("user_id", s.User.ID).Msg("Server side sign out failed")
		}
	}

	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	p.logger.Info().Msg("Signed out")
	return nil
}
