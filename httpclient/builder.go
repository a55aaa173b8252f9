package httpclient

import (
	"maps"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/examprep/client-go/logger"
	"github.com/examprep/client-go/trace"
)

// Defaults applied by NewBuilder.
const (
	DefaultTimeout            = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = time.Second
	DefaultMaxRetryDelay      = 30 * time.Second
	DefaultMaxPayloadLogBytes = 1024
)

// Builder assembles a Client.
type Builder struct {
	logger    logger.Logger
	config    *Config
	transport Transport
}

// NewBuilder creates a builder with the default timeout and retry policy.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		logger: log,
		config: &Config{
			Timeout:            DefaultTimeout,
			MaxRetries:         DefaultMaxRetries,
			RetryDelay:         DefaultRetryDelay,
			MaxRetryDelay:      DefaultMaxRetryDelay,
			RateBurst:          1,
			DefaultHeaders:     make(map[string]string),
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
			TraceIDHeader:      HeaderXRequestID,
		},
	}
}

// WithBaseURL sets the prefix for relative request URLs.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the retry budget and the backoff base.
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = retryDelay
	return b
}

// WithMaxRetryDelay caps a single backoff wait.
func (b *Builder) WithMaxRetryDelay(d time.Duration) *Builder {
	b.config.MaxRetryDelay = d
	return b
}

// WithRateLimit limits attempts to rps per second with the given burst.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = rps
	b.config.RateBurst = burst
	return b
}

// WithSessionProvider enables bearer injection and refresh on 401.
func (b *Builder) WithSessionProvider(p SessionProvider) *Builder {
	b.config.SessionProvider = p
	return b
}

// WithSessionExpiredHandler sets the callback run after a failed refresh signed the user out.
func (b *Builder) WithSessionExpiredHandler(fn SessionExpiredHandler) *Builder {
	b.config.OnSessionExpired = fn
	return b
}

// WithDefaultHeader adds a header sent with every request.
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithDefaultHeaders adds headers sent with every request.
func (b *Builder) WithDefaultHeaders(headers map[string]string) *Builder {
	maps.Copy(b.config.DefaultHeaders, headers)
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithLogPayloads enables debug logging of headers and truncated bodies.
func (b *Builder) WithLogPayloads(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceIDHeader sets the header carrying the request ID.
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	if header != "" {
		b.config.TraceIDHeader = header
	}
	return b
}

// WithTraceIDGenerator replaces the uuid generator used when ctx carries no ID.
func (b *Builder) WithTraceIDGenerator(fn func() string) *Builder {
	b.config.NewTraceID = fn
	return b
}

// WithTransport replaces the transport used to send attempts.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithHTTPClient sends attempts through hc.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.transport = NewHTTPTransport(hc)
	return b
}

// Build creates the client
func (b *Builder) Build() Client {
	cfg := *b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	cfg.RequestInterceptors = append([]RequestInterceptor(nil), b.config.RequestInterceptors...)
	cfg.ResponseInterceptors = append([]ResponseInterceptor(nil), b.config.ResponseInterceptors...)

	if cfg.NewTraceID == nil {
		cfg.NewTraceID = trace.NewID
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	transport := b.transport
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}

	c := &client{
		logger:    log,
		config:    &cfg,
		transport: transport,
		refresher: newRefreshCoordinator(),
		sleep:     sleepContext,
	}
	c.refresher.onQueued = c.onRefreshQueued

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return c
}
