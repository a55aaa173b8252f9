// Package observability installs the OpenTelemetry tracer and meter providers used by
// the client. The otelhttp transport and the client metrics both record through the
// global providers, so a disabled provider leaves them as no-ops.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/examprep/client-go/config"
	"github.com/examprep/client-go/logger"
)

// Provider manages the lifecycle of the tracer and meter providers.
type Provider interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider

	// Shutdown flushes pending telemetry and stops the exporters.
	Shutdown(ctx context.Context) error

	// ForceFlush exports pending telemetry immediately.
	ForceFlush(ctx context.Context) error
}

type provider struct {
	log            logger.Logger
	app            config.AppConfig
	cfg            config.ObservabilityConfig
	opts           options
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	mu             sync.Mutex
}

// NewProvider creates the providers described by cfg and registers them globally,
// together with the W3C trace context propagator. A disabled cfg yields a no-op
// provider and leaves the globals untouched.
func NewProvider(log logger.Logger, app config.AppConfig, cfg config.ObservabilityConfig, opts ...Option) (Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled {
		log.Debug().Msg("Observability disabled")
		return newNoopProvider(), nil
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &provider{log: log, app: app, cfg: cfg, opts: o}

	res, err := p.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	if err := p.initTraceProvider(res); err != nil {
		return nil, fmt.Errorf("failed to initialize trace provider: %w", err)
	}
	if err := p.initMeterProvider(res); err != nil {
		_ = p.tracerProvider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Debug().
		Str("exporter", cfg.Exporter).
		Str("protocol", cfg.Protocol).
		Str("endpoint", cfg.Endpoint).
		Msg("Observability provider initialized")
	return p, nil
}

func (p *provider) createResource() (*resource.Resource, error) {
	custom, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(p.app.Name),
			semconv.ServiceVersion(p.app.Version),
			semconv.DeploymentEnvironmentName(p.app.Env),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), custom)
}

func (p *provider) initTraceProvider(res *resource.Resource) error {
	exporter, err := p.createTraceExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(p.opts.batchTimeout)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	return nil
}

func (p *provider) createTraceExporter() (sdktrace.SpanExporter, error) {
	switch p.cfg.Exporter {
	case config.ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(p.opts.writer))
	case config.ExporterOTLP:
		protocol, err := p.otlpProtocol()
		if err != nil {
			return nil, err
		}
		if protocol == config.ProtocolGRPC {
			opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.Endpoint)}
			if p.cfg.Insecure {
				opts = append(opts, otlptracegrpc.WithInsecure())
			}
			return otlptracegrpc.New(context.Background(), opts...)
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.cfg.Endpoint)}
		if p.cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("exporter %q: %w", p.cfg.Exporter, ErrUnknownExporter)
	}
}

// otlpProtocol checks the endpoint and returns the transport, http when unset.
func (p *provider) otlpProtocol() (string, error) {
	if p.cfg.Endpoint == "" {
		return "", ErrMissingEndpoint
	}
	switch p.cfg.Protocol {
	case "", config.ProtocolHTTP:
		return config.ProtocolHTTP, nil
	case config.ProtocolGRPC:
		return config.ProtocolGRPC, nil
	default:
		return "", fmt.Errorf("protocol %q: %w", p.cfg.Protocol, ErrInvalidProtocol)
	}
}

// TracerProvider returns the SDK tracer provider.
func (p *provider) TracerProvider() trace.TracerProvider {
	if p.tracerProvider == nil {
		return noop.NewTracerProvider()
	}
	return p.tracerProvider
}

// MeterProvider returns the SDK meter provider.
func (p *provider) MeterProvider() metric.MeterProvider {
	if p.meterProvider == nil {
		return metricnoop.NewMeterProvider()
	}
	return p.meterProvider
}

// Shutdown stops both providers and joins their errors.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown trace provider: %w", err))
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// ForceFlush exports pending spans and collects metrics.
func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush trace provider: %w", err))
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush meter provider: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("flush errors: %w", errors.Join(errs...))
	}
	return nil
}

// Option customizes NewProvider.
type Option func(*options)

type options struct {
	writer         io.Writer
	batchTimeout   time.Duration
	metricInterval time.Duration
}

func defaultOptions() options {
	return options{
		writer:         os.Stderr,
		batchTimeout:   DefaultBatchTimeout,
		metricInterval: DefaultMetricInterval,
	}
}

// WithWriter sets where the stdout exporters write. Defaults to os.Stderr so telemetry
// never mixes with command output.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithMetricInterval sets the periodic export interval of the meter provider.
func WithMetricInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.metricInterval = d
		}
	}
}
