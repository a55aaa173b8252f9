package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/examprep/client-go/config"
)

// initMeterProvider sets up a periodic reader over the configured exporter.
func (p *provider) initMeterProvider(res *resource.Resource) error {
	exporter, err := p.createMetricExporter()
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(p.opts.metricInterval),
	)

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return nil
}

// createMetricExporter mirrors createTraceExporter; both signals share one endpoint.
func (p *provider) createMetricExporter() (sdkmetric.Exporter, error) {
	switch p.cfg.Exporter {
	case config.ExporterStdout:
		return stdoutmetric.New(stdoutmetric.WithWriter(p.opts.writer))
	case config.ExporterOTLP:
		protocol, err := p.otlpProtocol()
		if err != nil {
			return nil, err
		}
		if protocol == config.ProtocolGRPC {
			opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.cfg.Endpoint)}
			if p.cfg.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}
			return otlpmetricgrpc.New(context.Background(), opts...)
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.cfg.Endpoint)}
		if p.cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("exporter %q: %w", p.cfg.Exporter, ErrUnknownExporter)
	}
}
