package observability

import "errors"

// ErrUnknownExporter is returned when observability.exporter is neither stdout nor otlp.
var ErrUnknownExporter = errors.New("observability: unknown exporter")

// ErrMissingEndpoint is returned when the otlp exporter has no endpoint.
var ErrMissingEndpoint = errors.New("observability: endpoint is required for the otlp exporter")

// ErrInvalidProtocol is returned when observability.protocol is neither http nor grpc.
var ErrInvalidProtocol = errors.New("observability: invalid otlp protocol")
