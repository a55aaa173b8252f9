package config

import (
	"time"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Exporter names accepted by observability.exporter.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// OTLP transports accepted by observability.protocol.
const (
	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

// Config is the full client configuration.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	API           APIConfig           `koanf:"api" json:"api" yaml:"api"`
	Supabase      SupabaseConfig      `koanf:"supabase" json:"supabase" yaml:"supabase"`
	Session       SessionConfig       `koanf:"session" json:"session" yaml:"session"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// APIConfig configures the resilient client used for the backend REST API.
type APIConfig struct {
	BaseURL string `koanf:"baseurl" json:"baseUrl" yaml:"baseurl" validate:"required,url"`
	// Timeout bounds every single attempt, not the whole retry sequence.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Retries int           `koanf:"retries" json:"retries" yaml:"retries" validate:"gte=0,lte=10"`
	// RetryDelay is the base of the exponential backoff (RetryDelay * 2^attempt).
	RetryDelay    time.Duration `koanf:"retrydelay" json:"retryDelay" yaml:"retrydelay" validate:"gte=0"`
	MaxRetryDelay time.Duration `koanf:"maxretrydelay" json:"maxRetryDelay" yaml:"maxretrydelay" validate:"gtefield=RetryDelay"`
	Rate          RateConfig    `koanf:"rate" json:"rate" yaml:"rate"`
	// LogPayloads enables debug logging of headers and truncated bodies.
	LogPayloads        bool `koanf:"logpayloads" json:"logPayloads" yaml:"logpayloads"`
	MaxPayloadLogBytes int  `koanf:"maxpayloadlogbytes" json:"maxPayloadLogBytes" yaml:"maxpayloadlogbytes" validate:"gte=0"`
}

// RateConfig holds the client side request rate limit. A zero Limit disables it.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"gte=1"`
}

// SupabaseConfig points at the Supabase project handling authentication.
type SupabaseConfig struct {
	URL     string `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	AnonKey string `koanf:"anonkey" json:"-" yaml:"anonkey" validate:"required_with=URL"`
}

// SessionConfig controls where the signed-in session is persisted.
type SessionConfig struct {
	// File overrides the default location under the user config directory.
	File string `koanf:"file" json:"file" yaml:"file"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// ObservabilityConfig controls the OpenTelemetry providers.
type ObservabilityConfig struct {
	Enabled  bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Exporter string `koanf:"exporter" json:"exporter" yaml:"exporter" validate:"oneof=stdout otlp"`
	// Endpoint is the OTLP collector address, e.g. localhost:4318 (http) or localhost:4317 (grpc).
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Exporter otlp"`
	Protocol string `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=http grpc"`
	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure" json:"insecure" yaml:"insecure"`
}

// IsSupabaseConfigured reports whether authentication against Supabase is possible.
func IsSupabaseConfigured(cfg *SupabaseConfig) bool {
	return cfg != nil && cfg.URL != "" && cfg.AnonKey != ""
}
