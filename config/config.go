package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is the optional configuration file read by Load.
	DefaultFile = "config.yaml"
	// EnvPrefix is stripped from environment variables before they are mapped to keys.
	EnvPrefix = "EXAMPREP_"
)

// sections accepted from the environment; anything else carrying the prefix is ignored.
var sections = map[string]struct{}{
	"app": {}, "api": {}, "supabase": {}, "session": {}, "log": {}, "observability": {},
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.<env>.yaml, then config.yaml (both optional)
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return load(DefaultFile, false)
}

// LoadFile is like Load but reads the given YAML file, which must exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

// LoadFromBytes layers a YAML document and the environment over the defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(k)
}

func load(path string, required bool) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadYAML(k, path, required); err != nil {
		return nil, err
	}

	// The env-specific file sits next to the base file.
	envName := k.String("app.env")
	if fromEnv := os.Getenv(EnvVarName("app.env")); fromEnv != "" {
		envName = fromEnv
	}
	if envName != "" {
		ext := filepath.Ext(path)
		envFile := strings.TrimSuffix(path, ext) + "." + envName + ext
		if err := loadYAML(k, envFile, false); err != nil {
			return nil, err
		}
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadYAML(k *koanf.Koanf, path string, required bool) error {
	err := k.Load(file.Provider(path), yaml.Parser())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist) && !required:
		return nil
	default:
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
}

// transformEnv maps EXAMPREP_API_BASEURL to api.baseurl. Unknown sections are dropped.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "_", ".")
	section, _, _ := strings.Cut(key, ".")
	if _, ok := sections[section]; !ok {
		return "", nil
	}
	return key, value
}

// EnvVarName returns the environment variable that overrides key.
func EnvVarName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "examprep",
		"app.version": "dev",
		"app.env":     EnvDevelopment,

		"api.baseurl":            "http://localhost:8000",
		"api.timeout":            "10s",
		"api.retries":            3,
		"api.retrydelay":         "1s",
		"api.maxretrydelay":      "30s",
		"api.rate.limit":         0,
		"api.rate.burst":         1,
		"api.logpayloads":        false,
		"api.maxpayloadlogbytes": 1024,

		"supabase.url":     "",
		"supabase.anonkey": "",

		"session.file": "",

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":  false,
		"observability.exporter": ExporterStdout,
		"observability.endpoint": "",
		"observability.protocol": ProtocolHTTP,
		"observability.insecure": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
