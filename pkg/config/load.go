package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "CACHESCRIPT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields absent from the file keep their defaults. An empty path returns
// the defaults. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CACHESCRIPT_SECTION_FIELD (e.g., CACHESCRIPT_STORAGE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Decode YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// envReader resolves overrides for one pass, remembering the first
// malformed value.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) str(name string, dst *string) {
	if val := r.getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func (r *envReader) list(name string, dst *[]string) {
	if val := r.getenv(EnvPrefix + name); val != "" {
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	val := r.getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = d
}

func (r *envReader) integer(name string, dst *int) {
	val := r.getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = i
}

func (r *envReader) int64(name string, dst *int64) {
	val := r.getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = i
}

func (r *envReader) boolean(name string, dst *bool) {
	val := r.getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = b
}

func (r *envReader) float(name string, dst *float64) {
	val := r.getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = f
}

func (r *envReader) fail(name, val string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid value %q for %s%s: %w", val, EnvPrefix, name, err)
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	r := &envReader{getenv: getenv}

	// Loader overrides
	r.list("LOADER_MANIFESTS", &cfg.Loader.Manifests)
	r.duration("LOADER_TIMEOUT", &cfg.Loader.Timeout)
	r.duration("LOADER_WATCH_DEBOUNCE", &cfg.Loader.WatchDebounce)

	// Fetch overrides
	r.str("FETCH_BASE_URL", &cfg.Fetch.BaseURL)
	r.duration("FETCH_TIMEOUT", &cfg.Fetch.Timeout)
	r.integer("FETCH_MAX_RETRIES", &cfg.Fetch.MaxRetries)
	r.int64("FETCH_MAX_BODY_BYTES", &cfg.Fetch.MaxBodyBytes)
	r.str("FETCH_USER_AGENT", &cfg.Fetch.UserAgent)

	// Storage overrides
	r.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	r.str("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	r.str("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	r.str("STORAGE_S3_BUCKET", &cfg.Storage.S3.Bucket)
	r.str("STORAGE_S3_PREFIX", &cfg.Storage.S3.Prefix)
	r.str("STORAGE_S3_REGION", &cfg.Storage.S3.Region)
	r.str("STORAGE_S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	r.boolean("STORAGE_S3_USE_PATH_STYLE", &cfg.Storage.S3.UsePathStyle)
	r.boolean("STORAGE_RETENTION_ENABLED", &cfg.Storage.Retention.Enabled)
	r.duration("STORAGE_RETENTION_MAX_AGE", &cfg.Storage.Retention.MaxAge)
	r.str("STORAGE_RETENTION_SCHEDULE", &cfg.Storage.Retention.Schedule)

	// Document overrides
	r.str("DOCUMENT_TEMPLATE", &cfg.Document.Template)
	r.str("DOCUMENT_TITLE", &cfg.Document.Title)
	r.boolean("DOCUMENT_PROBE_LINKS", &cfg.Document.ProbeLinks)

	// Server overrides
	r.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	r.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	r.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	r.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Telemetry overrides
	r.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	r.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	r.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	r.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	r.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	r.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	r.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	return r.err
}
