package config

import "time"

// Config is the root configuration structure for cachescript.
// It contains all configuration sections for the loader, the side-channel
// fetcher, blob storage, the document, the HTTP server and telemetry.
type Config struct {
	// Loader contains manifest sources and session settings.
	Loader LoaderConfig `yaml:"loader"`

	// Fetch contains side-channel HTTP fetch settings.
	Fetch FetchConfig `yaml:"fetch"`

	// Storage contains blob store settings.
	Storage StorageConfig `yaml:"storage"`

	// Document contains settings for the target document.
	Document DocumentConfig `yaml:"document"`

	// Server contains HTTP server settings for the serve command.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoaderConfig contains manifest and session configuration.
type LoaderConfig struct {
	// Manifests lists manifest files in precedence order. Earlier files win
	// over later ones, so user configuration comes before defaults.
	Manifests []string `yaml:"manifests"`

	// Timeout bounds a single load session. 0 disables the limit.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// WatchDebounce delays a reload after manifest changes.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// FetchConfig contains side-channel fetcher configuration.
type FetchConfig struct {
	// BaseURL resolves relative resource URLs. Must be absolute when set.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries on transport errors and 5xx.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// Backoff is the base delay between retries.
	// Default: 200ms
	Backoff time.Duration `yaml:"backoff"`

	// MaxBodyBytes caps the size of fetched content.
	// Default: 8MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// UserAgent is sent with every request.
	// Default: "cachescript/<version>"
	UserAgent string `yaml:"user_agent"`
}

// StorageConfig contains blob store configuration.
type StorageConfig struct {
	// Backend selects the store implementation.
	// Options: "memory", "sqlite", "s3"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// S3 contains S3 backend configuration.
	S3 S3Config `yaml:"s3"`

	// Retention contains blob pruning configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/cachescript.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval runs a periodic WAL checkpoint. 0 disables it.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// S3Config contains S3-specific configuration.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every blob key.
	// Default: "blobs"
	Prefix string `yaml:"prefix"`

	// Region is the AWS region.
	// Default: "us-east-1"
	Region string `yaml:"region"`

	// Endpoint overrides the service endpoint, for S3-compatible stores.
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle addresses buckets by path instead of subdomain.
	UsePathStyle bool `yaml:"use_path_style"`
}

// RetentionConfig contains blob pruning configuration.
type RetentionConfig struct {
	// Enabled runs the pruner on Schedule while serving.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// MaxAge removes blobs not rewritten for longer than this. 0 keeps
	// blobs regardless of age.
	// Default: 720h (30 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a cron expression for automatic pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// PruneUnknown removes blobs for modules no longer in the manifest.
	// Default: true
	PruneUnknown bool `yaml:"prune_unknown"`

	// PruneStale removes blobs whose version differs from the manifest.
	// Default: true
	PruneStale bool `yaml:"prune_stale"`
}

// DocumentConfig contains target document configuration.
type DocumentConfig struct {
	// Template is an HTML file to load into. Empty starts from a blank page.
	Template string `yaml:"template"`

	// Title is the title of a blank page.
	// Default: "cachescript"
	Title string `yaml:"title"`

	// ProbeLinks issues a request for every linked URL so link failures
	// surface as load errors.
	// Default: true
	ProbeLinks bool `yaml:"probe_links"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactURLs strips credentials and signed query parameters from
	// logged URLs.
	// Default: true
	RedactURLs bool `yaml:"redact_urls"`

	// RedactParams lists extra query parameters to redact.
	RedactParams []string `yaml:"redact_params"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "cachescript"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "loader"
	Subsystem string `yaml:"subsystem"`

	// FetchDurationBuckets defines histogram buckets for fetch latency (seconds).
	// Default: [0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	FetchDurationBuckets []float64 `yaml:"fetch_duration_buckets"`

	// SessionDurationBuckets defines histogram buckets for session duration (seconds).
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30]
	SessionDurationBuckets []float64 `yaml:"session_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "cachescript"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/healthz"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/readyz"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
