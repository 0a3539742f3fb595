package config

import "time"

// Default values for configuration fields.
const (
	// Loader defaults
	DefaultLoaderTimeout = 30 * time.Second
	DefaultWatchDebounce = 500 * time.Millisecond

	// Fetch defaults
	DefaultFetchTimeout      = 10 * time.Second
	DefaultFetchMaxRetries   = 2
	DefaultFetchBackoff      = 200 * time.Millisecond
	DefaultFetchMaxBodyBytes = int64(8 << 20) // 8MB
	DefaultFetchUserAgent    = "cachescript"

	// Storage defaults
	DefaultStorageBackend           = "sqlite"
	DefaultSQLitePath               = "data/cachescript.db"
	DefaultSQLiteDriver             = "sqlite"
	DefaultSQLiteBusyTimeout        = 5 * time.Second
	DefaultSQLiteCheckpointInterval = 5 * time.Minute
	DefaultS3Prefix                 = "blobs"
	DefaultS3Region                 = "us-east-1"
	DefaultRetentionEnabled         = true
	DefaultRetentionMaxAge          = 30 * 24 * time.Hour
	DefaultRetentionSchedule        = "0 3 * * *"

	// Document defaults
	DefaultDocumentTitle = "cachescript"
	DefaultProbeLinks    = true

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "text"
	DefaultRedactURLs          = true
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "cachescript"
	DefaultMetricsSubsystem    = "loader"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "cachescript"
	DefaultOTLPInsecure        = true
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/healthz"
	DefaultReadinessPath       = "/readyz"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

var (
	// DefaultFetchDurationBuckets covers same-origin asset latencies.
	DefaultFetchDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DefaultSessionDurationBuckets covers whole page loads.
	DefaultSessionDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Default returns a configuration with every field set to its default.
// Boolean options that default to true can only be turned off by decoding
// a file on top of this value, so LoadConfig starts from it.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.Retention.Enabled = DefaultRetentionEnabled
	cfg.Storage.Retention.PruneUnknown = true
	cfg.Storage.Retention.PruneStale = true
	cfg.Document.ProbeLinks = DefaultProbeLinks
	cfg.Telemetry.Logging.RedactURLs = DefaultRedactURLs
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultOTLPInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields are left alone; see Default.
func ApplyDefaults(cfg *Config) {
	// Loader defaults
	if cfg.Loader.Timeout == 0 {
		cfg.Loader.Timeout = DefaultLoaderTimeout
	}
	if cfg.Loader.WatchDebounce == 0 {
		cfg.Loader.WatchDebounce = DefaultWatchDebounce
	}

	// Fetch defaults
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = DefaultFetchTimeout
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = DefaultFetchMaxRetries
	}
	if cfg.Fetch.Backoff == 0 {
		cfg.Fetch.Backoff = DefaultFetchBackoff
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = DefaultFetchMaxBodyBytes
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultFetchUserAgent
	}

	applyStorageDefaults(&cfg.Storage)

	// Document defaults
	if cfg.Document.Title == "" {
		cfg.Document.Title = DefaultDocumentTitle
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStorageBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.SQLite.CheckpointInterval == 0 {
		cfg.SQLite.CheckpointInterval = DefaultSQLiteCheckpointInterval
	}
	if cfg.S3.Prefix == "" {
		cfg.S3.Prefix = DefaultS3Prefix
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = DefaultS3Region
	}
	if cfg.Retention.MaxAge == 0 {
		cfg.Retention.MaxAge = DefaultRetentionMaxAge
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Metrics.FetchDurationBuckets) == 0 {
		cfg.Metrics.FetchDurationBuckets = append([]float64(nil), DefaultFetchDurationBuckets...)
	}
	if len(cfg.Metrics.SessionDurationBuckets) == 0 {
		cfg.Metrics.SessionDurationBuckets = append([]float64(nil), DefaultSessionDurationBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.VersionPath == "" {
		cfg.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
