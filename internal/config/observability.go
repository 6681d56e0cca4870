package config

// ObservabilityConfig groups logging, metrics, and tracing settings.
type ObservabilityConfig struct {
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`

	// AccessLog enables the per-request access log middleware.
	AccessLog bool `yaml:"accessLog,omitempty" json:"accessLog,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposure on the admin server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the scrape path. Defaults to /metrics.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}
