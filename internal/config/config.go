package config

import "time"

// Default configuration values.
const (
	DefaultPort            = 8080
	DefaultShutdownTimeout = 30 * time.Second
	DefaultAcceptDeadline  = 500 * time.Millisecond
	DefaultMaxHeaderBytes  = 1 << 20

	DefaultStaticPrefix    = "/static"
	DefaultStaticDirectory = "./static"

	DefaultRequestsPerSecond = 100
	DefaultBurst             = 200

	DefaultMetricsAddress = ":9091"
	DefaultMetricsPath    = "/metrics"

	DefaultServiceName = "miniexpress"
)

// Config is the complete MiniExpress configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Static    []StaticMount   `yaml:"static"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig configures the TCP listener and per-connection limits.
// Zero timeouts and limits mean unbounded.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	AcceptDeadline  Duration `yaml:"acceptDeadline"`
	MaxConnections  int      `yaml:"maxConnections"`
	MaxHeaderBytes  int      `yaml:"maxHeaderBytes"`
	MaxBodyBytes    int64    `yaml:"maxBodyBytes"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StaticMount maps a URL prefix to a directory on disk.
type StaticMount struct {
	Prefix    string `yaml:"prefix"`
	Directory string `yaml:"directory"`
}

// CORSConfig configures the OPTIONS preflight answer.
type CORSConfig struct {
	Preflight    bool     `yaml:"preflight"`
	AllowMethods []string `yaml:"allowMethods"`
	AllowHeaders []string `yaml:"allowHeaders"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
	PerClient         bool    `yaml:"perClient"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			AcceptDeadline:  Duration(DefaultAcceptDeadline),
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Static: []StaticMount{
			{Prefix: DefaultStaticPrefix, Directory: DefaultStaticDirectory},
		},
		CORS: CORSConfig{
			Preflight:    true,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type"},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
			PerClient:         true,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
			Path:    DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			ServiceName:  DefaultServiceName,
			SamplingRate: 1.0,
		},
	}
}
