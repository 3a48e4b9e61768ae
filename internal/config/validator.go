package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/miniexpress/internal/util"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
	validLogOutputs = map[string]bool{"stdout": true, "stderr": true}
)

// Validator validates a configuration and collects every field error.
type Validator struct {
	errs *util.ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates cfg. The returned error is a
// *util.ValidationError whose Fields name every invalid setting.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errs = util.NewValidationError("invalid configuration")

	if cfg == nil {
		v.addError("config", "configuration is nil")
		return v.errs
	}

	v.validateServer(&cfg.Server)
	v.validateLogging(&cfg.Logging)
	v.validateStatic(cfg.Static)
	v.validateCORS(&cfg.CORS)
	v.validateRateLimit(&cfg.RateLimit)
	v.validateMetrics(&cfg.Metrics)
	v.validateTracing(&cfg.Tracing)

	if v.errs.HasErrors() {
		return v.errs
	}
	return nil
}

func (v *Validator) addError(field, message string) {
	v.errs.AddField(field, message)
}

func (v *Validator) validateServer(s *ServerConfig) {
	if err := util.ValidatePort(s.Port); err != nil {
		v.addError("server.port", err.Error())
	}

	durations := []struct {
		field string
		value Duration
	}{
		{"server.readTimeout", s.ReadTimeout},
		{"server.writeTimeout", s.WriteTimeout},
		{"server.shutdownTimeout", s.ShutdownTimeout},
		{"server.acceptDeadline", s.AcceptDeadline},
	}
	for _, d := range durations {
		if d.value < 0 {
			v.addError(d.field, "must not be negative")
		}
	}

	if s.MaxConnections < 0 {
		v.addError("server.maxConnections", "must not be negative")
	}
	if s.MaxBodyBytes < 0 {
		v.addError("server.maxBodyBytes", "must not be negative")
	}
}

func (v *Validator) validateLogging(l *LoggingConfig) {
	if !validLogLevels[strings.ToLower(l.Level)] {
		v.addError("logging.level", fmt.Sprintf("unknown level %q", l.Level))
	}
	if !validLogFormats[l.Format] {
		v.addError("logging.format", fmt.Sprintf("unknown format %q", l.Format))
	}
	if !validLogOutputs[l.Output] {
		v.addError("logging.output", fmt.Sprintf("unknown output %q", l.Output))
	}
}

func (v *Validator) validateStatic(mounts []StaticMount) {
	for i, m := range mounts {
		field := fmt.Sprintf("static[%d]", i)
		if !strings.HasPrefix(m.Prefix, "/") {
			v.addError(field+".prefix", "must start with '/'")
		}
		if err := util.ValidateNonEmpty(m.Directory, "directory"); err != nil {
			v.addError(field+".directory", err.Error())
		}
	}
}

func (v *Validator) validateCORS(c *CORSConfig) {
	if !c.Preflight {
		return
	}
	for i, m := range c.AllowMethods {
		if err := util.ValidateHTTPMethod(m); err != nil {
			v.addError(fmt.Sprintf("cors.allowMethods[%d]", i), err.Error())
		}
	}
	for i, h := range c.AllowHeaders {
		if strings.TrimSpace(h) == "" || strings.ContainsAny(h, "\r\n,") {
			v.addError(fmt.Sprintf("cors.allowHeaders[%d]", i), fmt.Sprintf("invalid header name %q", h))
		}
	}
}

func (v *Validator) validateRateLimit(r *RateLimitConfig) {
	if !r.Enabled {
		return
	}
	if r.RequestsPerSecond <= 0 {
		v.addError("rateLimit.requestsPerSecond", "must be positive")
	}
	if r.Burst <= 0 {
		v.addError("rateLimit.burst", "must be positive")
	}
}

func (v *Validator) validateMetrics(m *MetricsConfig) {
	if !m.Enabled {
		return
	}
	if err := util.ValidateNonEmpty(m.Address, "address"); err != nil {
		v.addError("metrics.address", err.Error())
	}
	if !strings.HasPrefix(m.Path, "/") {
		v.addError("metrics.path", "must start with '/'")
	}
}

func (v *Validator) validateTracing(t *TracingConfig) {
	if err := util.ValidatePercentage(t.SamplingRate); err != nil {
		v.addError("tracing.samplingRate", err.Error())
	}
	if t.Enabled {
		if err := util.ValidateNonEmpty(t.ServiceName, "serviceName"); err != nil {
			v.addError("tracing.serviceName", err.Error())
		}
	}
}
