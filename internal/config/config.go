package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	MinThreads             = 1
	MaxThreads             = 256
	MinSkiers              = 1
	MaxSkiers              = 50000
	MinLifts               = 5
	MaxLifts               = 60
	DefaultLifts           = 40
	DefaultDurationMinutes = 15
	DefaultTimeout         = 15 * time.Second
	DefaultUsername        = "admin"
	DefaultPassword        = "admin"
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Config is the validated, immutable description of one load run.
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	BasePath        string        `mapstructure:"base_path"`
	Threads         int           `mapstructure:"threads"`
	Skiers          int           `mapstructure:"skiers"`
	Lifts           int           `mapstructure:"lifts"`
	DurationMinutes int           `mapstructure:"duration"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Rate            int           `mapstructure:"rate"`
	Seed            uint64        `mapstructure:"seed"`
	Output          OutputFormat  `mapstructure:"output"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	LogErrors       bool          `mapstructure:"log_errors"`
	Dashboard       bool          `mapstructure:"dashboard"`
	LatencyLog      string        `mapstructure:"latency_log"`
	HistoryDB       string        `mapstructure:"history_db"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Thresholds      []string      `mapstructure:"thresholds"`
	Tracing         TracingConfig `mapstructure:"tracing"`
	ConfigFile      string        `mapstructure:"-"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported or propagated at all.
func (t TracingConfig) Enabled() bool {
	if t.Propagate != nil && *t.Propagate {
		return true
	}
	return t.hasEndpoint()
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
// Unless set explicitly it follows whether an exporter endpoint is configured.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.hasEndpoint()
}

func (t TracingConfig) hasEndpoint() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// Duration is the wall-clock length of the run.
func (c Config) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// BaseURL is the root every collaborator path is appended to.
func (c Config) BaseURL() string {
	path := strings.TrimSpace(c.BasePath)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimSuffix(path, "/")
	return fmt.Sprintf("http://%s:%d%s", strings.TrimSpace(c.Host), c.Port, path)
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Host) == "" {
		issues = append(issues, "host is required (use --help for usage information)")
	} else if strings.ContainsAny(c.Host, "/ ") {
		issues = append(issues, fmt.Sprintf("host %q must be a bare hostname", c.Host))
	}
	if c.Port < 1 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Threads < MinThreads || c.Threads > MaxThreads {
		issues = append(issues, fmt.Sprintf("threads must be between %d and %d, got %d", MinThreads, MaxThreads, c.Threads))
	}
	if c.Skiers < MinSkiers || c.Skiers > MaxSkiers {
		issues = append(issues, fmt.Sprintf("skiers must be between %d and %d, got %d", MinSkiers, MaxSkiers, c.Skiers))
	}
	if c.Lifts < MinLifts || c.Lifts > MaxLifts {
		issues = append(issues, fmt.Sprintf("lifts must be between %d and %d, got %d", MinLifts, MaxLifts, c.Lifts))
	}
	if c.DurationMinutes < 1 {
		issues = append(issues, fmt.Sprintf("duration must be >= 1 minute, got %d", c.DurationMinutes))
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}

	switch c.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be 'text', 'json' or 'yaml', got %q", c.Output))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format must be 'text' or 'json', got %q", c.LogFormat))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, fmt.Sprintf("log level %q is not supported", c.LogLevel))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
