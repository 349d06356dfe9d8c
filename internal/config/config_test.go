package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/skierload/internal/config"
)

// load parses args the way the skierload root command does.
func load(args ...string) (*config.Config, error) {
	cmd := &cobra.Command{Use: "skierload"}
	config.RegisterFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		return nil, err
	}
	return config.NewLoader().LoadFlags(cmd.Flags())
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "" {
		t.Errorf("Host = %q, want empty", cfg.Host)
	}
	if cfg.Lifts != 40 {
		t.Errorf("Lifts = %d, want 40", cfg.Lifts)
	}
	if cfg.DurationMinutes != 15 {
		t.Errorf("DurationMinutes = %d, want 15", cfg.DurationMinutes)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.Timeout)
	}
	if cfg.Username != "admin" || cfg.Password != "admin" {
		t.Errorf("credentials = %q/%q, want admin/admin", cfg.Username, cfg.Password)
	}
	if cfg.Output != config.OutputText {
		t.Errorf("Output = %q, want text", cfg.Output)
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate = %d, want 0", cfg.Rate)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"host": "lifts.example.com",
		"port": 8080,
		"base_path": "/A3_war",
		"threads": 64,
		"skiers": 20000,
		"lifts": 40,
		"duration": 10,
		"timeout": "3s",
		"thresholds": ["write_latency:p99 < 500", "failures:count == 0"]
	}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load("--config", path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.Host != "lifts.example.com" || cfg.Port != 8080 {
		t.Errorf("target = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Threads != 64 || cfg.Skiers != 20000 {
		t.Errorf("threads/skiers = %d/%d", cfg.Threads, cfg.Skiers)
	}
	if cfg.DurationMinutes != 10 {
		t.Errorf("DurationMinutes = %d, want 10", cfg.DurationMinutes)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s, want 3s", cfg.Timeout)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want 2 entries", cfg.Thresholds)
	}
	if got, want := cfg.BaseURL(), "http://lifts.example.com:8080/A3_war"; got != want {
		t.Errorf("BaseURL() = %q, want %q", got, want)
	}
}

func TestLoadConfigFileYAMLWithTracing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `host: localhost
port: 9000
threads: 4
skiers: 100
tracing:
  endpoint: collector:4318
  protocol: http
  sample_rate: 0.5
  insecure: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load("--config", path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tracing.Endpoint != "collector:4318" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.Protocol != "http" {
		t.Errorf("Tracing.Protocol = %q, want http", cfg.Tracing.Protocol)
	}
	if cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing.SampleRate = %v, want 0.5", cfg.Tracing.SampleRate)
	}
	if !cfg.Tracing.Insecure {
		t.Error("Tracing.Insecure = false, want true")
	}
	if !cfg.Tracing.Enabled() {
		t.Error("Tracing.Enabled() = false, want true")
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("host: file-host\nport: 80\nthreads: 10\nskiers: 100\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load("--config", path, "--threads", "20")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Threads != 20 {
		t.Errorf("Threads = %d, want 20 (flag wins)", cfg.Threads)
	}
	if cfg.Host != "file-host" {
		t.Errorf("Host = %q, want file-host", cfg.Host)
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("SKIERLOAD_HOST", "env-host")
	t.Setenv("SKIERLOAD_PORT", "8081")
	t.Setenv("SKIERLOAD_BASE_PATH", "/A3_war")

	cfg, err := load("--port", "9090")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "env-host" {
		t.Errorf("Host = %q, want env-host", cfg.Host)
	}
	if cfg.BasePath != "/A3_war" {
		t.Errorf("BasePath = %q, want /A3_war", cfg.BasePath)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090 (flag wins over env)", cfg.Port)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := load("--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	if _, err := load("--threds", "4"); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestHistoryDB(t *testing.T) {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	fs.String("db", "", "")

	t.Setenv(config.EnvPrefix+"_HISTORY_DB", " /var/lib/skierload/runs.db ")
	got, err := config.NewLoader().HistoryDB(fs.Lookup("db"))
	if err != nil {
		t.Fatalf("HistoryDB() error = %v", err)
	}
	if got != "/var/lib/skierload/runs.db" {
		t.Errorf("HistoryDB() = %q, want the environment value", got)
	}

	if err := fs.Parse([]string{"--db", "runs.db"}); err != nil {
		t.Fatal(err)
	}
	if got, _ := config.NewLoader().HistoryDB(fs.Lookup("db")); got != "runs.db" {
		t.Errorf("HistoryDB() = %q, want the flag to win", got)
	}

	t.Setenv(config.EnvPrefix+"_HISTORY_DB", "")
	if got, _ := config.NewLoader().HistoryDB(nil); got != "" {
		t.Errorf("HistoryDB(nil) = %q, want empty", got)
	}
}

func validConfig() config.Config {
	return config.Config{
		Host:            "localhost",
		Port:            8080,
		Threads:         32,
		Skiers:          20000,
		Lifts:           40,
		DurationMinutes: 15,
		Timeout:         time.Second,
		Output:          config.OutputText,
		LogLevel:        "info",
		LogFormat:       "text",
		Tracing:         config.TracingConfig{Protocol: "grpc", SampleRate: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "bounds inclusive low", mutate: func(c *config.Config) { c.Threads, c.Skiers, c.Lifts = 1, 1, 5 }},
		{name: "bounds inclusive high", mutate: func(c *config.Config) { c.Threads, c.Skiers, c.Lifts = 256, 50000, 60 }},
		{name: "missing host", mutate: func(c *config.Config) { c.Host = "" }, wantErr: "host is required"},
		{name: "host with scheme", mutate: func(c *config.Config) { c.Host = "http://x" }, wantErr: "bare hostname"},
		{name: "port zero", mutate: func(c *config.Config) { c.Port = 0 }, wantErr: "port must be between"},
		{name: "too many threads", mutate: func(c *config.Config) { c.Threads = 257 }, wantErr: "threads must be between"},
		{name: "zero threads", mutate: func(c *config.Config) { c.Threads = 0 }, wantErr: "threads must be between"},
		{name: "too many skiers", mutate: func(c *config.Config) { c.Skiers = 50001 }, wantErr: "skiers must be between"},
		{name: "too few lifts", mutate: func(c *config.Config) { c.Lifts = 4 }, wantErr: "lifts must be between"},
		{name: "too many lifts", mutate: func(c *config.Config) { c.Lifts = 61 }, wantErr: "lifts must be between"},
		{name: "zero duration", mutate: func(c *config.Config) { c.DurationMinutes = 0 }, wantErr: "duration must be"},
		{name: "negative rate", mutate: func(c *config.Config) { c.Rate = -1 }, wantErr: "rate must be"},
		{name: "bad output", mutate: func(c *config.Config) { c.Output = "xml" }, wantErr: "output must be"},
		{name: "bad tracing protocol", mutate: func(c *config.Config) { c.Tracing.Protocol = "udp" }, wantErr: "protocol must be"},
		{name: "bad sample rate", mutate: func(c *config.Config) { c.Tracing.SampleRate = 1.5 }, wantErr: "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Validate() error type = %T, want ValidationError", err)
			}
		})
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := config.Config{}
	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	if len(verr.Issues()) < 5 {
		t.Errorf("Issues() = %v, want one per invalid field", verr.Issues())
	}
}

func TestBaseURLNormalizesPath(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"", "http://h:1"},
		{"/", "http://h:1"},
		{"A3_war", "http://h:1/A3_war"},
		{"/A3_war/", "http://h:1/A3_war"},
	}
	for _, tt := range tests {
		cfg := config.Config{Host: "h", Port: 1, BasePath: tt.base}
		if got := cfg.BaseURL(); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
