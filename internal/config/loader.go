package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader consults
// (e.g. SKIERLOAD_HOST, SKIERLOAD_TRACING_ENDPOINT).
const EnvPrefix = "SKIERLOAD"

// envKeys are the settings that may also come from the environment.
var envKeys = []string{
	"host", "port", "base_path", "threads", "skiers", "lifts", "duration", "timeout",
	"username", "password", "rate", "seed", "output", "log_level", "log_format",
	"log_errors", "dashboard", "latency_log", "history_db", "metrics_addr",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name", "tracing.sample_rate",
	"tracing.insecure", "tracing.propagate",
}

// Loader handles loading configuration from files, environment and command-line arguments.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFlags builds a Config from an already parsed flag set. Precedence, lowest
// first: defaults, config file, environment, explicitly set flags.
func (Loader) LoadFlags(flagSet *pflag.FlagSet) (*Config, error) {
	configPath := ""
	if f := flagSet.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}

	cfgViper, err := newEnvViper()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := defaultConfig()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.BasePath = strings.TrimSpace(cfg.BasePath)
	return cfg, nil
}

// HistoryDB resolves the history database path for commands that need only
// that setting. An explicitly set flag wins over SKIERLOAD_HISTORY_DB.
func (Loader) HistoryDB(flag *pflag.Flag) (string, error) {
	v, err := newEnvViper()
	if err != nil {
		return "", err
	}
	if flag != nil {
		if err := v.BindPFlag("history_db", flag); err != nil {
			return "", fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}
	return strings.TrimSpace(v.GetString("history_db")), nil
}

// newEnvViper returns a viper instance with every env key bound.
func newEnvViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range envKeys {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", envName, err)
		}
	}
	return v, nil
}

func defaultConfig() *Config {
	return &Config{
		Lifts:           DefaultLifts,
		DurationMinutes: DefaultDurationMinutes,
		Timeout:         DefaultTimeout,
		Username:        DefaultUsername,
		Password:        DefaultPassword,
		Output:          OutputText,
		LogLevel:        "info",
		LogFormat:       "text",
		Tracing:         TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// applyConfigSettings applies settings from a config file or the environment.
func applyConfigSettings(cfg *Config, settings map[string]any) error {
	return applyBindings(cfg, settings, configBindings)
}
