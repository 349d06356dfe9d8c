// Package config provides configuration loading and parsing for skierload.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// binding maps one setting, under any of its spellings, onto a field of T.
// The first key is the canonical name used in error messages.
type binding[T any] struct {
	keys  []string
	apply func(*T, any) error
}

func bind[T, V any](conv func(any) (V, error), set func(*T, V), keys ...string) binding[T] {
	return binding[T]{
		keys: keys,
		apply: func(target *T, raw any) error {
			val, err := conv(raw)
			if err != nil {
				return err
			}
			set(target, val)
			return nil
		},
	}
}

func applyBindings[T any](target *T, settings map[string]any, bindings []binding[T]) error {
	for _, b := range bindings {
		raw, ok := lookupSetting(settings, b.keys...)
		if !ok {
			continue
		}
		if err := b.apply(target, raw); err != nil {
			return fmt.Errorf("%s: %w", b.keys[0], err)
		}
	}
	return nil
}

// lookupSetting returns the first candidate present in settings. Viper lowercases
// keys, so the lowercase spelling of each candidate is tried as well.
func lookupSetting(settings map[string]any, candidates ...string) (any, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func trimmed(raw any) (string, error) {
	s, err := cast.ToStringE(raw)
	return strings.TrimSpace(s), err
}

func lowered(raw any) (string, error) {
	s, err := trimmed(raw)
	return strings.ToLower(s), err
}

func toInt(raw any) (int, error) {
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
		if raw == "" {
			return 0, nil
		}
	}
	return cast.ToIntE(raw)
}

// toDuration accepts Go duration strings; bare numbers are seconds.
func toDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case nil, time.Duration:
		return cast.ToDurationE(v)
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		return time.ParseDuration(v)
	}
	secs, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// toStringList keeps a lone string whole; threshold expressions contain spaces.
func toStringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	}
	return cast.ToStringSliceE(raw)
}

func toSettingsMap(raw any) (map[string]any, error) {
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out, nil
}

var configBindings = []binding[Config]{
	bind(trimmed, func(c *Config, v string) { c.Host = v }, "host", "hostname"),
	bind(toInt, func(c *Config, v int) { c.Port = v }, "port"),
	bind(trimmed, func(c *Config, v string) { c.BasePath = v }, "base_path", "basepath", "base-path"),
	bind(toInt, func(c *Config, v int) { c.Threads = v }, "threads"),
	bind(toInt, func(c *Config, v int) { c.Skiers = v }, "skiers"),
	bind(toInt, func(c *Config, v int) { c.Lifts = v }, "lifts"),
	bind(toInt, func(c *Config, v int) { c.DurationMinutes = v }, "duration"),
	bind(toDuration, func(c *Config, v time.Duration) { c.Timeout = v }, "timeout"),
	bind(cast.ToStringE, func(c *Config, v string) { c.Username = v }, "username"),
	bind(cast.ToStringE, func(c *Config, v string) { c.Password = v }, "password"),
	bind(toInt, func(c *Config, v int) { c.Rate = v }, "rate"),
	bind(cast.ToUint64E, func(c *Config, v uint64) { c.Seed = v }, "seed"),
	bind(lowered, func(c *Config, v string) { c.Output = OutputFormat(v) }, "output"),
	bind(lowered, func(c *Config, v string) { c.LogLevel = v }, "log_level", "loglevel", "log-level"),
	bind(lowered, func(c *Config, v string) { c.LogFormat = v }, "log_format", "logformat", "log-format"),
	bind(cast.ToBoolE, func(c *Config, v bool) { c.LogErrors = v }, "log_errors", "logerrors", "log-errors"),
	bind(cast.ToBoolE, func(c *Config, v bool) { c.Dashboard = v }, "dashboard"),
	bind(trimmed, func(c *Config, v string) { c.LatencyLog = v }, "latency_log", "latencylog", "latency-log"),
	bind(trimmed, func(c *Config, v string) { c.HistoryDB = v }, "history_db", "historydb", "history-db"),
	bind(trimmed, func(c *Config, v string) { c.MetricsAddr = v }, "metrics_addr", "metricsaddr", "metrics-addr"),
	bind(toStringList, func(c *Config, v []string) { c.Thresholds = v }, "thresholds", "threshold"),
	{keys: []string{"tracing"}, apply: applyTracing},
}

var tracingBindings = []binding[TracingConfig]{
	bind(trimmed, func(t *TracingConfig, v string) { t.Endpoint = v }, "endpoint"),
	bind(lowered, func(t *TracingConfig, v string) { t.Protocol = v }, "protocol"),
	bind(trimmed, func(t *TracingConfig, v string) { t.ServiceName = v }, "service_name", "servicename", "service-name"),
	bind(cast.ToFloat64E, func(t *TracingConfig, v float64) { t.SampleRate = v }, "sample_rate", "samplerate", "sample-rate"),
	bind(cast.ToBoolE, func(t *TracingConfig, v bool) { t.Insecure = v }, "insecure"),
	bind(cast.ToBoolE, func(t *TracingConfig, v bool) { t.Propagate = &v }, "propagate"),
}

// applyTracing merges a nested tracing block over the tracing defaults.
func applyTracing(cfg *Config, raw any) error {
	if raw == nil {
		return nil
	}
	settings, err := toSettingsMap(raw)
	if err != nil {
		return err
	}
	return applyBindings(&cfg.Tracing, settings, tracingBindings)
}
