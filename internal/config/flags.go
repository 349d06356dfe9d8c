package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all run flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target service
	flags.StringP("host", "H", "", "Hostname of the lift ride service")
	flags.IntP("port", "p", 0, "Port of the lift ride service")
	flags.String("base-path", "", "Path prefix the service is mounted under (e.g. /A3_war)")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.String("username", DefaultUsername, "Basic auth user for lift ride writes")
	flags.String("password", DefaultPassword, "Basic auth password for lift ride writes")

	// Load shape
	flags.IntP("threads", "t", 0, fmt.Sprintf("Number of concurrent workers (%d-%d)", MinThreads, MaxThreads))
	flags.IntP("skiers", "s", 0, fmt.Sprintf("Number of distinct skier IDs (%d-%d)", MinSkiers, MaxSkiers))
	flags.IntP("lifts", "l", DefaultLifts, fmt.Sprintf("Number of lifts (%d-%d)", MinLifts, MaxLifts))
	flags.IntP("duration", "T", DefaultDurationMinutes, "Test duration in minutes")
	flags.Int("rate", 0, "Cap on request pairs started per second across all workers (0 means unlimited)")
	flags.Uint64("seed", 0, "Seed for synthetic ride generation (0 picks a random seed)")

	// Output
	flags.StringP("output", "o", string(OutputText), "Final report format: text, json or yaml")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.Bool("log-errors", false, "Log each failed request (debug level)")
	flags.Bool("dashboard", false, "Show a live terminal dashboard instead of progress lines")
	flags.String("latency-log", "", "Append one 'POST <ms>' / 'GET <ms>' line per request to this file")
	flags.String("history-db", "", "Record the run summary in this bbolt database")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")
	flags.StringArray("threshold", nil, "Pass/fail thresholds (repeatable, e.g. 'write_latency:p99 < 500')")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", false, "Inject W3C trace context headers into requests (defaults to true when an endpoint is set)")
}

// applyFlagOverrides applies explicitly set flags over file and environment
// values. Flags go through the same bindings as config keys; "tracing-" flags
// fill the nested tracing block.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	settings := map[string]any{}
	tracing := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		var val any = f.Value.String()
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			val = sv.GetSlice()
		}
		if key, ok := strings.CutPrefix(f.Name, "tracing-"); ok {
			tracing[key] = val
			return
		}
		settings[f.Name] = val
	})
	if len(tracing) > 0 {
		settings["tracing"] = tracing
	}
	return applyBindings(cfg, settings, configBindings)
}
