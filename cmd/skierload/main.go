package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/skierload/internal/config"
	"github.com/torosent/skierload/internal/dashboard"
	"github.com/torosent/skierload/internal/history"
	"github.com/torosent/skierload/internal/httpclient"
	"github.com/torosent/skierload/internal/latencylog"
	"github.com/torosent/skierload/internal/logging"
	"github.com/torosent/skierload/internal/metrics"
	"github.com/torosent/skierload/internal/output"
	"github.com/torosent/skierload/internal/phase"
	"github.com/torosent/skierload/internal/runner"
	"github.com/torosent/skierload/internal/skiapi"
	"github.com/torosent/skierload/internal/threshold"
	"github.com/torosent/skierload/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries the process streams into every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer
	// duration overrides the configured run length; tests use it to avoid
	// minute-long runs.
	duration time.Duration
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "skierload",
		Short:         "Drive lift ride write/read load against a ski resort service",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader().LoadFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return a.load(cmd.Context(), *cfg)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	config.RegisterFlags(root)
	root.AddCommand(newAnalyzeCommand(a), newHistoryCommand(a))
	return root
}

func (a *app) load(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger := logging.New(a.stderr, cfg.LogLevel, cfg.LogFormat)

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	client, err := skiapi.New(skiapi.Options{
		BaseURL:    cfg.BaseURL(),
		Username:   cfg.Username,
		Password:   cfg.Password,
		HTTPClient: httpclient.NewClient(cfg.Timeout, cfg.Threads),
		Tracer:     provider.Tracer(),
		Propagate:  provider.ShouldPropagate(),
	})
	if err != nil {
		return err
	}
	var target runner.Target = client
	if cfg.LogErrors {
		target = runner.WithLogging(target, runner.SlogFailureLogger{Logger: logger})
	}

	var sink runner.LatencySink
	if cfg.LatencyLog != "" {
		w, err := latencylog.Create(cfg.LatencyLog)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("latency log close failed", slog.Any("error", err))
			}
		}()
		sink = w
	}

	var progress io.Writer
	switch {
	case cfg.Dashboard:
		// The dashboard owns the terminal; progress blocks would draw over it.
	case cfg.Output != "" && cfg.Output != config.OutputText:
		progress = a.stderr
	default:
		progress = a.stdout
	}

	registry := metrics.NewRegistry()
	ctrl, err := phase.New(phase.Options{
		Config:   cfg,
		Target:   target,
		Duration: a.duration,
		Progress: progress,
		Registry: registry,
		Latency:  sink,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// The dashboard reads Ctrl-C as a key, so quitting it cancels the run the
	// way SIGINT does.
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(registry, dashboard.RunInfo{
			Target:   cfg.BaseURL(),
			Threads:  cfg.Threads,
			Skiers:   cfg.Skiers,
			Lifts:    cfg.Lifts,
			Duration: cfg.Duration(),
			Rate:     cfg.Rate,
			Seed:     cfg.Seed,
		}, cancelRun)
		if err != nil {
			return err
		}
	}

	stopMetrics := serveMetrics(ctx, cfg.MetricsAddr, registry, logger)
	startedAt := time.Now()
	if dash != nil {
		dash.Start()
	}
	stats, runErr := ctrl.Run(ctx)
	if dash != nil {
		dash.Stop()
	}
	stopMetrics()

	results := threshold.NewEvaluator(thresholds).Evaluate(stats)
	if err := a.report(cfg.Output, stats, results); err != nil {
		return err
	}

	if cfg.HistoryDB != "" {
		var passed *bool
		if len(results) > 0 {
			ok := threshold.AllPassed(results)
			passed = &ok
		}
		if err := saveHistory(cfg, stats, startedAt, passed, logger); err != nil {
			logger.Warn("could not record run history", slog.Any("error", err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if !threshold.AllPassed(results) {
		failed := 0
		for _, r := range results {
			if !r.Pass {
				failed++
			}
		}
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}

func (a *app) report(format config.OutputFormat, stats metrics.Stats, results []threshold.Result) error {
	switch format {
	case config.OutputJSON:
		return output.PrintJSONReport(a.stdout, stats, results)
	case config.OutputYAML:
		return output.PrintYAMLReport(a.stdout, stats, results)
	default:
		output.PrintReport(a.stdout, stats)
		output.PrintThresholdResults(a.stdout, results)
		return nil
	}
}

// serveMetrics exposes registry on addr until the returned func is called.
// An empty addr disables it.
func serveMetrics(ctx context.Context, addr string, registry *metrics.Registry, logger *slog.Logger) func() {
	if addr == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	exporter := metrics.NewExporter(registry)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := exporter.Serve(ctx, addr, logger); err != nil {
			logger.Error("metrics server failed", slog.String("addr", addr), slog.Any("error", err))
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func saveHistory(cfg config.Config, stats metrics.Stats, startedAt time.Time, passed *bool, logger *slog.Logger) error {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(history.NewEntry(cfg, stats, startedAt, passed))
	if err != nil {
		return err
	}
	logger.Info("run recorded", slog.String("id", id), slog.String("db", cfg.HistoryDB))
	return nil
}
