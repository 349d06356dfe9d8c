// Command liftride_server serves an in-memory lift ride service for local
// skierload runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/torosent/skierload/internal/latencylog"
	"github.com/torosent/skierload/internal/logging"
	"github.com/torosent/skierload/internal/skiapi/skiapitest"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("liftride_server", pflag.ContinueOnError)
	port := fs.IntP("port", "p", 8080, "Listening port")
	basePath := fs.String("base-path", "/A3_war", "Path prefix the routes are mounted under")
	username := fs.String("username", "admin", "Basic auth user required for writes (empty disables auth)")
	password := fs.String("password", "admin", "Basic auth password required for writes")
	delay := fs.Duration("delay", 0, "Artificial delay added to every response")
	failWrites := fs.Bool("fail-writes", false, "Answer every write with 500")
	failReads := fs.Bool("fail-reads", false, "Answer every read with 404")
	latencyPath := fs.String("latency-log", "", "Append one 'POST <ms>' / 'GET <ms>' line per handled request")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	logger := logging.New(os.Stderr, *logLevel, "text")

	opts := skiapitest.Options{
		BasePath:   *basePath,
		Username:   *username,
		Password:   *password,
		FailWrites: *failWrites,
		FailReads:  *failReads,
		Delay:      *delay,
	}
	if *latencyPath != "" {
		w, err := latencylog.Create(*latencyPath)
		if err != nil {
			return err
		}
		defer w.Close()
		opts.LatencyLog = w.Record
	}

	handler := skiapitest.NewHandler(opts)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("lift ride service listening", slog.String("addr", srv.Addr), slog.String("base_path", *basePath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("lift ride service stopped",
		slog.Int64("writes", handler.Writes()),
		slog.Int64("reads", handler.Reads()),
		slog.Int("rides", handler.Rides()),
	)
	return nil
}
