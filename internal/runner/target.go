package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/torosent/skierload/internal/skiapi"
)

// Target is the lift ride service as seen by a worker.
type Target interface {
	CreateLiftRide(ctx context.Context, ride skiapi.LiftRide) (skiapi.Result, error)
	GetLiftRide(ctx context.Context, id int) (skiapi.Result, error)
}

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(err error)
}

// loggingTarget wraps a Target with failure logging.
type loggingTarget struct {
	inner  Target
	logger FailureLogger
}

// WithLogging wraps a Target to log failures.
func WithLogging(target Target, logger FailureLogger) Target {
	if logger == nil {
		return target
	}
	return &loggingTarget{inner: target, logger: logger}
}

func (l *loggingTarget) CreateLiftRide(ctx context.Context, ride skiapi.LiftRide) (skiapi.Result, error) {
	res, err := l.inner.CreateLiftRide(ctx, ride)
	if err != nil {
		l.logger.LogFailure(err)
	}
	return res, err
}

func (l *loggingTarget) GetLiftRide(ctx context.Context, id int) (skiapi.Result, error) {
	res, err := l.inner.GetLiftRide(ctx, id)
	if err != nil {
		l.logger.LogFailure(err)
	}
	return res, err
}

// SlogFailureLogger writes each failure as a debug record.
type SlogFailureLogger struct {
	Logger *slog.Logger
}

func (l SlogFailureLogger) LogFailure(err error) {
	if err == nil || l.Logger == nil {
		return
	}
	attrs := []any{slog.String("error", err.Error())}
	var httpErr *skiapi.HTTPError
	if errors.As(err, &httpErr) {
		attrs = append(attrs, slog.Int("status", httpErr.StatusCode))
	}
	l.Logger.Debug("request failed", attrs...)
}
