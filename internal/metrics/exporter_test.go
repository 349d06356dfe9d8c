package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/torosent/skierload/internal/logging"
	"github.com/torosent/skierload/internal/metrics"
)

func TestExporterHandler(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.RecordOutcome(metrics.Outcome{Kind: metrics.KindWrite, Success: true, Elapsed: 47 * time.Millisecond})
	reg.RecordOutcome(metrics.Outcome{Kind: metrics.KindWrite, Elapsed: 6 * time.Second, Err: errors.New("x")})
	reg.RecordOutcome(metrics.Outcome{Kind: metrics.KindRead, Success: true, Elapsed: 150 * time.Millisecond})
	reg.RecordSkippedRead()

	srv := httptest.NewServer(metrics.NewExporter(reg).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`skierload_requests_total{kind="write",result="success"} 1`,
		`skierload_requests_total{kind="write",result="failure"} 1`,
		`skierload_requests_total{kind="read",result="success"} 1`,
		`skierload_skipped_reads_total 1`,
		`skierload_latency_overflow_total{kind="write"} 1`,
		`skierload_request_latency_seconds_count{kind="write"} 2`,
		`skierload_request_latency_seconds_bucket{kind="read",le="0.1"} 0`,
		`skierload_request_latency_seconds_bucket{kind="read",le="0.2"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestExporterServeStopsOnCancel(t *testing.T) {
	exp := metrics.NewExporter(metrics.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- exp.Serve(ctx, "127.0.0.1:0", logging.Discard())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestExporterServeBadAddress(t *testing.T) {
	exp := metrics.NewExporter(metrics.NewRegistry())
	if err := exp.Serve(context.Background(), "256.0.0.1:bad", logging.Discard()); err == nil {
		t.Fatal("expected listen error")
	}
}
