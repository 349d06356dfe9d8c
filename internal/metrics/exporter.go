package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skierload"

// Exporter exposes a Registry to Prometheus. Values are read from the
// registry at scrape time, so recording stays free of exporter work.
type Exporter struct {
	registry *Registry
	prom     *prometheus.Registry

	requests     *prometheus.Desc
	skippedReads *prometheus.Desc
	overflow     *prometheus.Desc
	latency      *prometheus.Desc
}

// NewExporter builds an Exporter backed by its own Prometheus registry.
func NewExporter(registry *Registry) *Exporter {
	e := &Exporter{
		registry: registry,
		prom:     prometheus.NewRegistry(),
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "requests_total"),
			"Completed requests by kind and result.",
			[]string{"kind", "result"}, nil,
		),
		skippedReads: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "skipped_reads_total"),
			"Reads not issued because the paired write failed.",
			nil, nil,
		),
		overflow: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "latency_overflow_total"),
			"Requests at or above the histogram overflow threshold.",
			[]string{"kind"}, nil,
		),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "request_latency_seconds"),
			"Request latency by kind.",
			[]string{"kind"}, nil,
		),
	}
	e.prom.MustRegister(e)
	return e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.requests
	ch <- e.skippedReads
	ch <- e.overflow
	ch <- e.latency
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.registry.Snapshot()
	for _, ks := range []struct {
		kind Kind
		snap KindSnapshot
	}{{KindWrite, snap.Writes}, {KindRead, snap.Reads}} {
		name := ks.kind.String()
		ch <- prometheus.MustNewConstMetric(e.requests, prometheus.CounterValue, float64(ks.snap.Successes), name, "success")
		ch <- prometheus.MustNewConstMetric(e.requests, prometheus.CounterValue, float64(ks.snap.Failures), name, "failure")
		ch <- prometheus.MustNewConstMetric(e.overflow, prometheus.CounterValue, float64(ks.snap.Histogram.Overflow), name)
		ch <- e.histogramMetric(name, ks.snap.Histogram)
	}
	ch <- prometheus.MustNewConstMetric(e.skippedReads, prometheus.CounterValue, float64(snap.SkippedReads))
}

// histogramMetric folds the 10 ms buckets into cumulative Prometheus buckets
// at every 100 ms boundary. The sum uses bucket midpoints.
func (e *Exporter) histogramMetric(kind string, h HistogramSnapshot) prometheus.Metric {
	buckets := make(map[float64]uint64, BucketCount/10)
	var cumulative uint64
	var sum float64
	for i, c := range h.Buckets {
		cumulative += uint64(c)
		sum += float64(c) * (float64(i*BucketWidthMs) + BucketWidthMs/2) / 1000
		if (i+1)%10 == 0 {
			buckets[float64((i+1)*BucketWidthMs)/1000] = cumulative
		}
	}
	count := cumulative + uint64(h.Overflow)
	sum += float64(h.Overflow) * OverflowThresholdMs / 1000
	return prometheus.MustNewConstHistogram(e.latency, count, sum, buckets, kind)
}

// Handler serves the exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.prom, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("serving prometheus metrics", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
