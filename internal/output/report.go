package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/skierload/internal/metrics"
	"github.com/torosent/skierload/internal/threshold"
)

// HistogramReport is the serialisable form of one latency histogram.
type HistogramReport struct {
	BucketWidthMs int                 `json:"bucket_width_ms" yaml:"bucket_width_ms"`
	Buckets       []metrics.BucketRow `json:"buckets" yaml:"buckets"`
	Overflow      int64               `json:"overflow" yaml:"overflow"`
}

// ThresholdReport is the serialisable form of a threshold result.
type ThresholdReport struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

// Report is the structured end-of-run report written by the JSON and YAML formatters.
type Report struct {
	metrics.Stats `yaml:",inline"`

	WriteHistogram HistogramReport   `json:"write_histogram" yaml:"write_histogram"`
	ReadHistogram  HistogramReport   `json:"read_histogram" yaml:"read_histogram"`
	Thresholds     []ThresholdReport `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// NewReport assembles a Report from the final statistics and threshold results.
func NewReport(stats metrics.Stats, results []threshold.Result) Report {
	r := Report{
		Stats:          stats,
		WriteHistogram: histogramReport(stats.Writes.Histogram),
		ReadHistogram:  histogramReport(stats.Reads.Histogram),
	}
	for _, res := range results {
		r.Thresholds = append(r.Thresholds, ThresholdReport{
			Threshold: res.Threshold.Raw,
			Actual:    res.Actual,
			Pass:      res.Pass,
		})
	}
	return r
}

func histogramReport(h metrics.HistogramSnapshot) HistogramReport {
	rows := h.Rows()
	if rows == nil {
		rows = []metrics.BucketRow{}
	}
	return HistogramReport{
		BucketWidthMs: metrics.BucketWidthMs,
		Buckets:       rows,
		Overflow:      h.Overflow,
	}
}

// PrintReport outputs the human-readable summary.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintf(w, "Success: %d\n", stats.Successes)
	fmt.Fprintf(w, "Fail: %d\n", stats.Failures)
	if stats.SkippedReads > 0 {
		fmt.Fprintf(w, "Skipped GETs: %d\n", stats.SkippedReads)
	}
	fmt.Fprintf(w, "Total Requests/second GET: %d\n", stats.ReadThroughput)
	fmt.Fprintf(w, "Total Requests/second POST: %d\n", stats.WriteThroughput)
	fmt.Fprintf(w, "Total Run Time: %d seconds\n", stats.RuntimeSeconds)
	fmt.Fprintf(w, "Total requests/second: %d\n", stats.Throughput)
	fmt.Fprintln(w, "---")

	writeLatency(w, "POST", stats.WriteLatency)
	writeLatency(w, "GET", stats.ReadLatency)

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "Failure Breakdown:")
		labels := make([]string, 0, len(stats.Errors))
		for label := range stats.Errors {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			if stats.Errors[labels[i]] == stats.Errors[labels[j]] {
				return labels[i] < labels[j]
			}
			return stats.Errors[labels[i]] > stats.Errors[labels[j]]
		})
		for _, label := range labels {
			fmt.Fprintf(w, "  %s: %d\n", label, stats.Errors[label])
		}
		fmt.Fprintln(w, "---")
	}
	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w, "Status Buckets:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
		fmt.Fprintln(w, "---")
	}

	WriteHistogram(w, "POST", stats.Writes.Histogram)
	WriteHistogram(w, "GET", stats.Reads.Histogram)
}

// WriteHistogram prints the non-empty buckets of h as "(index) - count" rows.
func WriteHistogram(w io.Writer, method string, h metrics.HistogramSnapshot) {
	fmt.Fprintf(w, "Operation Histogram: %s\n", method)
	for _, row := range h.Rows() {
		fmt.Fprintf(w, "(%d) - %d\n", row.Index, row.Count)
	}
	if h.Overflow > 0 {
		fmt.Fprintf(w, "(>=%d) - %d\n", metrics.BucketCount, h.Overflow)
	}
	fmt.Fprintln(w, "---")
}

func writeLatency(w io.Writer, method string, l metrics.LatencySummary) {
	if l.Count == 0 {
		return
	}
	fmt.Fprintf(w, "%s latency (ms): mean=%.2f p50=%.2f p90=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		method, l.MeanMs, l.P50Ms, l.P90Ms, l.P95Ms, l.P99Ms, l.MaxMs)
}

// PrintJSONReport outputs the report as indented JSON.
func PrintJSONReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(stats, results))
}

// PrintYAMLReport outputs the report as YAML.
func PrintYAMLReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(stats, results)); err != nil {
		return err
	}
	return enc.Close()
}

// PrintThresholdResults prints one line per threshold and a pass/fail summary.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "Thresholds:")
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	fmt.Fprintf(w, "%d/%d thresholds passed\n", passed, len(results))
	fmt.Fprintln(w, "---")
}

func writeStatusBuckets(w io.Writer, buckets map[string]map[string]int, indent string) {
	for _, row := range metrics.FlattenStatusBuckets(buckets) {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, strings.ToUpper(row.Kind), row.Code, row.Count)
	}
}
