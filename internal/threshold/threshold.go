package threshold

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/torosent/skierload/internal/metrics"
)

const (
	MetricWriteLatency = "write_latency"
	MetricReadLatency  = "read_latency"
	MetricFailures     = "failures"
	MetricRequests     = "requests"
)

var (
	thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

	validMetrics    = []string{MetricWriteLatency, MetricReadLatency, MetricFailures, MetricRequests}
	validAggregates = []string{"p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count"}
	validOperators  = []string{"<", "<=", ">", ">=", "=="}
)

// Threshold is a pass/fail assertion over the end-of-run statistics.
type Threshold struct {
	Metric    string  // write_latency, read_latency, failures, requests
	Aggregate string  // p50, p90, p95, p99, avg, min, max, rate, count
	Operator  string  // <, <=, >, >=, ==
	Value     float64
	Raw       string
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator checks a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against stats, in the order they were given.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{Threshold: t, Message: fmt.Sprintf("error: %v", err)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold such as:
//
//	write_latency:p99 < 500   (ms)
//	read_latency:avg < 50     (ms)
//	failures:rate < 0.01      (fraction of completed requests)
//	failures:count < 10
//	requests:rate > 100       (requests per second)
//	requests:count > 1000
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'write_latency:p99 < 500')", s)
	}
	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %w", valueStr, err)
	}
	if !slices.Contains(validMetrics, metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(validMetrics, ", "))
	}
	if !slices.Contains(validAggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: %s)", aggregate, strings.Join(validAggregates, ", "))
	}
	if !slices.Contains(validOperators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: %s)", operator, strings.Join(validOperators, ", "))
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every threshold and reports all malformed ones together.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return result, nil
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case MetricWriteLatency:
		return extractLatency(t.Metric, t.Aggregate, stats.WriteLatency)
	case MetricReadLatency:
		return extractLatency(t.Metric, t.Aggregate, stats.ReadLatency)
	case MetricFailures:
		switch t.Aggregate {
		case "count":
			return float64(stats.Failures), nil
		case "rate":
			return stats.FailureRate(), nil
		}
	case MetricRequests:
		switch t.Aggregate {
		case "count":
			return float64(stats.Total()), nil
		case "rate":
			return stats.RequestsPerSec(), nil
		}
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", t.Aggregate, t.Metric)
}

func extractLatency(metric, aggregate string, l metrics.LatencySummary) (float64, error) {
	switch aggregate {
	case "p50":
		return l.P50Ms, nil
	case "p90":
		return l.P90Ms, nil
	case "p95":
		return l.P95Ms, nil
	case "p99":
		return l.P99Ms, nil
	case "avg":
		return l.MeanMs, nil
	case "min":
		return l.MinMs, nil
	case "max":
		return l.MaxMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s", aggregate, metric)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
