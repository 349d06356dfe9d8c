package latencylog

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// MethodSummary is the latency distribution of one HTTP method in a log.
type MethodSummary struct {
	Method string  `json:"method"`
	Count  int64   `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	P90Ms  int64   `json:"p90_ms"`
	P99Ms  int64   `json:"p99_ms"`
	MaxMs  int64   `json:"max_ms"`
}

// Analysis is the result of reading a latency log.
type Analysis struct {
	Methods []MethodSummary `json:"methods"`
	Skipped int             `json:"skipped_lines"`
}

type methodAcc struct {
	sum  int64
	hist *hdrhistogram.Histogram
}

// Analyze reads "<METHOD> <ms>" lines from r. Lines that do not parse are
// counted in Skipped. Methods are ordered POST, GET, then alphabetically.
func Analyze(r io.Reader) (Analysis, error) {
	var a Analysis
	accs := make(map[string]*methodAcc)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			a.Skipped++
			continue
		}
		ms, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || ms < 0 {
			a.Skipped++
			continue
		}
		method := strings.ToUpper(fields[0])
		acc, ok := accs[method]
		if !ok {
			// Milliseconds, up to one hour.
			acc = &methodAcc{hist: hdrhistogram.New(1, 3_600_000, 3)}
			accs[method] = acc
		}
		if ms > acc.hist.HighestTrackableValue() {
			ms = acc.hist.HighestTrackableValue()
		}
		acc.sum += ms
		_ = acc.hist.RecordValue(ms)
	}
	if err := sc.Err(); err != nil {
		return Analysis{}, fmt.Errorf("read latency log: %w", err)
	}

	for method, acc := range accs {
		count := acc.hist.TotalCount()
		a.Methods = append(a.Methods, MethodSummary{
			Method: method,
			Count:  count,
			MeanMs: float64(acc.sum) / float64(count),
			P90Ms:  acc.hist.ValueAtQuantile(90),
			P99Ms:  acc.hist.ValueAtQuantile(99),
			MaxMs:  acc.hist.Max(),
		})
	}
	sort.Slice(a.Methods, func(i, j int) bool {
		ri, rj := methodRank(a.Methods[i].Method), methodRank(a.Methods[j].Method)
		if ri != rj {
			return ri < rj
		}
		return a.Methods[i].Method < a.Methods[j].Method
	})
	return a, nil
}

func methodRank(m string) int {
	switch m {
	case "POST":
		return 0
	case "GET":
		return 1
	default:
		return 2
	}
}

// Print writes the analysis in the same block style as the run report.
func Print(w io.Writer, a Analysis) {
	for _, m := range a.Methods {
		fmt.Fprintf(w, "%s\n", m.Method)
		fmt.Fprintf(w, "Requests: %d\n", m.Count)
		fmt.Fprintf(w, "Mean: %.2f ms\n", m.MeanMs)
		fmt.Fprintf(w, "p90: %d ms\n", m.P90Ms)
		fmt.Fprintf(w, "p99: %d ms\n", m.P99Ms)
		fmt.Fprintf(w, "Max: %d ms\n", m.MaxMs)
		fmt.Fprintln(w, "---")
	}
	if a.Skipped > 0 {
		fmt.Fprintf(w, "Skipped lines: %d\n", a.Skipped)
	}
}
