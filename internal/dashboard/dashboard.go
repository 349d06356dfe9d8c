// Package dashboard renders a live terminal view of a running load test.
package dashboard

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/skierload/internal/metrics"
)

const (
	refreshInterval = 500 * time.Millisecond
	historyLen      = 100
	maxFailureRows  = 10
)

// RunInfo describes the run shown in the header.
type RunInfo struct {
	Target   string
	Threads  int
	Skiers   int
	Lifts    int
	Duration time.Duration
	Rate     int
	Seed     uint64
}

// Latency histogram bars. Each edge is the exclusive upper bucket index of a
// bar; the last bar is the overflow slot.
var (
	barEdges  = []int{5, 10, 20, 50, 100, 200, metrics.BucketCount}
	barLabels = []string{"<50", "<100", "<200", "<500", "<1s", "<2s", "<5s", "5s+"}
)

// Dashboard polls a registry and redraws the terminal until stopped.
type Dashboard struct {
	registry *metrics.Registry
	info     RunInfo
	onQuit   func()
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex

	grid       *ui.Grid
	header     *widgets.Paragraph
	rates      *widgets.SparklineGroup
	counts     *widgets.Paragraph
	latency    *widgets.Paragraph
	writeHist  *widgets.BarChart
	readHist   *widgets.BarChart
	failures   *widgets.List
	writeRates []float64
	readRates  []float64

	start      time.Time
	lastTick   time.Time
	lastWrites int64
	lastReads  int64
}

// New takes over the terminal. onQuit runs when the user presses q or Ctrl-C;
// the caller is expected to end the run and then call Stop.
func New(registry *metrics.Registry, info RunInfo, onQuit func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := newDashboard(registry, info, onQuit)
	d.ctx, d.cancel = ctx, cancel

	w, h := ui.TerminalDimensions()
	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, w, h)
	d.grid.Set(
		ui.NewRow(0.14, ui.NewCol(1.0, d.header)),
		ui.NewRow(0.26,
			ui.NewCol(0.6, d.rates),
			ui.NewCol(0.4, d.counts),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.5, d.writeHist),
			ui.NewCol(0.5, d.readHist),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.45, d.latency),
			ui.NewCol(0.55, d.failures),
		),
	)
	return d, nil
}

// newDashboard builds the widgets without touching the terminal.
func newDashboard(registry *metrics.Registry, info RunInfo, onQuit func()) *Dashboard {
	now := time.Now()
	d := &Dashboard{
		registry: registry,
		info:     info,
		onQuit:   onQuit,
		start:    now,
		lastTick: now,
	}

	d.header = widgets.NewParagraph()
	d.header.Title = "Run"
	d.header.BorderStyle.Fg = ui.ColorCyan

	posts := widgets.NewSparkline()
	posts.Title = "POSTs/sec"
	posts.LineColor = ui.ColorGreen
	posts.Data = []float64{0}
	gets := widgets.NewSparkline()
	gets.Title = "GETs/sec"
	gets.LineColor = ui.ColorCyan
	gets.Data = []float64{0}
	d.rates = widgets.NewSparklineGroup(posts, gets)
	d.rates.Title = "Throughput"
	d.rates.BorderStyle.Fg = ui.ColorCyan

	d.counts = widgets.NewParagraph()
	d.counts.Title = "Requests"
	d.counts.BorderStyle.Fg = ui.ColorCyan

	d.latency = widgets.NewParagraph()
	d.latency.Title = "Latency (ms)"
	d.latency.BorderStyle.Fg = ui.ColorCyan

	d.writeHist = newHistogramChart("POST latency")
	d.readHist = newHistogramChart("GET latency")

	d.failures = widgets.NewList()
	d.failures.Title = "Failures"
	d.failures.Rows = []string{"[No failures](fg:green)"}
	d.failures.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failures.BorderStyle.Fg = ui.ColorCyan
	return d
}

func newHistogramChart(title string) *widgets.BarChart {
	bc := widgets.NewBarChart()
	bc.Title = title
	bc.Labels = barLabels
	bc.Data = make([]float64, len(barLabels))
	bc.BarWidth = 5
	bc.BarColors = []ui.Color{ui.ColorBlue}
	bc.NumFormatter = func(v float64) string { return fmt.Sprintf("%.0f", v) }
	bc.BorderStyle.Fg = ui.ColorCyan
	return bc
}

// Start begins the refresh loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop ends the refresh loop and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
}

func (d *Dashboard) run() {
	defer d.wg.Done()
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	events := ui.PollEvents()

	d.render()
	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				if d.onQuit != nil {
					d.onQuit()
				}
			case "<Resize>":
				if size, ok := e.Payload.(ui.Resize); ok {
					d.mu.Lock()
					d.grid.SetRect(0, 0, size.Width, size.Height)
					d.mu.Unlock()
					ui.Clear()
					d.render()
				}
			}
		case now := <-ticker.C:
			d.update(now)
			d.render()
		}
	}
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

// update refreshes every widget from the registry as of now.
func (d *Dashboard) update(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := now.Sub(d.start)
	stats := d.registry.Stats(elapsed)

	if secs := now.Sub(d.lastTick).Seconds(); secs > 0 {
		d.writeRates = appendCapped(d.writeRates, float64(stats.Writes.Total-d.lastWrites)/secs)
		d.readRates = appendCapped(d.readRates, float64(stats.Reads.Total-d.lastReads)/secs)
		d.rates.Sparklines[0].Data = d.writeRates
		d.rates.Sparklines[1].Data = d.readRates
		d.rates.Sparklines[0].Title = fmt.Sprintf("POSTs/sec %.0f", d.writeRates[len(d.writeRates)-1])
		d.rates.Sparklines[1].Title = fmt.Sprintf("GETs/sec %.0f", d.readRates[len(d.readRates)-1])
	}
	d.lastTick, d.lastWrites, d.lastReads = now, stats.Writes.Total, stats.Reads.Total

	d.header.Text = fmt.Sprintf("Target: %s\n%s\nElapsed: %s  (q to stop)",
		d.info.Target, formatRunInfo(d.info), elapsed.Round(time.Second))
	d.counts.Text = formatCounts(stats)
	d.latency.Text = formatLatency(stats)
	d.writeHist.Data = histogramBars(stats.Writes.Histogram)
	d.readHist.Data = histogramBars(stats.Reads.Histogram)
	d.failures.Rows = formatFailureRows(stats.Errors, stats.StatusBuckets)
}

func appendCapped(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historyLen {
		history = history[len(history)-historyLen:]
	}
	return history
}

func formatRunInfo(info RunInfo) string {
	parts := []string{
		fmt.Sprintf("Threads: %d", info.Threads),
		fmt.Sprintf("Skiers: %d", info.Skiers),
		fmt.Sprintf("Lifts: %d", info.Lifts),
	}
	if info.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", info.Duration))
	}
	if info.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", info.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if info.Seed != 0 {
		parts = append(parts, fmt.Sprintf("Seed: %d", info.Seed))
	}
	return strings.Join(parts, " | ")
}

func formatCounts(stats metrics.Stats) string {
	return fmt.Sprintf(
		"Success:       %d\nFail:          %d\nSkipped GETs:  %d\nPOSTs:         %d\nGETs:          %d\nTotal req/s:   %.1f",
		stats.Successes,
		stats.Failures,
		stats.SkippedReads,
		stats.Writes.Total,
		stats.Reads.Total,
		stats.RequestsPerSec(),
	)
}

func formatLatency(stats metrics.Stats) string {
	line := func(method string, l metrics.LatencySummary) string {
		if l.Count == 0 {
			return fmt.Sprintf("%-4s  no data", method)
		}
		return fmt.Sprintf("%-4s  mean %.1f  p50 %.0f  p90 %.0f  p99 %.0f  max %.0f",
			method, l.MeanMs, l.P50Ms, l.P90Ms, l.P99Ms, l.MaxMs)
	}
	return line("POST", stats.WriteLatency) + "\n" + line("GET", stats.ReadLatency)
}

// histogramBars folds the 10 ms buckets into the dashboard's coarser bars.
func histogramBars(h metrics.HistogramSnapshot) []float64 {
	bars := make([]float64, len(barLabels))
	bar := 0
	for i, c := range h.Buckets {
		for bar < len(barEdges)-1 && i >= barEdges[bar] {
			bar++
		}
		bars[bar] += float64(c)
	}
	bars[len(bars)-1] += float64(h.Overflow)
	return bars
}

// formatFailureRows lists error labels by count, then status codes.
func formatFailureRows(errs map[string]int, buckets map[string]map[string]int) []string {
	type labelCount struct {
		label string
		count int
	}
	labels := make([]labelCount, 0, len(errs))
	for label, n := range errs {
		labels = append(labels, labelCount{label, n})
	}
	slices.SortFunc(labels, func(a, b labelCount) int {
		return cmp.Or(cmp.Compare(b.count, a.count), cmp.Compare(a.label, b.label))
	})

	var rows []string
	for _, l := range labels {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) x%d", l.label, l.count))
	}
	for _, b := range metrics.FlattenStatusBuckets(buckets) {
		rows = append(rows, fmt.Sprintf("[%s %s](fg:yellow) x%d", strings.ToUpper(b.Kind), b.Code, b.Count))
	}
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > maxFailureRows {
		rows = rows[:maxFailureRows]
	}
	return rows
}
