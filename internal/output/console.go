package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

// ANSI escape codes for the live display
const (
	cursorUp  = "\033[%dA"
	clearLine = "\033[2K"

	progressFilled = "█"
	progressEmpty  = "░"
)

// LiveStats contains real-time statistics for display.
type LiveStats struct {
	Progress float64
	Elapsed  time.Duration

	ActiveVUs int
	TargetVUs int

	CurrentRPS    float64
	TotalRequests int64
	Errors        int64
	ErrorRate     float64
	Iterations    int64

	LatencyP95 time.Duration
	LatencyAvg time.Duration

	Phase metrics.Phase
}

// StatsFromSnapshot builds LiveStats from a live metrics snapshot.
func StatsFromSnapshot(snap *metrics.Snapshot, progress float64, targetVUs int) *LiveStats {
	if snap == nil {
		return &LiveStats{Progress: progress, TargetVUs: targetVUs, Phase: metrics.PhaseInit}
	}
	return &LiveStats{
		Progress:      progress,
		Elapsed:       snap.Elapsed,
		ActiveVUs:     snap.ActiveVUs,
		TargetVUs:     targetVUs,
		CurrentRPS:    snap.RPS,
		TotalRequests: snap.TotalRequests,
		Errors:        snap.FailedRequests,
		ErrorRate:     snap.ErrorRate,
		Iterations:    snap.Iterations,
		LatencyP95:    snap.Latency.P95,
		LatencyAvg:    snap.Latency.Mean,
		Phase:         snap.CurrentPhase,
	}
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Name     string
	Duration time.Duration
	Writer   io.Writer
	Quiet    bool
	ForceTTY bool
	Colors   *ColorScheme
}

// Console renders run progress. On a terminal the display redraws in
// place; elsewhere it prints one line per update.
type Console struct {
	name     string
	duration time.Duration
	writer   io.Writer
	isTTY    bool
	quiet    bool
	c        *ColorScheme

	mu          sync.Mutex
	linesOutput int
}

// NewConsole creates a console progress display.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	isTTY := cfg.ForceTTY || IsTerminal(cfg.Writer)
	scheme := cfg.Colors
	if scheme == nil {
		scheme = NewColorScheme(isTTY && supportsColors())
	}

	return &Console{
		name:     cfg.Name,
		duration: cfg.Duration,
		writer:   cfg.Writer,
		isTTY:    isTTY,
		quiet:    cfg.Quiet,
		c:        scheme,
	}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run banner.
func (c *Console) PrintHeader(vus int, target string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat("━", 56)
	fmt.Fprintln(c.writer, c.c.Title.Sprint(line))
	fmt.Fprintf(c.writer, "%s - %d VUs for %s against %s\n",
		c.c.Label.Sprint(c.name), vus, formatDuration(c.duration), c.c.Value.Sprint(target))
	fmt.Fprintln(c.writer, c.c.Title.Sprint(line))
}

// Update shows stats, redrawing in place on a terminal.
func (c *Console) Update(stats *LiveStats) {
	if c.quiet {
		return
	}
	if !c.isTTY {
		c.printLine(stats)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clear()
	lines := c.render(stats)
	c.linesOutput = len(lines)
	for _, l := range lines {
		fmt.Fprintln(c.writer, l)
	}
}

// Finish removes the live display so the summary can follow.
func (c *Console) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *Console) clear() {
	if !c.isTTY || c.linesOutput == 0 {
		return
	}
	fmt.Fprintf(c.writer, cursorUp, c.linesOutput)
	for i := 0; i < c.linesOutput; i++ {
		fmt.Fprint(c.writer, clearLine+"\n")
	}
	fmt.Fprintf(c.writer, cursorUp, c.linesOutput)
	c.linesOutput = 0
}

func (c *Console) render(stats *LiveStats) []string {
	return []string{
		fmt.Sprintf("Progress: %s %s | %s",
			c.c.Pass.Sprint(progressBar(stats.Progress, 40)),
			c.c.Label.Sprintf("%.0f%%", stats.Progress*100),
			c.c.Dim.Sprintf("%s / %s", formatDuration(stats.Elapsed), formatDuration(c.duration))),
		fmt.Sprintf("Phase:    %s", c.c.Highlight.Sprint(string(stats.Phase))),
		fmt.Sprintf("VUs: %s/%d  Reqs: %s  RPS: %s  Iters: %s",
			c.c.Value.Sprint(stats.ActiveVUs), stats.TargetVUs,
			c.c.Value.Sprint(formatNumber(stats.TotalRequests)),
			c.c.Pass.Sprintf("%.1f", stats.CurrentRPS),
			c.c.Value.Sprint(formatNumber(stats.Iterations))),
		fmt.Sprintf("Errors: %s  P95: %s  Avg: %s",
			c.c.Rate(stats.ErrorRate).Sprintf("%d (%.1f%%)", stats.Errors, stats.ErrorRate*100),
			formatLatency(stats.LatencyP95), formatLatency(stats.LatencyAvg)),
	}
}

func (c *Console) printLine(stats *LiveStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[%s] %.0f%% | VUs: %d | Reqs: %d | RPS: %.1f | Errors: %d (%.1f%%) | P95: %s\n",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.ActiveVUs,
		stats.TotalRequests,
		stats.CurrentRPS,
		stats.Errors,
		stats.ErrorRate*100,
		formatLatency(stats.LatencyP95))
}

func progressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}
