package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wesleyorama2/volley/internal/loadtest"
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

const labelWidth = 32

// WriteText renders s as a human readable report.
func WriteText(w io.Writer, s *loadtest.Summary, scheme *ColorScheme) error {
	if scheme == nil {
		scheme = NoColorScheme()
	}

	var b strings.Builder
	p := printer{b: &b, c: scheme}

	status := scheme.Pass.Sprint("passed")
	switch {
	case s.Interrupted:
		status = scheme.Warn.Sprint("interrupted")
	case !s.Passed:
		status = scheme.Fail.Sprint("thresholds failed")
	}

	name := s.Name
	if name == "" {
		name = "run"
	}
	p.line("")
	p.line("  %s  %s", scheme.Title.Sprint(name), status)
	p.line("  %s", scheme.Dim.Sprintf("%d VUs, %s, %s to %s",
		s.VUs, formatDuration(s.Duration),
		s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339)))
	p.line("")

	if len(s.Checks) > 0 {
		for _, c := range s.Checks {
			p.check(c)
		}
		p.line("")
	}

	m := s.Metrics
	if m == nil {
		m = &metrics.Snapshot{}
	}
	secs := s.Duration.Seconds()

	if m.ChecksPassed+m.ChecksFailed > 0 {
		p.metric("checks", "%s %s %d %s %d",
			scheme.Rate(1-m.CheckRate).Sprintf("%.2f%%", m.CheckRate*100),
			scheme.SuccessIcon(), m.ChecksPassed, scheme.ErrorIcon(), m.ChecksFailed)
	}
	p.metric("http_req_duration", "avg=%s min=%s med=%s max=%s p(90)=%s p(95)=%s p(99)=%s",
		formatLatency(m.Latency.Mean), formatLatency(m.Latency.Min), formatLatency(m.Latency.P50),
		formatLatency(m.Latency.Max), formatLatency(m.Latency.P90), formatLatency(m.Latency.P95),
		formatLatency(m.Latency.P99))
	p.metric("http_req_failed", "%s %s %d %s %d",
		scheme.Rate(m.ErrorRate).Sprintf("%.2f%%", m.ErrorRate*100),
		scheme.SuccessIcon(), m.FailedRequests, scheme.ErrorIcon(), m.SuccessRequests)
	p.metric("http_reqs", "%s %s", scheme.Value.Sprint(formatNumber(m.TotalRequests)), rate(m.TotalRequests, secs))
	p.metric("data_received", "%s", formatBytes(m.TotalBytes))
	p.metric("iterations", "%s %s", scheme.Value.Sprint(formatNumber(s.Iterations)), rate(s.Iterations, secs))
	if s.FailedIterations > 0 {
		p.metric("iteration_failures", "%s", scheme.Fail.Sprint(formatNumber(s.FailedIterations)))
	}
	p.metric("vus", "%d", s.VUs)
	p.line("")

	if len(s.Requests) > 0 {
		p.line("  %s", scheme.Label.Sprint("requests"))
		for _, r := range s.Requests {
			failed := 0.0
			if r.Count > 0 {
				failed = float64(r.Failed) / float64(r.Count)
			}
			p.line("    %-40s %8s  failed=%s  avg=%s  p(95)=%s",
				r.Name, formatNumber(r.Count),
				scheme.Rate(failed).Sprintf("%.2f%%", failed*100),
				formatLatency(r.Latency.Mean), formatLatency(r.Latency.P95))
		}
		p.line("")
	}

	if len(s.Thresholds) > 0 {
		p.line("  %s", scheme.Label.Sprint("thresholds"))
		for _, t := range s.Thresholds {
			p.line("    %s %s %s  %s", scheme.Icon(t.Passed), t.Metric, t.Expression, scheme.Dim.Sprint(t.Message))
		}
		p.line("")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type printer struct {
	b *strings.Builder
	c *ColorScheme
}

func (p printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p printer) metric(name, format string, args ...interface{}) {
	dots := labelWidth - len(name)
	if dots < 3 {
		dots = 3
	}
	p.line("  %s%s: %s", name, p.c.Dim.Sprint(strings.Repeat(".", dots)), fmt.Sprintf(format, args...))
}

func (p printer) check(c metrics.CheckStats) {
	total := c.Passes + c.Fails
	p.line("  %s %s", p.c.Icon(c.Fails == 0), c.Name)
	if c.Fails > 0 && total > 0 {
		p.line("   %s %d%% %s %d / %s %d",
			p.c.Dim.Sprint("↳"), c.Passes*100/total,
			p.c.SuccessIcon(), c.Passes, p.c.ErrorIcon(), c.Fails)
	}
}

func rate(n int64, secs float64) string {
	if secs <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f/s", float64(n)/secs)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatLatency formats a latency with sub-millisecond precision.
func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if n < 0 || len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
