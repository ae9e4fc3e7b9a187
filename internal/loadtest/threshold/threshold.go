// Package threshold compiles pass/fail criteria over run metrics and
// evaluates them once a run has finished.
//
// Criteria use the k6 syntax: a metric name maps to a list of expressions
// such as "rate<0.01" or "p(95)<2000". Durations are compared in
// milliseconds; literals like 500ms or 2s are converted before evaluation.
package threshold

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

// Metric names understood by Parse.
const (
	HTTPReqFailed     = "http_req_failed"
	HTTPReqDuration   = "http_req_duration"
	HTTPReqs          = "http_reqs"
	Checks            = "checks"
	Iterations        = "iterations"
	IterationFailures = "iteration_failures"
)

// ErrInvalidThreshold is wrapped by every parse error.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Source provides the aggregated values thresholds are evaluated against.
type Source interface {
	Snapshot() *metrics.Snapshot
	LatencyQuantile(q float64) time.Duration
}

// Result is the verdict of a single threshold expression.
type Result struct {
	Metric     string  `json:"metric" yaml:"metric"`
	Expression string  `json:"expression" yaml:"expression"`
	Passed     bool    `json:"passed" yaml:"passed"`
	Value      float64 `json:"value" yaml:"value"`
	Message    string  `json:"message,omitempty" yaml:"message,omitempty"`
}

// Threshold is a compiled criterion over one metric.
type Threshold struct {
	Metric     string
	Expression string

	program   *vm.Program
	subject   string
	quantiles map[string]float64

	predicate func(Source) (float64, bool)
}

var (
	percentileRe = regexp.MustCompile(`p\(\s*(\d+(?:\.\d+)?)\s*\)`)
	durationRe   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)(ms|s|m)\b`)
	subjectRe    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)`)
)

// Variables each metric exposes to its expressions. Percentile variables
// (p_95, p_99_9) are added per expression.
var metricVars = map[string][]string{
	HTTPReqFailed:     {"rate"},
	HTTPReqDuration:   {"avg", "min", "med", "max", "count"},
	HTTPReqs:          {"count", "rate"},
	Checks:            {"rate"},
	Iterations:        {"count", "rate"},
	IterationFailures: {"count", "rate"},
}

// Parse compiles a metric to expressions table. Metrics are processed in
// name order so the resulting slice is deterministic.
func Parse(defs map[string][]string) ([]*Threshold, error) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*Threshold
	for _, name := range names {
		for _, expression := range defs[name] {
			t, err := Compile(name, expression)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Compile compiles a single expression against metric.
func Compile(metric, expression string) (*Threshold, error) {
	vars, ok := metricVars[metric]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidThreshold, metric)
	}
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: empty expression for %s", ErrInvalidThreshold, metric)
	}

	rewritten, quantiles, err := rewrite(metric, expression)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, len(vars)+len(quantiles))
	for _, v := range vars {
		env[v] = 0.0
	}
	for v := range quantiles {
		env[v] = 0.0
	}

	program, err := expr.Compile(rewritten, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q: %v", ErrInvalidThreshold, metric, expression, err)
	}

	subject := ""
	if m := subjectRe.FindStringSubmatch(rewritten); m != nil {
		if _, known := env[m[1]]; known {
			subject = m[1]
		}
	}

	return &Threshold{
		Metric:     metric,
		Expression: expression,
		program:    program,
		subject:    subject,
		quantiles:  quantiles,
	}, nil
}

// Func builds a threshold from a Go predicate. fn returns the observed
// value and whether it passes.
func Func(name string, fn func(Source) (float64, bool)) *Threshold {
	return &Threshold{Metric: name, Expression: "func", predicate: fn}
}

func rewrite(metric, expression string) (string, map[string]float64, error) {
	quantiles := make(map[string]float64)

	out := percentileRe.ReplaceAllStringFunc(expression, func(m string) string {
		raw := percentileRe.FindStringSubmatch(m)[1]
		q, _ := strconv.ParseFloat(raw, 64)
		name := "p_" + strings.ReplaceAll(raw, ".", "_")
		quantiles[name] = q
		return name
	})

	for name, q := range quantiles {
		if metric != HTTPReqDuration {
			return "", nil, fmt.Errorf("%w: %s does not support percentiles", ErrInvalidThreshold, metric)
		}
		if q <= 0 || q > 100 {
			return "", nil, fmt.Errorf("%w: percentile %s out of range", ErrInvalidThreshold, name)
		}
	}

	out = durationRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := durationRe.FindStringSubmatch(m)
		d, err := time.ParseDuration(parts[1] + parts[2])
		if err != nil {
			return m
		}
		return strconv.FormatFloat(ms(d), 'f', -1, 64)
	})

	return out, quantiles, nil
}

// Evaluate runs the threshold against src.
func (t *Threshold) Evaluate(src Source) Result {
	result := Result{Metric: t.Metric, Expression: t.Expression}

	if t.predicate != nil {
		result.Value, result.Passed = t.predicate(src)
		if !result.Passed {
			result.Message = fmt.Sprintf("%s is %.4f", t.Metric, result.Value)
		}
		return result
	}

	env := t.env(src)
	out, err := expr.Run(t.program, env)
	if err != nil {
		result.Message = fmt.Sprintf("failed to evaluate expression: %v", err)
		return result
	}

	passed, _ := out.(bool)
	result.Passed = passed
	if v, ok := env[t.subject].(float64); ok {
		result.Value = v
	}
	if !passed {
		result.Message = fmt.Sprintf("%s is %s, threshold: %s", t.Metric, formatValue(t.subject, result.Value), t.Expression)
	}
	return result
}

func (t *Threshold) env(src Source) map[string]any {
	s := src.Snapshot()
	env := make(map[string]any, 6+len(t.quantiles))

	switch t.Metric {
	case HTTPReqFailed:
		env["rate"] = s.ErrorRate
	case HTTPReqDuration:
		env["avg"] = ms(s.Latency.Mean)
		env["min"] = ms(s.Latency.Min)
		env["med"] = ms(s.Latency.P50)
		env["max"] = ms(s.Latency.Max)
		env["count"] = float64(s.Latency.Count)
		for name, q := range t.quantiles {
			env[name] = ms(src.LatencyQuantile(q))
		}
	case HTTPReqs:
		env["count"] = float64(s.TotalRequests)
		env["rate"] = perSecond(s.TotalRequests, s.Elapsed)
	case Checks:
		env["rate"] = s.CheckRate
		if s.ChecksPassed+s.ChecksFailed == 0 {
			env["rate"] = 1.0
		}
	case Iterations:
		env["count"] = float64(s.Iterations)
		env["rate"] = perSecond(s.Iterations, s.Elapsed)
	case IterationFailures:
		env["count"] = float64(s.FailedIterations)
		env["rate"] = 0.0
		if s.Iterations > 0 {
			env["rate"] = float64(s.FailedIterations) / float64(s.Iterations)
		}
	}
	return env
}

// EvaluateAll evaluates every threshold in order and reports whether all
// of them passed.
func EvaluateAll(thresholds []*Threshold, src Source) ([]Result, bool) {
	results := make([]Result, 0, len(thresholds))
	passed := true
	for _, t := range thresholds {
		r := t.Evaluate(src)
		if !r.Passed {
			passed = false
		}
		results = append(results, r)
	}
	return results, passed
}

// ProfileDefaults returns the default criteria for a runtime profile.
// Just-in-time compiled targets warm up slowly and get a looser latency
// bound.
func ProfileDefaults(profile string) map[string][]string {
	p95 := "p(95)<2000"
	if strings.EqualFold(profile, "jit") {
		p95 = "p(95)<15000"
	}
	return map[string][]string{
		HTTPReqFailed:   {"rate<0.01"},
		HTTPReqDuration: {p95},
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func perSecond(n int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

func formatValue(subject string, v float64) string {
	switch {
	case subject == "rate":
		return strconv.FormatFloat(v, 'f', 4, 64)
	case strings.HasPrefix(subject, "p_"), subject == "avg", subject == "min", subject == "med", subject == "max":
		return strconv.FormatFloat(v, 'f', 2, 64) + "ms"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
