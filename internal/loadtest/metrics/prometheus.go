package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver mirrors engine events into Prometheus collectors so a
// run can be scraped while it is in progress.
type PrometheusObserver struct {
	RequestDuration *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
	Checks          *prometheus.CounterVec
	Iterations      *prometheus.CounterVec
	ActiveVUs       prometheus.Gauge
}

// NewPrometheusObserver registers the volley collectors on reg. A nil
// registerer gets a private registry that is never exported.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &PrometheusObserver{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volley_http_req_duration_seconds",
			Help:    "Latency of requests issued by virtual users.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"name", "method"}),

		Requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "volley_http_reqs_total",
			Help: "Requests issued by virtual users, by status code.",
		}, []string{"name", "method", "status"}),

		Checks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "volley_checks_total",
			Help: "Check verdicts recorded by scenarios.",
		}, []string{"check", "result"}),

		Iterations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "volley_iterations_total",
			Help: "Completed scenario iterations.",
		}, []string{"result"}),

		ActiveVUs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "volley_vus",
			Help: "Currently active virtual users.",
		}),
	}
}

func (p *PrometheusObserver) ObserveRequest(o RequestOutcome) {
	p.RequestDuration.WithLabelValues(o.Name, o.Method).Observe(o.Latency.Seconds())
	p.Requests.WithLabelValues(o.Name, o.Method, strconv.Itoa(o.StatusCode)).Inc()
}

func (p *PrometheusObserver) ObserveCheck(name string, passed bool) {
	p.Checks.WithLabelValues(name, result(!passed)).Inc()
}

func (p *PrometheusObserver) ObserveIteration(failed bool) {
	p.Iterations.WithLabelValues(result(failed)).Inc()
}

func (p *PrometheusObserver) ObserveActiveVUs(n int) {
	p.ActiveVUs.Set(float64(n))
}

func result(failed bool) string {
	if failed {
		return "fail"
	}
	return "pass"
}

var _ Observer = (*PrometheusObserver)(nil)
