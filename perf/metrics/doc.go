// Package metrics exposes the statistics a volley run produces.
//
// Latencies are recorded into HDR histograms, so percentiles (p50, p90,
// p95, p99) are exact to three significant digits at any throughput.
// Counters are updated atomically; a Snapshot can be taken at any time,
// including while the run is in progress.
//
// # Live Export
//
// Observers receive every event as it is recorded. PrometheusObserver
// mirrors them into Prometheus collectors:
//
//	reg := prometheus.NewRegistry()
//	obs := metrics.NewPrometheusObserver(reg)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
//	summary, _ := perf.Run(ctx, scenario, cfg, perf.WithObserver(obs))
//
// The collectors are:
//
//	volley_http_req_duration_seconds{name,method}   histogram
//	volley_http_reqs_total{name,method,status}      counter
//	volley_checks_total{check,result}               counter
//	volley_iterations_total{result}                 counter
//	volley_vus                                      gauge
package metrics
