// Package perf is the embedding API of volley: run a closed-model HTTP load
// test from Go code and judge it against thresholds.
//
// A run starts a fixed number of virtual users (VUs). Each VU repeats a
// Scenario until the configured duration elapses, optionally pausing for
// the think time the scenario asks for. When the duration is up no new
// iterations start, but iterations already in flight are allowed to
// finish (see Config.GracefulStop to bound that wait).
//
// Subpackages:
//
//   - perf/metrics: snapshot and statistics types, Prometheus observer
//   - http: the recording client handed to scenarios
//
// # Quick Start
//
//	scenario := perf.ScenarioFunc(func(ctx context.Context, it *perf.Iteration) error {
//	    resp := it.HTTP().Get(ctx, "/api/products")
//	    it.Check("status is 200", resp.StatusCode == 200)
//	    it.SetThinkTime(time.Second)
//	    return nil
//	})
//
//	summary, err := perf.Run(context.Background(), scenario, perf.Config{
//	    VUs:      10,
//	    Duration: 30 * time.Second,
//	    Target:   perf.Target{BaseURL: "http://localhost:8080"},
//	    Thresholds: map[string][]string{
//	        "http_req_failed":   {"rate<0.01"},
//	        "http_req_duration": {"p(95)<500"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err) // invalid configuration
//	}
//	if !summary.Passed {
//	    log.Fatal(summary.Err())
//	}
//
// # Thresholds
//
// Threshold expressions are boolean predicates over the statistics of one
// metric:
//
//	http_req_failed     rate
//	http_req_duration   avg, min, med, max, p(N)   (milliseconds; 1s, 250ms allowed)
//	http_reqs           count, rate
//	checks              rate
//	iterations          count, rate
//	iteration_failures  count, rate
//
// Custom Go predicates can be added with WithThreshold(ThresholdFunc(...)).
//
// # Live State
//
// NewDriver returns a Driver whose Snapshot, Progress and VUStates can be
// polled from another goroutine while Run executes.
package perf
