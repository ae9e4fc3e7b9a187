// Package http is the recording HTTP client handed to volley scenarios,
// with detailed timing metrics and a fluent request builder.
//
// Inside a scenario, Iteration.HTTP returns a Client already bound to the
// run's target and metrics. Every request sent through it is counted,
// including transport failures, which come back as a Response with
// StatusCode 0 and Err set rather than as an error return:
//
//	req := http.NewRequest("POST", "/api/products").
//	    WithName("POST /api/products").
//	    WithHeader("X-Request-ID", uuid.NewString()).
//	    WithBody(product)
//
//	resp := it.HTTP().Do(ctx, req)
//	it.Check("created", resp.StatusCode == 201)
//
//	id, err := resp.JSON("id")
//	if err == nil && id.Exists && !id.Null {
//	    // follow up on id.Int()
//	}
//
// Request Names:
//
// Per-request statistics are grouped by Request.Name, which defaults to
// "METHOD path". Set a template name for paths that embed ids so they
// aggregate into one row.
//
// Standalone Usage:
//
//	client := http.NewClient(
//	    http.WithBaseURL("https://api.example.com"),
//	    http.WithTimeout(10*time.Second),
//	    http.WithRateLimit(50),
//	)
//	resp := client.Get(ctx, "/health")
//	fmt.Printf("Status: %d TTFB: %v\n", resp.StatusCode, resp.Timing.TimeToFirstByte)
//
// Thread Safety:
//
// Client is safe for concurrent use. Multiple goroutines may invoke methods
// on a Client simultaneously.
package http
