package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Totals are the cumulative values copied into a bucket when it closes.
type Totals struct {
	Requests  int64
	Successes int64
	Failures  int64
	Bytes     int64
	Latency   LatencyPercentiles
	ActiveVUs int
	Phase     Phase
}

// Series keeps the most recent TimeBuckets of a run in a fixed-size ring.
//
// Deltas for the open interval are accumulated with atomics; closing an
// interval and reading the ring take the mutex.
type Series struct {
	mu     sync.RWMutex
	ring   []*TimeBucket
	next   int
	filled int
	opened time.Time

	requests     atomic.Int64
	failures     atomic.Int64
	iterations   atomic.Int64
	checksFailed atomic.Int64
}

// NewSeries returns a series retaining at most capacity buckets
// (3600 when capacity is not positive).
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 3600
	}
	return &Series{
		ring:   make([]*TimeBucket, capacity),
		opened: time.Now(),
	}
}

// AddRequest counts a request in the open interval.
func (s *Series) AddRequest(failed bool) {
	s.requests.Add(1)
	if failed {
		s.failures.Add(1)
	}
}

// AddIteration counts a finished iteration in the open interval.
func (s *Series) AddIteration() {
	s.iterations.Add(1)
}

// AddCheck counts a check verdict in the open interval. Only failures are
// kept per interval.
func (s *Series) AddCheck(passed bool) {
	if !passed {
		s.checksFailed.Add(1)
	}
}

// Close ends the open interval, stores its bucket and starts a new one.
func (s *Series) Close(t Totals) *TimeBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	span := now.Sub(s.opened)
	s.opened = now

	b := &TimeBucket{
		Timestamp:            now,
		Interval:             span,
		TotalRequests:        t.Requests,
		TotalSuccesses:       t.Successes,
		TotalFailures:        t.Failures,
		TotalBytes:           t.Bytes,
		IntervalRequests:     s.requests.Swap(0),
		IntervalIterations:   s.iterations.Swap(0),
		IntervalChecksFailed: s.checksFailed.Swap(0),
		LatencyP50:           t.Latency.P50,
		LatencyP95:           t.Latency.P95,
		LatencyP99:           t.Latency.P99,
		ActiveVUs:            t.ActiveVUs,
		Phase:                t.Phase,
	}
	failures := s.failures.Swap(0)

	secs := span.Seconds()
	if secs <= 0 {
		secs = 1
	}
	b.IntervalRPS = float64(b.IntervalRequests) / secs
	if b.IntervalRequests > 0 {
		b.IntervalErrorRate = float64(failures) / float64(b.IntervalRequests)
	}

	s.ring[s.next] = b
	s.next = (s.next + 1) % len(s.ring)
	if s.filled < len(s.ring) {
		s.filled++
	}
	return b
}

// Buckets returns the retained buckets, oldest first.
func (s *Series) Buckets() []*TimeBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.filled == 0 {
		return nil
	}

	out := make([]*TimeBucket, 0, s.filled)
	start := (s.next - s.filled + len(s.ring)) % len(s.ring)
	for i := 0; i < s.filled; i++ {
		out = append(out, s.ring[(start+i)%len(s.ring)])
	}
	return out
}

// Last returns the newest bucket, or nil before the first Close.
func (s *Series) Last() *TimeBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.filled == 0 {
		return nil
	}
	return s.ring[(s.next-1+len(s.ring))%len(s.ring)]
}

// Len returns the number of retained buckets.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filled
}

// SteadyRPS returns the request rate across steady-phase buckets and the
// number of buckets it is based on.
func (s *Series) SteadyRPS() (float64, int) {
	var requests int64
	var span time.Duration
	n := 0

	for _, b := range s.Buckets() {
		if b.Phase != PhaseSteady {
			continue
		}
		requests += b.IntervalRequests
		span += b.Interval
		n++
	}

	if n == 0 || span <= 0 {
		return 0, 0
	}
	return float64(requests) / span.Seconds(), n
}
