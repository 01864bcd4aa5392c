package stats

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is one completed (possibly retried) operation as reported by a
// simulated user. CountsRequest marks the leading GET of a scenario step
// so whole-test request and hit totals count steps, not wire calls.
type Result struct {
	Name          string
	RequestType   string // Redis or Valkey
	Failure       bool
	Hit           bool
	CountsRequest bool
	Latency       time.Duration
}

// Entry aggregates every result sharing a request name. Latencies are
// bucketed per millisecond for percentile math.
type Entry struct {
	Name         string          `json:"name"`
	RequestType  string          `json:"request_type"`
	Requests     int64           `json:"requests"`
	Failures     int64           `json:"failures"`
	TotalLatency time.Duration   `json:"total_latency_ns"`
	MinLatency   time.Duration   `json:"min_latency_ns"`
	MaxLatency   time.Duration   `json:"max_latency_ns"`
	Buckets      map[int64]int64 `json:"buckets"`
}

func newEntry(name, requestType string) *Entry {
	return &Entry{
		Name:        name,
		RequestType: requestType,
		Buckets:     make(map[int64]int64),
	}
}

func (e *Entry) record(r *Result) {
	e.Requests++
	if r.Failure {
		e.Failures++
	}
	e.TotalLatency += r.Latency
	if e.Requests == 1 || r.Latency < e.MinLatency {
		e.MinLatency = r.Latency
	}
	if r.Latency > e.MaxLatency {
		e.MaxLatency = r.Latency
	}
	e.Buckets[r.Latency.Milliseconds()+1]++
}

func (e *Entry) AverageLatency() time.Duration {
	if e.Requests == 0 {
		return 0
	}
	return e.TotalLatency / time.Duration(e.Requests)
}

// Collector drains the results channel on a single goroutine and logs
// current throughput once per second. Each user owns its Result until it
// lands on the channel, so no further synchronization is needed on the
// hot path; the mutex only serializes Snapshot against recording.
type Collector struct {
	Results chan *Result

	log *logrus.Entry

	mu            sync.Mutex
	entries       map[string]*Entry
	totalResults  int64
	totalRequests int64
	cacheHits     int64
	started       time.Time

	done chan struct{}
}

func NewCollector(log *logrus.Entry) *Collector {
	return &Collector{
		Results: make(chan *Result, 1024),
		log:     log,
		entries: make(map[string]*Entry),
		done:    make(chan struct{}),
	}
}

func (c *Collector) Record(r *Result) {
	c.Results <- r
}

// Run consumes results until the channel is closed.
func (c *Collector) Run() {
	defer close(c.done)

	c.mu.Lock()
	c.started = time.Now()
	c.mu.Unlock()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastCount int64
	for {
		select {
		case r, ok := <-c.Results:
			if !ok {
				return
			}
			c.record(r)
		case <-ticker.C:
			c.mu.Lock()
			count := c.totalResults
			c.mu.Unlock()
			c.log.Infof("-> %d ops/sec (queue: %d)", count-lastCount, len(c.Results))
			lastCount = count
		}
	}
}

// Close stops accepting results and waits for the drain to finish.
func (c *Collector) Close() {
	close(c.Results)
	<-c.done
}

func (c *Collector) record(r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[r.Name]
	if !ok {
		entry = newEntry(r.Name, r.RequestType)
		c.entries[r.Name] = entry
	}
	entry.record(r)

	c.totalResults++
	if r.CountsRequest {
		c.totalRequests++
		if r.Hit {
			c.cacheHits++
		}
	}
}

// Snapshot copies the current aggregate state. Safe to call while Run is
// still consuming; workers use this to stream interval reports.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Entries:       make(map[string]*Entry, len(c.entries)),
		TotalRequests: c.totalRequests,
		CacheHits:     c.cacheHits,
	}
	if !c.started.IsZero() {
		snap.Elapsed = time.Since(c.started)
	}
	for name, entry := range c.entries {
		clone := *entry
		clone.Buckets = make(map[int64]int64, len(entry.Buckets))
		for ms, n := range entry.Buckets {
			clone.Buckets[ms] = n
		}
		snap.Entries[name] = &clone
	}
	return snap
}
