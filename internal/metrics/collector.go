// Package metrics aggregates execute latencies and status codes for the
// CLI repeat mode.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-execute results. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
	byStatus   map[int]int64
}

// Stats is an aggregated snapshot.
type Stats struct {
	Total       int64
	Successes   int64
	Failures    int64
	MinLatency  time.Duration
	MaxLatency  time.Duration
	MeanLatency time.Duration
	P50Latency  time.Duration
	P90Latency  time.Duration
	P99Latency  time.Duration
	Statuses    []StatusCount
}

// StatusCount is the observed count for one HTTP status code. Non-2xx
// codes are ordinary results at the transport layer, so they are tallied
// here rather than treated as failures.
type StatusCount struct {
	Code  int
	Count int64
}

func NewCollector() *Collector {
	// Latencies from 1µs to 60s at 3 significant figures.
	return &Collector{
		hist:     hdrhistogram.New(1, 60_000_000, 3),
		byStatus: make(map[int]int64),
	}
}

// Record tallies one execute. status is ignored when err is non-nil.
func (c *Collector) Record(latency time.Duration, status int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if err != nil {
		c.failures++
		return
	}
	c.successes++
	c.byStatus[status]++
}

// Stats computes the current aggregate.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
	}
	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.Statuses = make([]StatusCount, 0, len(c.byStatus))
	for code, count := range c.byStatus {
		stats.Statuses = append(stats.Statuses, StatusCount{Code: code, Count: count})
	}
	sort.Slice(stats.Statuses, func(i, j int) bool {
		return stats.Statuses[i].Code < stats.Statuses[j].Code
	})
	return stats
}
