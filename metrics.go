package meshgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    buildHistogram prometheus.Histogram
//	    queryCounter   prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordBuild(duration time.Duration, err error) {
//	    p.buildHistogram.Observe(duration.Seconds())
//	    // ... record error state, etc.
//	}
type MetricsCollector interface {
	// RecordBuild is called after each mesh construction.
	// duration is the total time taken, err is nil if successful.
	RecordBuild(duration time.Duration, err error)

	// RecordQueryBox is called after each box query.
	// found is the number of candidate indexes returned.
	RecordQueryBox(found int, duration time.Duration)

	// RecordQueryRadius is called after each radius query.
	// found is the number of indexes returned.
	RecordQueryRadius(found int, duration time.Duration)

	// RecordFree is called after the mesh storage is released.
	RecordFree(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(time.Duration, error)     {}
func (NoopMetricsCollector) RecordQueryBox(int, time.Duration)    {}
func (NoopMetricsCollector) RecordQueryRadius(int, time.Duration) {}
func (NoopMetricsCollector) RecordFree(time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount            atomic.Int64
	BuildErrors           atomic.Int64
	BuildTotalNanos       atomic.Int64
	QueryBoxCount         atomic.Int64
	QueryBoxFound         atomic.Int64
	QueryBoxTotalNanos    atomic.Int64
	QueryRadiusCount      atomic.Int64
	QueryRadiusFound      atomic.Int64
	QueryRadiusTotalNanos atomic.Int64
	FreeCount             atomic.Int64
	FreeErrors            atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordQueryBox implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQueryBox(found int, duration time.Duration) {
	b.QueryBoxCount.Add(1)
	b.QueryBoxFound.Add(int64(found))
	b.QueryBoxTotalNanos.Add(duration.Nanoseconds())
}

// RecordQueryRadius implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQueryRadius(found int, duration time.Duration) {
	b.QueryRadiusCount.Add(1)
	b.QueryRadiusFound.Add(int64(found))
	b.QueryRadiusTotalNanos.Add(duration.Nanoseconds())
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(duration time.Duration, err error) {
	b.FreeCount.Add(1)
	if err != nil {
		b.FreeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:          b.BuildCount.Load(),
		BuildErrors:         b.BuildErrors.Load(),
		BuildAvgNanos:       b.getAvgBuildNanos(),
		QueryBoxCount:       b.QueryBoxCount.Load(),
		QueryBoxFound:       b.QueryBoxFound.Load(),
		QueryBoxAvgNanos:    b.getAvgNanos(&b.QueryBoxTotalNanos, &b.QueryBoxCount),
		QueryRadiusCount:    b.QueryRadiusCount.Load(),
		QueryRadiusFound:    b.QueryRadiusFound.Load(),
		QueryRadiusAvgNanos: b.getAvgNanos(&b.QueryRadiusTotalNanos, &b.QueryRadiusCount),
		FreeCount:           b.FreeCount.Load(),
		FreeErrors:          b.FreeErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgBuildNanos() int64 {
	return b.getAvgNanos(&b.BuildTotalNanos, &b.BuildCount)
}

func (b *BasicMetricsCollector) getAvgNanos(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount          int64
	BuildErrors         int64
	BuildAvgNanos       int64
	QueryBoxCount       int64
	QueryBoxFound       int64
	QueryBoxAvgNanos    int64
	QueryRadiusCount    int64
	QueryRadiusFound    int64
	QueryRadiusAvgNanos int64
	FreeCount           int64
	FreeErrors          int64
}
