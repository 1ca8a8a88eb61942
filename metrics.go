package anytable

import (
	"sync/atomic"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordFetch is called whenever the scheduler moves the fetch window.
	RecordFetch(offset, limit int)

	// RecordTick is called once per scheduler frame that published a
	// changed visible range or scroll top.
	RecordTick(visibleStart, visibleEnd int)

	// RecordQueryError is called for each failed query execution.
	RecordQueryError(err error)

	// RecordSortChange is called for each sort rewrite.
	RecordSortChange()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFetch(int, int)   {}
func (NoopMetricsCollector) RecordTick(int, int)    {}
func (NoopMetricsCollector) RecordQueryError(error) {}
func (NoopMetricsCollector) RecordSortChange()      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FetchCount      atomic.Int64
	FetchRows       atomic.Int64
	TickCount       atomic.Int64
	QueryErrorCount atomic.Int64
	SortChangeCount atomic.Int64
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(offset, limit int) {
	b.FetchCount.Add(1)
	b.FetchRows.Add(int64(limit))
}

// RecordTick implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTick(visibleStart, visibleEnd int) {
	b.TickCount.Add(1)
}

// RecordQueryError implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQueryError(err error) {
	b.QueryErrorCount.Add(1)
}

// RecordSortChange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSortChange() {
	b.SortChangeCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FetchCount:      b.FetchCount.Load(),
		FetchRows:       b.FetchRows.Load(),
		TickCount:       b.TickCount.Load(),
		QueryErrorCount: b.QueryErrorCount.Load(),
		SortChangeCount: b.SortChangeCount.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FetchCount      int64
	FetchRows       int64
	TickCount       int64
	QueryErrorCount int64
	SortChangeCount int64
}
