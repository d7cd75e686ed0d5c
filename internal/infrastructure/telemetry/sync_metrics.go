// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics provides metrics for the marketplace synchronization engine.
// It tracks sync run outcomes, marketplace fetch activity, and the resulting
// order mutations, plus a periodically collected active-order gauge.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	runsTotal        *Counter
	snapshotsFetched *Counter
	fetchErrorsTotal *Counter
	ordersCreated    *Counter
	ordersUpdated    *Counter
	eventsRecorded   *Counter

	// Histogram metrics
	runDuration   *Histogram
	fetchDuration *Histogram

	// Gauge metrics (point-in-time values)
	ordersByStatus *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	statsProvider OrderStatsProvider
}

// OrderStatsProvider provides order counts for periodic metrics collection.
// This interface allows the telemetry layer to query order state without
// depending on the tracking domain directly.
type OrderStatsProvider interface {
	// CountOrdersByStatus returns the number of tracked orders per status.
	CountOrdersByStatus(ctx context.Context) (map[string]int64, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StatsProvider   OrderStatsProvider
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		statsProvider: cfg.StatsProvider,
	}

	var err error

	sm.runsTotal, err = NewCounter(
		cfg.Meter,
		"fbs_sync_runs_total",
		"Total number of sync runs by outcome",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	sm.snapshotsFetched, err = NewCounter(
		cfg.Meter,
		"fbs_sync_snapshots_fetched_total",
		"Total number of order snapshots fetched from marketplace APIs",
		"{snapshots}",
	)
	if err != nil {
		return nil, err
	}

	sm.fetchErrorsTotal, err = NewCounter(
		cfg.Meter,
		"fbs_sync_fetch_errors_total",
		"Total number of failed marketplace fetches",
		"{errors}",
	)
	if err != nil {
		return nil, err
	}

	sm.ordersCreated, err = NewCounter(
		cfg.Meter,
		"fbs_orders_created_total",
		"Total number of orders created by reconciliation",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	sm.ordersUpdated, err = NewCounter(
		cfg.Meter,
		"fbs_orders_updated_total",
		"Total number of orders updated by reconciliation",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	sm.eventsRecorded, err = NewCounter(
		cfg.Meter,
		"fbs_order_events_recorded_total",
		"Total number of status events appended to order histories",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	sm.runDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "fbs_sync_run_duration_seconds",
		Description: "End-to-end duration of a sync run",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.fetchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "fbs_marketplace_fetch_duration_seconds",
		Description: "Duration of a single marketplace fetch",
		Unit:        "s",
		Boundaries:  FetchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.ordersByStatus, err = NewGauge(
		cfg.Meter,
		"fbs_orders_by_status",
		"Current number of tracked orders per status",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Sync Run Metrics
// =============================================================================

// SyncOutcome represents the outcome of a sync run for metrics labeling.
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeFailed  SyncOutcome = "failed"
	SyncOutcomeSkipped SyncOutcome = "skipped"
)

// RecordRun records a completed sync run with its outcome and duration.
func (sm *SyncMetrics) RecordRun(ctx context.Context, outcome SyncOutcome, duration time.Duration) {
	sm.runsTotal.Inc(ctx, AttrSyncOutcome.String(string(outcome)))
	sm.runDuration.RecordDuration(ctx, duration, AttrSyncOutcome.String(string(outcome)))
}

// RecordFetch records a marketplace fetch with the number of snapshots returned.
func (sm *SyncMetrics) RecordFetch(ctx context.Context, marketplace string, snapshots int, duration time.Duration) {
	sm.snapshotsFetched.Add(ctx, int64(snapshots), AttrMarketplace.String(marketplace))
	sm.fetchDuration.RecordDuration(ctx, duration, AttrMarketplace.String(marketplace))
}

// RecordFetchError records a failed marketplace fetch.
func (sm *SyncMetrics) RecordFetchError(ctx context.Context, marketplace string) {
	sm.fetchErrorsTotal.Inc(ctx, AttrMarketplace.String(marketplace))
}

// =============================================================================
// Reconciliation Metrics
// =============================================================================

// RecordOrderCreated records an order created during reconciliation.
func (sm *SyncMetrics) RecordOrderCreated(ctx context.Context, marketplace string) {
	sm.ordersCreated.Inc(ctx, AttrMarketplace.String(marketplace))
}

// RecordOrderUpdated records an order updated during reconciliation.
func (sm *SyncMetrics) RecordOrderUpdated(ctx context.Context, marketplace string) {
	sm.ordersUpdated.Inc(ctx, AttrMarketplace.String(marketplace))
}

// RecordEvents records status events appended to order histories.
func (sm *SyncMetrics) RecordEvents(ctx context.Context, marketplace string, count int) {
	if count <= 0 {
		return
	}
	sm.eventsRecorded.Add(ctx, int64(count), AttrMarketplace.String(marketplace))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the order status gauge.
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go sm.runPeriodicCollection(ctx, interval)
	})
}

func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	sm.collectOrderStats(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectOrderStats(ctx)
		}
	}
}

func (sm *SyncMetrics) collectOrderStats(ctx context.Context) {
	if sm.statsProvider == nil {
		sm.logger.Debug("No stats provider configured, skipping order metrics collection")
		return
	}

	counts, err := sm.statsProvider.CountOrdersByStatus(ctx)
	if err != nil {
		sm.logger.Warn("Failed to count orders for metrics collection", zap.Error(err))
		return
	}

	for status, count := range counts {
		sm.ordersByStatus.Record(ctx, count, AttrOrderStatus.String(status))
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
