package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apptracking "github.com/fbstrack/backend/internal/application/tracking"
	"github.com/fbstrack/backend/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// SyncRunner
// ---------------------------------------------------------------------------

// SyncRunner executes one synchronization pass.
type SyncRunner interface {
	Run(ctx context.Context) (*apptracking.SyncReport, error)
}

// ---------------------------------------------------------------------------
// SyncTriggerConfig
// ---------------------------------------------------------------------------

// SyncTriggerConfig holds configuration for the periodic sync trigger
type SyncTriggerConfig struct {
	// Interval is how often to start a sync run
	Interval time.Duration

	// RunTimeout bounds a single run; zero means no bound
	RunTimeout time.Duration
}

// DefaultSyncTriggerConfig returns default configuration
func DefaultSyncTriggerConfig() SyncTriggerConfig {
	return SyncTriggerConfig{
		Interval:   15 * time.Minute,
		RunTimeout: 15 * time.Minute,
	}
}

// ---------------------------------------------------------------------------
// SyncTrigger
// ---------------------------------------------------------------------------

// SyncTrigger runs the synchronization pass on a fixed ticker. Overlap
// protection lives in the runner's lock, not here; the trigger only paces
// the runs and records their outcomes.
type SyncTrigger struct {
	config  SyncTriggerConfig
	runner  SyncRunner
	metrics *telemetry.SyncMetrics
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncTrigger creates a new periodic sync trigger. Metrics may be nil.
func NewSyncTrigger(
	config SyncTriggerConfig,
	runner SyncRunner,
	metrics *telemetry.SyncMetrics,
	logger *zap.Logger,
) *SyncTrigger {
	if config.Interval <= 0 {
		config.Interval = DefaultSyncTriggerConfig().Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncTrigger{
		config:  config,
		runner:  runner,
		metrics: metrics,
		logger:  logger,
	}
}

// Start starts the trigger loop
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("run_timeout", t.config.RunTimeout),
	)

	return nil
}

// Stop stops the trigger and waits for an in-flight run to finish
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop runs a pass immediately, then on every tick
func (t *SyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	t.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runOnce(ctx)
		}
	}
}

// runOnce executes a single sync pass with the configured timeout
func (t *SyncTrigger) runOnce(ctx context.Context) {
	runCtx := ctx
	if t.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.config.RunTimeout)
		defer cancel()
	}

	started := time.Now()
	report, err := t.runner.Run(runCtx)
	took := time.Since(started)

	if err != nil {
		t.logger.Error("Scheduled sync run failed",
			zap.Duration("took", took),
			zap.Error(err),
		)
		t.recordRun(ctx, telemetry.SyncOutcomeFailed, took)
		return
	}

	if report.Message == apptracking.MessageSyncAlreadyRunning {
		t.logger.Info("Scheduled sync run skipped, another run in progress",
			zap.String("run_id", report.RunID.String()),
		)
		t.recordRun(ctx, telemetry.SyncOutcomeSkipped, took)
		return
	}

	t.logger.Info("Scheduled sync run completed",
		zap.String("run_id", report.RunID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("created", report.CreatedOrders),
		zap.Int("updated", report.UpdatedOrders),
		zap.Duration("took", took),
	)
	t.recordRun(ctx, telemetry.SyncOutcomeSuccess, took)
}

func (t *SyncTrigger) recordRun(ctx context.Context, outcome telemetry.SyncOutcome, took time.Duration) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordRun(ctx, outcome, took)
}

// TriggerManualRun executes one sync pass outside the schedule and returns
// its report. It shares the runner's lock with scheduled runs.
func (t *SyncTrigger) TriggerManualRun(ctx context.Context) (*apptracking.SyncReport, error) {
	runCtx := ctx
	if t.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.config.RunTimeout)
		defer cancel()
	}

	t.logger.Info("Manual sync run triggered")
	return t.runner.Run(runCtx)
}
