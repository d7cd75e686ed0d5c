package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/domain/tracking"
	"github.com/fbstrack/backend/internal/infrastructure/logger"
	"github.com/fbstrack/backend/internal/infrastructure/telemetry"
)

// MessageSyncCompleted is the report message of a run that went through.
const MessageSyncCompleted = "sync completed"

// MessageSyncAlreadyRunning is the report message of a run refused because
// another one holds the lock.
const MessageSyncAlreadyRunning = "sync already running"

// Locker guards sync runs against overlap. TryLock never blocks: a held lock
// means the caller must refuse the run.
type Locker interface {
	// TryLock attempts to acquire the lock and reports whether it succeeded
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock
	Unlock(ctx context.Context) error
}

// connectorResult is the outcome of one marketplace fetch.
type connectorResult struct {
	marketplace tracking.Marketplace
	snapshots   []tracking.Snapshot
	err         error
}

// SyncService is the synchronization orchestrator: it fetches both
// marketplaces, collapses the combined snapshot batch and reconciles it
// against storage in one transaction.
type SyncService struct {
	repo        tracking.OrderRepository
	credsRepo   integration.CredentialsRepository
	connectors  []integration.Connector
	reconciler  *Reconciler
	locker      Locker
	logger      *zap.Logger
	syncMetrics *telemetry.SyncMetrics
}

// NewSyncService creates a new SyncService
func NewSyncService(
	repo tracking.OrderRepository,
	credsRepo integration.CredentialsRepository,
	connectors []integration.Connector,
	reconciler *Reconciler,
	locker Locker,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		repo:       repo,
		credsRepo:  credsRepo,
		connectors: connectors,
		reconciler: reconciler,
		locker:     locker,
		logger:     logger,
	}
}

// SetSyncMetrics sets the sync metrics collector
func (s *SyncService) SetSyncMetrics(sm *telemetry.SyncMetrics) {
	s.syncMetrics = sm
}

// Run executes one synchronization pass. A concurrent call while another run
// holds the lock returns a zero-count report without touching storage.
func (s *SyncService) Run(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "run",
		telemetry.WithAttribute(telemetry.SpanAttrRunID, report.RunID.String()))
	defer span.End()

	ctx, log := logger.WithRunID(ctx, s.logger, report.RunID.String())
	log = logger.WithTraceContext(ctx, log)

	acquired, err := s.locker.TryLock(ctx)
	if err != nil {
		err = fmt.Errorf("sync: failed to acquire lock: %w", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !acquired {
		report.Message = MessageSyncAlreadyRunning
		report.FinishedAt = time.Now().UTC()
		telemetry.AddEvent(span, "sync_skipped")
		log.Info("sync refused, already running")
		return report, nil
	}
	defer func() {
		if unlockErr := s.locker.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			log.Warn("failed to release sync lock", zap.Error(unlockErr))
		}
	}()

	creds, err := s.credsRepo.Get(ctx)
	if err != nil {
		if !errors.Is(err, integration.ErrCredentialsNotFound) {
			err = fmt.Errorf("sync: failed to load credentials: %w", err)
			telemetry.RecordError(span, err)
			return nil, err
		}
		log.Warn("no marketplace credentials configured")
		creds = &integration.Credentials{}
	}

	snapshots := s.fetchAll(ctx, *creds, report)
	collapsed := tracking.Collapse(snapshots)

	err = s.repo.Transaction(ctx, func(repo tracking.OrderRepository) error {
		for _, snap := range collapsed {
			result, upsertErr := s.reconciler.Upsert(ctx, repo, snap)
			if upsertErr != nil {
				return fmt.Errorf("sync: failed to reconcile order %s/%s: %w",
					snap.Marketplace, snap.ExternalID, upsertErr)
			}
			report.Processed++
			if result.Created {
				report.CreatedOrders++
			}
			if result.Updated {
				report.UpdatedOrders++
			}
			if result.EventCreated {
				report.CreatedEvents++
			}
			if s.syncMetrics != nil {
				marketplace := snap.Marketplace.String()
				if result.Created {
					s.syncMetrics.RecordOrderCreated(ctx, marketplace)
				}
				if result.Updated {
					s.syncMetrics.RecordOrderUpdated(ctx, marketplace)
				}
				if result.EventCreated {
					s.syncMetrics.RecordEvents(ctx, marketplace, 1)
				}
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report.Message = MessageSyncCompleted
	report.FinishedAt = time.Now().UTC()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSnapshots, report.Processed,
		"orders_created", report.CreatedOrders,
		"orders_updated", report.UpdatedOrders,
		"events_created", report.CreatedEvents)

	log.Info("sync completed",
		zap.Int("wb_received", report.WBReceived),
		zap.Int("ozon_received", report.OzonReceived),
		zap.Int("processed", report.Processed),
		zap.Int("created", report.CreatedOrders),
		zap.Int("updated", report.UpdatedOrders),
		zap.Int("events", report.CreatedEvents),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

// fetchAll polls every connector concurrently. A failing or panicking
// connector contributes zero snapshots and does not stop the others.
func (s *SyncService) fetchAll(ctx context.Context, creds integration.Credentials, report *SyncReport) []tracking.Snapshot {
	results := make(chan connectorResult, len(s.connectors))

	for _, connector := range s.connectors {
		go func(connector integration.Connector) {
			result := connectorResult{marketplace: connector.Marketplace()}
			fetchCtx, span := telemetry.StartServiceSpan(ctx, "sync", "fetch",
				telemetry.WithAttribute(telemetry.SpanAttrMarketplace, result.marketplace.String()))
			started := time.Now()
			defer func() {
				if recovered := recover(); recovered != nil {
					result.snapshots = nil
					result.err = fmt.Errorf("sync: connector %s panicked: %v", result.marketplace, recovered)
				}
				if result.err != nil {
					telemetry.RecordError(span, result.err)
				} else {
					telemetry.SetAttribute(span, telemetry.SpanAttrSnapshots, len(result.snapshots))
				}
				span.End()
				if s.syncMetrics != nil {
					if result.err != nil {
						s.syncMetrics.RecordFetchError(ctx, result.marketplace.String())
					} else {
						s.syncMetrics.RecordFetch(ctx, result.marketplace.String(), len(result.snapshots), time.Since(started))
					}
				}
				results <- result
			}()

			if !creds.ForMarketplace(connector.Marketplace()) {
				result.err = integration.ErrPlatformNotConfigured
				return
			}
			result.snapshots, result.err = connector.FetchSnapshots(fetchCtx, creds)
		}(connector)
	}

	log := logger.FromContext(ctx)
	var snapshots []tracking.Snapshot
	for range s.connectors {
		result := <-results
		if result.err != nil {
			log.Error("marketplace fetch failed",
				zap.String("marketplace", result.marketplace.String()),
				zap.Error(result.err))
			continue
		}
		switch result.marketplace {
		case tracking.MarketplaceWB:
			report.WBReceived = len(result.snapshots)
		case tracking.MarketplaceOzon:
			report.OzonReceived = len(result.snapshots)
		}
		snapshots = append(snapshots, result.snapshots...)
	}
	return snapshots
}
