package tracking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fbstrack/backend/internal/domain/tracking"
	"github.com/fbstrack/backend/internal/infrastructure/telemetry"
)

// Reconciler applies normalized snapshots to the order book. It owns the
// create-or-update decision, rollback protection and duplicate-event
// suppression; it never talks to marketplace APIs.
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Upsert applies one snapshot to the repository. The same snapshot applied
// twice is a no-op the second time.
func (r *Reconciler) Upsert(ctx context.Context, repo tracking.OrderRepository, snap tracking.Snapshot) (UpsertResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrMarketplace, snap.Marketplace.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOrderNumber, snap.ExternalID))
	defer span.End()

	result, err := r.upsert(ctx, repo, snap)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return result, err
}

func (r *Reconciler) upsert(ctx context.Context, repo tracking.OrderRepository, snap tracking.Snapshot) (UpsertResult, error) {
	externalID := strings.TrimSpace(snap.ExternalID)
	if externalID == "" {
		return UpsertResult{}, tracking.ErrEmptyExternalID
	}
	snap.ExternalID = externalID

	order, err := r.findOrder(ctx, repo, snap)
	if err != nil && !errors.Is(err, tracking.ErrOrderNotFound) {
		return UpsertResult{}, err
	}

	if order == nil {
		return r.createOrder(ctx, repo, snap)
	}
	return r.updateOrder(ctx, repo, order, snap)
}

// findOrder locates the order a snapshot belongs to. Snapshots keyed by a
// non-numeric identifier may describe an order created from another feed
// under its real number, so the correlation token is tried as well.
func (r *Reconciler) findOrder(ctx context.Context, repo tracking.OrderRepository, snap tracking.Snapshot) (*tracking.Order, error) {
	order, err := repo.FindByExternalID(ctx, snap.Marketplace, snap.ExternalID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, tracking.ErrOrderNotFound) {
		return nil, err
	}

	if isNumericID(snap.ExternalID) {
		return nil, err
	}
	token := snap.CorrelationToken
	if token == "" {
		token = snap.ExternalID
	}
	return repo.FindByCorrelationToken(ctx, snap.Marketplace, token)
}

// createOrder inserts a new order together with its seed history event.
func (r *Reconciler) createOrder(ctx context.Context, repo tracking.OrderRepository, snap tracking.Snapshot) (UpsertResult, error) {
	order, err := tracking.NewOrderFromSnapshot(snap)
	if err != nil {
		return UpsertResult{}, err
	}
	if err := repo.Create(ctx, order); err != nil {
		return UpsertResult{}, err
	}

	event := &tracking.OrderEvent{
		OrderID: order.ID,
		Status:  order.CurrentStatus,
		EventAt: order.CurrentStatusAt,
		Note:    snap.SourceStatus,
	}
	if err := repo.AppendEvent(ctx, event); err != nil {
		return UpsertResult{}, err
	}

	r.logger.Debug("order created",
		zap.String("marketplace", order.Marketplace.String()),
		zap.String("external_id", order.ExternalID),
		zap.String("status", order.CurrentStatus.String()))

	return UpsertResult{Created: true, EventCreated: true}, nil
}

// updateOrder applies a snapshot to an existing order.
func (r *Reconciler) updateOrder(ctx context.Context, repo tracking.OrderRepository, order *tracking.Order, snap tracking.Snapshot) (UpsertResult, error) {
	if !snap.Status.IsValid() {
		return UpsertResult{}, tracking.ErrInvalidStatus
	}

	statusAt := snap.StatusAt
	if statusAt.IsZero() {
		statusAt = time.Now().UTC()
	}

	if order.Marketplace.HasRollbackProtection() && tracking.IsRollback(order.CurrentStatus, snap.Status) {
		r.logger.Debug("rollback rejected",
			zap.String("marketplace", order.Marketplace.String()),
			zap.String("external_id", order.ExternalID),
			zap.String("current", order.CurrentStatus.String()),
			zap.String("incoming", snap.Status.String()))
		return UpsertResult{}, nil
	}

	statusDiffers := snap.Status != order.CurrentStatus
	advance := statusDiffers
	if !order.Marketplace.HasRollbackProtection() && !advance {
		// Without a funnel, a clearly newer observation of the same status
		// still refreshes the order's status timestamp.
		advance = statusAt.Sub(order.CurrentStatusAt) > tracking.DuplicateEventTolerance
	}
	if !advance {
		return UpsertResult{}, nil
	}

	order.RefreshAttributes(snap)
	order.AdvanceStatus(snap.Status, statusAt)
	if err := repo.Update(ctx, order); err != nil {
		return UpsertResult{}, err
	}

	result := UpsertResult{Updated: true}

	duplicate, err := repo.HasEventNear(ctx, order.ID, snap.Status, statusAt, tracking.DuplicateEventTolerance)
	if err != nil {
		return UpsertResult{}, err
	}
	if !duplicate {
		event := &tracking.OrderEvent{
			OrderID: order.ID,
			Status:  snap.Status,
			EventAt: statusAt,
			Note:    snap.SourceStatus,
		}
		if err := repo.AppendEvent(ctx, event); err != nil {
			return UpsertResult{}, err
		}
		result.EventCreated = true
	}

	return result, nil
}

// isNumericID reports whether the identifier is purely digits.
func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
