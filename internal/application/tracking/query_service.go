package tracking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fbstrack/backend/internal/domain/tracking"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// QueryService serves the read side: order listings, single-order lookups
// and the dashboard summary consumed by external UIs and bots.
type QueryService struct {
	repo   tracking.OrderRepository
	logger *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(repo tracking.OrderRepository, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{repo: repo, logger: logger}
}

// ListOrders returns orders matching the filter, most recently updated
// first, along with the total match count.
func (s *QueryService) ListOrders(ctx context.Context, filter tracking.OrderFilter) ([]tracking.Order, int64, error) {
	if filter.Marketplace != nil && !filter.Marketplace.IsValid() {
		return nil, 0, tracking.ErrInvalidMarketplace
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, tracking.ErrInvalidStatus
	}

	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.repo.List(ctx, filter)
}

// GetOrder returns one order with its status history loaded.
func (s *QueryService) GetOrder(ctx context.Context, id int64) (*tracking.Order, error) {
	return s.repo.FindByID(ctx, id)
}

// Summary computes the dashboard aggregate, optionally narrowed to one
// marketplace.
func (s *QueryService) Summary(ctx context.Context, marketplace *tracking.Marketplace) (*tracking.Summary, error) {
	if marketplace != nil && !marketplace.IsValid() {
		return nil, tracking.ErrInvalidMarketplace
	}
	return s.repo.Summarize(ctx, marketplace, time.Now().UTC())
}

// AppendManualStatus records an operator-entered status for an order. The
// same duplicate suppression as the sync path applies.
func (s *QueryService) AppendManualStatus(ctx context.Context, orderID int64, status tracking.Status, note string) error {
	if !status.IsValid() {
		return tracking.ErrInvalidStatus
	}

	return s.repo.Transaction(ctx, func(repo tracking.OrderRepository) error {
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		order.AdvanceStatus(status, now)
		if err := repo.Update(ctx, order); err != nil {
			return err
		}

		duplicate, err := repo.HasEventNear(ctx, order.ID, status, now, tracking.DuplicateEventTolerance)
		if err != nil {
			return err
		}
		if duplicate {
			return nil
		}

		s.logger.Info("manual status recorded",
			zap.Int64("order_id", order.ID),
			zap.String("status", status.String()))

		return repo.AppendEvent(ctx, &tracking.OrderEvent{
			OrderID: order.ID,
			Status:  status,
			EventAt: now,
			Note:    note,
		})
	})
}

// UpdateComment replaces the operator note on an order.
func (s *QueryService) UpdateComment(ctx context.Context, orderID int64, comment string) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	order.Comment = comment
	return s.repo.Update(ctx, order)
}
