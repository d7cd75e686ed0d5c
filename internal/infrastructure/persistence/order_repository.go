package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fbstrack/backend/internal/domain/tracking"
	"github.com/fbstrack/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements tracking.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ tracking.OrderRepository = (*GormOrderRepository)(nil)

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// FindByExternalID finds the order identified by (marketplace, external id)
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, marketplace tracking.Marketplace, externalID string) (*tracking.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND external_order_id = ?", marketplace, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tracking.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCorrelationToken finds the order carrying the given cross-feed token
func (r *GormOrderRepository) FindByCorrelationToken(ctx context.Context, marketplace tracking.Marketplace, token string) (*tracking.Order, error) {
	if token == "" {
		return nil, tracking.ErrOrderNotFound
	}
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND correlation_token = ?", marketplace, token).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tracking.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an order by its surrogate id with the status history loaded
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*tracking.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tracking.ErrOrderNotFound
		}
		return nil, err
	}
	order := model.ToDomain()

	var eventModels []models.OrderEventModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("event_at ASC, id ASC").
		Find(&eventModels).Error; err != nil {
		return nil, err
	}
	order.Events = make([]tracking.OrderEvent, len(eventModels))
	for i, em := range eventModels {
		order.Events[i] = *em.ToDomain()
	}
	return order, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create persists a new order and assigns its ID
func (r *GormOrderRepository) Create(ctx context.Context, order *tracking.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return tracking.ErrOrderAlreadyExists
		}
		return err
	}
	order.ID = model.ID
	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// Update persists changes to an existing order
func (r *GormOrderRepository) Update(ctx context.Context, order *tracking.Order) error {
	model := models.OrderModelFromDomain(order)
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"product_name":      model.ProductName,
			"sku":               model.SKU,
			"quantity":          model.Quantity,
			"due_ship_at":       model.DueShipAt,
			"current_status":    model.CurrentStatus,
			"current_status_at": model.CurrentStatusAt,
			"comment":           model.Comment,
			"correlation_token": model.CorrelationToken,
			"sale_price":        model.SalePrice,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tracking.ErrOrderNotFound
	}
	return nil
}

// AppendEvent persists a new status history entry
func (r *GormOrderRepository) AppendEvent(ctx context.Context, event *tracking.OrderEvent) error {
	model := models.OrderEventModelFromDomain(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	event.ID = model.ID
	event.CreatedAt = model.CreatedAt
	return nil
}

// HasEventNear reports whether the order already recorded the status within
// tolerance of the given moment
func (r *GormOrderRepository) HasEventNear(ctx context.Context, orderID int64, status tracking.Status, at time.Time, tolerance time.Duration) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderEventModel{}).
		Where("order_id = ? AND status = ? AND event_at BETWEEN ? AND ?",
			orderID, status, at.Add(-tolerance), at.Add(tolerance)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// Listing and aggregation
// ---------------------------------------------------------------------------

// List returns orders matching the filter, most recently updated first,
// along with the total match count
func (r *GormOrderRepository) List(ctx context.Context, filter tracking.OrderFilter) ([]tracking.Order, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("updated_at DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orderModels []models.OrderModel
	if err := query.Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]tracking.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, total, nil
}

// Summarize computes the dashboard aggregate, optionally per marketplace
func (r *GormOrderRepository) Summarize(ctx context.Context, marketplace *tracking.Marketplace, now time.Time) (*tracking.Summary, error) {
	base := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if marketplace != nil {
		base = base.Where("marketplace = ?", *marketplace)
	}

	type statusRow struct {
		Status tracking.Status
		Count  int64
	}
	var rows []statusRow
	if err := base.Session(&gorm.Session{}).
		Select("current_status AS status, COUNT(*) AS count").
		Group("current_status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[tracking.Status]int64, len(rows))
	summary := &tracking.Summary{Marketplace: marketplace}
	for _, row := range rows {
		counts[row.Status] = row.Count
		summary.Total += row.Count
		if !row.Status.IsTerminal() {
			summary.Active += row.Count
		}
	}

	summary.Buyouts = counts[tracking.StatusBuyout]
	summary.Rejections = counts[tracking.StatusRejection]
	summary.Defects = counts[tracking.StatusDefect]
	summary.Returns = counts[tracking.StatusReturnStarted] +
		counts[tracking.StatusReturnInTransitFromBuyer] +
		counts[tracking.StatusReturnArrivedToSellerPickup] +
		counts[tracking.StatusSellerPickedUp]

	if err := base.Session(&gorm.Session{}).
		Where("due_ship_at IS NOT NULL AND due_ship_at < ? AND current_status IN ?",
			now, []tracking.Status{tracking.StatusNew, tracking.StatusAssembly}).
		Count(&summary.OverdueToShip).Error; err != nil {
		return nil, err
	}

	// Stable breakdown order regardless of what the database returns.
	for _, status := range tracking.AllStatuses() {
		if count, ok := counts[status]; ok {
			summary.ByStatus = append(summary.ByStatus, tracking.StatusCount{Status: status, Count: count})
		}
	}
	return summary, nil
}

// Transaction runs fn against a repository bound to one database transaction
func (r *GormOrderRepository) Transaction(ctx context.Context, fn func(repo tracking.OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormOrderRepository(tx))
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter tracking.OrderFilter) *gorm.DB {
	if filter.Marketplace != nil {
		query = query.Where("marketplace = ?", *filter.Marketplace)
	}
	if filter.Status != nil {
		query = query.Where("current_status = ?", *filter.Status)
	}
	if filter.ActiveOnly {
		query = query.Where("current_status NOT IN ?", terminalStatuses())
	}
	if filter.Search != "" {
		pattern := "%" + escapeLikePattern(filter.Search) + "%"
		query = query.Where(
			`(LOWER(external_order_id) LIKE LOWER(?) ESCAPE '\' OR LOWER(product_name) LIKE LOWER(?) ESCAPE '\' OR LOWER(sku) LIKE LOWER(?) ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	return query
}

func terminalStatuses() []tracking.Status {
	var terminal []tracking.Status
	for _, status := range tracking.AllStatuses() {
		if status.IsTerminal() {
			terminal = append(terminal, status)
		}
	}
	return terminal
}

// escapeLikePattern escapes LIKE wildcards in user-supplied search text.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
