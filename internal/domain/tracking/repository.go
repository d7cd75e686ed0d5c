package tracking

import (
	"context"
	"time"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	// Marketplace filters by source platform (optional)
	Marketplace *Marketplace
	// Status filters by current canonical status (optional)
	Status *Status
	// ActiveOnly keeps orders whose current status is non-terminal
	ActiveOnly bool
	// Search matches external id, product name or SKU, case-insensitive
	Search string
	// Limit caps the page size; zero means the repository default
	Limit int
	// Offset skips that many rows for pagination
	Offset int
}

// StatusCount is one slice of the per-status breakdown.
type StatusCount struct {
	Status Status
	Count  int64
}

// Summary aggregates an order book for the dashboard.
type Summary struct {
	// Marketplace the summary was computed for; nil means all
	Marketplace *Marketplace
	// Total is the number of tracked orders
	Total int64
	// Active is the number of non-terminal orders
	Active int64
	// OverdueToShip counts orders past DueShipAt still in new/assembly
	OverdueToShip int64
	// Buyouts counts orders in buyout
	Buyouts int64
	// Rejections counts orders in rejection
	Rejections int64
	// Returns counts orders anywhere in the return flow
	Returns int64
	// Defects counts orders written off as defective
	Defects int64
	// ByStatus is the full per-status breakdown
	ByStatus []StatusCount
}

// BuyoutRate returns buyouts over closed outcomes (buyouts + rejections),
// zero when nothing closed yet.
func (s Summary) BuyoutRate() float64 {
	closed := s.Buyouts + s.Rejections
	if closed == 0 {
		return 0
	}
	return float64(s.Buyouts) / float64(closed)
}

// OrderRepository is the persistence port for tracked orders and their
// status history.
type OrderRepository interface {
	// FindByExternalID returns the order identified by (marketplace, external id)
	FindByExternalID(ctx context.Context, marketplace Marketplace, externalID string) (*Order, error)

	// FindByCorrelationToken returns the order carrying the given cross-feed token
	FindByCorrelationToken(ctx context.Context, marketplace Marketplace, token string) (*Order, error)

	// FindByID returns the order with its events loaded
	FindByID(ctx context.Context, id int64) (*Order, error)

	// Create persists a new order and assigns its ID
	Create(ctx context.Context, order *Order) error

	// Update persists changes to an existing order
	Update(ctx context.Context, order *Order) error

	// AppendEvent persists a new status history entry
	AppendEvent(ctx context.Context, event *OrderEvent) error

	// HasEventNear reports whether the order already has an event with the
	// given status within tolerance of at
	HasEventNear(ctx context.Context, orderID int64, status Status, at time.Time, tolerance time.Duration) (bool, error)

	// List returns orders matching the filter, most recently updated first,
	// along with the total match count
	List(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// Summarize computes the dashboard aggregate, optionally per marketplace
	Summarize(ctx context.Context, marketplace *Marketplace, now time.Time) (*Summary, error)

	// Transaction runs fn against a repository bound to one transaction
	Transaction(ctx context.Context, fn func(repo OrderRepository) error) error
}
