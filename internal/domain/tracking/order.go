package tracking

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrOrderNotFound      = errors.New("tracking: order not found")
	ErrOrderAlreadyExists = errors.New("tracking: order already exists")
	ErrInvalidMarketplace = errors.New("tracking: invalid marketplace")
	ErrInvalidStatus      = errors.New("tracking: invalid status")
	ErrEmptyExternalID    = errors.New("tracking: external order id is required")
)

// DuplicateEventTolerance is the window within which a repeated status
// observation produces no new event.
const DuplicateEventTolerance = time.Second

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Order is the tracked FBS order. One row per (marketplace, external id).
type Order struct {
	// ID is the surrogate identifier assigned by storage
	ID int64
	// Marketplace is the source platform
	Marketplace Marketplace
	// ExternalID is the order number on the marketplace
	ExternalID string
	// ProductName is the item title
	ProductName string
	// SKU is the seller's article / offer code
	SKU string
	// Quantity is the ordered quantity
	Quantity int
	// DueShipAt is the deadline to hand the shipment over
	DueShipAt *time.Time
	// CurrentStatus is the latest accepted canonical status
	CurrentStatus Status
	// CurrentStatusAt is when CurrentStatus became effective
	CurrentStatusAt time.Time
	// Comment is a free-form operator note
	Comment string
	// CorrelationToken links the order across marketplace feeds
	CorrelationToken string
	// SalePrice is the last reported sale amount
	SalePrice decimal.Decimal
	// CreatedAt is when the order was first observed
	CreatedAt time.Time
	// UpdatedAt is when the order was last modified
	UpdatedAt time.Time
	// Events holds loaded status history, newest last (optional)
	Events []OrderEvent
}

// OrderEvent is one entry of an order's append-only status history.
type OrderEvent struct {
	// ID is the surrogate identifier assigned by storage
	ID int64
	// OrderID references the owning order
	OrderID int64
	// Status is the canonical status recorded
	Status Status
	// EventAt is when the status became effective
	EventAt time.Time
	// Note is an optional annotation, e.g. the raw source status
	Note string
	// CreatedAt is when the event row was written
	CreatedAt time.Time
}

// NewOrderFromSnapshot builds a fresh order from its first observation.
func NewOrderFromSnapshot(snap Snapshot) (*Order, error) {
	if !snap.Marketplace.IsValid() {
		return nil, ErrInvalidMarketplace
	}
	if strings.TrimSpace(snap.ExternalID) == "" {
		return nil, ErrEmptyExternalID
	}
	if !snap.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	quantity := snap.Quantity
	if quantity < 1 {
		quantity = 1
	}
	statusAt := snap.StatusAt
	if statusAt.IsZero() {
		statusAt = time.Now().UTC()
	}

	return &Order{
		Marketplace:      snap.Marketplace,
		ExternalID:       strings.TrimSpace(snap.ExternalID),
		ProductName:      snap.ProductName,
		SKU:              snap.SKU,
		Quantity:         quantity,
		DueShipAt:        snap.DueShipAt,
		CurrentStatus:    snap.Status,
		CurrentStatusAt:  statusAt,
		CorrelationToken: snap.CorrelationToken,
		SalePrice:        snap.SalePrice,
	}, nil
}

// RefreshAttributes overwrites descriptive fields from a newer observation.
// Empty incoming values never erase known ones.
func (o *Order) RefreshAttributes(snap Snapshot) {
	if snap.ProductName != "" {
		o.ProductName = snap.ProductName
	}
	if snap.SKU != "" {
		o.SKU = snap.SKU
	}
	if snap.Quantity >= 1 {
		o.Quantity = snap.Quantity
	}
	if snap.DueShipAt != nil {
		o.DueShipAt = snap.DueShipAt
	}
	if snap.CorrelationToken != "" {
		o.CorrelationToken = snap.CorrelationToken
	}
	if snap.SalePrice.IsPositive() {
		o.SalePrice = snap.SalePrice
	}
}

// AdvanceStatus moves the order to a new accepted status.
func (o *Order) AdvanceStatus(status Status, at time.Time) {
	o.CurrentStatus = status
	o.CurrentStatusAt = at
}

// IsOverdue reports whether the order missed its ship deadline while still
// waiting to be handed over.
func (o *Order) IsOverdue(now time.Time) bool {
	if o.DueShipAt == nil {
		return false
	}
	switch o.CurrentStatus {
	case StatusNew, StatusAssembly:
		return now.After(*o.DueShipAt)
	default:
		return false
	}
}

// IsActive reports whether the order is still in flight.
func (o *Order) IsActive() bool {
	return !o.CurrentStatus.IsTerminal()
}
