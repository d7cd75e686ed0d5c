package models

import (
	"time"

	"github.com/fbstrack/backend/internal/domain/tracking"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the tracked Order entity.
type OrderModel struct {
	ID               int64                `gorm:"primaryKey;autoIncrement"`
	Marketplace      tracking.Marketplace `gorm:"type:varchar(20);not null;uniqueIndex:idx_orders_marketplace_external,priority:1"`
	ExternalID       string               `gorm:"type:varchar(100);not null;column:external_order_id;uniqueIndex:idx_orders_marketplace_external,priority:2"`
	ProductName      string               `gorm:"type:varchar(500)"`
	SKU              string               `gorm:"type:varchar(100);column:sku"`
	Quantity         int                  `gorm:"not null;default:1"`
	DueShipAt        *time.Time           `gorm:"index"`
	CurrentStatus    tracking.Status      `gorm:"type:varchar(50);not null;index"`
	CurrentStatusAt  time.Time            `gorm:"not null"`
	Comment          string               `gorm:"type:text"`
	CorrelationToken string               `gorm:"type:varchar(100);index:idx_orders_correlation_token"`
	SalePrice        decimal.Decimal      `gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt        time.Time            `gorm:"not null"`
	UpdatedAt        time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *tracking.Order {
	return &tracking.Order{
		ID:               m.ID,
		Marketplace:      m.Marketplace,
		ExternalID:       m.ExternalID,
		ProductName:      m.ProductName,
		SKU:              m.SKU,
		Quantity:         m.Quantity,
		DueShipAt:        m.DueShipAt,
		CurrentStatus:    m.CurrentStatus,
		CurrentStatusAt:  m.CurrentStatusAt,
		Comment:          m.Comment,
		CorrelationToken: m.CorrelationToken,
		SalePrice:        m.SalePrice,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *tracking.Order) {
	m.ID = o.ID
	m.Marketplace = o.Marketplace
	m.ExternalID = o.ExternalID
	m.ProductName = o.ProductName
	m.SKU = o.SKU
	m.Quantity = o.Quantity
	m.DueShipAt = o.DueShipAt
	m.CurrentStatus = o.CurrentStatus
	m.CurrentStatusAt = o.CurrentStatusAt
	m.Comment = o.Comment
	m.CorrelationToken = o.CorrelationToken
	m.SalePrice = o.SalePrice
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}

// OrderModelFromDomain creates a persistence model from a domain Order entity.
func OrderModelFromDomain(o *tracking.Order) *OrderModel {
	model := &OrderModel{}
	model.FromDomain(o)
	return model
}

// OrderEventModel is the persistence model for one status history entry.
type OrderEventModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"not null;index:idx_order_events_order,priority:1"`
	Status    tracking.Status `gorm:"type:varchar(50);not null"`
	EventAt   time.Time       `gorm:"not null;index:idx_order_events_order,priority:2"`
	Note      string          `gorm:"type:varchar(255)"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderEventModel) TableName() string {
	return "order_events"
}

// ToDomain converts the persistence model to a domain OrderEvent entity.
func (m *OrderEventModel) ToDomain() *tracking.OrderEvent {
	return &tracking.OrderEvent{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Status:    m.Status,
		EventAt:   m.EventAt,
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderEvent entity.
func (m *OrderEventModel) FromDomain(e *tracking.OrderEvent) {
	m.ID = e.ID
	m.OrderID = e.OrderID
	m.Status = e.Status
	m.EventAt = e.EventAt
	m.Note = e.Note
	m.CreatedAt = e.CreatedAt
}

// OrderEventModelFromDomain creates a persistence model from a domain OrderEvent entity.
func OrderEventModelFromDomain(e *tracking.OrderEvent) *OrderEventModel {
	model := &OrderEventModel{}
	model.FromDomain(e)
	return model
}
