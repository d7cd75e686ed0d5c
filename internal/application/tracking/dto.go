package tracking

import (
	"time"

	"github.com/google/uuid"

	"github.com/fbstrack/backend/internal/domain/tracking"
)

// SyncReport summarizes one synchronization run.
type SyncReport struct {
	// RunID identifies the run in logs
	RunID uuid.UUID `json:"run_id"`
	// WBReceived is how many snapshots the Wildberries connector produced
	WBReceived int `json:"wb_received"`
	// OzonReceived is how many snapshots the Ozon connector produced
	OzonReceived int `json:"ozon_received"`
	// Processed is how many collapsed snapshots were reconciled
	Processed int `json:"processed_orders"`
	// CreatedOrders is how many orders were created
	CreatedOrders int `json:"created_orders"`
	// UpdatedOrders is how many existing orders changed status
	UpdatedOrders int `json:"updated_orders"`
	// CreatedEvents is how many history events were written
	CreatedEvents int `json:"created_events"`
	// Message describes the run outcome
	Message string `json:"message"`
	// StartedAt is when the run began
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended
	FinishedAt time.Time `json:"finished_at"`
}

// UpsertResult describes what one snapshot did to storage.
type UpsertResult struct {
	// Created is true when a new order was inserted
	Created bool
	// Updated is true when an existing order changed status
	Updated bool
	// EventCreated is true when a history event was written
	EventCreated bool
}

// CatalogEntry is one value/label pair for UI dropdowns.
type CatalogEntry struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StatusCatalog lists every canonical status with its display label.
func StatusCatalog() []CatalogEntry {
	statuses := tracking.AllStatuses()
	entries := make([]CatalogEntry, 0, len(statuses))
	for _, status := range statuses {
		entries = append(entries, CatalogEntry{Value: status.String(), Label: status.DisplayName()})
	}
	return entries
}

// MarketplaceCatalog lists every supported marketplace with its display name.
func MarketplaceCatalog() []CatalogEntry {
	marketplaces := tracking.AllMarketplaces()
	entries := make([]CatalogEntry, 0, len(marketplaces))
	for _, marketplace := range marketplaces {
		entries = append(entries, CatalogEntry{Value: marketplace.String(), Label: marketplace.DisplayName()})
	}
	return entries
}
