package tracking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a normalized point-in-time observation of one order on one
// marketplace. Adapters emit snapshots; the reconciler consumes them.
type Snapshot struct {
	// Marketplace identifies the source platform
	Marketplace Marketplace
	// ExternalID is the order number on the marketplace
	ExternalID string
	// Status is the canonical status observed
	Status Status
	// StatusAt is when the status became effective (UTC)
	StatusAt time.Time
	// ProductName is the item title, best effort
	ProductName string
	// SKU is the seller's article / offer code, best effort
	SKU string
	// Quantity is the ordered quantity, at least 1
	Quantity int
	// DueShipAt is the deadline to hand the shipment over (optional)
	DueShipAt *time.Time
	// SourceStatus is the raw marketplace status kept for audit
	SourceStatus string
	// CorrelationToken links records of the same order across feeds (optional)
	CorrelationToken string
	// SalePrice is the sale amount reported by the marketplace (optional)
	SalePrice decimal.Decimal
}

// Key identifies the order a snapshot belongs to.
func (s Snapshot) Key() SnapshotKey {
	return SnapshotKey{Marketplace: s.Marketplace, ExternalID: s.ExternalID}
}

// SnapshotKey is the (marketplace, external order id) identity of a snapshot.
type SnapshotKey struct {
	Marketplace Marketplace
	ExternalID  string
}

// Collapse reduces a batch of snapshots to at most one per order: the one
// with the latest StatusAt. On equal timestamps the earlier element of the
// input wins, so the result is deterministic for a fixed input order. Output
// preserves first-seen key order.
func Collapse(snapshots []Snapshot) []Snapshot {
	if len(snapshots) == 0 {
		return nil
	}

	order := make([]SnapshotKey, 0, len(snapshots))
	latest := make(map[SnapshotKey]Snapshot, len(snapshots))

	for _, snap := range snapshots {
		key := snap.Key()
		current, seen := latest[key]
		if !seen {
			order = append(order, key)
			latest[key] = snap
			continue
		}
		if snap.StatusAt.After(current.StatusAt) {
			latest[key] = snap
		}
	}

	collapsed := make([]Snapshot, 0, len(order))
	for _, key := range order {
		collapsed = append(collapsed, latest[key])
	}
	return collapsed
}
