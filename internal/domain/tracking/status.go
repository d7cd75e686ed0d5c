package tracking

// ---------------------------------------------------------------------------
// Marketplace
// ---------------------------------------------------------------------------

// Marketplace identifies the sales platform an order originates from.
type Marketplace string

const (
	// MarketplaceWB represents Wildberries FBS
	MarketplaceWB Marketplace = "wb"
	// MarketplaceOzon represents Ozon FBS
	MarketplaceOzon Marketplace = "ozon"
)

// IsValid returns true if the marketplace is valid
func (m Marketplace) IsValid() bool {
	switch m {
	case MarketplaceWB, MarketplaceOzon:
		return true
	default:
		return false
	}
}

// String returns the string representation of Marketplace
func (m Marketplace) String() string {
	return string(m)
}

// DisplayName returns a human-readable name for the marketplace
func (m Marketplace) DisplayName() string {
	switch m {
	case MarketplaceWB:
		return "Wildberries"
	case MarketplaceOzon:
		return "Ozon"
	default:
		return string(m)
	}
}

// AllMarketplaces returns every supported marketplace
func AllMarketplaces() []Marketplace {
	return []Marketplace{MarketplaceWB, MarketplaceOzon}
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is the canonical lifecycle state of an FBS order. Every
// marketplace-specific status is normalized into this closed set before it
// reaches storage or reconciliation.
type Status string

const (
	// StatusNew indicates the order was placed and awaits assembly
	StatusNew Status = "new"
	// StatusAssembly indicates the seller is assembling the shipment
	StatusAssembly Status = "assembly"
	// StatusTransferredToDelivery indicates the shipment was handed to delivery
	StatusTransferredToDelivery Status = "transferred_to_delivery"
	// StatusAcceptedAtWarehouse indicates the carrier warehouse accepted the shipment
	StatusAcceptedAtWarehouse Status = "accepted_at_warehouse"
	// StatusInTransitToBuyer indicates the shipment is on its way to the buyer
	StatusInTransitToBuyer Status = "in_transit_to_buyer"
	// StatusArrivedAtBuyerPickup indicates the shipment reached the buyer's pickup point
	StatusArrivedAtBuyerPickup Status = "arrived_at_buyer_pickup"
	// StatusBuyout indicates the buyer received and kept the order
	StatusBuyout Status = "buyout"
	// StatusReturnStarted indicates a return was initiated
	StatusReturnStarted Status = "return_started"
	// StatusRejection indicates the buyer refused the order
	StatusRejection Status = "rejection"
	// StatusReturnInTransitFromBuyer indicates the return is on its way back
	StatusReturnInTransitFromBuyer Status = "return_in_transit_from_buyer"
	// StatusReturnArrivedToSellerPickup indicates the return reached the seller's pickup point
	StatusReturnArrivedToSellerPickup Status = "return_arrived_to_seller_pickup"
	// StatusSellerPickedUp indicates the seller collected the returned shipment
	StatusSellerPickedUp Status = "seller_picked_up"
	// StatusDefect indicates the shipment was written off as defective
	StatusDefect Status = "defect"
)

// IsValid returns true if the status is part of the canonical set
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusAssembly, StatusTransferredToDelivery,
		StatusAcceptedAtWarehouse, StatusInTransitToBuyer, StatusArrivedAtBuyerPickup,
		StatusBuyout, StatusReturnStarted, StatusRejection,
		StatusReturnInTransitFromBuyer, StatusReturnArrivedToSellerPickup,
		StatusSellerPickedUp, StatusDefect:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final state. Terminal statuses
// always win during reconciliation regardless of funnel position.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusBuyout, StatusRejection, StatusDefect,
		StatusSellerPickedUp, StatusReturnArrivedToSellerPickup:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable label for the status
func (s Status) DisplayName() string {
	switch s {
	case StatusNew:
		return "Новый"
	case StatusAssembly:
		return "На сборке"
	case StatusTransferredToDelivery:
		return "Передан в доставку"
	case StatusAcceptedAtWarehouse:
		return "Принят на складе"
	case StatusInTransitToBuyer:
		return "В пути к покупателю"
	case StatusArrivedAtBuyerPickup:
		return "Прибыл в пункт выдачи"
	case StatusBuyout:
		return "Выкуп"
	case StatusReturnStarted:
		return "Оформлен возврат"
	case StatusRejection:
		return "Отказ"
	case StatusReturnInTransitFromBuyer:
		return "Возврат в пути от покупателя"
	case StatusReturnArrivedToSellerPickup:
		return "Возврат прибыл в пункт выдачи"
	case StatusSellerPickedUp:
		return "Возврат получен продавцом"
	case StatusDefect:
		return "Брак"
	default:
		return string(s)
	}
}

// AllStatuses returns every canonical status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusNew, StatusAssembly, StatusTransferredToDelivery,
		StatusAcceptedAtWarehouse, StatusInTransitToBuyer, StatusArrivedAtBuyerPickup,
		StatusBuyout, StatusReturnStarted, StatusRejection,
		StatusReturnInTransitFromBuyer, StatusReturnArrivedToSellerPickup,
		StatusSellerPickedUp, StatusDefect,
	}
}

// ---------------------------------------------------------------------------
// Forward funnel
// ---------------------------------------------------------------------------

// funnelRanks orders the non-terminal active-pipeline statuses from least to
// most progressed. Statuses absent from the map are funnel-exempt and never
// block an incoming update on their own.
var funnelRanks = map[Status]int{
	StatusNew:                   0,
	StatusAssembly:              1,
	StatusTransferredToDelivery: 2,
	StatusAcceptedAtWarehouse:   3,
	StatusInTransitToBuyer:      4,
	StatusArrivedAtBuyerPickup:  5,
}

// FunnelRank returns the forward-funnel rank of the status and whether the
// status participates in the funnel at all.
func (s Status) FunnelRank() (int, bool) {
	rank, ok := funnelRanks[s]
	return rank, ok
}

// IsRollback reports whether replacing current with incoming would move an
// order backwards. Terminal statuses win regardless of rank: an incoming
// terminal status is never a rollback, and a terminal current status blocks
// every non-terminal update. Non-terminal statuses outside the funnel do not
// constrain the comparison.
func IsRollback(current, incoming Status) bool {
	if incoming.IsTerminal() {
		return false
	}
	if current.IsTerminal() {
		return true
	}
	currentRank, currentOK := current.FunnelRank()
	incomingRank, incomingOK := incoming.FunnelRank()
	if !currentOK || !incomingOK {
		return false
	}
	return incomingRank < currentRank
}

// HasRollbackProtection reports whether the marketplace's active pipeline is
// guarded by the forward funnel. Wildberries merges two feeds that can race,
// so stale active-feed pages must not regress statistics-confirmed progress.
func (m Marketplace) HasRollbackProtection() bool {
	return m == MarketplaceWB
}
