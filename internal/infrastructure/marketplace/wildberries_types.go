package marketplace

// ---------------------------------------------------------------------------
// Marketplace (seller) API Types
// ---------------------------------------------------------------------------

// wbOrdersResponse is the response of GET /api/v3/orders
type wbOrdersResponse struct {
	// Next is the cursor for the following page, 0 when exhausted
	Next int64 `json:"next"`
	// Orders is the page of assembly tasks
	Orders []wbOrder `json:"orders"`
}

// wbOrder is one assembly task from the active-orders feed
type wbOrder struct {
	// ID is the assembly task number, the seller-facing order number
	ID int64 `json:"id"`
	// Rid is the cross-feed correlation token (srid)
	Rid string `json:"rid"`
	// CreatedAt is the order creation time, RFC3339
	CreatedAt string `json:"createdAt"`
	// Article is the seller's article (SKU)
	Article string `json:"article"`
	// Skus are the barcodes of the item
	Skus []string `json:"skus"`
	// NmID is the Wildberries product card id
	NmID int64 `json:"nmId"`
	// Price is the price in kopecks
	Price int64 `json:"price"`
	// SupplyID is the supply the task is attached to, if any
	SupplyID string `json:"supplyId,omitempty"`
	// Comment is the seller's note
	Comment string `json:"comment,omitempty"`
}

// wbStatusRequest is the body of POST /api/v3/orders/status
type wbStatusRequest struct {
	Orders []int64 `json:"orders"`
}

// wbStatusResponse is the response of POST /api/v3/orders/status
type wbStatusResponse struct {
	Orders []wbOrderStatus `json:"orders"`
}

// wbOrderStatus is the per-task status pair resolved by the secondary lookup
type wbOrderStatus struct {
	ID int64 `json:"id"`
	// SupplierStatus is the seller-side state: new, confirm, complete, cancel
	SupplierStatus string `json:"supplierStatus"`
	// WbStatus is the logistics-side state: waiting, sorted, sold, canceled,
	// canceled_by_client, declined_by_client, defect, ready_for_pickup
	WbStatus string `json:"wbStatus"`
}

// ---------------------------------------------------------------------------
// Statistics API Types
// ---------------------------------------------------------------------------

// wbSale is one row of GET /api/v1/supplier/sales. Sales rows carry the
// srid correlation token but not the assembly task number.
type wbSale struct {
	// SaleID starts with S for a sale and R for a return
	SaleID string `json:"saleID"`
	// Srid is the cross-feed correlation token
	Srid string `json:"srid"`
	// Date is when the sale happened
	Date string `json:"date"`
	// LastChangeDate is when the row last changed
	LastChangeDate string `json:"lastChangeDate"`
	// SupplierArticle is the seller's article (SKU)
	SupplierArticle string `json:"supplierArticle"`
	// Subject is the product category/title
	Subject string `json:"subject"`
	// PriceWithDisc is the sale price after discounts
	PriceWithDisc float64 `json:"priceWithDisc"`
	// ForPay is the amount due to the seller
	ForPay float64 `json:"forPay"`
	// IsCancel marks a cancelled order row
	IsCancel bool `json:"isCancel"`
}
