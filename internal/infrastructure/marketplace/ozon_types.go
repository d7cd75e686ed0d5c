package marketplace

// ---------------------------------------------------------------------------
// Ozon Seller API Types
// ---------------------------------------------------------------------------

// ozonPostingListRequest is the body of POST /v3/posting/fbs/list
type ozonPostingListRequest struct {
	Dir    string                 `json:"dir"`
	Filter ozonPostingListFilter  `json:"filter"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	With   ozonPostingListOptions `json:"with"`
}

// ozonPostingListFilter narrows the posting list by creation time
type ozonPostingListFilter struct {
	Since string `json:"since"`
	To    string `json:"to"`
}

// ozonPostingListOptions toggles optional response sections
type ozonPostingListOptions struct {
	AnalyticsData bool `json:"analytics_data"`
	FinancialData bool `json:"financial_data"`
}

// ozonPostingListResponse is the response of POST /v3/posting/fbs/list
type ozonPostingListResponse struct {
	Result ozonPostingListResult `json:"result"`
}

// ozonPostingListResult contains the page of postings
type ozonPostingListResult struct {
	Postings []ozonPosting `json:"postings"`
	HasNext  bool          `json:"has_next"`
}

// ozonPosting is one FBS posting
type ozonPosting struct {
	// PostingNumber is the seller-facing order number
	PostingNumber string `json:"posting_number"`
	// OrderNumber is the buyer-facing order number
	OrderNumber string `json:"order_number"`
	// Status is the posting status
	Status string `json:"status"`
	// Substatus refines the status
	Substatus string `json:"substatus"`
	// CreatedAt is the posting creation time, RFC3339
	CreatedAt string `json:"created_at"`
	// InProcessAt is when the posting entered processing, RFC3339
	InProcessAt string `json:"in_process_at"`
	// ShipmentDate is the deadline to hand the shipment over, RFC3339
	ShipmentDate string `json:"shipment_date"`
	// Products are the posting line items
	Products []ozonProduct `json:"products"`
}

// ozonProduct is one line item of a posting
type ozonProduct struct {
	// Name is the product title
	Name string `json:"name"`
	// OfferID is the seller's article (SKU)
	OfferID string `json:"offer_id"`
	// SKU is the Ozon product id
	SKU int64 `json:"sku"`
	// Quantity is the ordered quantity
	Quantity int `json:"quantity"`
	// Price is the unit price as a decimal string
	Price string `json:"price"`
}
