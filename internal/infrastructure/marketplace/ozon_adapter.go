package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/domain/tracking"
)

// OzonAdapter implements the Connector port for Ozon FBS. Postings come from
// a single offset-paginated list endpoint, so no cross-feed correlation is
// needed and the marketplace carries no rollback protection.
type OzonAdapter struct {
	config     *OzonConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOzonAdapter creates a new Ozon adapter
func NewOzonAdapter(config *OzonConfig, logger *zap.Logger) (*OzonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OzonAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// Marketplace returns the marketplace this adapter handles
func (a *OzonAdapter) Marketplace() tracking.Marketplace {
	return tracking.MarketplaceOzon
}

// FetchSnapshots pulls the trailing-window posting list and returns it as
// canonical snapshots.
func (a *OzonAdapter) FetchSnapshots(ctx context.Context, creds integration.Credentials) ([]tracking.Snapshot, error) {
	if !creds.HasOzon() {
		return nil, integration.ErrPlatformNotConfigured
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -a.config.WindowDays)

	var snapshots []tracking.Snapshot
	offset := 0

	for page := 0; page < a.config.MaxPages; page++ {
		if page > 0 {
			if err := sleepCtx(ctx, a.config.PagePause); err != nil {
				return nil, err
			}
		}

		result, err := a.fetchPostingPage(ctx, creds, since, now, offset)
		if err != nil {
			return nil, err
		}

		for _, posting := range result.Postings {
			if posting.PostingNumber == "" {
				continue
			}
			snapshots = append(snapshots, a.convertPosting(posting))
		}

		if !result.HasNext || len(result.Postings) == 0 {
			break
		}
		offset += a.config.PageLimit
	}

	a.logger.Debug("ozon fetch completed", zap.Int("snapshots", len(snapshots)))
	return snapshots, nil
}

// fetchPostingPage requests one page of the posting list, retrying once
// after a fixed backoff when rate limited.
func (a *OzonAdapter) fetchPostingPage(ctx context.Context, creds integration.Credentials, since, to time.Time, offset int) (*ozonPostingListResult, error) {
	payload, err := json.Marshal(ozonPostingListRequest{
		Dir: "ASC",
		Filter: ozonPostingListFilter{
			Since: since.Format(time.RFC3339),
			To:    to.Format(time.RFC3339),
		},
		Limit:  a.config.PageLimit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("ozon: failed to encode list request: %w", err)
	}

	body, err := a.doRequest(ctx, creds, payload)
	if errors.Is(err, integration.ErrPlatformRateLimited) {
		a.logger.Warn("ozon rate limited, retrying once",
			zap.Int("offset", offset),
			zap.Duration("backoff", a.config.RateLimitBackoff))
		if sleepErr := sleepCtx(ctx, a.config.RateLimitBackoff); sleepErr != nil {
			return nil, sleepErr
		}
		body, err = a.doRequest(ctx, creds, payload)
	}
	if err != nil {
		return nil, err
	}

	var resp ozonPostingListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse posting list: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return &resp.Result, nil
}

// doRequest performs a single posting list request.
func (a *OzonAdapter) doRequest(ctx context.Context, creds integration.Credentials, payload []byte) ([]byte, error) {
	endpoint := a.config.APIBaseURL + "/v3/posting/fbs/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ozon: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", creds.OzonClientID)
	req.Header.Set("Api-Key", creds.OzonAPIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ozon: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, integration.ErrPlatformRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, nil
}

// convertPosting flattens a posting into a snapshot. Multi-item postings keep
// the first product's attributes; the tracked unit is the posting.
func (a *OzonAdapter) convertPosting(posting ozonPosting) tracking.Snapshot {
	snap := tracking.Snapshot{
		Marketplace:  tracking.MarketplaceOzon,
		ExternalID:   posting.PostingNumber,
		Status:       mapOzonStatus(posting.Status, posting.Substatus),
		Quantity:     1,
		SourceStatus: posting.Status,
	}
	if posting.Substatus != "" {
		snap.SourceStatus = posting.Status + "/" + posting.Substatus
	}

	snap.StatusAt = time.Now().UTC()
	if at, ok := parseMarketplaceTime(posting.InProcessAt); ok {
		snap.StatusAt = at
	} else if at, ok := parseMarketplaceTime(posting.CreatedAt); ok {
		snap.StatusAt = at
	}

	if at, ok := parseMarketplaceTime(posting.ShipmentDate); ok {
		snap.DueShipAt = &at
	}

	if len(posting.Products) > 0 {
		product := posting.Products[0]
		snap.ProductName = product.Name
		snap.SKU = product.OfferID
		if product.Quantity >= 1 {
			snap.Quantity = product.Quantity
		}
		if price, err := decimal.NewFromString(product.Price); err == nil {
			snap.SalePrice = price
		}
	}

	return snap
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// mapOzonStatus maps an Ozon posting status to a canonical status. The
// substatus refines delivery progress where the status alone is too coarse.
func mapOzonStatus(status, substatus string) tracking.Status {
	switch substatus {
	case "posting_transferred_to_courier_service", "posting_on_way_to_city":
		return tracking.StatusInTransitToBuyer
	case "posting_in_pickup_point":
		return tracking.StatusArrivedAtBuyerPickup
	case "posting_received":
		return tracking.StatusBuyout
	}

	switch status {
	case "awaiting_registration", "acceptance_in_progress", "awaiting_approve", "awaiting_packaging":
		return tracking.StatusNew
	case "awaiting_deliver":
		return tracking.StatusAssembly
	case "sent_by_seller", "arbitration":
		return tracking.StatusTransferredToDelivery
	case "delivering", "driver_pickup", "client_arbitration":
		return tracking.StatusInTransitToBuyer
	case "delivered":
		return tracking.StatusBuyout
	case "cancelled", "not_accepted":
		return tracking.StatusRejection
	}

	raw := status
	if substatus != "" {
		raw = status + "/" + substatus
	}
	return fallbackStatus(raw)
}

// Ensure OzonAdapter implements the Connector interface
var _ integration.Connector = (*OzonAdapter)(nil)
