package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/domain/tracking"
)

// wbStatsDateLayout is the timestamp layout of the statistics API (no zone,
// values are Moscow time but treated as UTC for ordering purposes)
const wbStatsDateLayout = "2006-01-02T15:04:05"

// WildberriesAdapter implements the Connector port for Wildberries FBS.
// The order book is assembled from two feeds: the marketplace API's
// active-orders feed (with a secondary per-task status lookup) and the
// statistics API's sales feed for completed outcomes. Sales rows are re-keyed
// to the active feed's order number via the srid correlation token.
type WildberriesAdapter struct {
	config     *WildberriesConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWildberriesAdapter creates a new Wildberries adapter
func NewWildberriesAdapter(config *WildberriesConfig, logger *zap.Logger) (*WildberriesAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WildberriesAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// Marketplace returns the marketplace this adapter handles
func (a *WildberriesAdapter) Marketplace() tracking.Marketplace {
	return tracking.MarketplaceWB
}

// FetchSnapshots pulls the trailing-window order book from both Wildberries
// feeds and returns it as canonical snapshots.
func (a *WildberriesAdapter) FetchSnapshots(ctx context.Context, creds integration.Credentials) ([]tracking.Snapshot, error) {
	if !creds.HasWB() {
		return nil, integration.ErrPlatformNotConfigured
	}

	since := time.Now().UTC().AddDate(0, 0, -a.config.WindowDays)

	active, err := a.fetchActiveOrders(ctx, creds.WBToken, since)
	if err != nil {
		return nil, err
	}

	statuses, err := a.resolveStatuses(ctx, creds.WBToken, active)
	if err != nil {
		return nil, err
	}

	snapshots := make([]tracking.Snapshot, 0, len(active))
	ridToNumber := make(map[string]string, len(active))
	for _, order := range active {
		if order.ID == 0 {
			continue
		}
		snap := a.convertActiveOrder(order, statuses[order.ID])
		snapshots = append(snapshots, snap)
		if order.Rid != "" {
			ridToNumber[order.Rid] = snap.ExternalID
		}
	}

	sales, err := a.fetchSales(ctx, creds.WBToken, since)
	if err != nil {
		return nil, err
	}

	for _, sale := range sales {
		if sale.Srid == "" {
			continue
		}
		snap := a.convertSale(sale)
		// Re-key to the active feed's order number when the srid matches.
		if number, ok := ridToNumber[sale.Srid]; ok {
			snap.ExternalID = number
		}
		snapshots = append(snapshots, snap)
	}

	a.logger.Debug("wildberries fetch completed",
		zap.Int("active_orders", len(active)),
		zap.Int("sales", len(sales)),
		zap.Int("snapshots", len(snapshots)))

	return snapshots, nil
}

// ---------------------------------------------------------------------------
// Active-orders feed
// ---------------------------------------------------------------------------

// fetchActiveOrders walks the cursor-paginated /api/v3/orders feed.
func (a *WildberriesAdapter) fetchActiveOrders(ctx context.Context, token string, since time.Time) ([]wbOrder, error) {
	var orders []wbOrder
	var next int64
	seen := make(map[int64]bool)

	for page := 0; page < a.config.MaxPages; page++ {
		if page > 0 {
			if err := sleepCtx(ctx, a.config.PagePause); err != nil {
				return nil, err
			}
		}

		endpoint := fmt.Sprintf("%s/api/v3/orders?%s", a.config.APIBaseURL, url.Values{
			"limit":    {strconv.Itoa(a.config.PageLimit)},
			"next":     {strconv.FormatInt(next, 10)},
			"dateFrom": {strconv.FormatInt(since.Unix(), 10)},
		}.Encode())

		body, err := a.doRequestWithRetry(ctx, http.MethodGet, endpoint, token, nil)
		if err != nil {
			return nil, err
		}

		var resp wbOrdersResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: failed to parse orders page: %v", integration.ErrPlatformInvalidResponse, err)
		}

		for _, order := range resp.Orders {
			if createdAt, ok := parseMarketplaceTime(order.CreatedAt); ok && createdAt.Before(since) {
				continue
			}
			orders = append(orders, order)
		}

		// Stop on exhaustion, an empty page, or a repeating cursor.
		if resp.Next == 0 || len(resp.Orders) == 0 || seen[resp.Next] {
			break
		}
		seen[resp.Next] = true
		next = resp.Next
	}

	return orders, nil
}

// resolveStatuses issues the secondary status lookups for all active tasks,
// batched and run in small parallel waves with a pause in between.
func (a *WildberriesAdapter) resolveStatuses(ctx context.Context, token string, orders []wbOrder) (map[int64]wbOrderStatus, error) {
	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		if order.ID != 0 {
			ids = append(ids, order.ID)
		}
	}
	statuses := make(map[int64]wbOrderStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}

	var batches [][]int64
	for start := 0; start < len(ids); start += a.config.StatusBatchSize {
		end := start + a.config.StatusBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}

	var mu sync.Mutex
	var firstErr error

	for wave := 0; wave < len(batches); wave += a.config.StatusParallel {
		if wave > 0 {
			if err := sleepCtx(ctx, a.config.StatusBatchPause); err != nil {
				return nil, err
			}
		}

		end := wave + a.config.StatusParallel
		if end > len(batches) {
			end = len(batches)
		}

		var wg sync.WaitGroup
		for _, batch := range batches[wave:end] {
			wg.Add(1)
			go func(batch []int64) {
				defer wg.Done()
				resolved, err := a.lookupStatusBatch(ctx, token, batch)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				for _, status := range resolved {
					statuses[status.ID] = status
				}
			}(batch)
		}
		wg.Wait()

		if firstErr != nil {
			return nil, firstErr
		}
	}

	return statuses, nil
}

// lookupStatusBatch resolves statuses for one batch of assembly task ids.
func (a *WildberriesAdapter) lookupStatusBatch(ctx context.Context, token string, ids []int64) ([]wbOrderStatus, error) {
	payload, err := json.Marshal(wbStatusRequest{Orders: ids})
	if err != nil {
		return nil, fmt.Errorf("wildberries: failed to encode status request: %w", err)
	}

	endpoint := a.config.APIBaseURL + "/api/v3/orders/status"
	body, err := a.doRequestWithRetry(ctx, http.MethodPost, endpoint, token, payload)
	if err != nil {
		return nil, err
	}

	var resp wbStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse status response: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return resp.Orders, nil
}

// convertActiveOrder converts an active-feed task plus its resolved status
// pair into a snapshot.
func (a *WildberriesAdapter) convertActiveOrder(order wbOrder, status wbOrderStatus) tracking.Snapshot {
	canonical, raw := mapWildberriesStatus(status.SupplierStatus, status.WbStatus)

	statusAt := time.Now().UTC()
	if createdAt, ok := parseMarketplaceTime(order.CreatedAt); ok {
		statusAt = createdAt
	}

	return tracking.Snapshot{
		Marketplace:      tracking.MarketplaceWB,
		ExternalID:       strconv.FormatInt(order.ID, 10),
		Status:           canonical,
		StatusAt:         statusAt,
		ProductName:      order.Article,
		SKU:              order.Article,
		Quantity:         1,
		SourceStatus:     raw,
		CorrelationToken: order.Rid,
		SalePrice:        decimal.New(order.Price, -2),
	}
}

// ---------------------------------------------------------------------------
// Statistics sales feed
// ---------------------------------------------------------------------------

// fetchSales pulls completed sales/returns from the statistics API. The feed
// returns everything changed since dateFrom in one response.
func (a *WildberriesAdapter) fetchSales(ctx context.Context, token string, since time.Time) ([]wbSale, error) {
	endpoint := fmt.Sprintf("%s/api/v1/supplier/sales?%s", a.config.StatsBaseURL, url.Values{
		"dateFrom": {since.Format(wbStatsDateLayout)},
	}.Encode())

	body, err := a.doRequestWithRetry(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}

	var sales []wbSale
	if err := json.Unmarshal(body, &sales); err != nil {
		return nil, fmt.Errorf("%w: failed to parse sales response: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return sales, nil
}

// convertSale converts a statistics row into a snapshot keyed by srid until
// the caller re-keys it to the order number.
func (a *WildberriesAdapter) convertSale(sale wbSale) tracking.Snapshot {
	status := mapWildberriesSaleStatus(sale)

	statusAt := time.Now().UTC()
	if at, ok := parseMarketplaceTime(sale.LastChangeDate); ok {
		statusAt = at
	} else if at, ok := parseMarketplaceTime(sale.Date); ok {
		statusAt = at
	}

	return tracking.Snapshot{
		Marketplace:      tracking.MarketplaceWB,
		ExternalID:       sale.Srid,
		Status:           status,
		StatusAt:         statusAt,
		ProductName:      sale.Subject,
		SKU:              sale.SupplierArticle,
		Quantity:         1,
		SourceStatus:     sale.SaleID,
		CorrelationToken: sale.Srid,
		SalePrice:        decimal.NewFromFloat(sale.PriceWithDisc),
	}
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequestWithRetry performs a request and retries it once after a fixed
// backoff when the API answers 429.
func (a *WildberriesAdapter) doRequestWithRetry(ctx context.Context, method, endpoint, token string, payload []byte) ([]byte, error) {
	body, err := a.doRequest(ctx, method, endpoint, token, payload)
	if errors.Is(err, integration.ErrPlatformRateLimited) {
		a.logger.Warn("wildberries rate limited, retrying once",
			zap.String("endpoint", endpoint),
			zap.Duration("backoff", a.config.RateLimitBackoff))
		if sleepErr := sleepCtx(ctx, a.config.RateLimitBackoff); sleepErr != nil {
			return nil, sleepErr
		}
		body, err = a.doRequest(ctx, method, endpoint, token, payload)
	}
	return body, err
}

// doRequest performs a single HTTP request against a Wildberries API.
func (a *WildberriesAdapter) doRequest(ctx context.Context, method, endpoint, token string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("wildberries: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("wildberries: failed to read response: %w", err)
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

// parseMarketplaceTime parses the timestamp layouts the marketplace APIs use.
func parseMarketplaceTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(wbStatsDateLayout, value); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// sleepCtx waits for the duration or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// mapWildberriesStatus maps the supplier/logistics status pair of an active
// task to a canonical status. The logistics status wins when it is
// informative; "waiting" defers to the seller-side state.
func mapWildberriesStatus(supplierStatus, wbStatus string) (tracking.Status, string) {
	raw := supplierStatus
	if wbStatus != "" {
		raw = supplierStatus + "/" + wbStatus
	}

	switch wbStatus {
	case "sorted":
		return tracking.StatusAcceptedAtWarehouse, raw
	case "sold":
		return tracking.StatusBuyout, raw
	case "canceled", "canceled_by_client", "declined_by_client":
		return tracking.StatusRejection, raw
	case "defect":
		return tracking.StatusDefect, raw
	case "ready_for_pickup":
		return tracking.StatusArrivedAtBuyerPickup, raw
	}

	switch supplierStatus {
	case "new":
		return tracking.StatusNew, raw
	case "confirm":
		return tracking.StatusAssembly, raw
	case "complete":
		return tracking.StatusTransferredToDelivery, raw
	case "cancel":
		return tracking.StatusRejection, raw
	}

	return fallbackStatus(raw), raw
}

// mapWildberriesSaleStatus maps a statistics sales row to a canonical status.
// Sale ids start with S for sales and R for returns.
func mapWildberriesSaleStatus(sale wbSale) tracking.Status {
	if sale.IsCancel {
		return tracking.StatusRejection
	}
	switch {
	case strings.HasPrefix(sale.SaleID, "S"):
		return tracking.StatusBuyout
	case strings.HasPrefix(sale.SaleID, "R"):
		return tracking.StatusReturnStarted
	default:
		return fallbackStatus(sale.SaleID)
	}
}

// Ensure WildberriesAdapter implements the Connector interface
var _ integration.Connector = (*WildberriesAdapter)(nil)
