package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/domain/tracking"
)

func ozonTestCreds() integration.Credentials {
	return integration.Credentials{OzonClientID: "12345", OzonAPIKey: "ozon-test-key"}
}

func newOzonTestConfig(serverURL string) *OzonConfig {
	config := NewOzonConfig()
	config.APIBaseURL = serverURL
	config.PageLimit = 2
	config.PagePause = 0
	config.RateLimitBackoff = time.Millisecond
	return config
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestOzonConfig_Validate(t *testing.T) {
	t.Run("defaults filled", func(t *testing.T) {
		config := &OzonConfig{}
		require.NoError(t, config.Validate())
		assert.Equal(t, OzonAPIURL, config.APIBaseURL)
		assert.Equal(t, 30, config.WindowDays)
		assert.Equal(t, 100, config.PageLimit)
	})

	t.Run("negative window", func(t *testing.T) {
		assert.ErrorIs(t, (&OzonConfig{WindowDays: -1}).Validate(), ErrOzonConfigInvalidWindow)
	})

	t.Run("negative limit", func(t *testing.T) {
		assert.ErrorIs(t, (&OzonConfig{PageLimit: -1}).Validate(), ErrOzonConfigInvalidLimit)
	})
}

// ---------------------------------------------------------------------------
// Status Mapping Tests
// ---------------------------------------------------------------------------

func TestMapOzonStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		substatus string
		want      tracking.Status
	}{
		{"awaiting packaging", "awaiting_packaging", "", tracking.StatusNew},
		{"awaiting deliver", "awaiting_deliver", "", tracking.StatusAssembly},
		{"sent by seller", "sent_by_seller", "", tracking.StatusTransferredToDelivery},
		{"delivering", "delivering", "", tracking.StatusInTransitToBuyer},
		{"in pickup point", "delivering", "posting_in_pickup_point", tracking.StatusArrivedAtBuyerPickup},
		{"received", "delivering", "posting_received", tracking.StatusBuyout},
		{"delivered", "delivered", "", tracking.StatusBuyout},
		{"cancelled", "cancelled", "", tracking.StatusRejection},
		{"not accepted", "not_accepted", "", tracking.StatusRejection},
		{"unknown cancel-like", "cancellation_requested", "", tracking.StatusRejection},
		{"unknown return-like", "return_processing", "", tracking.StatusReturnStarted},
		{"unknown", "mystery_status", "", tracking.StatusNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapOzonStatus(tt.status, tt.substatus))
		})
	}
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func TestNewOzonAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter, err := NewOzonAdapter(NewOzonConfig(), nil)
		require.NoError(t, err)
		assert.Equal(t, tracking.MarketplaceOzon, adapter.Marketplace())
	})

	t.Run("invalid config", func(t *testing.T) {
		adapter, err := NewOzonAdapter(&OzonConfig{PageLimit: -1}, nil)
		assert.Error(t, err)
		assert.Nil(t, adapter)
	})
}

func TestOzonAdapter_FetchSnapshots(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/posting/fbs/list", r.URL.Path)
		assert.Equal(t, "12345", r.Header.Get("Client-Id"))
		assert.Equal(t, "ozon-test-key", r.Header.Get("Api-Key"))

		var req ozonPostingListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Limit)

		calls.Add(1)
		if req.Offset == 0 {
			_ = json.NewEncoder(w).Encode(ozonPostingListResponse{Result: ozonPostingListResult{
				HasNext: true,
				Postings: []ozonPosting{
					{
						PostingNumber: "111-222-1",
						Status:        "awaiting_packaging",
						InProcessAt:   "2025-06-10T08:00:00Z",
						ShipmentDate:  "2025-06-12T10:00:00Z",
						Products: []ozonProduct{
							{Name: "Термокружка", OfferID: "MUG-01", Quantity: 2, Price: "899.00"},
						},
					},
					{PostingNumber: "", Status: "delivering"}, // no number, dropped
				},
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(ozonPostingListResponse{Result: ozonPostingListResult{
			HasNext: false,
			Postings: []ozonPosting{
				{
					PostingNumber: "111-222-2",
					Status:        "delivered",
					InProcessAt:   "2025-06-09T08:00:00Z",
					// no products: quantity defaults to 1
				},
			},
		}})
	}))
	defer server.Close()

	adapter, err := NewOzonAdapter(newOzonTestConfig(server.URL), nil)
	require.NoError(t, err)

	snapshots, err := adapter.FetchSnapshots(context.Background(), ozonTestCreds())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, int32(2), calls.Load())

	first := snapshots[0]
	assert.Equal(t, tracking.MarketplaceOzon, first.Marketplace)
	assert.Equal(t, "111-222-1", first.ExternalID)
	assert.Equal(t, tracking.StatusNew, first.Status)
	assert.Equal(t, time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC), first.StatusAt)
	assert.Equal(t, "Термокружка", first.ProductName)
	assert.Equal(t, "MUG-01", first.SKU)
	assert.Equal(t, 2, first.Quantity)
	require.NotNil(t, first.DueShipAt)
	assert.Equal(t, time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC), *first.DueShipAt)
	assert.Equal(t, "899", first.SalePrice.String())

	second := snapshots[1]
	assert.Equal(t, "111-222-2", second.ExternalID)
	assert.Equal(t, tracking.StatusBuyout, second.Status)
	assert.Equal(t, 1, second.Quantity)
	assert.Nil(t, second.DueShipAt)
}

func TestOzonAdapter_FetchSnapshots_RateLimitRetry(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(ozonPostingListResponse{})
	}))
	defer server.Close()

	adapter, err := NewOzonAdapter(newOzonTestConfig(server.URL), nil)
	require.NoError(t, err)

	snapshots, err := adapter.FetchSnapshots(context.Background(), ozonTestCreds())
	require.NoError(t, err)
	assert.Empty(t, snapshots)
	assert.Equal(t, int32(2), calls.Load(), "429 page should be retried exactly once")
}

func TestOzonAdapter_FetchSnapshots_PersistentRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter, err := NewOzonAdapter(newOzonTestConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = adapter.FetchSnapshots(context.Background(), ozonTestCreds())
	assert.ErrorIs(t, err, integration.ErrPlatformRateLimited)
}

func TestOzonAdapter_FetchSnapshots_MissingCredentials(t *testing.T) {
	adapter, err := NewOzonAdapter(NewOzonConfig(), nil)
	require.NoError(t, err)

	_, err = adapter.FetchSnapshots(context.Background(), integration.Credentials{OzonClientID: "12345"})
	assert.ErrorIs(t, err, integration.ErrPlatformNotConfigured)
}

func TestOzonAdapter_FetchSnapshots_PageCeiling(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Always claims another page exists; the ceiling must stop the loop.
		_ = json.NewEncoder(w).Encode(ozonPostingListResponse{Result: ozonPostingListResult{
			HasNext:  true,
			Postings: []ozonPosting{{PostingNumber: "p", Status: "delivering"}},
		}})
	}))
	defer server.Close()

	config := newOzonTestConfig(server.URL)
	config.MaxPages = 3
	adapter, err := NewOzonAdapter(config, nil)
	require.NoError(t, err)

	snapshots, err := adapter.FetchSnapshots(context.Background(), ozonTestCreds())
	require.NoError(t, err)
	assert.Len(t, snapshots, 3)
	assert.Equal(t, int32(3), calls.Load())
}
