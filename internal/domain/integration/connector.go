package integration

import (
	"context"
	"errors"
	"time"

	"github.com/fbstrack/backend/internal/domain/tracking"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")

	// Credentials errors
	ErrCredentialsNotFound = errors.New("integration: marketplace credentials not found")
	ErrCredentialsInvalid  = errors.New("integration: marketplace credentials invalid")
)

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials holds the API secrets a sync run needs. They are read from
// storage once at the start of each run.
type Credentials struct {
	// WBToken is the Wildberries seller API token
	WBToken string
	// OzonClientID is the Ozon seller client id
	OzonClientID string
	// OzonAPIKey is the Ozon seller API key
	OzonAPIKey string
	// UpdatedAt is when the credentials were last changed
	UpdatedAt time.Time
}

// HasWB reports whether Wildberries can be polled.
func (c Credentials) HasWB() bool {
	return c.WBToken != ""
}

// HasOzon reports whether Ozon can be polled.
func (c Credentials) HasOzon() bool {
	return c.OzonClientID != "" && c.OzonAPIKey != ""
}

// ForMarketplace reports whether the credentials allow polling the given
// marketplace.
func (c Credentials) ForMarketplace(m tracking.Marketplace) bool {
	switch m {
	case tracking.MarketplaceWB:
		return c.HasWB()
	case tracking.MarketplaceOzon:
		return c.HasOzon()
	default:
		return false
	}
}

// CredentialsRepository is the storage port for marketplace credentials.
type CredentialsRepository interface {
	// Get returns the current credentials
	Get(ctx context.Context) (*Credentials, error)

	// Save stores new credentials, replacing the previous set
	Save(ctx context.Context, creds *Credentials) error
}

// ---------------------------------------------------------------------------
// Connector Port Interface
// ---------------------------------------------------------------------------

// Connector pulls the recent order book of one marketplace and normalizes it
// into canonical snapshots. Implementations own pagination, rate-limit
// handling and status mapping; callers only see the flattened result.
type Connector interface {
	// Marketplace returns the platform this connector handles
	Marketplace() tracking.Marketplace

	// FetchSnapshots pulls all orders created within the trailing window and
	// returns one snapshot per observed record. The returned slice may
	// contain several snapshots for the same order; callers collapse them.
	FetchSnapshots(ctx context.Context, creds Credentials) ([]tracking.Snapshot, error)
}
