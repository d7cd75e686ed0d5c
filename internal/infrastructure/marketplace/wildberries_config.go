package marketplace

import (
	"errors"
	"time"
)

// WildberriesConfig holds configuration for the Wildberries FBS API pair:
// the marketplace API (active orders) and the statistics API (completed
// sales). Pacing knobs exist so tests can run without real delays.
type WildberriesConfig struct {
	// APIBaseURL is the marketplace (seller) API endpoint
	APIBaseURL string
	// StatsBaseURL is the statistics API endpoint
	StatsBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// WindowDays is the trailing window on order creation time
	WindowDays int
	// PageLimit is the page size for the active-orders feed
	PageLimit int
	// MaxPages is the hard ceiling on pages per feed
	MaxPages int
	// PagePause is the pause between consecutive pages
	PagePause time.Duration
	// RateLimitBackoff is the wait before the single 429 retry
	RateLimitBackoff time.Duration
	// StatusBatchSize is how many order ids one status lookup carries
	StatusBatchSize int
	// StatusParallel is how many status lookups run concurrently
	StatusParallel int
	// StatusBatchPause is the pause between waves of status lookups
	StatusBatchPause time.Duration
}

const (
	// WildberriesAPIURL is the production marketplace API endpoint
	WildberriesAPIURL = "https://marketplace-api.wildberries.ru"
	// WildberriesStatsURL is the production statistics API endpoint
	WildberriesStatsURL = "https://statistics-api.wildberries.ru"
)

// Errors for Wildberries configuration
var (
	ErrWBConfigInvalidWindow = errors.New("wildberries: window days must be positive")
	ErrWBConfigInvalidLimit  = errors.New("wildberries: page limit must be positive")
)

// NewWildberriesConfig creates a Wildberries configuration with production
// defaults.
func NewWildberriesConfig() *WildberriesConfig {
	return &WildberriesConfig{
		APIBaseURL:       WildberriesAPIURL,
		StatsBaseURL:     WildberriesStatsURL,
		TimeoutSeconds:   30,
		WindowDays:       30,
		PageLimit:        1000,
		MaxPages:         50,
		PagePause:        300 * time.Millisecond,
		RateLimitBackoff: time.Second,
		StatusBatchSize:  100,
		StatusParallel:   5,
		StatusBatchPause: 200 * time.Millisecond,
	}
}

// Validate validates the Wildberries configuration and fills defaults.
func (c *WildberriesConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = WildberriesAPIURL
	}
	if c.StatsBaseURL == "" {
		c.StatsBaseURL = WildberriesStatsURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.WindowDays < 0 {
		return ErrWBConfigInvalidWindow
	}
	if c.WindowDays == 0 {
		c.WindowDays = 30
	}
	if c.PageLimit < 0 {
		return ErrWBConfigInvalidLimit
	}
	if c.PageLimit == 0 {
		c.PageLimit = 1000
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 50
	}
	if c.StatusBatchSize <= 0 {
		c.StatusBatchSize = 100
	}
	if c.StatusParallel <= 0 {
		c.StatusParallel = 5
	}
	return nil
}
