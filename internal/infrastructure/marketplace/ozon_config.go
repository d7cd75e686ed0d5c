package marketplace

import (
	"errors"
	"time"
)

// OzonConfig holds configuration for the Ozon Seller API.
type OzonConfig struct {
	// APIBaseURL is the Seller API endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// WindowDays is the trailing window on posting creation time
	WindowDays int
	// PageLimit is the page size for the posting list
	PageLimit int
	// MaxPages is the hard ceiling on pages per run
	MaxPages int
	// PagePause is the pause between consecutive pages
	PagePause time.Duration
	// RateLimitBackoff is the wait before the single 429 retry
	RateLimitBackoff time.Duration
}

// OzonAPIURL is the production Seller API endpoint
const OzonAPIURL = "https://api-seller.ozon.ru"

// Errors for Ozon configuration
var (
	ErrOzonConfigInvalidWindow = errors.New("ozon: window days must be positive")
	ErrOzonConfigInvalidLimit  = errors.New("ozon: page limit must be positive")
)

// NewOzonConfig creates an Ozon configuration with production defaults.
func NewOzonConfig() *OzonConfig {
	return &OzonConfig{
		APIBaseURL:       OzonAPIURL,
		TimeoutSeconds:   30,
		WindowDays:       30,
		PageLimit:        100,
		MaxPages:         50,
		PagePause:        300 * time.Millisecond,
		RateLimitBackoff: time.Second,
	}
}

// Validate validates the Ozon configuration and fills defaults.
func (c *OzonConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = OzonAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.WindowDays < 0 {
		return ErrOzonConfigInvalidWindow
	}
	if c.WindowDays == 0 {
		c.WindowDays = 30
	}
	if c.PageLimit < 0 {
		return ErrOzonConfigInvalidLimit
	}
	if c.PageLimit == 0 {
		c.PageLimit = 100
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 50
	}
	return nil
}
