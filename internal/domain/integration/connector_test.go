package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fbstrack/backend/internal/domain/tracking"
)

func TestCredentials_ForMarketplace(t *testing.T) {
	full := Credentials{WBToken: "wb-token", OzonClientID: "12345", OzonAPIKey: "key"}
	assert.True(t, full.ForMarketplace(tracking.MarketplaceWB))
	assert.True(t, full.ForMarketplace(tracking.MarketplaceOzon))
	assert.False(t, full.ForMarketplace(tracking.Marketplace("amazon")))

	wbOnly := Credentials{WBToken: "wb-token"}
	assert.True(t, wbOnly.HasWB())
	assert.False(t, wbOnly.HasOzon())

	partialOzon := Credentials{OzonClientID: "12345"}
	assert.False(t, partialOzon.HasOzon())

	assert.False(t, Credentials{}.HasWB())
}
