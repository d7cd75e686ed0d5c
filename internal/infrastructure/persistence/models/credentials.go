package models

import (
	"time"

	"github.com/fbstrack/backend/internal/domain/integration"
)

// CredentialsModel is the persistence model for marketplace API credentials.
// The table holds a single row replaced on every save.
type CredentialsModel struct {
	ID           int64     `gorm:"primaryKey"`
	WBToken      string    `gorm:"type:text;column:wb_token"`
	OzonClientID string    `gorm:"type:varchar(100);column:ozon_client_id"`
	OzonAPIKey   string    `gorm:"type:text;column:ozon_api_key"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialsModel) TableName() string {
	return "marketplace_credentials"
}

// ToDomain converts the persistence model to domain Credentials.
func (m *CredentialsModel) ToDomain() *integration.Credentials {
	return &integration.Credentials{
		WBToken:      m.WBToken,
		OzonClientID: m.OzonClientID,
		OzonAPIKey:   m.OzonAPIKey,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from domain Credentials.
func (m *CredentialsModel) FromDomain(c *integration.Credentials) {
	m.WBToken = c.WBToken
	m.OzonClientID = c.OzonClientID
	m.OzonAPIKey = c.OzonAPIKey
	m.UpdatedAt = c.UpdatedAt
}
