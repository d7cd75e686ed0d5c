package tracking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fbstrack/backend/internal/domain/integration"
)

// SettingsService manages the stored marketplace credentials a sync run
// reads at its start. Reads go through this service masked; the orchestrator
// reads the raw values from the repository itself.
type SettingsService struct {
	credsRepo integration.CredentialsRepository
	logger    *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(credsRepo integration.CredentialsRepository, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{credsRepo: credsRepo, logger: logger}
}

// Get returns the stored credentials with secrets masked, or an empty set
// when none were saved.
func (s *SettingsService) Get(ctx context.Context) (*integration.Credentials, error) {
	creds, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return masked(creds), nil
}

// Update replaces the stored credentials. Empty fields keep their previous
// values so each marketplace can be configured independently. The returned
// credentials are masked.
func (s *SettingsService) Update(ctx context.Context, incoming integration.Credentials) (*integration.Credentials, error) {
	current, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if token := strings.TrimSpace(incoming.WBToken); token != "" {
		current.WBToken = token
	}
	if clientID := strings.TrimSpace(incoming.OzonClientID); clientID != "" {
		current.OzonClientID = clientID
	}
	if apiKey := strings.TrimSpace(incoming.OzonAPIKey); apiKey != "" {
		current.OzonAPIKey = apiKey
	}
	current.UpdatedAt = time.Now().UTC()

	if err := s.credsRepo.Save(ctx, current); err != nil {
		return nil, err
	}

	s.logger.Info("marketplace credentials updated",
		zap.Bool("wb_configured", current.HasWB()),
		zap.Bool("ozon_configured", current.HasOzon()))

	return masked(current), nil
}

// fetch loads the raw stored credentials for internal use.
func (s *SettingsService) fetch(ctx context.Context) (*integration.Credentials, error) {
	creds, err := s.credsRepo.Get(ctx)
	if err != nil {
		if err == integration.ErrCredentialsNotFound {
			return &integration.Credentials{}, nil
		}
		return nil, err
	}
	return creds, nil
}

// masked returns a copy with every secret reduced to its last four
// characters. The Ozon client id is an account identifier, not a secret.
func masked(creds *integration.Credentials) *integration.Credentials {
	out := *creds
	out.WBToken = maskSecret(creds.WBToken)
	out.OzonAPIKey = maskSecret(creds.OzonAPIKey)
	return &out
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
