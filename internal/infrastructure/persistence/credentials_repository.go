package persistence

import (
	"context"
	"errors"

	"github.com/fbstrack/backend/internal/domain/integration"
	"github.com/fbstrack/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// credentialsRowID pins the single credentials row.
const credentialsRowID int64 = 1

// GormCredentialsRepository implements integration.CredentialsRepository
// using GORM. Credentials live in a single row replaced on every save.
type GormCredentialsRepository struct {
	db *gorm.DB
}

// NewGormCredentialsRepository creates a new GormCredentialsRepository
func NewGormCredentialsRepository(db *gorm.DB) *GormCredentialsRepository {
	return &GormCredentialsRepository{db: db}
}

var _ integration.CredentialsRepository = (*GormCredentialsRepository)(nil)

// Get returns the current credentials
func (r *GormCredentialsRepository) Get(ctx context.Context) (*integration.Credentials, error) {
	var model models.CredentialsModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", credentialsRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCredentialsNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save stores new credentials, replacing the previous set
func (r *GormCredentialsRepository) Save(ctx context.Context, creds *integration.Credentials) error {
	model := &models.CredentialsModel{ID: credentialsRowID}
	model.FromDomain(creds)
	return r.db.WithContext(ctx).Save(model).Error
}
