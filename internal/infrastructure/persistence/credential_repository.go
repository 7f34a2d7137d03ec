package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCredentialRepository implements CredentialRepository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// FindActive returns the most recently updated active credential
func (r *GormCredentialRepository) FindActive(ctx context.Context) (*integration.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCredentialNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or updates the credential of a realm. Reconnecting a realm reuses
// its row, and activating one realm deactivates the others.
func (r *GormCredentialRepository) Save(ctx context.Context, credential *integration.Credential) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CredentialModel
		err := tx.Where("realm_id = ?", credential.RealmID).First(&existing).Error
		switch {
		case err == nil:
			credential.ID = existing.ID
			credential.CreatedAt = existing.CreatedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if credential.IsActive {
			if err := tx.Model(&models.CredentialModel{}).
				Where("realm_id <> ? AND is_active = ?", credential.RealmID, true).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(models.CredentialModelFromDomain(credential)).Error
	})
}

var _ integration.CredentialRepository = (*GormCredentialRepository)(nil)
