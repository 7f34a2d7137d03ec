package persistence

import (
	"context"
	"time"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEntityMappingRepository implements EntityMappingRepository using GORM
type GormEntityMappingRepository struct {
	db *gorm.DB
}

// NewGormEntityMappingRepository creates a new GormEntityMappingRepository
func NewGormEntityMappingRepository(db *gorm.DB) *GormEntityMappingRepository {
	return &GormEntityMappingRepository{db: db}
}

// ---------------------------------------------------------------------------
// EntityMappingReader implementation
// ---------------------------------------------------------------------------

// FindByEntity finds the mapping for an internal record
func (r *GormEntityMappingRepository) FindByEntity(ctx context.Context, entityType integration.EntityType, internalID uuid.UUID) (*integration.EntityMapping, error) {
	model, err := firstOr[models.EntityMappingModel](
		r.db.WithContext(ctx).Where("entity_type = ? AND internal_id = ?", entityType, internalID),
		integration.ErrMappingNotFound,
	)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds the mapping pointing at an external record
func (r *GormEntityMappingRepository) FindByExternalID(ctx context.Context, entityType integration.EntityType, externalID string) (*integration.EntityMapping, error) {
	model, err := firstOr[models.EntityMappingModel](
		r.db.WithContext(ctx).Where("entity_type = ? AND external_id = ?", entityType, externalID),
		integration.ErrMappingNotFound,
	)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountByType counts mappings of one entity type
func (r *GormEntityMappingRepository) CountByType(ctx context.Context, entityType integration.EntityType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EntityMappingModel{}).
		Where("entity_type = ?", entityType).
		Count(&count).Error
	return count, err
}

// FindUnmappedPayments lists payments that have no payment mapping
func (r *GormEntityMappingRepository) FindUnmappedPayments(ctx context.Context, since time.Time, limit int) ([]integration.UnmappedPayment, error) {
	var rows []integration.UnmappedPayment
	err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("p.id AS payment_id, p.invoice_id AS invoice_id, p.payment_number AS payment_number").
		Where("p.created_at >= ?", since).
		Where("NOT EXISTS (SELECT 1 FROM entity_mappings m WHERE m.entity_type = ? AND m.internal_id = p.id)",
			integration.EntityTypePayment).
		Order("p.created_at ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ---------------------------------------------------------------------------
// EntityMappingWriter implementation
// ---------------------------------------------------------------------------

// Save upserts on (entity_type, internal_id). A concurrent insert for the same
// record turns into an update of the external reference, so the pair stays unique.
func (r *GormEntityMappingRepository) Save(ctx context.Context, mapping *integration.EntityMapping) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "entity_type"}, {Name: "internal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"external_id", "sync_token", "sync_status", "last_synced_at", "updated_at",
			}),
		}).
		Create(models.EntityMappingModelFromDomain(mapping)).Error
}

var (
	_ integration.EntityMappingRepository = (*GormEntityMappingRepository)(nil)
	_ integration.UnmappedPaymentFinder   = (*GormEntityMappingRepository)(nil)
)
