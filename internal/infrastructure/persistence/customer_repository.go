package persistence

import (
	"context"

	"github.com/erp/ledgersync/internal/domain/partner"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository is the read side of the customers table. The
// ledger never writes customers; they arrive from the partner module.
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	model, err := firstOr[models.CustomerModel](r.db.WithContext(ctx).Where("id = ?", id), shared.ErrNotFound)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ partner.CustomerReader = (*GormCustomerRepository)(nil)
