package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductionOrderRepository implements ProductionOrderRepository using GORM
type GormProductionOrderRepository struct {
	db *gorm.DB
}

// NewGormProductionOrderRepository creates a new GormProductionOrderRepository
func NewGormProductionOrderRepository(db *gorm.DB) *GormProductionOrderRepository {
	return &GormProductionOrderRepository{db: db}
}

// FindByID finds a production order by ID
func (r *GormProductionOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a production order by ID and locks the row
func (r *GormProductionOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormProductionOrderRepository) first(db *gorm.DB, id uuid.UUID) (*production.ProductionOrder, error) {
	var model models.ProductionOrderModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a production order
func (r *GormProductionOrderRepository) Save(ctx context.Context, order *production.ProductionOrder) error {
	return r.db.WithContext(ctx).Save(models.ProductionOrderModelFromDomain(order)).Error
}

// SaveWithLock saves the payment flags with optimistic locking (checks version)
func (r *GormProductionOrderRepository) SaveWithLock(ctx context.Context, order *production.ProductionOrder) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductionOrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.ExpectedVersion()).
		Updates(map[string]any{
			"status":             order.Status,
			"deposit_paid":       order.DepositPaid,
			"final_payment_paid": order.FinalPaymentPaid,
			"deposit_paid_at":    order.DepositPaidAt,
			"final_paid_at":      order.FinalPaidAt,
			"version":            order.Version,
			"updated_at":         order.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeOptimisticLock, "Production order was modified by another transaction")
	}
	return nil
}

// GormOrderedItemRepository implements OrderedItemRepository using GORM
type GormOrderedItemRepository struct {
	db *gorm.DB
}

// NewGormOrderedItemRepository creates a new GormOrderedItemRepository
func NewGormOrderedItemRepository(db *gorm.DB) *GormOrderedItemRepository {
	return &GormOrderedItemRepository{db: db}
}

// CreateBatch inserts the production units of an order in one statement per batch
func (r *GormOrderedItemRepository) CreateBatch(ctx context.Context, items []production.OrderedItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.OrderedItemModel, len(items))
	for i, item := range items {
		rows[i] = models.OrderedItemModelFromDomain(item)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 500).Error
}

// FindByProductionOrder lists an order's units by sequence
func (r *GormOrderedItemRepository) FindByProductionOrder(ctx context.Context, orderID uuid.UUID) ([]production.OrderedItem, error) {
	var rows []models.OrderedItemModel
	if err := r.db.WithContext(ctx).
		Where("production_order_id = ?", orderID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]production.OrderedItem, len(rows))
	for i, row := range rows {
		items[i] = row.ToDomain()
	}
	return items, nil
}

// CountByProductionOrder counts an order's units
func (r *GormOrderedItemRepository) CountByProductionOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderedItemModel{}).
		Where("production_order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

// GormProjectRepository reads projects
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var (
	_ production.ProductionOrderRepository = (*GormProductionOrderRepository)(nil)
	_ production.OrderedItemRepository     = (*GormOrderedItemRepository)(nil)
	_ production.ProjectReader             = (*GormProjectRepository)(nil)
)
