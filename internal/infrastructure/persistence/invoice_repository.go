package persistence

import (
	"context"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds an invoice by ID and locks the row until the transaction ends
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindByInvoiceNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*finance.Invoice, error) {
	return r.first(r.db.WithContext(ctx), "invoice_number = ?", invoiceNumber)
}

// FindOverdueCandidates lists unpaid invoices past their due date
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]finance.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []finance.InvoiceStatus{
			finance.InvoiceStatusPendingPayment,
			finance.InvoiceStatusPartialPayment,
		}).
		Where("due_date IS NOT NULL AND due_date < ?", asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]finance.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

func (r *GormInvoiceRepository) first(db *gorm.DB, query string, args ...any) (*finance.Invoice, error) {
	model, err := firstOr[models.InvoiceModel](db.Where(query, args...), shared.ErrNotFound)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an invoice without a version check
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	return r.db.WithContext(ctx).Save(models.InvoiceModelFromDomain(invoice)).Error
}

// SaveWithLock updates an invoice only if the stored version is the one it was loaded with
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *finance.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.ExpectedVersion()).
		Updates(map[string]any{
			"amount_paid":   invoice.AmountPaid,
			"amount_due":    invoice.AmountDue,
			"status":        invoice.Status,
			"paid_date":     invoice.PaidDate,
			"cancelled_at":  invoice.CancelledAt,
			"cancel_reason": invoice.CancelReason,
			"version":       invoice.Version,
			"updated_at":    invoice.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeOptimisticLock, "Invoice was modified by another transaction")
	}
	return nil
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)
