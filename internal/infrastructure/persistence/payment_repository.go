package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	model, err := firstOr[models.PaymentModel](r.db.WithContext(ctx).Where("id = ?", id), shared.ErrNotFound)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists an invoice's payments in the order they were received
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]finance.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Create inserts a payment. Payments are never updated.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeConflict,
				fmt.Sprintf("Payment number %s already exists", payment.PaymentNumber))
		}
		return err
	}
	return nil
}

// nextPaymentSequenceSQL bumps the per-year counter atomically. The first payment
// of a year seeds the counter from payments already carrying the year's prefix.
const nextPaymentSequenceSQL = `INSERT INTO payment_sequences (year, last_value)
VALUES (?, (SELECT COUNT(*) FROM payments WHERE payment_number LIKE ?) + 1)
ON CONFLICT (year) DO UPDATE SET last_value = payment_sequences.last_value + 1
RETURNING last_value`

// GormPaymentNumberGenerator issues PAY-<year>-<seq> numbers from the payment_sequences table
type GormPaymentNumberGenerator struct {
	db *gorm.DB
}

// NewGormPaymentNumberGenerator creates a new GormPaymentNumberGenerator
func NewGormPaymentNumberGenerator(db *gorm.DB) *GormPaymentNumberGenerator {
	return &GormPaymentNumberGenerator{db: db}
}

// NextPaymentNumber returns the next unused payment number for year
func (g *GormPaymentNumberGenerator) NextPaymentNumber(ctx context.Context, year int) (string, error) {
	var seq int64
	if err := g.db.WithContext(ctx).
		Raw(nextPaymentSequenceSQL, year, finance.PaymentNumberYearPrefix(year)+"%").
		Scan(&seq).Error; err != nil {
		return "", fmt.Errorf("failed to allocate payment number: %w", err)
	}
	if seq <= 0 {
		return "", fmt.Errorf("failed to allocate payment number: sequence returned %d", seq)
	}
	return finance.FormatPaymentNumber(year, int(seq)), nil
}

var (
	_ finance.PaymentRepository      = (*GormPaymentRepository)(nil)
	_ finance.PaymentNumberGenerator = (*GormPaymentNumberGenerator)(nil)
)
