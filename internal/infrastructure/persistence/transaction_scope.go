package persistence

import (
	"context"

	appfinance "github.com/erp/ledgersync/internal/application/finance"
	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Domain events published through the scope land in the outbox table of the
// same transaction.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox *event.OutboxPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, outbox *event.OutboxPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox *event.OutboxPublisher
}

func (r *gormTransactionalRepositories) Invoices() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentNumbers() finance.PaymentNumberGenerator {
	return NewGormPaymentNumberGenerator(r.tx)
}

func (r *gormTransactionalRepositories) ProductionOrders() production.ProductionOrderRepository {
	return NewGormProductionOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderedItems() production.OrderedItemRepository {
	return NewGormOrderedItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) Events() shared.EventPublisher {
	return &txOutboxPublisher{tx: r.tx, outbox: r.outbox}
}

// txOutboxPublisher binds the outbox publisher to one transaction
type txOutboxPublisher struct {
	tx     *gorm.DB
	outbox *event.OutboxPublisher
}

func (p *txOutboxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return p.outbox.PublishWithTx(ctx, p.tx, events...)
}

var (
	_ appfinance.TransactionScope          = (*GormTransactionScope)(nil)
	_ appfinance.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
