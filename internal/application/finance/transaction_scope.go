package finance

import (
	"context"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within a transaction.
//
// Events publishes to the transactional outbox: events are stored with the
// ledger rows and delivered to handlers only after commit.
type TransactionalRepositories interface {
	Invoices() finance.InvoiceRepository
	Payments() finance.PaymentRepository
	PaymentNumbers() finance.PaymentNumberGenerator
	ProductionOrders() production.ProductionOrderRepository
	OrderedItems() production.OrderedItemRepository
	Events() shared.EventPublisher
}
