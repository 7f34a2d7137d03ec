package finance

import (
	"context"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of finance.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*finance.Invoice, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]finance.Invoice, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *finance.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

// MockPaymentRepository is a mock implementation of finance.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]finance.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

// MockPaymentNumberGenerator is a mock implementation of finance.PaymentNumberGenerator
type MockPaymentNumberGenerator struct {
	mock.Mock
}

func (m *MockPaymentNumberGenerator) NextPaymentNumber(ctx context.Context, year int) (string, error) {
	args := m.Called(ctx, year)
	return args.String(0), args.Error(1)
}

// MockProductionOrderRepository is a mock implementation of production.ProductionOrderRepository
type MockProductionOrderRepository struct {
	mock.Mock
}

func (m *MockProductionOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*production.ProductionOrder), args.Error(1)
}

func (m *MockProductionOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*production.ProductionOrder), args.Error(1)
}

func (m *MockProductionOrderRepository) Save(ctx context.Context, order *production.ProductionOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockProductionOrderRepository) SaveWithLock(ctx context.Context, order *production.ProductionOrder) error {
	return m.Called(ctx, order).Error(0)
}

// MockOrderedItemRepository is a mock implementation of production.OrderedItemRepository
type MockOrderedItemRepository struct {
	mock.Mock
}

func (m *MockOrderedItemRepository) CreateBatch(ctx context.Context, items []production.OrderedItem) error {
	return m.Called(ctx, items).Error(0)
}

func (m *MockOrderedItemRepository) FindByProductionOrder(ctx context.Context, orderID uuid.UUID) ([]production.OrderedItem, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]production.OrderedItem), args.Error(1)
}

func (m *MockOrderedItemRepository) CountByProductionOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

// recordingPublisher collects events published inside a transaction
type recordingPublisher struct {
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// mockRepos bundles the mocks as TransactionalRepositories
type mockRepos struct {
	invoices  *MockInvoiceRepository
	payments  *MockPaymentRepository
	numbers   *MockPaymentNumberGenerator
	orders    *MockProductionOrderRepository
	items     *MockOrderedItemRepository
	publisher *recordingPublisher
}

func newMockRepos() *mockRepos {
	return &mockRepos{
		invoices:  new(MockInvoiceRepository),
		payments:  new(MockPaymentRepository),
		numbers:   new(MockPaymentNumberGenerator),
		orders:    new(MockProductionOrderRepository),
		items:     new(MockOrderedItemRepository),
		publisher: &recordingPublisher{},
	}
}

func (r *mockRepos) Invoices() finance.InvoiceRepository                    { return r.invoices }
func (r *mockRepos) Payments() finance.PaymentRepository                    { return r.payments }
func (r *mockRepos) PaymentNumbers() finance.PaymentNumberGenerator         { return r.numbers }
func (r *mockRepos) ProductionOrders() production.ProductionOrderRepository { return r.orders }
func (r *mockRepos) OrderedItems() production.OrderedItemRepository         { return r.items }
func (r *mockRepos) Events() shared.EventPublisher                          { return r.publisher }

func (r *mockRepos) assertExpectations(t mock.TestingT) {
	r.invoices.AssertExpectations(t)
	r.payments.AssertExpectations(t)
	r.numbers.AssertExpectations(t)
	r.orders.AssertExpectations(t)
	r.items.AssertExpectations(t)
}

// passthroughScope runs fn directly against the mock repositories
type passthroughScope struct {
	repos *mockRepos
	calls int
}

func (s *passthroughScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	return fn(s.repos)
}
