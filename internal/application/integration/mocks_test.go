package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/domain/partner"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountingService is a mock implementation of integration.AccountingService
type MockAccountingService struct {
	mock.Mock
}

func (m *MockAccountingService) CreateCustomer(ctx context.Context, cred *integration.Credential, customer integration.ExternalCustomer) (integration.ExternalRef, integration.Exchange, error) {
	args := m.Called(ctx, cred, customer)
	return args.Get(0).(integration.ExternalRef), args.Get(1).(integration.Exchange), args.Error(2)
}

func (m *MockAccountingService) CreateInvoice(ctx context.Context, cred *integration.Credential, invoice integration.ExternalInvoice) (integration.ExternalRef, integration.Exchange, error) {
	args := m.Called(ctx, cred, invoice)
	return args.Get(0).(integration.ExternalRef), args.Get(1).(integration.Exchange), args.Error(2)
}

func (m *MockAccountingService) UpdateInvoice(ctx context.Context, cred *integration.Credential, invoice integration.ExternalInvoice) (integration.ExternalRef, integration.Exchange, error) {
	args := m.Called(ctx, cred, invoice)
	return args.Get(0).(integration.ExternalRef), args.Get(1).(integration.Exchange), args.Error(2)
}

func (m *MockAccountingService) CreatePayment(ctx context.Context, cred *integration.Credential, payment integration.ExternalPayment) (integration.ExternalRef, integration.Exchange, error) {
	args := m.Called(ctx, cred, payment)
	return args.Get(0).(integration.ExternalRef), args.Get(1).(integration.Exchange), args.Error(2)
}

// MockCredentialProvider is a mock implementation of integration.CredentialProvider
type MockCredentialProvider struct {
	mock.Mock
}

func (m *MockCredentialProvider) Credential(ctx context.Context) (*integration.Credential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Credential), args.Error(1)
}

func (m *MockCredentialProvider) Status(ctx context.Context) (integration.ConnectionStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(integration.ConnectionStatus), args.Error(1)
}

// MockSyncer is a mock implementation of Syncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) SyncInvoice(ctx context.Context, invoiceID uuid.UUID) (*integration.InvoiceSyncResult, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.InvoiceSyncResult), args.Error(1)
}

func (m *MockSyncer) SyncPayment(ctx context.Context, paymentID uuid.UUID) (*integration.PaymentSyncResult, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PaymentSyncResult), args.Error(1)
}

// memoryMappings is an in-memory integration.EntityMappingRepository
type memoryMappings struct {
	mu      sync.Mutex
	byKey   map[string]integration.EntityMapping
	saveErr error
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{byKey: make(map[string]integration.EntityMapping)}
}

func mappingKey(entityType integration.EntityType, id uuid.UUID) string {
	return string(entityType) + "/" + id.String()
}

func (r *memoryMappings) FindByEntity(_ context.Context, entityType integration.EntityType, internalID uuid.UUID) (*integration.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byKey[mappingKey(entityType, internalID)]
	if !ok {
		return nil, integration.ErrMappingNotFound
	}
	return &m, nil
}

func (r *memoryMappings) FindByExternalID(_ context.Context, entityType integration.EntityType, externalID string) (*integration.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byKey {
		if m.EntityType == entityType && m.ExternalID == externalID {
			found := m
			return &found, nil
		}
	}
	return nil, integration.ErrMappingNotFound
}

func (r *memoryMappings) CountByType(_ context.Context, entityType integration.EntityType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.byKey {
		if m.EntityType == entityType {
			n++
		}
	}
	return n, nil
}

func (r *memoryMappings) Save(_ context.Context, mapping *integration.EntityMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.byKey[mappingKey(mapping.EntityType, mapping.InternalID)] = *mapping
	return nil
}

func (r *memoryMappings) put(entityType integration.EntityType, id uuid.UUID, externalID, token string) {
	m, _ := integration.NewEntityMapping(entityType, id, integration.ExternalRef{ID: externalID, SyncToken: token})
	r.byKey[mappingKey(entityType, id)] = *m
}

// memorySyncLog is an in-memory integration.SyncLogRepository
type memorySyncLog struct {
	mu      sync.Mutex
	entries []integration.SyncLogEntry
}

func (r *memorySyncLog) Append(_ context.Context, entry *integration.SyncLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memorySyncLog) FindByEntity(_ context.Context, entityID uuid.UUID, limit int) ([]integration.SyncLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []integration.SyncLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if r.entries[i].EntityID == entityID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

func (r *memorySyncLog) Stats(_ context.Context) (integration.SyncLogStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats integration.SyncLogStats
	for _, e := range r.entries {
		stats.Total++
		switch e.Status {
		case integration.SyncLogStatusCompleted:
			stats.Completed++
		case integration.SyncLogStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (r *memorySyncLog) all() []integration.SyncLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]integration.SyncLogEntry(nil), r.entries...)
}

// store holds the ledger records the sync service reads
type store struct {
	invoices  map[uuid.UUID]*finance.Invoice
	payments  map[uuid.UUID]*finance.Payment
	orders    map[uuid.UUID]*production.ProductionOrder
	projects  map[uuid.UUID]*production.Project
	customers map[uuid.UUID]*partner.Customer
}

func find[T any](m map[uuid.UUID]*T, id uuid.UUID) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return v, nil
}

type storeInvoices struct{ *store }

func (r storeInvoices) FindByID(_ context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return find(r.invoices, id)
}
func (r storeInvoices) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return r.FindByID(ctx, id)
}
func (r storeInvoices) FindByInvoiceNumber(_ context.Context, number string) (*finance.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}
func (r storeInvoices) FindOverdueCandidates(context.Context, time.Time, int) ([]finance.Invoice, error) {
	return nil, nil
}
func (r storeInvoices) Save(_ context.Context, inv *finance.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}
func (r storeInvoices) SaveWithLock(ctx context.Context, inv *finance.Invoice) error {
	return r.Save(ctx, inv)
}

type storePayments struct{ *store }

func (r storePayments) FindByID(_ context.Context, id uuid.UUID) (*finance.Payment, error) {
	return find(r.payments, id)
}
func (r storePayments) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]finance.Payment, error) {
	var result []finance.Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			result = append(result, *p)
		}
	}
	return result, nil
}
func (r storePayments) Create(_ context.Context, p *finance.Payment) error {
	r.payments[p.ID] = p
	return nil
}

type storeOrders struct{ *store }

func (r storeOrders) FindByID(_ context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	return find(r.orders, id)
}
func (r storeOrders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	return r.FindByID(ctx, id)
}
func (r storeOrders) Save(_ context.Context, o *production.ProductionOrder) error {
	r.orders[o.ID] = o
	return nil
}
func (r storeOrders) SaveWithLock(ctx context.Context, o *production.ProductionOrder) error {
	return r.Save(ctx, o)
}

type storeProjects struct{ *store }

func (r storeProjects) FindByID(_ context.Context, id uuid.UUID) (*production.Project, error) {
	return find(r.projects, id)
}

type storeCustomers struct{ *store }

func (r storeCustomers) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	return find(r.customers, id)
}

// syncFixture is an invoice with its full relation chain and one payment
type syncFixture struct {
	store      *store
	accounting *MockAccountingService
	creds      *MockCredentialProvider
	mappings   *memoryMappings
	syncLogs   *memorySyncLog
	cred       *integration.Credential
	customer   *partner.Customer
	project    *production.Project
	order      *production.ProductionOrder
	invoice    *finance.Invoice
	payment    *finance.Payment
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	customer, err := partner.NewCustomer("Jordan Reyes")
	require.NoError(t, err)
	customer.CompanyName = "Reyes Fabrication"
	customer.FirstName = "Jordan"
	customer.LastName = "Reyes"
	customer.Email = "jordan@reyesfab.example"
	customer.Phone = "555-0100"

	project := &production.Project{BaseEntity: shared.NewBaseEntity(), Name: "Spring line", CustomerID: &customer.ID}

	order, err := production.NewProductionOrder("PO-2026-014", &project.ID, 12)
	require.NoError(t, err)

	invoice, err := finance.NewInvoice("INV-2026-031", finance.InvoiceTypeDeposit, &order.ID, decimal.NewFromInt(1000), nil,
		finance.NewInvoiceLineItem("Deposit, 12 units", decimal.NewFromInt(1), decimal.NewFromInt(1000)),
	)
	require.NoError(t, err)

	payment, err := finance.NewPayment("PAY-2026-0007", invoice, decimal.NewFromInt(400), finance.PaymentMethodACH, "ACH-88123", "")
	require.NoError(t, err)

	f := &syncFixture{
		store: &store{
			invoices:  map[uuid.UUID]*finance.Invoice{invoice.ID: invoice},
			payments:  map[uuid.UUID]*finance.Payment{payment.ID: payment},
			orders:    map[uuid.UUID]*production.ProductionOrder{order.ID: order},
			projects:  map[uuid.UUID]*production.Project{project.ID: project},
			customers: map[uuid.UUID]*partner.Customer{customer.ID: customer},
		},
		accounting: new(MockAccountingService),
		creds:      new(MockCredentialProvider),
		mappings:   newMemoryMappings(),
		syncLogs:   &memorySyncLog{},
		cred:       &integration.Credential{ID: uuid.New(), RealmID: "9130", AccessToken: "at", IsActive: true},
		customer:   customer,
		project:    project,
		order:      order,
		invoice:    invoice,
		payment:    payment,
	}
	return f
}

func (f *syncFixture) deps() SyncDependencies {
	return SyncDependencies{
		Credentials: f.creds,
		Accounting:  f.accounting,
		Mappings:    f.mappings,
		SyncLogs:    f.syncLogs,
		Invoices:    storeInvoices{f.store},
		Payments:    storePayments{f.store},
		Orders:      storeOrders{f.store},
		Projects:    storeProjects{f.store},
		Customers:   storeCustomers{f.store},
	}
}

func (f *syncFixture) service(t *testing.T, cfg SyncConfig) *AccountingSyncService {
	t.Helper()
	svc, err := NewAccountingSyncService(f.deps(), cfg)
	require.NoError(t, err)
	return svc
}

// backlogFinder returns a fixed list of unmapped payments
type backlogFinder struct {
	pending []integration.UnmappedPayment
	since   time.Time
}

func (b *backlogFinder) FindUnmappedPayments(_ context.Context, since time.Time, limit int) ([]integration.UnmappedPayment, error) {
	b.since = since
	if limit < len(b.pending) {
		return b.pending[:limit], nil
	}
	return b.pending, nil
}
