package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/erp/ledgersync/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedInvoice(t *testing.T, db *gorm.DB, number string, invoiceType finance.InvoiceType, total string, orderID *uuid.UUID) *finance.Invoice {
	t.Helper()
	inv, err := finance.NewInvoice(number, invoiceType, orderID, decimal.RequireFromString(total), nil,
		finance.NewInvoiceLineItem("Production run", decimal.NewFromInt(1), decimal.RequireFromString(total)))
	require.NoError(t, err)
	require.NoError(t, NewGormInvoiceRepository(db).Save(context.Background(), inv))
	return inv
}

func seedOrder(t *testing.T, db *gorm.DB, number string, quantity int) *production.ProductionOrder {
	t.Helper()
	order, err := production.NewProductionOrder(number, nil, quantity)
	require.NoError(t, err)
	require.NoError(t, NewGormProductionOrderRepository(db).Save(context.Background(), order))
	return order
}

func TestGormInvoiceRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := seedInvoice(t, db, "INV-2026-0001", finance.InvoiceTypeDeposit, "1250.50", nil)

	t.Run("round trips line items and money", func(t *testing.T) {
		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-0001", found.InvoiceNumber)
		assert.True(t, found.Total.Equal(decimal.RequireFromString("1250.50")))
		assert.True(t, found.AmountDue.Equal(found.Total))
		require.Len(t, found.LineItems, 1)
		assert.Equal(t, "Production run", found.LineItems[0].Description)

		byNumber, err := repo.FindByInvoiceNumber(ctx, "INV-2026-0001")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, byNumber.ID)
	})

	t.Run("missing invoice", func(t *testing.T) {
		_, err := repo.FindByIDForUpdate(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save with lock checks the version", func(t *testing.T) {
		first, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)

		payment, err := finance.NewPayment("PAY-2026-0001", first, decimal.NewFromInt(100), finance.PaymentMethodCash, "", "")
		require.NoError(t, err)
		_, err = first.ApplyPayment(payment)
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, first))

		payment2, err := finance.NewPayment("PAY-2026-0002", second, decimal.NewFromInt(50), finance.PaymentMethodCash, "", "")
		require.NoError(t, err)
		_, err = second.ApplyPayment(payment2)
		require.NoError(t, err)
		err = repo.SaveWithLock(ctx, second)
		assert.Equal(t, shared.CodeOptimisticLock, shared.ErrorCode(err))

		stored, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, finance.InvoiceStatusPartialPayment, stored.Status)
		assert.Equal(t, 2, stored.Version)
	})
}

func TestGormInvoiceRepository_FindOverdueCandidates(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	save := func(number string, due *time.Time, status finance.InvoiceStatus) {
		inv, err := finance.NewInvoice(number, finance.InvoiceTypeFinal, nil, decimal.NewFromInt(300), due)
		require.NoError(t, err)
		inv.Status = status
		require.NoError(t, repo.Save(ctx, inv))
	}
	past := func(days int) *time.Time {
		d := asOf.AddDate(0, 0, -days)
		return &d
	}

	save("INV-A", past(3), finance.InvoiceStatusPendingPayment)
	save("INV-B", past(30), finance.InvoiceStatusPartialPayment)
	save("INV-C", past(5), finance.InvoiceStatusPaid)
	save("INV-D", past(8), finance.InvoiceStatusOverdue)
	save("INV-E", past(-4), finance.InvoiceStatusPendingPayment)
	save("INV-F", nil, finance.InvoiceStatusPendingPayment)

	found, err := repo.FindOverdueCandidates(ctx, asOf, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "INV-B", found[0].InvoiceNumber)
	assert.Equal(t, "INV-A", found[1].InvoiceNumber)

	limited, err := repo.FindOverdueCandidates(ctx, asOf, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "INV-B", limited[0].InvoiceNumber)
}

func TestGormPaymentRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	inv := seedInvoice(t, db, "INV-2026-0002", finance.InvoiceTypeOther, "300", nil)

	first, err := finance.NewPayment("PAY-2026-0001", inv, decimal.NewFromInt(100), finance.PaymentMethodCheck, "CHK-1", "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := finance.NewPayment("PAY-2026-0002", inv, decimal.NewFromInt(50), finance.PaymentMethodCash, "", "")
	require.NoError(t, err)
	second.PaidAt = first.PaidAt.Add(time.Minute)
	require.NoError(t, repo.Create(ctx, second))

	payments, err := repo.FindByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "PAY-2026-0001", payments[0].PaymentNumber)
	assert.Equal(t, "CHK-1", payments[0].TransactionRef)

	found, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentStatusCompleted, found.Status)

	duplicate, err := finance.NewPayment("PAY-2026-0001", inv, decimal.NewFromInt(1), finance.PaymentMethodCash, "", "")
	require.NoError(t, err)
	err = repo.Create(ctx, duplicate)
	assert.Equal(t, shared.CodeConflict, shared.ErrorCode(err))
}

func TestGormPaymentNumberGenerator_SQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	gen := NewGormPaymentNumberGenerator(db)
	ctx := context.Background()

	inv := seedInvoice(t, db, "INV-2025-0100", finance.InvoiceTypeOther, "100", nil)
	for _, number := range []string{"PAY-2025-0001", "PAY-2025-0002"} {
		p, err := finance.NewPayment(number, inv, decimal.NewFromInt(1), finance.PaymentMethodCash, "", "")
		require.NoError(t, err)
		require.NoError(t, NewGormPaymentRepository(db).Create(ctx, p))
	}

	t.Run("first number of a year continues after existing payments", func(t *testing.T) {
		number, err := gen.NextPaymentNumber(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, "PAY-2025-0003", number)

		number, err = gen.NextPaymentNumber(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, "PAY-2025-0004", number)
	})

	t.Run("years are counted independently", func(t *testing.T) {
		number, err := gen.NextPaymentNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "PAY-2026-0001", number)
	})
}

func TestGormPaymentNumberGenerator_Postgres(t *testing.T) {
	mock := testutil.NewMockDB(t)
	gen := NewGormPaymentNumberGenerator(mock.DB)

	mock.Mock.ExpectQuery(`(?s)INSERT INTO payment_sequences .* ON CONFLICT \(year\) DO UPDATE .* RETURNING last_value`).
		WithArgs(2026, "PAY-2026-%").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(42))

	number, err := gen.NextPaymentNumber(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, "PAY-2026-0042", number)
	mock.ExpectationsWereMet(t)
}

func TestGormProductionRepositories(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	orders := NewGormProductionOrderRepository(db)
	items := NewGormOrderedItemRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "PO-2026-0001", 3)

	loaded, err := orders.FindByIDForUpdate(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, loaded.MarkDepositPaid(time.Now()))
	require.NoError(t, orders.SaveWithLock(ctx, loaded))

	stale, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	stale.Version = 1
	err = orders.SaveWithLock(ctx, stale)
	assert.Equal(t, shared.CodeOptimisticLock, shared.ErrorCode(err), "version 0 no longer matches")

	require.NoError(t, items.CreateBatch(ctx, loaded.NewOrderedItems()))
	count, err := items.CountByProductionOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	list, err := items.FindByProductionOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "PO-2026-0001-001", list[0].SKU)
	assert.Equal(t, production.QCStatusPending, list[2].QCStatus)

	assert.Error(t, items.CreateBatch(ctx, loaded.NewOrderedItems()), "SKUs are unique")
	assert.NoError(t, items.CreateBatch(ctx, nil))

	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.DepositPaid)
	assert.Equal(t, production.OrderStatusInProgress, stored.Status)
}

func TestGormReadRepositories(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	customerID := uuid.New()
	now := time.Now()
	require.NoError(t, db.Create(&models.CustomerModel{
		BaseModel:   models.BaseModel{ID: customerID, CreatedAt: now, UpdatedAt: now},
		Name:        "acme",
		CompanyName: "Acme Fabrication",
	}).Error)
	projectID := uuid.New()
	require.NoError(t, db.Create(&models.ProjectModel{
		BaseModel:  models.BaseModel{ID: projectID, CreatedAt: now, UpdatedAt: now},
		Name:       "Lobby signage",
		CustomerID: &customerID,
	}).Error)

	project, err := NewGormProjectRepository(db).FindByID(ctx, projectID)
	require.NoError(t, err)
	assert.True(t, project.HasCustomer())

	customer, err := NewGormCustomerRepository(db).FindByID(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Fabrication", customer.DisplayName())

	_, err = NewGormCustomerRepository(db).FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormEntityMappingRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormEntityMappingRepository(db)
	ctx := context.Background()
	invoiceID := uuid.New()

	_, err := repo.FindByEntity(ctx, integration.EntityTypeInvoice, invoiceID)
	assert.ErrorIs(t, err, integration.ErrMappingNotFound)

	mapping, err := integration.NewEntityMapping(integration.EntityTypeInvoice, invoiceID, integration.ExternalRef{ID: "145", SyncToken: "0"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, mapping))

	// a second mapping for the same record updates the existing row
	again, err := integration.NewEntityMapping(integration.EntityTypeInvoice, invoiceID, integration.ExternalRef{ID: "145", SyncToken: "1"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, again))

	found, err := repo.FindByEntity(ctx, integration.EntityTypeInvoice, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, mapping.ID, found.ID)
	assert.Equal(t, "1", found.SyncToken)

	byExternal, err := repo.FindByExternalID(ctx, integration.EntityTypeInvoice, "145")
	require.NoError(t, err)
	assert.Equal(t, invoiceID, byExternal.InternalID)

	_, err = repo.FindByExternalID(ctx, integration.EntityTypePayment, "145")
	assert.ErrorIs(t, err, integration.ErrMappingNotFound)

	count, err := repo.CountByType(ctx, integration.EntityTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormEntityMappingRepository_FindUnmappedPayments(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	mappings := NewGormEntityMappingRepository(db)
	payments := NewGormPaymentRepository(db)
	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	inv := seedInvoice(t, db, "INV-2026-0040", finance.InvoiceTypeOther, "1000", nil)
	record := func(number string, createdAt time.Time) *finance.Payment {
		p, err := finance.NewPayment(number, inv, decimal.NewFromInt(100), finance.PaymentMethodACH, "", "")
		require.NoError(t, err)
		p.CreatedAt = createdAt
		require.NoError(t, payments.Create(ctx, p))
		return p
	}

	old := record("PAY-2026-0001", since.Add(-time.Hour))
	mapped := record("PAY-2026-0002", since.Add(time.Hour))
	second := record("PAY-2026-0004", since.Add(3*time.Hour))
	first := record("PAY-2026-0003", since.Add(2*time.Hour))

	m, err := integration.NewEntityMapping(integration.EntityTypePayment, mapped.ID, integration.ExternalRef{ID: "301", SyncToken: "0"})
	require.NoError(t, err)
	require.NoError(t, mappings.Save(ctx, m))

	// A mapping of another type with the same id must not hide the payment
	other, err := integration.NewEntityMapping(integration.EntityTypeInvoice, first.ID, integration.ExternalRef{ID: "145"})
	require.NoError(t, err)
	require.NoError(t, mappings.Save(ctx, other))

	found, err := mappings.FindUnmappedPayments(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, first.ID, found[0].PaymentID)
	assert.Equal(t, inv.ID, found[0].InvoiceID)
	assert.Equal(t, "PAY-2026-0003", found[0].PaymentNumber)
	assert.Equal(t, second.ID, found[1].PaymentID)

	for _, p := range found {
		assert.NotEqual(t, old.ID, p.PaymentID)
	}

	limited, err := mappings.FindUnmappedPayments(ctx, since, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormSyncLogRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()
	entityID := uuid.New()
	base := time.Now().Add(-time.Hour)

	for i, fail := range []bool{true, false, false} {
		entry := integration.NewSyncLogEntry(integration.EntityTypeInvoice, entityID, integration.SyncActionCreate)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		exchange := integration.Exchange{Request: []byte(`{"DocNumber":"INV-1"}`)}
		if fail {
			entry.Fail(integration.ErrExternalUnavailable, exchange)
		} else {
			entry.Complete("145", exchange)
		}
		require.NoError(t, repo.Append(ctx, entry))
	}
	other := integration.NewSyncLogEntry(integration.EntityTypePayment, uuid.New(), integration.SyncActionCreate)
	other.Complete("200", integration.Exchange{})
	require.NoError(t, repo.Append(ctx, other))

	history, err := repo.FindByEntity(ctx, entityID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt), "newest first")
	assert.Equal(t, integration.SyncLogStatusCompleted, history[0].Status)

	all, err := repo.FindByEntity(ctx, entityID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, integration.SyncLogStatusFailed, all[2].Status)
	assert.Contains(t, all[2].ErrorMessage, "unavailable")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncLogStats{Total: 4, Completed: 3, Failed: 1}, stats)
}

func TestGormCredentialRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormCredentialRepository(db)
	ctx := context.Background()

	_, err := repo.FindActive(ctx)
	assert.ErrorIs(t, err, integration.ErrCredentialNotFound)

	now := time.Now()
	old := &integration.Credential{
		ID: uuid.New(), RealmID: "111", AccessToken: "a1", RefreshToken: "r1",
		AccessTokenExpiresAt: now.Add(time.Hour), IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Save(ctx, old))

	replacement := &integration.Credential{
		ID: uuid.New(), RealmID: "222", AccessToken: "a2", RefreshToken: "r2",
		AccessTokenExpiresAt: now.Add(time.Hour), IsActive: true, CreatedAt: now, UpdatedAt: now.Add(time.Second),
	}
	require.NoError(t, repo.Save(ctx, replacement))

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "222", active.RealmID)

	var activeCount int64
	require.NoError(t, db.Model(&models.CredentialModel{}).Where("is_active = ?", true).Count(&activeCount).Error)
	assert.Equal(t, int64(1), activeCount)

	active.Rotate("a3", "", now.Add(2*time.Hour), time.Time{})
	require.NoError(t, repo.Save(ctx, active))

	rotated, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a3", rotated.AccessToken)
	assert.Equal(t, "r2", rotated.RefreshToken)
}
