package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestLedger() (*LedgerService, *passthroughScope) {
	scope := &passthroughScope{repos: newMockRepos()}
	svc := NewLedgerService(scope, scope.repos.invoices, scope.repos.payments,
		WithClock(func() time.Time { return fixedNow }))
	return svc, scope
}

func newTestInvoice(t *testing.T, invoiceType finance.InvoiceType, total string, orderID *uuid.UUID) *finance.Invoice {
	t.Helper()
	inv, err := finance.NewInvoice("INV-2026-0001", invoiceType, orderID, decimal.RequireFromString(total), nil)
	require.NoError(t, err)
	return inv
}

func newTestOrder(t *testing.T, quantity int) *production.ProductionOrder {
	t.Helper()
	order, err := production.NewProductionOrder("PO-2026-0007", nil, quantity)
	require.NoError(t, err)
	return order
}

func TestLedgerService_RecordPayment_Partial(t *testing.T) {
	svc, scope := newTestLedger()
	repos := scope.repos
	ctx := context.Background()

	inv := newTestInvoice(t, finance.InvoiceTypeOther, "1000.00", nil)
	ref := " CHK-1001 "

	repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0001", nil)
	repos.payments.On("Create", mock.Anything, mock.AnythingOfType("*finance.Payment")).Return(nil)
	repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)

	result, err := svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID:      inv.ID,
		Amount:         decimal.RequireFromString("400"),
		Method:         finance.PaymentMethodCheck,
		TransactionRef: &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, "PAY-2026-0001", result.Payment.PaymentNumber)
	assert.Equal(t, "CHK-1001", result.Payment.TransactionRef)
	assert.Equal(t, finance.InvoiceStatusPartialPayment, result.Invoice.Status)
	assert.True(t, result.Invoice.AmountDue.Equal(decimal.RequireFromString("600")))
	assert.Equal(t, finance.TriggerNone, result.Trigger)
	assert.Nil(t, result.ProductionOrder)
	assert.Equal(t, "Payment of $400.00 recorded on invoice INV-2026-0001. Remaining balance: $600.00.", result.Message)
	assert.Equal(t, []string{finance.EventTypeInvoicePaymentApplied, finance.EventTypePaymentRecorded}, repos.publisher.types())
	assert.Empty(t, result.Invoice.GetDomainEvents(), "events are cleared after commit")
	assert.Equal(t, 1, scope.calls)
	repos.assertExpectations(t)
}

func TestLedgerService_RecordPayment_DepositCreatesUnits(t *testing.T) {
	svc, scope := newTestLedger()
	repos := scope.repos

	order := newTestOrder(t, 3)
	inv := newTestInvoice(t, finance.InvoiceTypeDeposit, "500", &order.ID)

	repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0002", nil)
	repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
	repos.orders.On("FindByIDForUpdate", mock.Anything, order.ID).Return(order, nil)
	repos.orders.On("SaveWithLock", mock.Anything, order).Return(nil)
	repos.items.On("CountByProductionOrder", mock.Anything, order.ID).Return(int64(0), nil)
	repos.items.On("CreateBatch", mock.Anything, mock.MatchedBy(func(items []production.OrderedItem) bool {
		return len(items) == 3 && items[0].SKU == "PO-2026-0007-001" && items[2].SKU == "PO-2026-0007-003"
	})).Return(nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    decimal.RequireFromString("500"),
		Method:    finance.PaymentMethodWire,
	})
	require.NoError(t, err)

	assert.Equal(t, finance.InvoiceStatusPaid, result.Invoice.Status)
	assert.NotNil(t, result.Invoice.PaidDate)
	assert.Equal(t, finance.TriggerDepositPaid, result.Trigger)
	assert.Equal(t, 3, result.UnitsCreated)
	require.NotNil(t, result.ProductionOrder)
	assert.True(t, result.ProductionOrder.DepositPaid)
	assert.Equal(t, production.OrderStatusInProgress, result.ProductionOrder.Status)
	assert.Contains(t, result.Message, "Invoice is now paid in full.")
	assert.Contains(t, result.Message, "3 production units created.")
	assert.Equal(t, []string{
		finance.EventTypeInvoicePaymentApplied,
		finance.EventTypeInvoicePaid,
		finance.EventTypePaymentRecorded,
		production.EventTypeDepositPaid,
	}, repos.publisher.types())
	repos.assertExpectations(t)
}

func TestLedgerService_RecordPayment_DepositWithExistingUnits(t *testing.T) {
	svc, scope := newTestLedger()
	repos := scope.repos

	order := newTestOrder(t, 2)
	inv := newTestInvoice(t, finance.InvoiceTypeDeposit, "200", &order.ID)

	repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0003", nil)
	repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
	repos.orders.On("FindByIDForUpdate", mock.Anything, order.ID).Return(order, nil)
	repos.orders.On("SaveWithLock", mock.Anything, order).Return(nil)
	repos.items.On("CountByProductionOrder", mock.Anything, order.ID).Return(int64(2), nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    decimal.RequireFromString("200"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.UnitsCreated)
	assert.Equal(t, finance.PaymentMethodOther, result.Payment.Method)
	assert.NotContains(t, result.Message, "units created")
	repos.items.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	repos.assertExpectations(t)
}

func TestLedgerService_RecordPayment_DepositAlreadyApplied(t *testing.T) {
	svc, scope := newTestLedger()
	repos := scope.repos

	order := newTestOrder(t, 2)
	require.True(t, order.MarkDepositPaid(fixedNow))
	order.ClearDomainEvents()
	inv := newTestInvoice(t, finance.InvoiceTypeDeposit, "200", &order.ID)

	repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0004", nil)
	repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
	repos.orders.On("FindByIDForUpdate", mock.Anything, order.ID).Return(order, nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    decimal.RequireFromString("200"),
	})
	require.NoError(t, err)

	assert.Equal(t, finance.TriggerDepositPaid, result.Trigger)
	assert.NotContains(t, result.Message, "Deposit received")
	repos.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	repos.items.AssertNotCalled(t, "CountByProductionOrder", mock.Anything, mock.Anything)
	assert.NotContains(t, repos.publisher.types(), production.EventTypeDepositPaid)
}

func TestLedgerService_RecordPayment_FinalPaid(t *testing.T) {
	svc, scope := newTestLedger()
	repos := scope.repos

	order := newTestOrder(t, 5)
	inv := newTestInvoice(t, finance.InvoiceTypeFinal, "750", &order.ID)

	repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0005", nil)
	repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
	repos.orders.On("FindByIDForUpdate", mock.Anything, order.ID).Return(order, nil)
	repos.orders.On("SaveWithLock", mock.Anything, order).Return(nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    decimal.RequireFromString("750"),
		Method:    finance.PaymentMethodACH,
	})
	require.NoError(t, err)

	assert.Equal(t, finance.TriggerFinalPaid, result.Trigger)
	assert.True(t, result.ProductionOrder.FinalPaymentPaid)
	assert.Equal(t, production.OrderStatusFinalPaid, result.ProductionOrder.Status)
	assert.Contains(t, result.Message, "Final payment received for production order PO-2026-0007")
	assert.Contains(t, repos.publisher.types(), production.EventTypeFinalPaid)
	repos.items.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	repos.assertExpectations(t)
}

func TestLedgerService_RecordPayment_MissingOrderIsSkipped(t *testing.T) {
	svc, scope := newTestLedger()
	repos := scope.repos

	orderID := uuid.New()
	inv := newTestInvoice(t, finance.InvoiceTypeDeposit, "100", &orderID)

	repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
	repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0006", nil)
	repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
	repos.orders.On("FindByIDForUpdate", mock.Anything, orderID).Return(nil, shared.ErrNotFound)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	assert.Nil(t, result.ProductionOrder)
	assert.Equal(t, finance.InvoiceStatusPaid, result.Invoice.Status)
}

func TestLedgerService_RecordPayment_Rejections(t *testing.T) {
	t.Run("non-positive amount never opens a transaction", func(t *testing.T) {
		svc, scope := newTestLedger()
		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{InvoiceID: uuid.New(), Amount: decimal.Zero})
		assert.Equal(t, "INVALID_AMOUNT", shared.ErrorCode(err))
		assert.Zero(t, scope.calls)
	})

	t.Run("missing invoice", func(t *testing.T) {
		svc, scope := newTestLedger()
		id := uuid.New()
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{InvoiceID: id, Amount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		scope.repos.numbers.AssertNotCalled(t, "NextPaymentNumber", mock.Anything, mock.Anything)
	})

	t.Run("overpayment", func(t *testing.T) {
		svc, scope := newTestLedger()
		inv := newTestInvoice(t, finance.InvoiceTypeOther, "100", nil)
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
		scope.repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0009", nil)

		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{InvoiceID: inv.ID, Amount: decimal.NewFromInt(101)})
		assert.Equal(t, "EXCEEDS_AMOUNT_DUE", shared.ErrorCode(err))
		scope.repos.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, scope.repos.publisher.events)
	})

	t.Run("cancelled invoice", func(t *testing.T) {
		svc, scope := newTestLedger()
		inv := newTestInvoice(t, finance.InvoiceTypeOther, "100", nil)
		require.NoError(t, inv.Cancel("duplicate"))
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
		scope.repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0010", nil)

		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{InvoiceID: inv.ID, Amount: decimal.NewFromInt(10)})
		assert.Equal(t, shared.CodeInvalidState, shared.ErrorCode(err))
	})

	t.Run("version conflict", func(t *testing.T) {
		svc, scope := newTestLedger()
		inv := newTestInvoice(t, finance.InvoiceTypeOther, "100", nil)
		conflict := shared.NewDomainError(shared.CodeOptimisticLock, "Invoice was modified by another transaction")
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
		scope.repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0011", nil)
		scope.repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		scope.repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(conflict)

		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{InvoiceID: inv.ID, Amount: decimal.NewFromInt(10)})
		assert.Equal(t, shared.CodeOptimisticLock, shared.ErrorCode(err))
	})

	t.Run("outbox failure", func(t *testing.T) {
		svc, scope := newTestLedger()
		scope.repos.publisher.err = errors.New("disk full")
		inv := newTestInvoice(t, finance.InvoiceTypeOther, "100", nil)
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
		scope.repos.numbers.On("NextPaymentNumber", mock.Anything, 2026).Return("PAY-2026-0012", nil)
		scope.repos.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		scope.repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)

		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{InvoiceID: inv.ID, Amount: decimal.NewFromInt(10)})
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestLedgerService_CancelInvoice(t *testing.T) {
	t.Run("cancels an unpaid invoice", func(t *testing.T) {
		svc, scope := newTestLedger()
		inv := newTestInvoice(t, finance.InvoiceTypeDeposit, "100", nil)
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)
		scope.repos.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)

		cancelled, err := svc.CancelInvoice(context.Background(), inv.ID, "  customer withdrew ")
		require.NoError(t, err)
		assert.Equal(t, finance.InvoiceStatusCancelled, cancelled.Status)
		assert.Equal(t, "customer withdrew", cancelled.CancelReason)
		assert.Equal(t, []string{finance.EventTypeInvoiceCancelled}, scope.repos.publisher.types())
	})

	t.Run("rejects an invoice with payments", func(t *testing.T) {
		svc, scope := newTestLedger()
		inv := newTestInvoice(t, finance.InvoiceTypeDeposit, "100", nil)
		payment, err := finance.NewPayment("PAY-2026-0001", inv, decimal.NewFromInt(10), finance.PaymentMethodCash, "", "")
		require.NoError(t, err)
		_, err = inv.ApplyPayment(payment)
		require.NoError(t, err)
		scope.repos.invoices.On("FindByIDForUpdate", mock.Anything, inv.ID).Return(inv, nil)

		_, err = svc.CancelInvoice(context.Background(), inv.ID, "")
		assert.Equal(t, "HAS_PAYMENTS", shared.ErrorCode(err))
		scope.repos.invoices.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestLedgerService_ListPayments(t *testing.T) {
	svc, scope := newTestLedger()
	inv := newTestInvoice(t, finance.InvoiceTypeOther, "100", nil)
	scope.repos.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	scope.repos.payments.On("FindByInvoice", mock.Anything, inv.ID).Return([]finance.Payment{{PaymentNumber: "PAY-2026-0001"}}, nil)

	payments, err := svc.ListPayments(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	missing := uuid.New()
	scope.repos.invoices.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	_, err = svc.ListPayments(context.Background(), missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedgerService_MarkOverdueInvoices(t *testing.T) {
	dueInvoice := func(t *testing.T, number string, due time.Time) finance.Invoice {
		t.Helper()
		inv, err := finance.NewInvoice(number, finance.InvoiceTypeFinal, nil, decimal.NewFromInt(500), &due)
		require.NoError(t, err)
		return *inv
	}
	byNumber := func(number string) any {
		return mock.MatchedBy(func(inv *finance.Invoice) bool { return inv.InvoiceNumber == number })
	}

	t.Run("flags past due invoices and skips concurrent changes", func(t *testing.T) {
		svc, scope := newTestLedger()
		candidates := []finance.Invoice{
			dueInvoice(t, "INV-2026-0010", fixedNow.AddDate(0, 0, -10)),
			dueInvoice(t, "INV-2026-0011", fixedNow.AddDate(0, 0, -3)),
			dueInvoice(t, "INV-2026-0012", fixedNow.AddDate(0, 0, 2)),
		}
		scope.repos.invoices.On("FindOverdueCandidates", mock.Anything, fixedNow, 100).Return(candidates, nil)
		scope.repos.invoices.On("SaveWithLock", mock.Anything, byNumber("INV-2026-0010")).Return(nil)
		scope.repos.invoices.On("SaveWithLock", mock.Anything, byNumber("INV-2026-0011")).
			Return(shared.NewDomainError(shared.CodeOptimisticLock, "Invoice was modified by another transaction"))

		marked, err := svc.MarkOverdueInvoices(context.Background(), fixedNow, 100)
		require.NoError(t, err)
		assert.Equal(t, 1, marked)
		assert.Equal(t, finance.InvoiceStatusOverdue, candidates[0].Status)
		assert.Equal(t, finance.InvoiceStatusPendingPayment, candidates[2].Status)
		scope.repos.invoices.AssertNotCalled(t, "SaveWithLock", mock.Anything, byNumber("INV-2026-0012"))
	})

	t.Run("stops on a storage error", func(t *testing.T) {
		svc, scope := newTestLedger()
		candidates := []finance.Invoice{dueInvoice(t, "INV-2026-0020", fixedNow.AddDate(0, -1, 0))}
		scope.repos.invoices.On("FindOverdueCandidates", mock.Anything, fixedNow, 10).Return(candidates, nil)
		scope.repos.invoices.On("SaveWithLock", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		marked, err := svc.MarkOverdueInvoices(context.Background(), fixedNow, 10)
		assert.ErrorContains(t, err, "connection reset")
		assert.Zero(t, marked)
	})

	t.Run("query failure", func(t *testing.T) {
		svc, scope := newTestLedger()
		scope.repos.invoices.On("FindOverdueCandidates", mock.Anything, fixedNow, 10).Return(nil, errors.New("timeout"))

		_, err := svc.MarkOverdueInvoices(context.Background(), fixedNow, 10)
		assert.ErrorContains(t, err, "failed to find overdue invoices")
	})
}
