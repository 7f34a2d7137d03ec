package finance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/logger"
	"github.com/erp/ledgersync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService records payments against production invoices and applies the
// resulting production triggers
type LedgerService struct {
	scope       TransactionScope
	invoiceRepo finance.InvoiceRepository
	paymentRepo finance.PaymentRepository
	dispatcher  *ProductionTriggerDispatcher
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// LedgerServiceOption configures a LedgerService
type LedgerServiceOption func(*LedgerService)

// WithLedgerMetrics records payment and trigger counters
func WithLedgerMetrics(metrics *telemetry.LedgerMetrics) LedgerServiceOption {
	return func(s *LedgerService) {
		s.metrics = metrics
	}
}

// WithLedgerLogger sets the service logger
func WithLedgerLogger(logger *zap.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for payment number years
func WithClock(now func() time.Time) LedgerServiceOption {
	return func(s *LedgerService) {
		s.now = now
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	invoiceRepo finance.InvoiceRepository,
	paymentRepo finance.PaymentRepository,
	opts ...LedgerServiceOption,
) *LedgerService {
	s := &LedgerService{
		scope:       scope,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = NewProductionTriggerDispatcher(s.logger)
	return s
}

// RecordPayment records a payment against an invoice. The payment insert, the
// invoice update, the production side effects and the outbox events are
// committed together or not at all.
func (s *LedgerService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*RecordPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, input.InvoiceID.String(),
		telemetry.SpanAttrAmount, input.Amount.String(),
	)

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		err := shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *RecordPaymentResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}

		paymentNumber, err := repos.PaymentNumbers().NextPaymentNumber(ctx, s.now().Year())
		if err != nil {
			return err
		}

		payment, err := finance.NewPayment(paymentNumber, invoice, input.Amount, input.Method,
			valueOrEmpty(input.TransactionRef), valueOrEmpty(input.Notes))
		if err != nil {
			return err
		}

		previous, err := invoice.ApplyPayment(payment)
		if err != nil {
			return err
		}

		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		dispatched, err := s.dispatcher.Dispatch(ctx, repos, invoice, previous)
		if err != nil {
			return err
		}

		events := make([]shared.DomainEvent, 0, 4)
		events = append(events, invoice.GetDomainEvents()...)
		events = append(events, payment.GetDomainEvents()...)
		if dispatched.Order != nil {
			events = append(events, dispatched.Order.GetDomainEvents()...)
		}
		if err := repos.Events().Publish(ctx, events...); err != nil {
			return fmt.Errorf("failed to write ledger events: %w", err)
		}

		result = &RecordPaymentResult{
			Payment:         payment,
			Invoice:         invoice,
			ProductionOrder: dispatched.Order,
			Trigger:         dispatched.Trigger,
			UnitsCreated:    dispatched.UnitsCreated,
			Message:         paymentMessage(payment, invoice, dispatched),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result.Invoice.ClearDomainEvents()
	result.Payment.ClearDomainEvents()
	if result.ProductionOrder != nil {
		result.ProductionOrder.ClearDomainEvents()
	}

	s.metrics.RecordPayment(ctx, string(result.Payment.Method), result.Payment.Amount)
	if result.Trigger != finance.TriggerNone {
		s.metrics.RecordTrigger(ctx, result.Trigger.String())
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentNumber, result.Payment.PaymentNumber,
		telemetry.SpanAttrTrigger, result.Trigger.String(),
	)
	logger.WithTraceContext(ctx, s.logger).Info("payment recorded",
		zap.String("payment_number", result.Payment.PaymentNumber),
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
		zap.String("amount", result.Payment.Amount.StringFixed(2)),
		zap.String("invoice_status", result.Invoice.Status.String()),
		zap.String("trigger", result.Trigger.String()),
	)

	return result, nil
}

// CancelInvoice cancels an invoice that has no payments
func (s *LedgerService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*finance.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_invoice")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	var cancelled *finance.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := invoice.Cancel(strings.TrimSpace(reason)); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		if err := repos.Events().Publish(ctx, invoice.GetDomainEvents()...); err != nil {
			return fmt.Errorf("failed to write ledger events: %w", err)
		}
		cancelled = invoice
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	cancelled.ClearDomainEvents()
	logger.WithTraceContext(ctx, s.logger).Info("invoice cancelled",
		zap.String("invoice_number", cancelled.InvoiceNumber))
	return cancelled, nil
}

// MarkOverdueInvoices flags up to limit unpaid invoices whose due date is
// before asOf. An invoice changed by a concurrent payment is skipped and picked
// up again by the next sweep if it is still unpaid.
func (s *LedgerService) MarkOverdueInvoices(ctx context.Context, asOf time.Time, limit int) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "mark_overdue")
	defer span.End()

	candidates, err := s.invoiceRepo.FindOverdueCandidates(ctx, asOf, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("failed to find overdue invoices: %w", err)
	}

	log := logger.WithTraceContext(ctx, s.logger)
	marked := 0
	for i := range candidates {
		invoice := &candidates[i]
		if !invoice.MarkOverdue(asOf) {
			continue
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			if shared.ErrorCode(err) == shared.CodeOptimisticLock {
				log.Debug("invoice changed during overdue sweep, skipped",
					zap.String("invoice_number", invoice.InvoiceNumber))
				continue
			}
			telemetry.RecordError(span, err)
			return marked, fmt.Errorf("failed to save invoice %s: %w", invoice.InvoiceNumber, err)
		}
		marked++
	}

	s.metrics.RecordOverdue(ctx, marked)
	if marked > 0 {
		log.Info("invoices marked overdue",
			zap.Int("count", marked),
			zap.Time("as_of", asOf))
	}
	return marked, nil
}

// GetInvoice returns an invoice
func (s *LedgerService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*finance.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, invoiceID)
}

// ListPayments returns the payments recorded against an invoice
func (s *LedgerService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]finance.Payment, error) {
	if _, err := s.invoiceRepo.FindByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.paymentRepo.FindByInvoice(ctx, invoiceID)
}

// paymentMessage summarizes a recorded payment for the caller
func paymentMessage(payment *finance.Payment, invoice *finance.Invoice, dispatched DispatchResult) string {
	msg := "Payment of $" + payment.Amount.StringFixed(2) + " recorded on invoice " + invoice.InvoiceNumber + "."

	switch invoice.Status {
	case finance.InvoiceStatusPaid:
		msg += " Invoice is now paid in full."
	case finance.InvoiceStatusPartialPayment:
		msg += " Remaining balance: $" + invoice.AmountDue.StringFixed(2) + "."
	}

	if dispatched.Order == nil || !dispatched.Applied {
		return msg
	}
	switch dispatched.Trigger {
	case finance.TriggerDepositPaid:
		msg += " Deposit received for production order " + dispatched.Order.OrderNumber + "."
		if dispatched.UnitsCreated > 0 {
			msg += " " + strconv.Itoa(dispatched.UnitsCreated) + " production units created."
		}
	case finance.TriggerFinalPaid:
		msg += " Final payment received for production order " + dispatched.Order.OrderNumber + "; ready to ship."
	}
	return msg
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
