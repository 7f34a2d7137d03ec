package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/logger"
	"github.com/erp/ledgersync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const syncServiceName = "AccountingSyncService"

// AccountingSyncService pushes customers, invoices and payments to the external
// accounting ledger. The entity mapping store is the idempotency key: a mapping
// is only written after the external call returned an id, and every attempt is
// appended to the sync log. Nothing is retried here.
type AccountingSyncService struct {
	deps    SyncDependencies
	config  SyncConfig
	metrics *telemetry.LedgerMetrics
	logger  *zap.Logger
	group   singleflight.Group
}

// SyncServiceOption configures an AccountingSyncService
type SyncServiceOption func(*AccountingSyncService)

// WithSyncLogger sets the service logger
func WithSyncLogger(logger *zap.Logger) SyncServiceOption {
	return func(s *AccountingSyncService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSyncMetrics records sync outcomes and latency
func WithSyncMetrics(metrics *telemetry.LedgerMetrics) SyncServiceOption {
	return func(s *AccountingSyncService) {
		s.metrics = metrics
	}
}

// NewAccountingSyncService creates a new AccountingSyncService
func NewAccountingSyncService(deps SyncDependencies, config SyncConfig, opts ...SyncServiceOption) (*AccountingSyncService, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	s := &AccountingSyncService{
		deps:   deps,
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SyncInvoice creates or updates the external counterpart of an invoice,
// creating its customer first when the customer was never pushed.
// Concurrent calls for the same invoice share one run.
func (s *AccountingSyncService) SyncInvoice(ctx context.Context, invoiceID uuid.UUID) (*integration.InvoiceSyncResult, error) {
	v, err := s.shared(ctx, "invoice:"+invoiceID.String(), func(runCtx context.Context) (any, error) {
		return s.syncInvoice(runCtx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	result := *v.(*integration.InvoiceSyncResult)
	return &result, nil
}

// SyncPayment creates the external counterpart of a payment. A payment that
// already has a mapping is returned as already synced without any external call.
// On failure the result carries the outcome alongside the error.
func (s *AccountingSyncService) SyncPayment(ctx context.Context, paymentID uuid.UUID) (*integration.PaymentSyncResult, error) {
	v, err := s.shared(ctx, "payment:"+paymentID.String(), func(runCtx context.Context) (any, error) {
		result, err := s.syncPayment(runCtx, paymentID)
		return result, err
	})
	result, _ := v.(*integration.PaymentSyncResult)
	if result == nil {
		return nil, err
	}
	copied := *result
	return &copied, err
}

// shared runs fn once per key for all concurrent callers. The run is detached
// from the caller that started it so that caller leaving does not fail the
// others; each external call inside stays bounded by CallTimeout. A caller whose
// own ctx ends stops waiting and gets its ctx error.
func (s *AccountingSyncService) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SyncBacklog pushes payments recorded since the given time that never reached
// the accounting ledger, each with its invoice first. A permanent invoice
// failure still lets the payment through when the invoice is mapped. A lost connection or a
// rate limit ends the pass early. Other failures are counted and the pass goes
// on with the next payment.
func (s *AccountingSyncService) SyncBacklog(ctx context.Context, since time.Time, limit int) (*BacklogResult, error) {
	if s.deps.Backlog == nil {
		return nil, errNilDependency
	}
	pending, err := s.deps.Backlog.FindUnmappedPayments(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("find unmapped payments: %w", err)
	}

	log := logger.WithTraceContext(ctx, s.logger)
	result := &BacklogResult{}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempted++

		_, err := s.SyncInvoice(ctx, p.InvoiceID)
		if err != nil && !integration.IsRetryable(err) {
			log.Warn("backlog invoice push failed, pushing payment anyway",
				zap.String("payment_number", p.PaymentNumber),
				zap.Error(err))
			err = nil
		}
		if err == nil {
			_, err = s.SyncPayment(ctx, p.PaymentID)
		}
		if err != nil {
			result.Failed++
			if errors.Is(err, integration.ErrNotConnected) || errors.Is(err, integration.ErrExternalRateLimited) {
				return result, err
			}
			log.Warn("backlog payment not synced",
				zap.String("payment_number", p.PaymentNumber),
				zap.Error(err))
			continue
		}
		result.Synced++
	}

	if result.Attempted > 0 {
		log.Info("payment backlog pass finished",
			zap.Int("attempted", result.Attempted),
			zap.Int("synced", result.Synced),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// ConnectionStatus reports the state of the ledger connection without refreshing tokens
func (s *AccountingSyncService) ConnectionStatus(ctx context.Context) (integration.ConnectionStatus, error) {
	return s.deps.Credentials.Status(ctx)
}

// SyncHistory lists the newest sync attempts for an internal record
func (s *AccountingSyncService) SyncHistory(ctx context.Context, entityID uuid.UUID, limit int) ([]integration.SyncLogEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.deps.SyncLogs.FindByEntity(ctx, entityID, limit)
}

// SyncStats aggregates the sync log and counts mapped records
func (s *AccountingSyncService) SyncStats(ctx context.Context) (*SyncStats, error) {
	logStats, err := s.deps.SyncLogs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SyncStats{
		Total:       logStats.Total,
		Completed:   logStats.Completed,
		Failed:      logStats.Failed,
		SuccessRate: logStats.SuccessRate(),
	}
	counts := []struct {
		entityType integration.EntityType
		dst        *int64
	}{
		{integration.EntityTypeCustomer, &stats.MappedCustomers},
		{integration.EntityTypeInvoice, &stats.MappedInvoices},
		{integration.EntityTypePayment, &stats.MappedPayments},
	}
	for _, c := range counts {
		n, err := s.deps.Mappings.CountByType(ctx, c.entityType)
		if err != nil {
			return nil, fmt.Errorf("count %s mappings: %w", c.entityType, err)
		}
		*c.dst = n
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// Invoice sync
// ---------------------------------------------------------------------------

func (s *AccountingSyncService) syncInvoice(ctx context.Context, invoiceID uuid.UUID) (result *integration.InvoiceSyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, syncServiceName, "SyncInvoice")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoiceID,
		telemetry.SpanAttrEntityType, integration.EntityTypeInvoice.String(),
	)

	started := time.Now()
	entry := integration.NewSyncLogEntry(integration.EntityTypeInvoice, invoiceID, integration.SyncActionCreate)
	var exchange integration.Exchange

	defer func() {
		outcome := string(integration.PaymentSynced)
		if err != nil {
			outcome = failureOutcome(err)
			telemetry.RecordError(span, err)
			s.appendFailure(ctx, entry, err, exchange)
		}
		telemetry.SetAttributes(span, telemetry.SpanAttrSyncOutcome, outcome)
		s.metrics.RecordSync(ctx, integration.EntityTypeInvoice.String(), outcome, time.Since(started))
	}()

	cred, err := s.deps.Credentials.Credential(ctx)
	if err != nil {
		return nil, err
	}

	ic, err := s.loadInvoiceContext(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(s.config.DefaultItemRef) == "" {
		return nil, integration.ErrDefaultItemNotConfigured
	}

	customerRef, err := s.resolveCustomer(ctx, cred, ic)
	if err != nil {
		return nil, err
	}

	mapping, err := s.findMapping(ctx, integration.EntityTypeInvoice, invoiceID)
	if err != nil {
		return nil, err
	}

	ext := s.buildExternalInvoice(ic, customerRef)
	var ref integration.ExternalRef
	if mapping != nil {
		entry.Action = integration.SyncActionUpdate
		ext.ID = mapping.ExternalID
		ext.SyncToken = mapping.SyncToken
		ref, exchange, err = callWithDeadline(ctx, s.config.CallTimeout, func(ctx context.Context) (integration.ExternalRef, integration.Exchange, error) {
			return s.deps.Accounting.UpdateInvoice(ctx, cred, ext)
		})
	} else {
		ref, exchange, err = callWithDeadline(ctx, s.config.CallTimeout, func(ctx context.Context) (integration.ExternalRef, integration.Exchange, error) {
			return s.deps.Accounting.CreateInvoice(ctx, cred, ext)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%s invoice %s: %w", entry.Action, ic.invoice.InvoiceNumber, err)
	}

	if mapping == nil {
		if mapping, err = integration.NewEntityMapping(integration.EntityTypeInvoice, invoiceID, ref); err != nil {
			return nil, err
		}
	} else {
		mapping.RecordSync(ref)
	}
	if err = s.deps.Mappings.Save(ctx, mapping); err != nil {
		return nil, fmt.Errorf("save invoice mapping: %w", err)
	}

	entry.Complete(mapping.ExternalID, exchange)
	s.appendEntry(ctx, entry)

	telemetry.SetAttributes(span, telemetry.SpanAttrExternalID, mapping.ExternalID)
	logger.WithTraceContext(ctx, s.logger).Info("invoice synced to accounting ledger",
		zap.String("invoice_number", ic.invoice.InvoiceNumber),
		zap.String("external_id", mapping.ExternalID),
		zap.String("action", string(entry.Action)),
	)

	return &integration.InvoiceSyncResult{
		InvoiceID:          invoiceID,
		ExternalID:         mapping.ExternalID,
		SyncToken:          mapping.SyncToken,
		Action:             entry.Action,
		CustomerExternalID: customerRef,
	}, nil
}

// loadInvoiceContext follows invoice -> production order -> project -> customer
func (s *AccountingSyncService) loadInvoiceContext(ctx context.Context, invoiceID uuid.UUID) (*invoiceContext, error) {
	inv, err := s.deps.Invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.ProductionOrderID == nil {
		return nil, integration.ErrCustomerNotLinked
	}
	order, err := s.deps.Orders.FindByID(ctx, *inv.ProductionOrderID)
	if err != nil {
		return nil, s.relationError(err)
	}
	if order.ProjectID == nil {
		return nil, integration.ErrCustomerNotLinked
	}
	project, err := s.deps.Projects.FindByID(ctx, *order.ProjectID)
	if err != nil {
		return nil, s.relationError(err)
	}
	if !project.HasCustomer() {
		return nil, integration.ErrCustomerNotLinked
	}
	customer, err := s.deps.Customers.FindByID(ctx, *project.CustomerID)
	if err != nil {
		return nil, s.relationError(err)
	}
	return &invoiceContext{invoice: inv, order: order, project: project, customer: customer}, nil
}

// relationError turns a missing relation into ErrCustomerNotLinked
func (s *AccountingSyncService) relationError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return integration.ErrCustomerNotLinked
	}
	return err
}

// resolveCustomer returns the external id of the invoice's customer, creating
// the external customer when it has no mapping. Lookup is by internal id only.
func (s *AccountingSyncService) resolveCustomer(ctx context.Context, cred *integration.Credential, ic *invoiceContext) (string, error) {
	customer := ic.customer
	mapping, err := s.findMapping(ctx, integration.EntityTypeCustomer, customer.ID)
	if err != nil {
		return "", err
	}
	if mapping != nil {
		return mapping.ExternalID, nil
	}

	entry := integration.NewSyncLogEntry(integration.EntityTypeCustomer, customer.ID, integration.SyncActionCreate)
	ext := integration.ExternalCustomer{
		DisplayName: customer.DisplayName(),
		CompanyName: customer.CompanyName,
		GivenName:   customer.FirstName,
		FamilyName:  customer.LastName,
		Email:       customer.Email,
		Phone:       customer.Phone,
	}
	ref, exchange, err := callWithDeadline(ctx, s.config.CallTimeout, func(ctx context.Context) (integration.ExternalRef, integration.Exchange, error) {
		return s.deps.Accounting.CreateCustomer(ctx, cred, ext)
	})
	if err != nil {
		s.appendFailure(ctx, entry, err, exchange)
		return "", fmt.Errorf("create customer %s: %w", customer.DisplayName(), err)
	}

	mapping, err = integration.NewEntityMapping(integration.EntityTypeCustomer, customer.ID, ref)
	if err != nil {
		return "", err
	}
	if err := s.deps.Mappings.Save(ctx, mapping); err != nil {
		return "", fmt.Errorf("save customer mapping: %w", err)
	}
	entry.Complete(ref.ID, exchange)
	s.appendEntry(ctx, entry)
	return ref.ID, nil
}

// buildExternalInvoice maps line items 1:1 onto sales lines booked against the default item
func (s *AccountingSyncService) buildExternalInvoice(ic *invoiceContext, customerRef string) integration.ExternalInvoice {
	inv := ic.invoice
	lines := make([]integration.ExternalInvoiceLine, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		lines = append(lines, integration.ExternalInvoiceLine{
			Description: item.Description,
			Amount:      item.Amount,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			ItemRef:     s.config.DefaultItemRef,
		})
	}
	// An invoice without line items is pushed as a single line for its total
	if len(lines) == 0 {
		lines = append(lines, integration.ExternalInvoiceLine{
			Description: fmt.Sprintf("%s invoice for production order %s", titleCase(string(inv.InvoiceType)), ic.order.OrderNumber),
			Amount:      inv.Total,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   inv.Total,
			ItemRef:     s.config.DefaultItemRef,
		})
	}

	note := fmt.Sprintf("Production order %s", ic.order.OrderNumber)
	if ic.project.Name != "" {
		note += ", project " + ic.project.Name
	}
	if inv.Notes != "" {
		note += ". " + inv.Notes
	}

	return integration.ExternalInvoice{
		DocNumber:   inv.InvoiceNumber,
		CustomerRef: customerRef,
		TxnDate:     inv.CreatedAt,
		DueDate:     inv.DueDate,
		Lines:       lines,
		PrivateNote: note,
	}
}

// ---------------------------------------------------------------------------
// Payment sync
// ---------------------------------------------------------------------------

func (s *AccountingSyncService) syncPayment(ctx context.Context, paymentID uuid.UUID) (result *integration.PaymentSyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, syncServiceName, "SyncPayment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, paymentID,
		telemetry.SpanAttrEntityType, integration.EntityTypePayment.String(),
	)

	started := time.Now()
	defer func() {
		if result != nil {
			telemetry.SetAttributes(span, telemetry.SpanAttrSyncOutcome, string(result.Outcome))
			s.metrics.RecordSync(ctx, integration.EntityTypePayment.String(), string(result.Outcome), time.Since(started))
		}
		telemetry.RecordError(span, err)
	}()

	existing, err := s.findMapping(ctx, integration.EntityTypePayment, paymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return paymentResult(paymentID, integration.PaymentAlreadySynced, existing.ExternalID), nil
	}

	entry := integration.NewSyncLogEntry(integration.EntityTypePayment, paymentID, integration.SyncActionCreate)
	var exchange integration.Exchange
	defer func() {
		if err != nil {
			s.appendFailure(ctx, entry, err, exchange)
		}
	}()

	cred, err := s.deps.Credentials.Credential(ctx)
	if err != nil {
		return paymentResult(paymentID, classifyPaymentFailure(err), ""), err
	}

	payment, err := s.deps.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return paymentResult(paymentID, integration.PaymentFailed, ""), err
	}

	invoiceMapping, err := s.findMapping(ctx, integration.EntityTypeInvoice, payment.InvoiceID)
	if err != nil {
		return paymentResult(paymentID, integration.PaymentFailed, ""), err
	}
	if invoiceMapping == nil {
		return paymentResult(paymentID, integration.PaymentNeedsInvoiceSync, ""), integration.ErrInvoiceNotSynced
	}

	customerRef, err := s.paymentCustomerRef(ctx, payment)
	if err != nil {
		return paymentResult(paymentID, classifyPaymentFailure(err), ""), err
	}

	ext := integration.ExternalPayment{
		CustomerRef:   customerRef,
		InvoiceRef:    invoiceMapping.ExternalID,
		Amount:        payment.Amount,
		TxnDate:       payment.PaidAt,
		PaymentRefNum: paymentRefNum(payment),
		PrivateNote:   fmt.Sprintf("Payment %s via %s", payment.PaymentNumber, payment.Method),
	}
	ref, exchange, err := callWithDeadline(ctx, s.config.CallTimeout, func(ctx context.Context) (integration.ExternalRef, integration.Exchange, error) {
		return s.deps.Accounting.CreatePayment(ctx, cred, ext)
	})
	if err != nil {
		err = fmt.Errorf("create payment %s: %w", payment.PaymentNumber, err)
		return paymentResult(paymentID, classifyPaymentFailure(err), ""), err
	}

	mapping, err := integration.NewEntityMapping(integration.EntityTypePayment, paymentID, ref)
	if err != nil {
		return paymentResult(paymentID, integration.PaymentFailed, ""), err
	}
	if err = s.deps.Mappings.Save(ctx, mapping); err != nil {
		err = fmt.Errorf("save payment mapping: %w", err)
		return paymentResult(paymentID, integration.PaymentFailed, ""), err
	}

	entry.Complete(ref.ID, exchange)
	s.appendEntry(ctx, entry)

	telemetry.SetAttributes(span, telemetry.SpanAttrExternalID, ref.ID)
	logger.WithTraceContext(ctx, s.logger).Info("payment synced to accounting ledger",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("external_id", ref.ID),
	)
	return paymentResult(paymentID, integration.PaymentSynced, ref.ID), nil
}

// paymentCustomerRef returns the external customer the payment's invoice was booked to
func (s *AccountingSyncService) paymentCustomerRef(ctx context.Context, payment *finance.Payment) (string, error) {
	ic, err := s.loadInvoiceContext(ctx, payment.InvoiceID)
	if err != nil {
		return "", err
	}
	mapping, err := s.findMapping(ctx, integration.EntityTypeCustomer, ic.customer.ID)
	if err != nil {
		return "", err
	}
	if mapping == nil {
		return "", integration.ErrInvoiceNotSynced
	}
	return mapping.ExternalID, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findMapping returns nil without error when no mapping exists
func (s *AccountingSyncService) findMapping(ctx context.Context, entityType integration.EntityType, internalID uuid.UUID) (*integration.EntityMapping, error) {
	mapping, err := s.deps.Mappings.FindByEntity(ctx, entityType, internalID)
	if errors.Is(err, integration.ErrMappingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s mapping: %w", entityType, err)
	}
	return mapping, nil
}

func (s *AccountingSyncService) appendFailure(ctx context.Context, entry *integration.SyncLogEntry, err error, exchange integration.Exchange) {
	entry.Fail(err, exchange)
	s.appendEntry(ctx, entry)
	logger.WithTraceContext(ctx, s.logger).Warn("accounting sync failed",
		zap.String("entity_type", entry.SyncType.String()),
		zap.String("entity_id", entry.EntityID.String()),
		zap.Bool("retryable", integration.IsRetryable(err)),
		zap.Error(err),
	)
}

// appendEntry writes to the sync log. A log write failure never masks the sync result.
func (s *AccountingSyncService) appendEntry(ctx context.Context, entry *integration.SyncLogEntry) {
	if err := s.deps.SyncLogs.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to append sync log entry",
			zap.String("entity_id", entry.EntityID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
	}
}

// callWithDeadline runs one external call under timeout. A deadline hit by
// this call becomes ErrSyncTimeout.
func callWithDeadline(
	ctx context.Context,
	timeout time.Duration,
	call func(ctx context.Context) (integration.ExternalRef, integration.Exchange, error),
) (integration.ExternalRef, integration.Exchange, error) {
	if timeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ref, exchange, err := call(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return ref, exchange, fmt.Errorf("%w after %s: %v", integration.ErrSyncTimeout, timeout, err)
	}
	return ref, exchange, err
}

func classifyPaymentFailure(err error) integration.PaymentSyncOutcome {
	switch {
	case errors.Is(err, integration.ErrInvoiceNotSynced):
		return integration.PaymentNeedsInvoiceSync
	case integration.IsRetryable(err):
		return integration.PaymentTransientFailure
	default:
		return integration.PaymentFailed
	}
}

// failureOutcome is the metric label for a failed invoice sync
func failureOutcome(err error) string {
	if integration.IsRetryable(err) {
		return string(integration.PaymentTransientFailure)
	}
	return string(integration.PaymentFailed)
}

func paymentRefNum(p *finance.Payment) string {
	if p.TransactionRef != "" {
		return p.TransactionRef
	}
	return p.PaymentNumber
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
