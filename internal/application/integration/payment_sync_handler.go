package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Syncer is the part of AccountingSyncService the outbox handler drives
type Syncer interface {
	SyncInvoice(ctx context.Context, invoiceID uuid.UUID) (*integration.InvoiceSyncResult, error)
	SyncPayment(ctx context.Context, paymentID uuid.UUID) (*integration.PaymentSyncResult, error)
}

// PaymentSyncHandler pushes a recorded payment, and its invoice first, to the
// accounting ledger after the ledger transaction committed.
//
// Retryable failures are returned so the outbox schedules another attempt.
// Permanent failures are already in the sync log and are left to an operator.
// A payment whose invoice was never mapped fails with ErrInvoiceNotSynced,
// which is retryable, so it ends in the dead letter queue rather than vanishing.
type PaymentSyncHandler struct {
	syncer Syncer
	logger *zap.Logger
}

// NewPaymentSyncHandler creates a new PaymentSyncHandler
func NewPaymentSyncHandler(syncer Syncer, logger *zap.Logger) *PaymentSyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentSyncHandler{
		syncer: syncer,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentSyncHandler) EventTypes() []string {
	return []string{finance.EventTypePaymentRecorded}
}

// Handle syncs the invoice then the payment named by a PaymentRecorded event
func (h *PaymentSyncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	recorded, ok := event.(*finance.PaymentRecordedEvent)
	if !ok {
		return fmt.Errorf("payment sync handler: unexpected event %T", event)
	}

	log := h.logger.With(
		zap.String("event_id", event.EventID().String()),
		zap.String("invoice_number", recorded.InvoiceNumber),
		zap.String("payment_number", recorded.PaymentNumber),
	)

	// A permanent invoice failure does not block the payment: SyncPayment
	// only needs the invoice mapping and reports ErrInvoiceNotSynced without it.
	if _, err := h.syncer.SyncInvoice(ctx, recorded.InvoiceID); err != nil {
		if retryable(err) {
			return h.failure(log, "invoice", err)
		}
		log.Error("invoice push failed, pushing payment anyway", zap.Error(err))
	}

	result, err := h.syncer.SyncPayment(ctx, recorded.PaymentID)
	if err != nil {
		return h.failure(log, "payment", err)
	}

	log.Info("payment pushed to accounting ledger",
		zap.String("outcome", string(result.Outcome)),
		zap.String("external_id", result.ExternalID),
	)
	return nil
}

func (h *PaymentSyncHandler) failure(log *zap.Logger, step string, err error) error {
	if retryable(err) {
		log.Warn("accounting sync failed, will retry", zap.String("step", step), zap.Error(err))
		return fmt.Errorf("sync %s: %w", step, err)
	}
	log.Error("accounting sync failed permanently", zap.String("step", step), zap.Error(err))
	return nil
}

// retryable also covers a delivery cut short by shutdown or the processor deadline
func retryable(err error) bool {
	return integration.IsRetryable(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

var _ shared.EventHandler = (*PaymentSyncHandler)(nil)
