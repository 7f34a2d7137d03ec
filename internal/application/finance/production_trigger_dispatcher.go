package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ProductionTriggerDispatcher applies the production side effects of an invoice
// becoming paid. It runs inside the ledger transaction, so a failure here rolls
// back the payment as well.
type ProductionTriggerDispatcher struct {
	logger *zap.Logger
}

// NewProductionTriggerDispatcher creates a new ProductionTriggerDispatcher
func NewProductionTriggerDispatcher(logger *zap.Logger) *ProductionTriggerDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductionTriggerDispatcher{logger: logger}
}

// Dispatch resolves the trigger for the invoice's transition from previous and applies it
func (d *ProductionTriggerDispatcher) Dispatch(
	ctx context.Context,
	repos TransactionalRepositories,
	invoice *finance.Invoice,
	previous finance.InvoiceStatus,
) (DispatchResult, error) {
	trigger := finance.ResolveProductionTrigger(invoice.InvoiceType, previous, invoice.Status)
	result := DispatchResult{Trigger: trigger}
	if trigger == finance.TriggerNone || !invoice.HasProductionOrder() {
		return result, nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "production_trigger", "dispatch")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrProductionOrder, invoice.ProductionOrderID.String(),
		telemetry.SpanAttrTrigger, trigger.String(),
	)

	order, err := repos.ProductionOrders().FindByIDForUpdate(ctx, *invoice.ProductionOrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			d.logger.Warn("invoice references a missing production order",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("production_order_id", invoice.ProductionOrderID.String()),
			)
			return result, nil
		}
		telemetry.RecordError(span, err)
		return result, fmt.Errorf("failed to load production order: %w", err)
	}
	result.Order = order

	paidAt := time.Now()
	if invoice.PaidDate != nil {
		paidAt = *invoice.PaidDate
	}

	switch trigger {
	case finance.TriggerDepositPaid:
		err = d.applyDeposit(ctx, repos, order, paidAt, &result)
	case finance.TriggerFinalPaid:
		err = d.applyFinal(ctx, repos, order, paidAt, &result)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}

	telemetry.SetAttributes(span, "units_created", result.UnitsCreated, "applied", result.Applied)
	return result, nil
}

func (d *ProductionTriggerDispatcher) applyDeposit(
	ctx context.Context,
	repos TransactionalRepositories,
	order *production.ProductionOrder,
	paidAt time.Time,
	result *DispatchResult,
) error {
	if !order.MarkDepositPaid(paidAt) {
		d.logger.Info("deposit already applied to production order",
			zap.String("order_number", order.OrderNumber))
		return nil
	}
	result.Applied = true

	if err := repos.ProductionOrders().SaveWithLock(ctx, order); err != nil {
		return fmt.Errorf("failed to save production order: %w", err)
	}

	existing, err := repos.OrderedItems().CountByProductionOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to count production units: %w", err)
	}
	if existing > 0 {
		d.logger.Info("production order already has units",
			zap.String("order_number", order.OrderNumber),
			zap.Int64("units", existing))
		return nil
	}

	items := order.NewOrderedItems()
	if err := repos.OrderedItems().CreateBatch(ctx, items); err != nil {
		return fmt.Errorf("failed to create production units: %w", err)
	}
	result.UnitsCreated = len(items)

	d.logger.Info("production units created",
		zap.String("order_number", order.OrderNumber),
		zap.Int("units", len(items)))
	return nil
}

func (d *ProductionTriggerDispatcher) applyFinal(
	ctx context.Context,
	repos TransactionalRepositories,
	order *production.ProductionOrder,
	paidAt time.Time,
	result *DispatchResult,
) error {
	if !order.MarkFinalPaid(paidAt) {
		return nil
	}
	result.Applied = true

	if err := repos.ProductionOrders().SaveWithLock(ctx, order); err != nil {
		return fmt.Errorf("failed to save production order: %w", err)
	}
	return nil
}
