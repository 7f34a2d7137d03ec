package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger and sync activity. A nil *LedgerMetrics is
// valid and records nothing.
type LedgerMetrics struct {
	paymentsRecorded   metric.Int64Counter
	paymentAmount      metric.Float64Counter
	productionTriggers metric.Int64Counter
	invoicesOverdue    metric.Int64Counter
	syncAttempts       metric.Int64Counter
	syncDuration       metric.Float64Histogram
	eventDeliveries    metric.Int64Counter
}

// NewLedgerMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(TracerName)
	}

	m := &LedgerMetrics{}
	var err error
	if m.paymentsRecorded, err = meter.Int64Counter("ledger.payments.recorded",
		metric.WithDescription("Payments recorded against invoices")); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = meter.Float64Counter("ledger.payments.amount",
		metric.WithDescription("Sum of recorded payment amounts")); err != nil {
		return nil, err
	}
	if m.productionTriggers, err = meter.Int64Counter("ledger.production.triggers",
		metric.WithDescription("Production triggers fired by invoice transitions")); err != nil {
		return nil, err
	}
	if m.invoicesOverdue, err = meter.Int64Counter("ledger.invoices.overdue",
		metric.WithDescription("Invoices flagged overdue by the sweep")); err != nil {
		return nil, err
	}
	if m.syncAttempts, err = meter.Int64Counter("accounting.sync.attempts",
		metric.WithDescription("Pushes to the accounting ledger by entity and outcome")); err != nil {
		return nil, err
	}
	if m.syncDuration, err = meter.Float64Histogram("accounting.sync.duration",
		metric.WithDescription("Duration of accounting ledger calls"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.eventDeliveries, err = meter.Int64Counter("events.deliveries",
		metric.WithDescription("Outbox event deliveries by consumer and outcome")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment counts one recorded payment
func (m *LedgerMetrics) RecordPayment(ctx context.Context, method string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("method", method))
	m.paymentsRecorded.Add(ctx, 1, attrs)
	m.paymentAmount.Add(ctx, amount.InexactFloat64(), attrs)
}

// RecordTrigger counts one fired production trigger
func (m *LedgerMetrics) RecordTrigger(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	m.productionTriggers.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
}

// RecordOverdue counts invoices flagged overdue in one sweep
func (m *LedgerMetrics) RecordOverdue(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.invoicesOverdue.Add(ctx, int64(count))
}

// RecordSync counts one push attempt and its duration
func (m *LedgerMetrics) RecordSync(ctx context.Context, entityType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("outcome", outcome),
	)
	m.syncAttempts.Add(ctx, 1, attrs)
	m.syncDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordDelivery counts one event delivery to a consumer. outcome is
// handled, duplicate or failed.
func (m *LedgerMetrics) RecordDelivery(ctx context.Context, consumer, outcome string) {
	if m == nil {
		return
	}
	m.eventDeliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("consumer", consumer),
		attribute.String("outcome", outcome),
	))
}
