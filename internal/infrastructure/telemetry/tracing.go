// Package telemetry wires OpenTelemetry tracing, metrics and log export for
// the ledger service, and offers span helpers for application services.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for service spans
const TracerName = "ledgersync"

// Span attribute keys shared by the ledger and sync services
const (
	SpanAttrInvoiceID       = "invoice_id"
	SpanAttrInvoiceNumber   = "invoice_number"
	SpanAttrPaymentID       = "payment_id"
	SpanAttrPaymentNumber   = "payment_number"
	SpanAttrAmount          = "amount"
	SpanAttrProductionOrder = "production_order_id"
	SpanAttrTrigger         = "production_trigger"
	SpanAttrEntityType      = "entity_type"
	SpanAttrExternalID      = "external_id"
	SpanAttrSyncOutcome     = "sync_outcome"
	SpanAttrHTTPStatus      = "http.status_code"
)

// StartSpan starts an internal span named spanName. Callers must End it.
func StartSpan(ctx context.Context, spanName string, kind trace.SpanKind) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, spanName, trace.WithSpanKind(kind))
}

// StartServiceSpan starts a span named {service}.{method}
func StartServiceSpan(ctx context.Context, service, method string) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, trace.SpanKindInternal)
}

// StartClientSpan starts a client span for a call to an external system
func StartClientSpan(ctx context.Context, system, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, system+"."+operation, trace.SpanKindClient)
}

// SetAttributes adds key/value pairs to span. Keys must be strings.
//
//	telemetry.SetAttributes(span,
//	    telemetry.SpanAttrInvoiceID, inv.ID.String(),
//	    telemetry.SpanAttrAmount, amount.String(),
//	)
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	span.SetAttributes(attrs...)
}

// RecordError records err on span and marks the span failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace ID of the span in ctx, or "" without one
func TraceID(ctx context.Context) string {
	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
