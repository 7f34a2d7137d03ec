package finance

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeInvoicePaymentApplied = "InvoicePaymentApplied"
	EventTypeInvoicePaid           = "InvoicePaid"
	EventTypeInvoiceCancelled      = "InvoiceCancelled"
	EventTypePaymentRecorded       = "PaymentRecorded"
)

// Aggregate type names
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypePayment = "Payment"
)

// InvoicePaymentAppliedEvent is raised every time a payment changes an invoice balance
type InvoicePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
	NewStatus      InvoiceStatus   `json:"new_status"`
}

// EventType returns the event type name
func (e *InvoicePaymentAppliedEvent) EventType() string {
	return EventTypeInvoicePaymentApplied
}

// NewInvoicePaymentAppliedEvent creates a new InvoicePaymentAppliedEvent
func NewInvoicePaymentAppliedEvent(inv *Invoice, payment *Payment, previous InvoiceStatus) *InvoicePaymentAppliedEvent {
	return &InvoicePaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentApplied, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PaymentID:       payment.ID,
		PaymentAmount:   payment.Amount,
		AmountPaid:      inv.AmountPaid,
		AmountDue:       inv.AmountDue,
		PreviousStatus:  previous,
		NewStatus:       inv.Status,
	}
}

// InvoicePaidEvent is raised when an invoice reaches paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceType       InvoiceType     `json:"invoice_type"`
	ProductionOrderID *uuid.UUID      `json:"production_order_id,omitempty"`
	Total             decimal.Decimal `json:"total"`
	PaidDate          time.Time       `json:"paid_date"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return EventTypeInvoicePaid
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	paidDate := time.Now()
	if inv.PaidDate != nil {
		paidDate = *inv.PaidDate
	}
	return &InvoicePaidEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID),
		InvoiceID:         inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		InvoiceType:       inv.InvoiceType,
		ProductionOrderID: inv.ProductionOrderID,
		Total:             inv.Total,
		PaidDate:          paidDate,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Reason        string    `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return EventTypeInvoiceCancelled
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          inv.CancelReason,
	}
}

// PaymentRecordedEvent is raised when a payment is persisted. It drives the
// push of the invoice and payment to the external accounting ledger.
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"payment_method"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment, invoiceNumber string) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		InvoiceID:       p.InvoiceID,
		InvoiceNumber:   invoiceNumber,
		Amount:          p.Amount,
		Method:          p.Method,
	}
}
