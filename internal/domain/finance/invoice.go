package finance

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of a production invoice
type InvoiceStatus string

const (
	InvoiceStatusPendingPayment InvoiceStatus = "pending_payment" // Nothing paid yet
	InvoiceStatusPartialPayment InvoiceStatus = "partial_payment" // 0 < amount_paid < total
	InvoiceStatusPaid           InvoiceStatus = "paid"            // amount_due <= 0
	InvoiceStatusOverdue        InvoiceStatus = "overdue"         // Past due date, set by the overdue sweep
	InvoiceStatusCancelled      InvoiceStatus = "cancelled"       // Cancelled before any payment
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPendingPayment, InvoiceStatusPartialPayment, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further payment can change the invoice
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// InvoiceType classifies an invoice against its production order
type InvoiceType string

const (
	InvoiceTypeDeposit InvoiceType = "deposit"
	InvoiceTypeFinal   InvoiceType = "final"
	InvoiceTypeOther   InvoiceType = "other"
)

// IsValid checks if the invoice type is valid
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeDeposit, InvoiceTypeFinal, InvoiceTypeOther:
		return true
	}
	return false
}

// InvoiceLineItem is a value object within the Invoice aggregate, stored as JSONB
type InvoiceLineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewInvoiceLineItem creates a line item with amount = quantity * unit price
func NewInvoiceLineItem(description string, quantity, unitPrice decimal.Decimal) InvoiceLineItem {
	return InvoiceLineItem{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice).Round(2),
	}
}

// InvoiceLineItems implements GORM Scanner/Valuer for JSONB storage
type InvoiceLineItems []InvoiceLineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l InvoiceLineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *InvoiceLineItems) Scan(value interface{}) error {
	if value == nil {
		*l = InvoiceLineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan InvoiceLineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = InvoiceLineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Invoice is the aggregate root for a production invoice.
// AmountPaid + AmountDue always equals Total, and Status is paid exactly when
// AmountDue has reached zero.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber     string           `json:"invoice_number"`
	ProductionOrderID *uuid.UUID       `json:"production_order_id,omitempty"`
	InvoiceType       InvoiceType      `json:"invoice_type"`
	Total             decimal.Decimal  `json:"total"`
	AmountPaid        decimal.Decimal  `json:"amount_paid"`
	AmountDue         decimal.Decimal  `json:"amount_due"`
	Status            InvoiceStatus    `json:"status"`
	DueDate           *time.Time       `json:"due_date,omitempty"`
	PaidDate          *time.Time       `json:"paid_date,omitempty"`
	CancelledAt       *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason      string           `json:"cancel_reason,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	LineItems         InvoiceLineItems `json:"line_items"`
}

// NewInvoice creates a pending invoice. When line items are given their sum must equal total.
func NewInvoice(
	invoiceNumber string,
	invoiceType InvoiceType,
	productionOrderID *uuid.UUID,
	total decimal.Decimal,
	dueDate *time.Time,
	lineItems ...InvoiceLineItem,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if !invoiceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INVOICE_TYPE", "Invoice type is not valid")
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total must be positive")
	}
	if len(lineItems) > 0 {
		sum := decimal.Zero
		for _, item := range lineItems {
			sum = sum.Add(item.Amount)
		}
		if !sum.Equal(total) {
			return nil, shared.NewDomainError("INVALID_AMOUNT",
				fmt.Sprintf("Line items sum %s does not match invoice total %s", sum.StringFixed(2), total.StringFixed(2)))
		}
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		ProductionOrderID: productionOrderID,
		InvoiceType:       invoiceType,
		Total:             total,
		AmountPaid:        decimal.Zero,
		AmountDue:         total,
		Status:            InvoiceStatusPendingPayment,
		DueDate:           dueDate,
		LineItems:         InvoiceLineItems(lineItems),
	}
	if inv.LineItems == nil {
		inv.LineItems = InvoiceLineItems{}
	}

	return inv, nil
}

// ApplyPayment adds the payment amount to the paid total and re-derives the
// status. It returns the status held before the payment so callers can detect
// the transition into paid.
func (inv *Invoice) ApplyPayment(payment *Payment) (InvoiceStatus, error) {
	previous := inv.Status

	switch inv.Status {
	case InvoiceStatusCancelled:
		return previous, shared.NewDomainError(shared.CodeInvalidState, "Cannot record a payment against a cancelled invoice")
	case InvoiceStatusPaid:
		return previous, shared.NewDomainError("ALREADY_PAID", fmt.Sprintf("Invoice %s is already paid", inv.InvoiceNumber))
	}
	if payment == nil || payment.Amount.LessThanOrEqual(decimal.Zero) {
		return previous, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !isWholeCents(payment.Amount) {
		return previous, shared.NewDomainError("INVALID_AMOUNT", "Payment amount cannot have fractions of a cent")
	}
	if payment.Amount.GreaterThan(inv.AmountDue) {
		return previous, shared.NewDomainError("EXCEEDS_AMOUNT_DUE",
			fmt.Sprintf("Payment amount %s exceeds amount due %s", payment.Amount.StringFixed(2), inv.AmountDue.StringFixed(2)))
	}

	inv.AmountPaid = inv.AmountPaid.Add(payment.Amount)
	inv.AmountDue = decimal.Max(inv.Total.Sub(inv.AmountPaid), decimal.Zero)

	switch {
	case inv.AmountDue.LessThanOrEqual(decimal.Zero):
		paidAt := payment.PaidAt
		inv.Status = InvoiceStatusPaid
		inv.PaidDate = &paidAt
	case inv.AmountPaid.GreaterThan(decimal.Zero):
		inv.Status = InvoiceStatusPartialPayment
	}

	inv.MarkModified(time.Now())

	inv.AddDomainEvent(NewInvoicePaymentAppliedEvent(inv, payment, previous))
	if inv.Status == InvoiceStatusPaid {
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}

	return previous, nil
}

// Cancel cancels the invoice. Invoices that have received money must be refunded instead.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoice is already cancelled")
	}
	if inv.AmountPaid.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("HAS_PAYMENTS", "Invoice has payments recorded; it must be refunded, not cancelled")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.MarkModified(now)

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// MarkOverdue flags an open invoice whose due date has passed.
// It returns false when nothing changed.
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if inv.Status.IsTerminal() || inv.Status == InvoiceStatusOverdue {
		return false
	}
	if inv.DueDate == nil || !now.After(*inv.DueDate) {
		return false
	}
	inv.Status = InvoiceStatusOverdue
	inv.MarkModified(now)
	return true
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// HasProductionOrder returns true if the invoice bills a production order
func (inv *Invoice) HasProductionOrder() bool {
	return inv.ProductionOrderID != nil && *inv.ProductionOrderID != uuid.Nil
}
