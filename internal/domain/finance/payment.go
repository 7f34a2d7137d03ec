package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodACH          PaymentMethod = "ach"
	PaymentMethodWire         PaymentMethod = "wire"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodBankTransfer,
		PaymentMethodCreditCard, PaymentMethodACH, PaymentMethodWire, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment. Payments are recorded
// once the money has arrived, so completed is the only reachable state.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

// PaymentNumberPrefix is the fixed prefix of every payment number
const PaymentNumberPrefix = "PAY"

// FormatPaymentNumber renders a payment number as PAY-<year>-<seq:04d>
func FormatPaymentNumber(year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", PaymentNumberPrefix, year, seq)
}

// PaymentNumberYearPrefix returns the prefix shared by all payment numbers of a year
func PaymentNumberYearPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", PaymentNumberPrefix, year)
}

// Payment is money received against one invoice. Amount never changes after creation.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber     string          `json:"payment_number"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	ProductionOrderID *uuid.UUID      `json:"production_order_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Method            PaymentMethod   `json:"payment_method"`
	TransactionRef    string          `json:"transaction_ref,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Status            PaymentStatus   `json:"status"`
	PaidAt            time.Time       `json:"paid_at"`
}

// NewPayment creates a completed payment for the given invoice
func NewPayment(
	paymentNumber string,
	invoice *Invoice,
	amount decimal.Decimal,
	method PaymentMethod,
	transactionRef string,
	notes string,
) (*Payment, error) {
	if !strings.HasPrefix(paymentNumber, PaymentNumberPrefix+"-") {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number must start with "+PaymentNumberPrefix+"-")
	}
	if invoice == nil || invoice.ID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !isWholeCents(amount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount cannot have fractions of a cent")
	}
	if method == "" {
		method = PaymentMethodOther
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %q is not supported", method))
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     paymentNumber,
		InvoiceID:         invoice.ID,
		ProductionOrderID: invoice.ProductionOrderID,
		Amount:            amount,
		Method:            method,
		TransactionRef:    transactionRef,
		Notes:             notes,
		Status:            PaymentStatusCompleted,
	}
	p.PaidAt = p.CreatedAt

	p.AddDomainEvent(NewPaymentRecordedEvent(p, invoice.InvoiceNumber))

	return p, nil
}

// isWholeCents reports whether d has no digits beyond the second decimal place
func isWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
