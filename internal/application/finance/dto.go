package finance

import (
	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput is the request to record a payment against an invoice
type RecordPaymentInput struct {
	InvoiceID      uuid.UUID
	Amount         decimal.Decimal
	Method         finance.PaymentMethod
	TransactionRef *string
	Notes          *string
}

// RecordPaymentResult is what RecordPayment changed
type RecordPaymentResult struct {
	Payment         *finance.Payment
	Invoice         *finance.Invoice
	ProductionOrder *production.ProductionOrder
	Trigger         finance.ProductionTrigger
	UnitsCreated    int
	Message         string
}

// DispatchResult is the side effect of a production trigger
type DispatchResult struct {
	Trigger      finance.ProductionTrigger
	Order        *production.ProductionOrder
	UnitsCreated int
	// Applied is false when the order already had the flag set
	Applied bool
}
