package dto

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest is the body of POST /invoices/:id/payments.
// Amount accepts a JSON number or a decimal string.
type RecordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Method         string          `json:"payment_method" binding:"required,oneof=cash check bank_transfer credit_card ach wire other"`
	TransactionRef *string         `json:"transaction_ref,omitempty" binding:"omitempty,max=100"`
	Notes          *string         `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// CancelInvoiceRequest is the body of POST /invoices/:id/cancel
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// InvoiceResponse is the API view of an invoice
type InvoiceResponse struct {
	ID                uuid.UUID  `json:"id"`
	InvoiceNumber     string     `json:"invoice_number"`
	InvoiceType       string     `json:"invoice_type"`
	ProductionOrderID *uuid.UUID `json:"production_order_id,omitempty"`
	Total             string     `json:"total"`
	AmountPaid        string     `json:"amount_paid"`
	AmountDue         string     `json:"amount_due"`
	Status            string     `json:"status"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	PaidDate          *time.Time `json:"paid_date,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty"`
	Version           int        `json:"version"`
}

// PaymentResponse is the API view of a payment
type PaymentResponse struct {
	ID             uuid.UUID `json:"id"`
	PaymentNumber  string    `json:"payment_number"`
	InvoiceID      uuid.UUID `json:"invoice_id"`
	Amount         string    `json:"amount"`
	Method         string    `json:"payment_method"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	Status         string    `json:"status"`
	PaidAt         time.Time `json:"paid_at"`
}

// ProductionOrderResponse is the API view of a production order touched by a payment
type ProductionOrderResponse struct {
	ID               uuid.UUID `json:"id"`
	OrderNumber      string    `json:"order_number"`
	Status           string    `json:"status"`
	DepositPaid      bool      `json:"deposit_paid"`
	FinalPaymentPaid bool      `json:"final_payment_paid"`
}

// RecordPaymentResponse is the result of recording a payment
type RecordPaymentResponse struct {
	Payment         PaymentResponse          `json:"payment"`
	Invoice         InvoiceResponse          `json:"invoice"`
	ProductionOrder *ProductionOrderResponse `json:"production_order,omitempty"`
	Trigger         string                   `json:"production_trigger"`
	UnitsCreated    int                      `json:"units_created"`
	Message         string                   `json:"message"`
}

// NewInvoiceResponse converts an invoice
func NewInvoiceResponse(inv *finance.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		InvoiceType:       string(inv.InvoiceType),
		ProductionOrderID: inv.ProductionOrderID,
		Total:             inv.Total.StringFixed(2),
		AmountPaid:        inv.AmountPaid.StringFixed(2),
		AmountDue:         inv.AmountDue.StringFixed(2),
		Status:            inv.Status.String(),
		DueDate:           inv.DueDate,
		PaidDate:          inv.PaidDate,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		Version:           inv.Version,
	}
}

// NewPaymentResponse converts a payment
func NewPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		PaymentNumber:  p.PaymentNumber,
		InvoiceID:      p.InvoiceID,
		Amount:         p.Amount.StringFixed(2),
		Method:         string(p.Method),
		TransactionRef: p.TransactionRef,
		Status:         string(p.Status),
		PaidAt:         p.PaidAt,
	}
}

// NewPaymentResponses converts a payment list
func NewPaymentResponses(payments []finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = NewPaymentResponse(&payments[i])
	}
	return out
}

// NewProductionOrderResponse converts a production order, nil when order is nil
func NewProductionOrderResponse(order *production.ProductionOrder) *ProductionOrderResponse {
	if order == nil {
		return nil
	}
	return &ProductionOrderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           string(order.Status),
		DepositPaid:      order.DepositPaid,
		FinalPaymentPaid: order.FinalPaymentPaid,
	}
}
