package handler

import (
	"context"

	"github.com/erp/ledgersync/internal/application/finance"
	domainfinance "github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the ledger API used by LedgerHandler
type LedgerService interface {
	RecordPayment(ctx context.Context, input finance.RecordPaymentInput) (*finance.RecordPaymentResult, error)
	CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*domainfinance.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domainfinance.Invoice, error)
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]domainfinance.Payment, error)
}

// LedgerHandler serves invoices and payments
type LedgerHandler struct {
	BaseHandler
	ledger LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RegisterRoutes registers the ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.GET("/:id", h.GetInvoice)
	invoices.GET("/:id/payments", h.ListPayments)
	invoices.POST("/:id/payments", h.RecordPayment)
	invoices.POST("/:id/cancel", h.CancelInvoice)
}

// GetInvoice godoc
// @Summary Get an invoice
// @Router /invoices/{id} [get]
func (h *LedgerHandler) GetInvoice(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.ledger.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceResponse(invoice))
}

// ListPayments godoc
// @Summary List the payments of an invoice
// @Router /invoices/{id}/payments [get]
func (h *LedgerHandler) ListPayments(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	payments, err := h.ledger.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPaymentResponses(payments))
}

// RecordPayment godoc
// @Summary Record a payment against an invoice
// @Description Applies the payment, fires the production trigger when the invoice becomes paid
// @Router /invoices/{id}/payments [post]
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.ledger.RecordPayment(c.Request.Context(), finance.RecordPaymentInput{
		InvoiceID:      id,
		Amount:         req.Amount,
		Method:         domainfinance.PaymentMethod(req.Method),
		TransactionRef: req.TransactionRef,
		Notes:          req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.RecordPaymentResponse{
		Payment:         dto.NewPaymentResponse(result.Payment),
		Invoice:         dto.NewInvoiceResponse(result.Invoice),
		ProductionOrder: dto.NewProductionOrderResponse(result.ProductionOrder),
		Trigger:         result.Trigger.String(),
		UnitsCreated:    result.UnitsCreated,
		Message:         result.Message,
	})
}

// CancelInvoice godoc
// @Summary Cancel an invoice that has no payments
// @Router /invoices/{id}/cancel [post]
func (h *LedgerHandler) CancelInvoice(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelInvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	invoice, err := h.ledger.CancelInvoice(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceResponse(invoice))
}
