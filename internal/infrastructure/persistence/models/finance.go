package models

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber     string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProductionOrderID *uuid.UUID               `gorm:"type:uuid;index"`
	InvoiceType       finance.InvoiceType      `gorm:"type:varchar(20);not null"`
	Total             decimal.Decimal          `gorm:"type:decimal(15,2);not null"`
	AmountPaid        decimal.Decimal          `gorm:"type:decimal(15,2);not null"`
	AmountDue         decimal.Decimal          `gorm:"type:decimal(15,2);not null"`
	Status            finance.InvoiceStatus    `gorm:"type:varchar(30);not null;index"`
	DueDate           *time.Time               `gorm:"index"`
	PaidDate          *time.Time
	CancelledAt       *time.Time
	CancelReason      string                   `gorm:"type:text"`
	Notes             string                   `gorm:"type:text"`
	LineItems         finance.InvoiceLineItems `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	lineItems := m.LineItems
	if lineItems == nil {
		lineItems = finance.InvoiceLineItems{}
	}
	return &finance.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		ProductionOrderID: m.ProductionOrderID,
		InvoiceType:       m.InvoiceType,
		Total:             m.Total,
		AmountPaid:        m.AmountPaid,
		AmountDue:         m.AmountDue,
		Status:            m.Status,
		DueDate:           m.DueDate,
		PaidDate:          m.PaidDate,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		Notes:             m.Notes,
		LineItems:         lineItems,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber:     inv.InvoiceNumber,
		ProductionOrderID: inv.ProductionOrderID,
		InvoiceType:       inv.InvoiceType,
		Total:             inv.Total,
		AmountPaid:        inv.AmountPaid,
		AmountDue:         inv.AmountDue,
		Status:            inv.Status,
		DueDate:           inv.DueDate,
		PaidDate:          inv.PaidDate,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		Notes:             inv.Notes,
		LineItems:         inv.LineItems,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for the Payment entity.
type PaymentModel struct {
	AggregateModel
	PaymentNumber     string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	InvoiceID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	ProductionOrderID *uuid.UUID            `gorm:"type:uuid;index"`
	Amount            decimal.Decimal       `gorm:"type:decimal(15,2);not null"`
	Method            finance.PaymentMethod `gorm:"type:varchar(30);not null"`
	TransactionRef    string                `gorm:"type:varchar(100)"`
	Notes             string                `gorm:"type:text"`
	Status            finance.PaymentStatus `gorm:"type:varchar(20);not null"`
	PaidAt            time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PaymentNumber:     m.PaymentNumber,
		InvoiceID:         m.InvoiceID,
		ProductionOrderID: m.ProductionOrderID,
		Amount:            m.Amount,
		Method:            m.Method,
		TransactionRef:    m.TransactionRef,
		Notes:             m.Notes,
		Status:            m.Status,
		PaidAt:            m.PaidAt,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		PaymentNumber:     p.PaymentNumber,
		InvoiceID:         p.InvoiceID,
		ProductionOrderID: p.ProductionOrderID,
		Amount:            p.Amount,
		Method:            p.Method,
		TransactionRef:    p.TransactionRef,
		Notes:             p.Notes,
		Status:            p.Status,
		PaidAt:            p.PaidAt,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// PaymentSequenceModel holds the last issued payment sequence value per year.
type PaymentSequenceModel struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentSequenceModel) TableName() string {
	return "payment_sequences"
}
