package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// AccountingService Port
// ---------------------------------------------------------------------------

// AccountingService is the port to the external accounting ledger.
// Every call carries the credential to use and returns the raw request and
// response bodies alongside the result so they can be written to the sync log.
type AccountingService interface {
	// CreateCustomer creates a customer record
	CreateCustomer(ctx context.Context, cred *Credential, customer ExternalCustomer) (ExternalRef, Exchange, error)

	// CreateInvoice creates an invoice record
	CreateInvoice(ctx context.Context, cred *Credential, invoice ExternalInvoice) (ExternalRef, Exchange, error)

	// UpdateInvoice updates an invoice record; invoice.ID and invoice.SyncToken must be set
	UpdateInvoice(ctx context.Context, cred *Credential, invoice ExternalInvoice) (ExternalRef, Exchange, error)

	// CreatePayment creates a payment record applied to one invoice
	CreatePayment(ctx context.Context, cred *Credential, payment ExternalPayment) (ExternalRef, Exchange, error)
}

// ExternalRef identifies a record in the external ledger together with its
// optimistic concurrency token
type ExternalRef struct {
	ID        string
	SyncToken string
}

// Exchange holds the raw request and response bodies of one external call
type Exchange struct {
	Request  []byte
	Response []byte
}

// ExternalCustomer is the customer shape pushed to the external ledger
type ExternalCustomer struct {
	DisplayName string
	CompanyName string
	GivenName   string
	FamilyName  string
	Email       string
	Phone       string
}

// ExternalInvoiceLine is one sales line of an external invoice
type ExternalInvoiceLine struct {
	Description string
	Amount      decimal.Decimal
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	ItemRef     string
}

// ExternalInvoice is the invoice shape pushed to the external ledger
type ExternalInvoice struct {
	// ID and SyncToken are only set for updates
	ID          string
	SyncToken   string
	DocNumber   string
	CustomerRef string
	TxnDate     time.Time
	DueDate     *time.Time
	Lines       []ExternalInvoiceLine
	PrivateNote string
}

// ExternalPayment is the payment shape pushed to the external ledger
type ExternalPayment struct {
	CustomerRef   string
	InvoiceRef    string
	Amount        decimal.Decimal
	TxnDate       time.Time
	PaymentRefNum string
	PrivateNote   string
}
