package integration

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/domain/partner"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncConfig tunes AccountingSyncService
type SyncConfig struct {
	// DefaultItemRef is the external item every invoice line is booked against.
	// Invoice sync fails with a configuration error while it is empty.
	DefaultItemRef string
	// CallTimeout bounds each external call. Zero disables the deadline.
	CallTimeout time.Duration
}

// SyncDependencies are the ports AccountingSyncService reads and writes through
type SyncDependencies struct {
	Credentials integration.CredentialProvider
	Accounting  integration.AccountingService
	Mappings    integration.EntityMappingRepository
	SyncLogs    integration.SyncLogRepository
	Invoices    finance.InvoiceRepository
	Payments    finance.PaymentRepository
	Orders      production.ProductionOrderRepository
	Projects    production.ProjectReader
	Customers   partner.CustomerReader
	// Backlog is optional. SyncBacklog fails with a configuration error without it.
	Backlog integration.UnmappedPaymentFinder
}

// SyncStats summarizes the sync log and the mapping store
type SyncStats struct {
	Total           int64   `json:"total"`
	Completed       int64   `json:"completed"`
	Failed          int64   `json:"failed"`
	SuccessRate     float64 `json:"success_rate"`
	MappedCustomers int64   `json:"mapped_customers"`
	MappedInvoices  int64   `json:"mapped_invoices"`
	MappedPayments  int64   `json:"mapped_payments"`
}

// BacklogResult counts one pass over unmapped payments
type BacklogResult struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

// invoiceContext is an invoice with the relations needed to push it
type invoiceContext struct {
	invoice  *finance.Invoice
	order    *production.ProductionOrder
	project  *production.Project
	customer *partner.Customer
}

const defaultHistoryLimit = 50

var errNilDependency = shared.NewDomainError(shared.CodeConfiguration, "accounting sync dependency is not configured")

// validate reports the first missing port
func (d SyncDependencies) validate() error {
	if d.Credentials == nil || d.Accounting == nil || d.Mappings == nil || d.SyncLogs == nil ||
		d.Invoices == nil || d.Payments == nil || d.Orders == nil || d.Projects == nil || d.Customers == nil {
		return errNilDependency
	}
	return nil
}

// paymentResult builds a tagged result for paymentID
func paymentResult(paymentID uuid.UUID, outcome integration.PaymentSyncOutcome, externalID string) *integration.PaymentSyncResult {
	return &integration.PaymentSyncResult{
		PaymentID:  paymentID,
		Outcome:    outcome,
		ExternalID: externalID,
	}
}
