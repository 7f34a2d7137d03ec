package integration

import "github.com/google/uuid"

// PaymentSyncOutcome classifies the result of pushing one payment
type PaymentSyncOutcome string

const (
	// PaymentSynced means the payment was created externally by this call
	PaymentSynced PaymentSyncOutcome = "synced"
	// PaymentAlreadySynced means a mapping existed and no external call was made
	PaymentAlreadySynced PaymentSyncOutcome = "already_synced"
	// PaymentNeedsInvoiceSync means the invoice has no external counterpart yet
	PaymentNeedsInvoiceSync PaymentSyncOutcome = "needs_invoice_sync"
	// PaymentTransientFailure means the push failed but may succeed on retry
	PaymentTransientFailure PaymentSyncOutcome = "transient_failure"
	// PaymentFailed means the push failed and retrying as-is will not help
	PaymentFailed PaymentSyncOutcome = "failed"
)

// PaymentSyncResult is the tagged outcome of SyncPayment
type PaymentSyncResult struct {
	PaymentID  uuid.UUID
	Outcome    PaymentSyncOutcome
	ExternalID string
}

// Succeeded reports whether the payment now has an external counterpart
func (r PaymentSyncResult) Succeeded() bool {
	return r.Outcome == PaymentSynced || r.Outcome == PaymentAlreadySynced
}

// InvoiceSyncResult is the result of SyncInvoice
type InvoiceSyncResult struct {
	InvoiceID          uuid.UUID
	ExternalID         string
	SyncToken          string
	Action             SyncAction
	CustomerExternalID string
}
