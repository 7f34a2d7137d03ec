package dto

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/google/uuid"
)

// ConnectionStatusResponse reports the accounting ledger connection
type ConnectionStatusResponse struct {
	Connected           bool       `json:"connected"`
	RealmID             string     `json:"realm_id,omitempty"`
	CompanyName         string     `json:"company_name,omitempty"`
	AccessTokenExpired  bool       `json:"access_token_expired"`
	RefreshTokenExpired bool       `json:"refresh_token_expired"`
	AccessTokenExpires  *time.Time `json:"access_token_expires_at,omitempty"`
	RefreshTokenExpires *time.Time `json:"refresh_token_expires_at,omitempty"`
}

// InvoiceSyncResponse is the result of pushing an invoice
type InvoiceSyncResponse struct {
	InvoiceID          uuid.UUID `json:"invoice_id"`
	ExternalID         string    `json:"external_id"`
	SyncToken          string    `json:"sync_token"`
	Action             string    `json:"action"`
	CustomerExternalID string    `json:"customer_external_id"`
}

// PaymentSyncResponse is the result of pushing a payment
type PaymentSyncResponse struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	Outcome    string    `json:"outcome"`
	ExternalID string    `json:"external_id,omitempty"`
}

// SyncLogEntryResponse is one sync log entry
type SyncLogEntryResponse struct {
	ID           uuid.UUID `json:"id"`
	SyncType     string    `json:"sync_type"`
	Direction    string    `json:"direction"`
	EntityID     uuid.UUID `json:"entity_id"`
	ExternalID   *string   `json:"external_id,omitempty"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// HistoryQuery is the query string of the sync history endpoint
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// ConnectRequest completes the OAuth consent flow
type ConnectRequest struct {
	Code        string `json:"code" form:"code" binding:"required"`
	RealmID     string `json:"realm_id" form:"realmId" binding:"required"`
	CompanyName string `json:"company_name" form:"company_name"`
}

// NewConnectionStatusResponse converts a connection status
func NewConnectionStatusResponse(s integration.ConnectionStatus) ConnectionStatusResponse {
	return ConnectionStatusResponse{
		Connected:           s.Connected,
		RealmID:             s.RealmID,
		CompanyName:         s.CompanyName,
		AccessTokenExpired:  s.AccessTokenExpired,
		RefreshTokenExpired: s.RefreshTokenExpired,
		AccessTokenExpires:  s.AccessTokenExpires,
		RefreshTokenExpires: s.RefreshTokenExpires,
	}
}

// NewInvoiceSyncResponse converts an invoice sync result
func NewInvoiceSyncResponse(r *integration.InvoiceSyncResult) InvoiceSyncResponse {
	return InvoiceSyncResponse{
		InvoiceID:          r.InvoiceID,
		ExternalID:         r.ExternalID,
		SyncToken:          r.SyncToken,
		Action:             string(r.Action),
		CustomerExternalID: r.CustomerExternalID,
	}
}

// NewPaymentSyncResponse converts a payment sync result
func NewPaymentSyncResponse(r *integration.PaymentSyncResult) PaymentSyncResponse {
	return PaymentSyncResponse{
		PaymentID:  r.PaymentID,
		Outcome:    string(r.Outcome),
		ExternalID: r.ExternalID,
	}
}

// NewSyncLogResponses converts sync log entries, omitting raw payloads
func NewSyncLogResponses(entries []integration.SyncLogEntry) []SyncLogEntryResponse {
	out := make([]SyncLogEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = SyncLogEntryResponse{
			ID:           e.ID,
			SyncType:     string(e.SyncType),
			Direction:    string(e.Direction),
			EntityID:     e.EntityID,
			ExternalID:   e.ExternalID,
			Action:       string(e.Action),
			Status:       string(e.Status),
			ErrorMessage: e.ErrorMessage,
			StartedAt:    e.StartedAt,
			CompletedAt:  e.CompletedAt,
		}
	}
	return out
}
