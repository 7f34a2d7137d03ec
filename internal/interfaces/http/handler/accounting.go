package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	appintegration "github.com/erp/ledgersync/internal/application/integration"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	oauthStateCookie    = "ledger_oauth_state"
)

// AccountingSyncer is the sync API used by AccountingHandler
type AccountingSyncer interface {
	SyncInvoice(ctx context.Context, invoiceID uuid.UUID) (*integration.InvoiceSyncResult, error)
	SyncPayment(ctx context.Context, paymentID uuid.UUID) (*integration.PaymentSyncResult, error)
	ConnectionStatus(ctx context.Context) (integration.ConnectionStatus, error)
	SyncHistory(ctx context.Context, entityID uuid.UUID, limit int) ([]integration.SyncLogEntry, error)
	SyncStats(ctx context.Context) (*appintegration.SyncStats, error)
}

// AccountingConnector runs the OAuth consent flow
type AccountingConnector interface {
	AuthCodeURL(state string) string
	Connect(ctx context.Context, code, realmID, companyName string) (*integration.Credential, error)
}

// AccountingHandler serves the accounting sync operator endpoints
type AccountingHandler struct {
	BaseHandler
	syncer    AccountingSyncer
	connector AccountingConnector
}

// NewAccountingHandler creates a new AccountingHandler. connector may be nil,
// which leaves the connect routes unregistered.
func NewAccountingHandler(syncer AccountingSyncer, connector AccountingConnector) *AccountingHandler {
	return &AccountingHandler{syncer: syncer, connector: connector}
}

// RegisterRoutes registers the accounting routes
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	acct := rg.Group("/accounting")
	acct.GET("/status", h.Status)
	acct.POST("/invoices/:id/sync", h.SyncInvoice)
	acct.POST("/payments/:id/sync", h.SyncPayment)
	acct.GET("/history/:entity_id", h.History)
	acct.GET("/stats", h.Stats)
	if h.connector != nil {
		acct.GET("/connect", h.Connect)
		acct.GET("/callback", h.Callback)
	}
}

// Status godoc
// @Summary Accounting ledger connection status
// @Router /accounting/status [get]
func (h *AccountingHandler) Status(c *gin.Context) {
	status, err := h.syncer.ConnectionStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewConnectionStatusResponse(status))
}

// SyncInvoice godoc
// @Summary Push an invoice to the accounting ledger
// @Router /accounting/invoices/{id}/sync [post]
func (h *AccountingHandler) SyncInvoice(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.syncer.SyncInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceSyncResponse(result))
}

// SyncPayment godoc
// @Summary Push a payment to the accounting ledger
// @Router /accounting/payments/{id}/sync [post]
func (h *AccountingHandler) SyncPayment(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.syncer.SyncPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewPaymentSyncResponse(result))
}

// History godoc
// @Summary Sync attempts for an internal record, newest first
// @Router /accounting/history/{entity_id} [get]
func (h *AccountingHandler) History(c *gin.Context) {
	id, ok := h.ParseUUID(c, "entity_id")
	if !ok {
		return
	}
	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}

	entries, err := h.syncer.SyncHistory(c.Request.Context(), id, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewSyncLogResponses(entries))
}

// Stats godoc
// @Summary Sync log totals and mapped record counts
// @Router /accounting/stats [get]
func (h *AccountingHandler) Stats(c *gin.Context) {
	stats, err := h.syncer.SyncStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Connect redirects the operator to the consent page
func (h *AccountingHandler) Connect(c *gin.Context) {
	state, err := newState()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.connector.AuthCodeURL(state))
}

// Callback completes the consent flow and stores the credential
func (h *AccountingHandler) Callback(c *gin.Context) {
	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		h.BadRequest(c, "OAuth state mismatch, restart the connect flow")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	var req dto.ConnectRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	cred, err := h.connector.Connect(c.Request.Context(), req.Code, req.RealmID, req.CompanyName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"connected": true, "realm_id": cred.RealmID})
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
