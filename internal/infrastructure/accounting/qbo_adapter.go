// Package accounting is the QuickBooks Online adapter for the accounting
// ledger ports: a REST client for customers, invoices and payments and an
// OAuth credential provider that refreshes and persists tokens.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const tracingSystem = "quickbooks"

// QuickBooksAdapter implements integration.AccountingService against the
// QuickBooks Online v3 REST API
type QuickBooksAdapter struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewQuickBooksAdapter creates a new QuickBooksAdapter. A nil httpClient gets
// a client with the configured timeout.
func NewQuickBooksAdapter(config Config, httpClient *http.Client, logger *zap.Logger) (*QuickBooksAdapter, error) {
	if config.APIBaseURL == "" {
		return nil, ErrMissingAPIBaseURL
	}
	cfg := config.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuickBooksAdapter{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CreateCustomer creates a customer
func (a *QuickBooksAdapter) CreateCustomer(ctx context.Context, cred *integration.Credential, customer integration.ExternalCustomer) (integration.ExternalRef, integration.Exchange, error) {
	body := qboCustomer{
		DisplayName: customer.DisplayName,
		CompanyName: customer.CompanyName,
		GivenName:   customer.GivenName,
		FamilyName:  customer.FamilyName,
	}
	if customer.Email != "" {
		body.PrimaryEmailAddr = &qboEmail{Address: customer.Email}
	}
	if customer.Phone != "" {
		body.PrimaryPhone = &qboPhone{FreeFormNumber: customer.Phone}
	}

	resp, exchange, err := a.post(ctx, "CreateCustomer", cred, "customer", body)
	if err != nil {
		return integration.ExternalRef{}, exchange, err
	}
	return entityRef(resp.Customer, exchange)
}

// CreateInvoice creates an invoice
func (a *QuickBooksAdapter) CreateInvoice(ctx context.Context, cred *integration.Credential, invoice integration.ExternalInvoice) (integration.ExternalRef, integration.Exchange, error) {
	resp, exchange, err := a.post(ctx, "CreateInvoice", cred, "invoice", buildInvoiceBody(invoice))
	if err != nil {
		return integration.ExternalRef{}, exchange, err
	}
	return entityRef(resp.Invoice, exchange)
}

// UpdateInvoice sends a sparse update of an existing invoice. A stale
// SyncToken is rejected by QuickBooks with a request failure.
func (a *QuickBooksAdapter) UpdateInvoice(ctx context.Context, cred *integration.Credential, invoice integration.ExternalInvoice) (integration.ExternalRef, integration.Exchange, error) {
	if invoice.ID == "" || invoice.SyncToken == "" {
		return integration.ExternalRef{}, integration.Exchange{},
			fmt.Errorf("%w: invoice update requires Id and SyncToken", integration.ErrExternalRequestFailed)
	}
	body := buildInvoiceBody(invoice)
	body.ID = invoice.ID
	body.SyncToken = invoice.SyncToken
	body.Sparse = true

	resp, exchange, err := a.post(ctx, "UpdateInvoice", cred, "invoice", body)
	if err != nil {
		return integration.ExternalRef{}, exchange, err
	}
	return entityRef(resp.Invoice, exchange)
}

// CreatePayment creates a payment linked to one invoice
func (a *QuickBooksAdapter) CreatePayment(ctx context.Context, cred *integration.Credential, payment integration.ExternalPayment) (integration.ExternalRef, integration.Exchange, error) {
	body := qboPayment{
		TotalAmt:      money(payment.Amount),
		CustomerRef:   qboRef{Value: payment.CustomerRef},
		TxnDate:       qboDate(payment.TxnDate),
		PaymentRefNum: truncate(payment.PaymentRefNum, 21),
		PrivateNote:   payment.PrivateNote,
		Line: []qboPaymentLine{{
			Amount:    money(payment.Amount),
			LinkedTxn: []qboLinkedTxn{{TxnID: payment.InvoiceRef, TxnType: "Invoice"}},
		}},
	}

	resp, exchange, err := a.post(ctx, "CreatePayment", cred, "payment", body)
	if err != nil {
		return integration.ExternalRef{}, exchange, err
	}
	return entityRef(resp.Payment, exchange)
}

func buildInvoiceBody(invoice integration.ExternalInvoice) qboInvoice {
	lines := make([]qboInvoiceLine, 0, len(invoice.Lines))
	for _, l := range invoice.Lines {
		lines = append(lines, qboInvoiceLine{
			DetailType:  "SalesItemLineDetail",
			Amount:      money(l.Amount),
			Description: l.Description,
			SalesItemLineDetail: &qboSalesItemLineDetail{
				ItemRef:   qboRef{Value: l.ItemRef},
				Qty:       quantity(l.Quantity),
				UnitPrice: money(l.UnitPrice),
			},
		})
	}
	body := qboInvoice{
		DocNumber:   truncate(invoice.DocNumber, 21),
		TxnDate:     qboDate(invoice.TxnDate),
		CustomerRef: qboRef{Value: invoice.CustomerRef},
		Line:        lines,
		PrivateNote: invoice.PrivateNote,
	}
	if invoice.DueDate != nil {
		body.DueDate = qboDate(*invoice.DueDate)
	}
	return body
}

// post sends body to /v3/company/{realm}/{entity} and decodes the entity response.
// The returned Exchange holds whatever was sent and received, also on failure.
func (a *QuickBooksAdapter) post(
	ctx context.Context,
	operation string,
	cred *integration.Credential,
	entity string,
	body any,
) (*qboResponse, integration.Exchange, error) {
	ctx, span := telemetry.StartClientSpan(ctx, tracingSystem, operation)
	defer span.End()

	var exchange integration.Exchange
	if cred == nil || cred.AccessToken == "" || cred.RealmID == "" {
		return nil, exchange, integration.ErrNotConnected
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, exchange, fmt.Errorf("quickbooks: failed to marshal %s: %w", entity, err)
	}
	exchange.Request = payload

	endpoint := fmt.Sprintf("%s/v3/company/%s/%s?minorversion=%s",
		a.config.APIBaseURL, url.PathEscape(cred.RealmID), entity, url.QueryEscape(a.config.MinorVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, exchange, fmt.Errorf("quickbooks: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %v", integration.ErrExternalUnavailable, err)
		telemetry.RecordError(span, err)
		return nil, exchange, err
	}
	defer resp.Body.Close()

	telemetry.SetAttributes(span, telemetry.SpanAttrHTTPStatus, resp.StatusCode)
	if intuitTID := resp.Header.Get("intuit_tid"); intuitTID != "" {
		telemetry.SetAttributes(span, "intuit_tid", intuitTID)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	exchange.Response = respBody
	if err != nil {
		err = fmt.Errorf("%w: reading response: %v", integration.ErrExternalUnavailable, err)
		telemetry.RecordError(span, err)
		return nil, exchange, err
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		a.logger.Warn("quickbooks request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("intuit_tid", resp.Header.Get("intuit_tid")),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, exchange, err
	}

	var decoded qboResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		err = fmt.Errorf("%w: %v", integration.ErrExternalInvalidResponse, err)
		telemetry.RecordError(span, err)
		return nil, exchange, err
	}
	if decoded.Fault != nil {
		err := fmt.Errorf("%w: %s", integration.ErrExternalRequestFailed, decoded.Fault)
		telemetry.RecordError(span, err)
		return nil, exchange, err
	}
	return &decoded, exchange, nil
}

// statusError maps a non-2xx status onto the integration transport errors
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	detail := fmt.Sprintf("HTTP %d", status)
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Fault != nil {
		detail = fmt.Sprintf("HTTP %d: %s", status, errResp.Fault)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", integration.ErrExternalAuthFailed, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", integration.ErrExternalRateLimited, detail)
	case status >= 500:
		return fmt.Errorf("%w: %s", integration.ErrExternalUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", integration.ErrExternalRequestFailed, detail)
	}
}

func entityRef(entity *qboEntity, exchange integration.Exchange) (integration.ExternalRef, integration.Exchange, error) {
	if entity == nil || entity.ID == "" {
		return integration.ExternalRef{}, exchange,
			errors.Join(integration.ErrExternalInvalidResponse, errors.New("response carries no entity id"))
	}
	return integration.ExternalRef{ID: entity.ID, SyncToken: entity.SyncToken}, exchange, nil
}

// truncate cuts s to at most limit characters for QuickBooks field limits,
// never splitting a multibyte character
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}

// Ensure QuickBooksAdapter implements AccountingService
var _ integration.AccountingService = (*QuickBooksAdapter)(nil)
