package accounting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCred = &integration.Credential{RealmID: "9130", AccessToken: "access-1", IsActive: true}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *QuickBooksAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewQuickBooksAdapter(Config{APIBaseURL: server.URL + "/", MinorVersion: "73"}, server.Client(), nil)
	require.NoError(t, err)
	return adapter
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		APIBaseURL:   "https://sandbox-quickbooks.api.intuit.com",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"missing base url", func(c *Config) { c.APIBaseURL = "" }, ErrMissingAPIBaseURL},
		{"invalid base url", func(c *Config) { c.APIBaseURL = "not a url" }, ErrInvalidAPIBaseURL},
		{"missing client id", func(c *Config) { c.ClientID = "" }, ErrMissingClientID},
		{"missing client secret", func(c *Config) { c.ClientSecret = "" }, ErrMissingClientSecret},
		{"missing token url", func(c *Config) { c.TokenURL = "" }, ErrMissingTokenURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestQuickBooksAdapter_CreateCustomer(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/company/9130/customer", r.URL.Path)
		assert.Equal(t, "73", r.URL.Query().Get("minorversion"))
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Reyes Fabrication", body["DisplayName"])
		assert.Equal(t, map[string]any{"Address": "jordan@reyesfab.example"}, body["PrimaryEmailAddr"])
		assert.NotContains(t, body, "PrimaryPhone")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Customer":{"Id":"58","SyncToken":"0","DisplayName":"Reyes Fabrication"},"time":"2026-05-01T10:00:00-07:00"}`)
	})

	ref, exchange, err := adapter.CreateCustomer(context.Background(), testCred, integration.ExternalCustomer{
		DisplayName: "Reyes Fabrication",
		CompanyName: "Reyes Fabrication",
		Email:       "jordan@reyesfab.example",
	})
	require.NoError(t, err)
	assert.Equal(t, integration.ExternalRef{ID: "58", SyncToken: "0"}, ref)
	assert.Contains(t, string(exchange.Request), `"DisplayName":"Reyes Fabrication"`)
	assert.Contains(t, string(exchange.Response), `"Id":"58"`)
}

func TestQuickBooksAdapter_CreateInvoice(t *testing.T) {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/company/9130/invoice", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"DocNumber": "INV-2026-031",
			"TxnDate": "2026-05-01",
			"DueDate": "2026-06-01",
			"CustomerRef": {"value": "58"},
			"PrivateNote": "Production order PO-2026-014",
			"Line": [{
				"DetailType": "SalesItemLineDetail",
				"Amount": 1000.00,
				"Description": "Deposit",
				"SalesItemLineDetail": {"ItemRef": {"value": "21"}, "Qty": 2, "UnitPrice": 500.00}
			}]
		}`, string(raw))

		_, _ = io.WriteString(w, `{"Invoice":{"Id":"145","SyncToken":"0"}}`)
	})

	ref, _, err := adapter.CreateInvoice(context.Background(), testCred, integration.ExternalInvoice{
		DocNumber:   "INV-2026-031",
		CustomerRef: "58",
		TxnDate:     time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC),
		DueDate:     &due,
		PrivateNote: "Production order PO-2026-014",
		Lines: []integration.ExternalInvoiceLine{{
			Description: "Deposit",
			Amount:      decimal.NewFromInt(1000),
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(500),
			ItemRef:     "21",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "145", ref.ID)
}

func TestQuickBooksAdapter_UpdateInvoice(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "145", body["Id"])
		assert.Equal(t, "2", body["SyncToken"])
		assert.Equal(t, true, body["sparse"])

		_, _ = io.WriteString(w, `{"Invoice":{"Id":"145","SyncToken":"3"}}`)
	})

	ref, _, err := adapter.UpdateInvoice(context.Background(), testCred, integration.ExternalInvoice{
		ID: "145", SyncToken: "2", DocNumber: "INV-2026-031", CustomerRef: "58",
	})
	require.NoError(t, err)
	assert.Equal(t, "3", ref.SyncToken)

	_, _, err = adapter.UpdateInvoice(context.Background(), testCred, integration.ExternalInvoice{DocNumber: "INV-2026-031"})
	assert.ErrorIs(t, err, integration.ErrExternalRequestFailed)
}

func TestQuickBooksAdapter_CreatePayment(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/company/9130/payment", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"TotalAmt": 400.00,
			"CustomerRef": {"value": "58"},
			"TxnDate": "2026-05-02",
			"PaymentRefNum": "ACH-88123",
			"Line": [{"Amount": 400.00, "LinkedTxn": [{"TxnId": "145", "TxnType": "Invoice"}]}]
		}`, string(raw))

		_, _ = io.WriteString(w, `{"Payment":{"Id":"301","SyncToken":"0"}}`)
	})

	ref, _, err := adapter.CreatePayment(context.Background(), testCred, integration.ExternalPayment{
		CustomerRef:   "58",
		InvoiceRef:    "145",
		Amount:        decimal.NewFromInt(400),
		TxnDate:       time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		PaymentRefNum: "ACH-88123",
	})
	require.NoError(t, err)
	assert.Equal(t, "301", ref.ID)
}

func TestQuickBooksAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		message string
	}{
		{
			name:    "validation fault",
			status:  http.StatusBadRequest,
			body:    `{"Fault":{"Error":[{"Message":"Duplicate Document Number Error","Detail":"Duplicate Document Number Error : You must specify a different number.","code":"6140"}],"type":"ValidationFault"}}`,
			wantErr: integration.ErrExternalRequestFailed,
			message: "6140 Duplicate Document Number Error",
		},
		{
			name:    "stale sync token",
			status:  http.StatusBadRequest,
			body:    `{"Fault":{"Error":[{"Message":"Stale Object Error","code":"5010"}],"type":"ValidationFault"}}`,
			wantErr: integration.ErrExternalRequestFailed,
			message: "Stale Object Error",
		},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantErr: integration.ErrExternalAuthFailed},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, wantErr: integration.ErrExternalRateLimited},
		{name: "server error", status: http.StatusServiceUnavailable, body: `oops`, wantErr: integration.ErrExternalUnavailable},
		{name: "fault with 200", status: http.StatusOK, body: `{"Fault":{"Error":[{"Message":"Object Not Found"}],"type":"ValidationFault"}}`, wantErr: integration.ErrExternalRequestFailed},
		{name: "garbage body", status: http.StatusOK, body: `<html>`, wantErr: integration.ErrExternalInvalidResponse},
		{name: "missing entity", status: http.StatusOK, body: `{"time":"now"}`, wantErr: integration.ErrExternalInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, exchange, err := adapter.CreateInvoice(context.Background(), testCred, integration.ExternalInvoice{DocNumber: "INV-1"})
			require.ErrorIs(t, err, tt.wantErr)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
			assert.Equal(t, tt.body, string(exchange.Response), "failed exchanges keep the response for the sync log")
			assert.NotEmpty(t, exchange.Request)
		})
	}
}

func TestQuickBooksAdapter_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	adapter, err := NewQuickBooksAdapter(Config{APIBaseURL: baseURL}, nil, nil)
	require.NoError(t, err)

	_, _, err = adapter.CreateCustomer(context.Background(), testCred, integration.ExternalCustomer{DisplayName: "x"})
	assert.ErrorIs(t, err, integration.ErrExternalUnavailable)
	assert.True(t, integration.IsRetryable(err))
}

func TestQuickBooksAdapter_RequiresCredential(t *testing.T) {
	adapter := newTestAdapter(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, _, err := adapter.CreatePayment(context.Background(), &integration.Credential{RealmID: "9130"}, integration.ExternalPayment{})
	assert.ErrorIs(t, err, integration.ErrNotConnected)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "INV-1", truncate("INV-1", 21))
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "Müll", truncate("Müller", 4))
	cut := truncate(strings.Repeat("é", 30), 21)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, 21, utf8.RuneCountInString(cut))
}
