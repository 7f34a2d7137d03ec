package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledgersync/internal/application/event"
	"github.com/erp/ledgersync/internal/application/finance"
	appintegration "github.com/erp/ledgersync/internal/application/integration"
	domainfinance "github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/infrastructure/scheduler"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/erp/ledgersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) RecordPayment(ctx context.Context, input finance.RecordPaymentInput) (*finance.RecordPaymentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.RecordPaymentResult), args.Error(1)
}

func (m *MockLedgerService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*domainfinance.Invoice, error) {
	args := m.Called(ctx, invoiceID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainfinance.Invoice), args.Error(1)
}

func (m *MockLedgerService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domainfinance.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainfinance.Invoice), args.Error(1)
}

func (m *MockLedgerService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]domainfinance.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainfinance.Payment), args.Error(1)
}

type MockAccountingSyncer struct {
	mock.Mock
}

func (m *MockAccountingSyncer) SyncInvoice(ctx context.Context, invoiceID uuid.UUID) (*integration.InvoiceSyncResult, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.InvoiceSyncResult), args.Error(1)
}

func (m *MockAccountingSyncer) SyncPayment(ctx context.Context, paymentID uuid.UUID) (*integration.PaymentSyncResult, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PaymentSyncResult), args.Error(1)
}

func (m *MockAccountingSyncer) ConnectionStatus(ctx context.Context) (integration.ConnectionStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(integration.ConnectionStatus), args.Error(1)
}

func (m *MockAccountingSyncer) SyncHistory(ctx context.Context, entityID uuid.UUID, limit int) ([]integration.SyncLogEntry, error) {
	args := m.Called(ctx, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SyncLogEntry), args.Error(1)
}

func (m *MockAccountingSyncer) SyncStats(ctx context.Context) (*appintegration.SyncStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.SyncStats), args.Error(1)
}

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockConnector) Connect(ctx context.Context, code, realmID, companyName string) (*integration.Credential, error) {
	args := m.Called(ctx, code, realmID, companyName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Credential), args.Error(1)
}

type MockOutboxAdmin struct {
	mock.Mock
}

func (m *MockOutboxAdmin) DeadLetters(ctx context.Context, page, pageSize int) (*event.OutboxPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxPage), args.Error(1)
}

func (m *MockOutboxAdmin) Retry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxAdmin) RetryAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxAdmin) Stats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxStatsDTO), args.Error(1)
}

type MockSchedulerAdmin struct {
	mock.Mock
}

func (m *MockSchedulerAdmin) Schedule(jobType scheduler.JobType) (*scheduler.Job, error) {
	args := m.Called(jobType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.Job), args.Error(1)
}

func (m *MockSchedulerAdmin) History(limit int) []scheduler.Job {
	args := m.Called(limit)
	return args.Get(0).([]scheduler.Job)
}

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestRouter(h registrar) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeResponse decodes the envelope and its data into data when non-nil
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error}
}
