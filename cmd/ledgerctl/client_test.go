package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/ledgersync/internal/infrastructure/scheduler"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAPIClient_UnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/accounting/payments/abc/sync", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"data":{"payment_id":"7b0a5e44-1d2c-4f6b-8a3e-9c0d1e2f3a4b","outcome":"synced","external_id":"301"}}`)
	}))
	defer server.Close()

	var got dto.PaymentSyncResponse
	_, err := newAPIClient(server.URL+"/", time.Second).post(context.Background(), "/accounting/payments/abc/sync", &got)
	require.NoError(t, err)
	assert.Equal(t, "synced", got.Outcome)
	assert.Equal(t, "301", got.ExternalID)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"ERR_NOT_CONNECTED","message":"Accounting ledger is not connected"}}`)
	}))
	defer server.Close()

	_, err := newAPIClient(server.URL, time.Second).get(context.Background(), "/accounting/status", nil, nil)
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "ERR_NOT_CONNECTED", apiErr.Code)
}

func TestAPIClient_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer server.Close()

	_, err := newAPIClient(server.URL, time.Second).get(context.Background(), "/outbox/stats", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestOutboxRetryCommand(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"data":{"requeued":2}}`)
	}))
	defer server.Close()

	log = zap.NewNop()
	serverURL = server.URL
	timeout = time.Second
	t.Cleanup(func() { outboxRetryCmd.Flags().Set("all", "false") })

	var out bytes.Buffer
	outboxRetryCmd.SetOut(&out)
	outboxRetryCmd.SetContext(context.Background())
	require.NoError(t, outboxRetryCmd.Flags().Set("all", "true"))

	require.NoError(t, runOutboxRetry(outboxRetryCmd, nil))
	assert.Equal(t, []string{"/api/v1/outbox/dead/retry"}, paths)
	assert.Equal(t, "requeued 2 entries\n", out.String())

	err := runOutboxRetry(outboxRetryCmd, []string{"5c1d2a8e-7f3b-4e0a-9c61-2b8d4f7e1a90"})
	assert.EqualError(t, err, "pass one entry id or --all")
}

func TestParseJobType(t *testing.T) {
	for _, arg := range []string{"overdue-sweep", "OVERDUE_SWEEP", "Overdue_Sweep"} {
		got, err := parseJobType(arg)
		require.NoError(t, err, arg)
		assert.Equal(t, scheduler.JobTypeOverdueSweep, got)
	}
	got, err := parseJobType("payment-backlog")
	require.NoError(t, err)
	assert.Equal(t, scheduler.JobTypePaymentBacklog, got)

	_, err = parseJobType("report")
	assert.EqualError(t, err, `unknown job type "report"`)
}

func TestJobsRunCommand(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/scheduler/jobs", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"0f3c1a52-8d4e-4b7a-9e21-6c5d8f0a3b17","type":"PAYMENT_BACKLOG","status":"PENDING"}}`)
	}))
	defer server.Close()

	log = zap.NewNop()
	serverURL = server.URL
	timeout = time.Second

	var out bytes.Buffer
	jobsRunCmd.SetOut(&out)
	jobsRunCmd.SetContext(context.Background())

	require.NoError(t, runJobsRun(jobsRunCmd, []string{"payment-backlog"}))
	assert.JSONEq(t, `{"type":"PAYMENT_BACKLOG"}`, body)
	assert.Equal(t, "queued payment_backlog job 0f3c1a52-8d4e-4b7a-9e21-6c5d8f0a3b17\n", out.String())
}
