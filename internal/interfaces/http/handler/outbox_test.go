package handler

import (
	"net/http"
	"testing"

	"github.com/erp/ledgersync/internal/application/event"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOutboxHandler_DeadLetters(t *testing.T) {
	admin := new(MockOutboxAdmin)
	r := newTestRouter(NewOutboxHandler(admin))

	admin.On("DeadLetters", mock.Anything, 2, 10).Return(&event.OutboxPage{
		Entries:  []event.OutboxEntryDTO{{ID: uuid.New(), EventType: "InvoicePaid", Status: "DEAD", RetryCount: 5}},
		Total:    11,
		Page:     2,
		PageSize: 10,
	}, nil)

	w := doRequest(r, http.MethodGet, "/api/v1/outbox/dead?page=2&page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page event.OutboxPage
	decodeResponse(t, w, &page)
	assert.Equal(t, int64(11), page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "InvoicePaid", page.Entries[0].EventType)

	w = doRequest(r, http.MethodGet, "/api/v1/outbox/dead?page_size=1000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutboxHandler_Retry(t *testing.T) {
	admin := new(MockOutboxAdmin)
	r := newTestRouter(NewOutboxHandler(admin))
	id := uuid.New()
	missing := uuid.New()
	live := uuid.New()

	admin.On("Retry", mock.Anything, id).Return(&event.OutboxEntryDTO{ID: id, Status: "PENDING"}, nil)
	admin.On("Retry", mock.Anything, missing).Return(nil, shared.NewDomainError(shared.CodeNotFound, "Outbox entry not found"))
	admin.On("Retry", mock.Anything, live).Return(nil, shared.NewDomainError(shared.CodeInvalidState, "Only dead entries can be retried"))

	w := doRequest(r, http.MethodPost, "/api/v1/outbox/dead/"+id.String()+"/retry", "")
	require.Equal(t, http.StatusOK, w.Code)
	var entry event.OutboxEntryDTO
	decodeResponse(t, w, &entry)
	assert.Equal(t, "PENDING", entry.Status)

	w = doRequest(r, http.MethodPost, "/api/v1/outbox/dead/"+missing.String()+"/retry", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/outbox/dead/"+live.String()+"/retry", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOutboxHandler_RetryAllAndStats(t *testing.T) {
	admin := new(MockOutboxAdmin)
	r := newTestRouter(NewOutboxHandler(admin))

	admin.On("RetryAll", mock.Anything).Return(int64(3), nil)
	admin.On("Stats", mock.Anything).Return(&event.OutboxStatsDTO{Pending: 3, Dead: 0, Sent: 40, Total: 43}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/outbox/dead/retry", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]int64
	decodeResponse(t, w, &got)
	assert.Equal(t, int64(3), got["requeued"])

	w = doRequest(r, http.MethodGet, "/api/v1/outbox/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats event.OutboxStatsDTO
	decodeResponse(t, w, &stats)
	assert.Equal(t, int64(43), stats.Total)
}
