package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	aggID := uuid.New()
	event := &testEvent{BaseDomainEvent: NewBaseDomainEvent("PaymentRecorded", "Payment", aggID)}

	entry := NewOutboxEntry(event, []byte(`{}`))

	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, "PaymentRecorded", entry.EventType)
	assert.Equal(t, "Payment", entry.AggregateType)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{6, 160 * time.Second},
		{9, 1280 * time.Second},
		{10, MaxBackoff},
		{64, MaxBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryBackoff(tt.failures), "failures=%d", tt.failures)
	}
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules the next attempt", func(t *testing.T) {
		entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing, MaxRetries: 5}

		entry.MarkFailed("accounting ledger unavailable")
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "accounting ledger unavailable", entry.LastError)
		require.NotNil(t, entry.NextRetryAt)
		assert.WithinDuration(t, time.Now().Add(5*time.Second), *entry.NextRetryAt, time.Second)

		entry.Status = OutboxStatusProcessing
		entry.MarkFailed("rate limited")
		assert.Equal(t, 2, entry.RetryCount)
		assert.WithinDuration(t, time.Now().Add(10*time.Second), *entry.NextRetryAt, time.Second)
	})

	t.Run("dead after max retries", func(t *testing.T) {
		entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing, RetryCount: 4, MaxRetries: 5}

		entry.MarkFailed("final error")

		assert.True(t, entry.IsDead())
		assert.Equal(t, 5, entry.RetryCount)
		assert.Equal(t, "final error", entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
	})

	t.Run("backoff is capped", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 20, MaxRetries: 40}

		entry.MarkFailed("still down")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.LessOrEqual(t, time.Until(*entry.NextRetryAt), MaxBackoff)
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusProcessing}
	entry.MarkSent()

	assert.Equal(t, OutboxStatusSent, entry.Status)
	require.NotNil(t, entry.ProcessedAt)
	assert.False(t, entry.IsDead())
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("requeues a dead entry", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:         uuid.New(),
			EventType:  "PaymentRecorded",
			Status:     OutboxStatusDead,
			RetryCount: 8,
			MaxRetries: 8,
			LastError:  "accounting ledger is not connected",
			UpdatedAt:  time.Now().Add(-time.Hour),
		}

		require.NoError(t, entry.ResetForRetry())
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
		assert.WithinDuration(t, time.Now(), entry.UpdatedAt, time.Second)
	})

	t.Run("live entries stay put", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			err := entry.ResetForRetry()
			assert.ErrorIs(t, err, ErrOutboxEntryNotDead, string(status))
			assert.Equal(t, CodeInvalidState, ErrorCode(err))
			assert.Equal(t, status, entry.Status)
		}
	})
}
