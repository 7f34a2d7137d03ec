package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncDirection is which way a record moved
type SyncDirection string

const (
	// SyncDirectionPush is internal to external
	SyncDirectionPush SyncDirection = "push"
)

// SyncAction is the external write performed
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
)

// SyncLogStatus is the outcome of one push attempt
type SyncLogStatus string

const (
	SyncLogStatusCompleted SyncLogStatus = "completed"
	SyncLogStatusFailed    SyncLogStatus = "failed"
)

// SyncLogEntry is an append-only record of one push attempt
type SyncLogEntry struct {
	ID              uuid.UUID
	SyncType        EntityType
	Direction       SyncDirection
	EntityID        uuid.UUID
	ExternalID      *string
	Action          SyncAction
	Status          SyncLogStatus
	RequestPayload  string
	ResponsePayload string
	ErrorMessage    string
	StartedAt       time.Time
	CompletedAt     time.Time
	CreatedAt       time.Time
}

// NewSyncLogEntry starts a log entry for an attempt beginning now
func NewSyncLogEntry(syncType EntityType, entityID uuid.UUID, action SyncAction) *SyncLogEntry {
	now := time.Now()
	return &SyncLogEntry{
		ID:        uuid.New(),
		SyncType:  syncType,
		Direction: SyncDirectionPush,
		EntityID:  entityID,
		Action:    action,
		StartedAt: now,
		CreatedAt: now,
	}
}

// Complete records a successful attempt
func (e *SyncLogEntry) Complete(externalID string, exchange Exchange) {
	e.Status = SyncLogStatusCompleted
	e.ExternalID = &externalID
	e.RequestPayload = string(exchange.Request)
	e.ResponsePayload = string(exchange.Response)
	e.CompletedAt = time.Now()
}

// Fail records a failed attempt
func (e *SyncLogEntry) Fail(err error, exchange Exchange) {
	e.Status = SyncLogStatusFailed
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	e.RequestPayload = string(exchange.Request)
	e.ResponsePayload = string(exchange.Response)
	e.CompletedAt = time.Now()
}

// Duration returns how long the attempt took
func (e *SyncLogEntry) Duration() time.Duration {
	if e.CompletedAt.IsZero() {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// SyncLogStats aggregates the sync log
type SyncLogStats struct {
	Total     int64
	Completed int64
	Failed    int64
}

// SuccessRate returns completed/total as a percentage, 0 when nothing was attempted
func (s SyncLogStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// SyncLogRepository persists sync log entries. There is no update path.
type SyncLogRepository interface {
	// Append inserts a log entry
	Append(ctx context.Context, entry *SyncLogEntry) error

	// FindByEntity lists the newest entries for an internal record
	FindByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]SyncLogEntry, error)

	// Stats counts entries by outcome
	Stats(ctx context.Context) (SyncLogStats, error)
}
