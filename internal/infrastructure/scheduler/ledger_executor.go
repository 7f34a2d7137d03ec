package scheduler

import (
	"context"
	"fmt"
	"time"

	integrationapp "github.com/erp/ledgersync/internal/application/integration"
	"go.uber.org/zap"
)

// OverdueMarker flags unpaid invoices past their due date
type OverdueMarker interface {
	MarkOverdueInvoices(ctx context.Context, asOf time.Time, limit int) (int, error)
}

// BacklogSyncer pushes payments that have no accounting counterpart
type BacklogSyncer interface {
	SyncBacklog(ctx context.Context, since time.Time, limit int) (*integrationapp.BacklogResult, error)
}

// LedgerExecutorConfig tunes the batch sizes of LedgerJobExecutor
type LedgerExecutorConfig struct {
	// OverdueBatchSize caps the invoices flagged per sweep
	OverdueBatchSize int
	// BacklogBatchSize caps the payments pushed per backlog pass
	BacklogBatchSize int
	// BacklogLookback is how far back a backlog pass looks for unmapped payments
	BacklogLookback time.Duration
}

// DefaultLedgerExecutorConfig returns default executor configuration
func DefaultLedgerExecutorConfig() LedgerExecutorConfig {
	return LedgerExecutorConfig{
		OverdueBatchSize: 500,
		BacklogBatchSize: 50,
		BacklogLookback:  7 * 24 * time.Hour,
	}
}

// LedgerJobExecutor dispatches scheduled jobs to the ledger and sync services.
// The backlog syncer is nil when the accounting ledger is not configured.
type LedgerJobExecutor struct {
	config  LedgerExecutorConfig
	overdue OverdueMarker
	backlog BacklogSyncer
	logger  *zap.Logger
}

// NewLedgerJobExecutor creates a new LedgerJobExecutor
func NewLedgerJobExecutor(config LedgerExecutorConfig, overdue OverdueMarker, backlog BacklogSyncer, logger *zap.Logger) *LedgerJobExecutor {
	defaults := DefaultLedgerExecutorConfig()
	if config.OverdueBatchSize <= 0 {
		config.OverdueBatchSize = defaults.OverdueBatchSize
	}
	if config.BacklogBatchSize <= 0 {
		config.BacklogBatchSize = defaults.BacklogBatchSize
	}
	if config.BacklogLookback <= 0 {
		config.BacklogLookback = defaults.BacklogLookback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerJobExecutor{
		config:  config,
		overdue: overdue,
		backlog: backlog,
		logger:  logger,
	}
}

// Supports reports whether jobs of the given type can run
func (e *LedgerJobExecutor) Supports(jobType JobType) bool {
	switch jobType {
	case JobTypeOverdueSweep:
		return e.overdue != nil
	case JobTypePaymentBacklog:
		return e.backlog != nil
	}
	return false
}

// Execute runs one job
func (e *LedgerJobExecutor) Execute(ctx context.Context, job *Job) (int, error) {
	if !e.Supports(job.Type) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidJobType, job.Type)
	}

	switch job.Type {
	case JobTypeOverdueSweep:
		return e.overdue.MarkOverdueInvoices(ctx, job.AsOf, e.config.OverdueBatchSize)

	case JobTypePaymentBacklog:
		since := job.AsOf.Add(-e.config.BacklogLookback)
		result, err := e.backlog.SyncBacklog(ctx, since, e.config.BacklogBatchSize)
		if result == nil {
			return 0, err
		}
		if result.Failed > 0 {
			e.logger.Warn("Payment backlog left payments unsynced",
				zap.String("job_id", job.ID.String()),
				zap.Int("failed", result.Failed),
			)
		}
		return result.Synced, err
	}
	return 0, nil
}

var _ JobExecutor = (*LedgerJobExecutor)(nil)
