package persistence

import (
	"context"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultSyncHistoryLimit = 50

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append inserts a log entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *integration.SyncLogEntry) error {
	return r.db.WithContext(ctx).Create(models.SyncLogModelFromDomain(entry)).Error
}

// FindByEntity lists the newest entries for an internal record, at most limit of them
func (r *GormSyncLogRepository) FindByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]integration.SyncLogEntry, error) {
	if limit <= 0 {
		limit = defaultSyncHistoryLimit
	}

	var rows []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]integration.SyncLogEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.ToDomain()
	}
	return entries, nil
}

// Stats counts entries by outcome
func (r *GormSyncLogRepository) Stats(ctx context.Context) (integration.SyncLogStats, error) {
	var rows []struct {
		Status integration.SyncLogStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return integration.SyncLogStats{}, err
	}

	var stats integration.SyncLogStats
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case integration.SyncLogStatusCompleted:
			stats.Completed = row.Count
		case integration.SyncLogStatusFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}

var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)
