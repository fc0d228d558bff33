// Package store implements the scheduler's persistence ports on
// gorm/Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/scheduler"
)

// AuditStore persists cron run entries. The per-job lock rides on a partial
// unique index over (job_name) WHERE status = 'running' (created in
// database.Migrate), so TryStart is atomic without advisory locks.
type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) SweepStale(ctx context.Context, jobName string, cutoff time.Time) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.CronJobLog{}).
		Where("job_name = ? AND status = ? AND started_at < ?", jobName, models.RunRunning, cutoff).
		Updates(map[string]interface{}{
			"status":       models.RunFailed,
			"completed_at": now,
			"message":      "run exceeded maximum duration and was closed by the next invocation",
		})
	return result.RowsAffected, result.Error
}

func (s *AuditStore) TryStart(ctx context.Context, jobName, trigger string, startedAt time.Time) (*models.CronJobLog, error) {
	entry := &models.CronJobLog{
		ID:        uuid.New(),
		JobName:   jobName,
		Status:    models.RunRunning,
		Trigger:   trigger,
		StartedAt: startedAt,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, scheduler.ErrRunInProgress
		}
		return nil, err
	}
	return entry, nil
}

func (s *AuditStore) Close(ctx context.Context, entry *models.CronJobLog) error {
	return s.db.WithContext(ctx).Model(&models.CronJobLog{}).
		Where("id = ? AND status = ?", entry.ID, models.RunRunning).
		Updates(map[string]interface{}{
			"status":             entry.Status,
			"completed_at":       entry.CompletedAt,
			"duration_ms":        entry.DurationMs,
			"payments_processed": entry.PaymentsProcessed,
			"reminders_created":  entry.RemindersCreated,
			"errors_count":       entry.ErrorsCount,
			"message":            entry.Message,
			"item_errors":        entry.ItemErrors,
		}).Error
}
