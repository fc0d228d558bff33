package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/scheduler"
)

// ScheduleProvider exposes the declared cron schedules. Implemented by the
// CronTrigger; an interface here keeps the read model testable without one.
type ScheduleProvider interface {
	Jobs() []scheduler.JobInfo
}

// CronLogService is the read side of the audit log, feeding the admin
// monitoring view. Writes belong exclusively to the scheduler's Runner.
type CronLogService struct {
	db        *gorm.DB
	schedules ScheduleProvider
}

func NewCronLogService(db *gorm.DB, schedules ScheduleProvider) *CronLogService {
	return &CronLogService{db: db, schedules: schedules}
}

func (s *CronLogService) RecentRuns(ctx context.Context, limit int) ([]models.CronJobLog, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var runs []models.CronJobLog
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, &apperr.PersistenceFailure{Op: "list runs", Err: err}
	}
	return runs, nil
}

// StatsByJob aggregates the runs inside a rolling window, one row per job.
func (s *CronLogService) StatsByJob(ctx context.Context, window time.Duration) ([]dto.JobStats, error) {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	var runs []models.CronJobLog
	err := s.db.WithContext(ctx).
		Where("started_at >= ?", time.Now().Add(-window)).
		Find(&runs).Error
	if err != nil {
		return nil, &apperr.PersistenceFailure{Op: "load runs for stats", Err: err}
	}
	return aggregateRuns(runs), nil
}

// JobStatus joins the declared schedules with each job's most recent run.
func (s *CronLogService) JobStatus(ctx context.Context) ([]dto.JobStatus, error) {
	infos := s.schedules.Jobs()
	statuses := make([]dto.JobStatus, 0, len(infos))
	for _, info := range infos {
		status := dto.JobStatus{
			JobName: info.JobName,
			Spec:    info.Spec,
			Active:  info.Active,
			NextRun: info.NextRun,
		}
		var last models.CronJobLog
		err := s.db.WithContext(ctx).
			Where("job_name = ?", info.JobName).
			Order("started_at DESC").
			First(&last).Error
		if err == nil {
			status.LastRun = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.PersistenceFailure{Op: "load last run", Err: err}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// aggregateRuns folds raw run rows into per-job statistics. Pure so the
// success-rate math is testable without a database.
func aggregateRuns(runs []models.CronJobLog) []dto.JobStats {
	byJob := make(map[string]*dto.JobStats)
	for i := range runs {
		run := &runs[i]
		stats, ok := byJob[run.JobName]
		if !ok {
			stats = &dto.JobStats{JobName: run.JobName}
			byJob[run.JobName] = stats
		}
		stats.TotalRuns++
		switch run.Status {
		case models.RunCompleted:
			stats.Completed++
		case models.RunCompletedWithErrors:
			stats.CompletedWithErrors++
		case models.RunFailed:
			stats.Failed++
		case models.RunRunning:
			stats.Running++
		}
		stats.PaymentsProcessed += run.PaymentsProcessed
		stats.RemindersCreated += run.RemindersCreated
		stats.ErrorsCount += run.ErrorsCount
		if stats.LastRunAt == nil || run.StartedAt.After(*stats.LastRunAt) {
			t := run.StartedAt
			stats.LastRunAt = &t
		}
	}

	out := make([]dto.JobStats, 0, len(byJob))
	for _, stats := range byJob {
		finished := stats.TotalRuns - stats.Running
		if finished > 0 {
			stats.SuccessRate = float64(stats.Completed) / float64(finished)
		}
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })
	return out
}
