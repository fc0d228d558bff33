package dto

import (
	"time"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// JobStats aggregates one job's runs over a rolling window.
type JobStats struct {
	JobName             string     `json:"job_name"`
	TotalRuns           int        `json:"total_runs"`
	Completed           int        `json:"completed"`
	CompletedWithErrors int        `json:"completed_with_errors"`
	Failed              int        `json:"failed"`
	Running             int        `json:"running"`
	SuccessRate         float64    `json:"success_rate"`
	PaymentsProcessed   int        `json:"payments_processed"`
	RemindersCreated    int        `json:"reminders_created"`
	ErrorsCount         int        `json:"errors_count"`
	LastRunAt           *time.Time `json:"last_run_at"`
}

// JobStatus is one declared schedule with its latest run.
type JobStatus struct {
	JobName string             `json:"job_name"`
	Spec    string             `json:"spec"`
	Active  bool               `json:"active"`
	NextRun *time.Time         `json:"next_run"`
	LastRun *models.CronJobLog `json:"last_run"`
}
