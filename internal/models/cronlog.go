package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Cron run statuses.
const (
	RunRunning             = "running"
	RunCompleted           = "completed"
	RunCompletedWithErrors = "completed_with_errors"
	RunFailed              = "failed"
)

// CronJobLog is one row per scheduler invocation, scheduled or manual.
// Append-only: after CompletedAt is set only the run that owns the row may
// have written it, and nothing mutates it afterwards.
type CronJobLog struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	JobName           string         `gorm:"size:100;not null;index:idx_cron_logs_job_status,priority:1" json:"job_name"`
	Status            string         `gorm:"size:30;not null;index:idx_cron_logs_job_status,priority:2" json:"status"`
	Trigger           string         `gorm:"size:20;not null;default:'schedule'" json:"trigger"`
	StartedAt         time.Time      `gorm:"not null;index" json:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	DurationMs        int64          `gorm:"not null;default:0" json:"duration_ms"`
	PaymentsProcessed int            `gorm:"not null;default:0" json:"payments_processed"`
	RemindersCreated  int            `gorm:"not null;default:0" json:"reminders_created"`
	ErrorsCount       int            `gorm:"not null;default:0" json:"errors_count"`
	Message           string         `gorm:"type:text" json:"message"`
	ItemErrors        datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"item_errors"`
	CreatedAt         time.Time      `json:"created_at"`
}

func (CronJobLog) TableName() string {
	return "cron_job_logs"
}

// ItemError is one per-item failure retained inside a run's ItemErrors
// column. Item failures never abort the run that recorded them.
type ItemError struct {
	TemplateID uuid.UUID `json:"template_id"`
	Kind       string    `json:"kind"`
	Error      string    `json:"error"`
}
