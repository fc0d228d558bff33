package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// Trigger labels recorded on audit entries.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Job is one unit of batch work. Run records per-item outcomes on rec and
// returns an error only when the job could not establish its work set at
// all; item-level failures belong in the recorder.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time, rec *Recorder) error
}

// Recorder accumulates a run's counters and per-item errors. Safe for
// concurrent use by job workers.
type Recorder struct {
	mu         sync.Mutex
	processed  int
	reminders  int
	itemErrors []models.ItemError
}

func (r *Recorder) AddProcessed() {
	r.mu.Lock()
	r.processed++
	r.mu.Unlock()
}

func (r *Recorder) AddReminder() {
	r.mu.Lock()
	r.reminders++
	r.mu.Unlock()
}

func (r *Recorder) AddItemError(templateID uuid.UUID, kind string, err error) {
	r.mu.Lock()
	r.itemErrors = append(r.itemErrors, models.ItemError{
		TemplateID: templateID,
		Kind:       kind,
		Error:      err.Error(),
	})
	r.mu.Unlock()
}

func (r *Recorder) snapshot() (processed, reminders int, itemErrors []models.ItemError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed, r.reminders, append([]models.ItemError(nil), r.itemErrors...)
}

// RunSummary is returned to the manual-trigger surface.
type RunSummary struct {
	JobName           string `json:"job_name"`
	Status            string `json:"status"`
	PaymentsProcessed int    `json:"payments_processed"`
	RemindersCreated  int    `json:"reminders_created"`
	ErrorsCount       int    `json:"errors_count"`
	DurationMs        int64  `json:"duration_ms"`
	Message           string `json:"message"`
}

// Runner wraps every job in the audit/locking harness: one audit entry per
// invocation, per-job mutual exclusion, stale-entry sweeping, and guaranteed
// closure even when the job panics.
type Runner struct {
	audit          AuditStore
	jobs           map[string]Job
	maxRunDuration time.Duration
	now            func() time.Time
}

func NewRunner(audit AuditStore, maxRunDuration time.Duration) *Runner {
	return &Runner{
		audit:          audit,
		jobs:           make(map[string]Job),
		maxRunDuration: maxRunDuration,
		now:            time.Now,
	}
}

func (r *Runner) Register(job Job) {
	r.jobs[job.Name()] = job
}

// RunOnce executes the named job exactly once under the per-job lock. It
// returns a summary for every outcome; the error is non-nil only when the
// run aborted before doing any work.
func (r *Runner) RunOnce(ctx context.Context, jobName, trigger string) (*RunSummary, error) {
	job, ok := r.jobs[jobName]
	if !ok {
		return nil, &apperr.NotFound{Entity: "job", ID: jobName}
	}

	start := r.now()

	// A killed process leaves its running entry behind; close it before it
	// can starve this and future runs.
	if swept, err := r.audit.SweepStale(ctx, jobName, start.Add(-r.maxRunDuration)); err != nil {
		slog.Error("stale run sweep failed", "job", jobName, "error", err)
	} else if swept > 0 {
		slog.Warn("closed stale running entries", "job", jobName, "count", swept)
	}

	entry, err := r.audit.TryStart(ctx, jobName, trigger, start)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			return nil, &apperr.RunAbort{JobName: jobName, Reason: "another run is in progress"}
		}
		return nil, &apperr.RunAbort{JobName: jobName, Reason: err.Error()}
	}

	rec := &Recorder{}
	jobErr := r.runGuarded(ctx, job, start, rec)

	processed, reminders, itemErrors := rec.snapshot()
	completed := r.now()

	entry.Status = models.RunCompleted
	entry.Message = fmt.Sprintf("processed %d items, %d reminders", processed, reminders)
	switch {
	case jobErr != nil:
		entry.Status = models.RunFailed
		entry.Message = jobErr.Error()
	case len(itemErrors) > 0:
		entry.Status = models.RunCompletedWithErrors
		entry.Message = fmt.Sprintf("processed %d items, %d reminders, %d failed: %s",
			processed, reminders, len(itemErrors), summarizeItemErrors(itemErrors))
	}

	entry.CompletedAt = &completed
	entry.DurationMs = completed.Sub(start).Milliseconds()
	entry.PaymentsProcessed = processed
	entry.RemindersCreated = reminders
	entry.ErrorsCount = len(itemErrors)
	if b, err := json.Marshal(itemErrors); err == nil {
		entry.ItemErrors = datatypes.JSON(b)
	}

	if err := r.audit.Close(ctx, entry); err != nil {
		slog.Error("failed to close audit entry", "job", jobName, "run_id", entry.ID, "error", err)
	}

	summary := &RunSummary{
		JobName:           jobName,
		Status:            entry.Status,
		PaymentsProcessed: processed,
		RemindersCreated:  reminders,
		ErrorsCount:       len(itemErrors),
		DurationMs:        entry.DurationMs,
		Message:           entry.Message,
	}

	slog.Info("scheduler run finished",
		"job", jobName,
		"trigger", trigger,
		"status", entry.Status,
		"processed", processed,
		"reminders", reminders,
		"errors", len(itemErrors),
		"duration_ms", entry.DurationMs)

	if jobErr != nil {
		return summary, jobErr
	}
	return summary, nil
}

// runGuarded converts a job panic into a failed run so the audit entry still
// closes with the counters gathered so far.
func (r *Runner) runGuarded(ctx context.Context, job Job, now time.Time, rec *Recorder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return job.Run(ctx, now, rec)
}

func summarizeItemErrors(itemErrors []models.ItemError) string {
	parts := make([]string, 0, len(itemErrors))
	for _, ie := range itemErrors {
		parts = append(parts, fmt.Sprintf("%s[%s]: %s", ie.Kind, ie.TemplateID, ie.Error))
	}
	s := strings.Join(parts, "; ")
	if len(s) > 2000 {
		s = s[:2000]
	}
	return s
}
