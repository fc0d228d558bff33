// Package scheduler is the batch engine behind recurring obligations. A
// Runner owns the audit/locking harness shared by every job; jobs supply the
// work. Time-based and manual triggers both funnel into the same locked
// RunOnce entry point.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// ErrSuperseded is returned by TemplateStore.Execute when the template's
// next_execution_date no longer matches the value the caller read: another
// worker already executed this period. Not a failure.
var ErrSuperseded = errors.New("template already advanced by another worker")

// ErrRunInProgress is returned by AuditStore.TryStart when a running audit
// entry already holds the per-job lock.
var ErrRunInProgress = errors.New("a run for this job is already in progress")

// AuditStore is the write side of the cron job audit log. TryStart doubles
// as the per-job lock: it must atomically refuse a second running entry for
// the same job name.
type AuditStore interface {
	// SweepStale closes running entries older than cutoff as failed so a
	// killed process cannot starve future runs. Returns the number swept.
	SweepStale(ctx context.Context, jobName string, cutoff time.Time) (int64, error)

	// TryStart appends a running entry, or ErrRunInProgress if one exists.
	TryStart(ctx context.Context, jobName, trigger string, startedAt time.Time) (*models.CronJobLog, error)

	// Close finalizes the entry opened by TryStart. Nothing mutates the row
	// afterwards.
	Close(ctx context.Context, entry *models.CronJobLog) error
}

// TemplateStore reads due obligation templates and applies executions.
type TemplateStore interface {
	// Due returns every active template with an occurrence at or before asOf,
	// across all kinds and all owners.
	Due(ctx context.Context, asOf time.Time) ([]models.ObligationTemplate, error)

	// Execute atomically writes entry and advances tmpl to next (nil next
	// deactivates an exhausted template), guarded by tmpl's current
	// next_execution_date. Returns ErrSuperseded when the guard fails.
	Execute(ctx context.Context, tmpl *models.ObligationTemplate, entry *models.LedgerEntry, next *time.Time) error
}

// SubscriptionReminderStore feeds the renewal-reminder job.
type SubscriptionReminderStore interface {
	// ExpiringWithin returns active subscriptions whose end date falls inside
	// (asOf, asOf+window].
	ExpiringWithin(ctx context.Context, asOf time.Time, window time.Duration) ([]models.UserSubscription, error)
}
