package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
	"github.com/Raihan-Sharif/finmate-sub005/internal/schedule"
	"github.com/google/uuid"
)

// ObligationJobName identifies the recurring-obligation materialization job.
const ObligationJobName = "recurring-obligations"

// ObligationJob materializes every due obligation template: one ledger row
// per template per period, then the template advances by exactly one period.
// A template several periods behind catches up over successive runs, never
// by backdating multiple rows in one pass.
type ObligationJob struct {
	templates  TemplateStore
	dispatcher notify.Dispatcher
	workers    int
}

func NewObligationJob(templates TemplateStore, dispatcher notify.Dispatcher, workers int) *ObligationJob {
	if workers < 1 {
		workers = 1
	}
	return &ObligationJob{templates: templates, dispatcher: dispatcher, workers: workers}
}

func (j *ObligationJob) Name() string { return ObligationJobName }

// Run reads the full due set across all owners and executes items
// independently. Templates are grouped by owner; groups run in parallel,
// items within a group sequentially, so no two workers ever race on one
// user's templates.
func (j *ObligationJob) Run(ctx context.Context, now time.Time, rec *Recorder) error {
	due, err := j.templates.Due(ctx, now)
	if err != nil {
		return fmt.Errorf("read due templates: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	slog.Info("processing due obligations", "count", len(due), "as_of", now.Format(time.DateOnly))

	groups := make(map[uuid.UUID][]models.ObligationTemplate)
	for _, tmpl := range due {
		groups[tmpl.UserID] = append(groups[tmpl.UserID], tmpl)
	}

	work := make(chan []models.ObligationTemplate)
	var wg sync.WaitGroup
	for i := 0; i < j.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range work {
				for i := range group {
					j.executeOne(ctx, &group[i], now, rec)
				}
			}
		}()
	}
	for _, group := range groups {
		work <- group
	}
	close(work)
	wg.Wait()

	return nil
}

// executeOne applies a single due occurrence. Failures are recorded, never
// raised; the item stays due and the next invocation retries it naturally.
func (j *ObligationJob) executeOne(ctx context.Context, tmpl *models.ObligationTemplate, now time.Time, rec *Recorder) {
	occurrence := *tmpl.NextExecutionDate

	next, err := schedule.NextOccurrence(occurrence, tmpl.Frequency)
	if err != nil {
		rec.AddItemError(tmpl.ID, tmpl.Kind, err)
		return
	}

	// Exhausted templates deactivate instead of advancing past their end.
	advanceTo := &next
	if tmpl.TenureRemaining != nil && *tmpl.TenureRemaining <= 1 {
		advanceTo = nil
	}
	if tmpl.EndDate != nil && next.After(*tmpl.EndDate) {
		advanceTo = nil
	}

	entry := models.LedgerEntry{
		TemplateID:     tmpl.ID,
		UserID:         tmpl.UserID,
		EntryType:      ledgerType(tmpl.Kind),
		Amount:         tmpl.Amount,
		Currency:       tmpl.Currency,
		OccurrenceDate: occurrence,
		Description:    tmpl.Description,
	}

	if err := j.templates.Execute(ctx, tmpl, &entry, advanceTo); err != nil {
		if errors.Is(err, ErrSuperseded) {
			slog.Debug("template already executed this period", "template_id", tmpl.ID)
			return
		}
		rec.AddItemError(tmpl.ID, tmpl.Kind, err)
		return
	}

	switch tmpl.Kind {
	case models.ObligationLoanEMI:
		rec.AddReminder()
	default:
		rec.AddProcessed()
	}

	if err := j.dispatcher.Dispatch(ctx, obligationEvent(tmpl, occurrence)); err != nil {
		// Delivery is best-effort; the occurrence itself already settled.
		slog.Error("notification dispatch failed", "template_id", tmpl.ID, "error", err)
	}
}

func ledgerType(kind string) string {
	switch kind {
	case models.ObligationSIP:
		return models.LedgerSIPExecution
	case models.ObligationLoanEMI:
		return models.LedgerEMIReminder
	default:
		return models.LedgerTransaction
	}
}

func obligationEvent(tmpl *models.ObligationTemplate, occurrence time.Time) notify.Event {
	day := occurrence.Format(time.DateOnly)
	switch tmpl.Kind {
	case models.ObligationLoanEMI:
		return notify.Event{
			Type:      notify.EventEMIDue,
			UserID:    tmpl.UserID.String(),
			Title:     "EMI due",
			Body:      fmt.Sprintf("%s: %.2f %s due on %s", tmpl.Description, tmpl.Amount, tmpl.Currency, day),
			TargetURL: "/loans",
		}
	case models.ObligationSIP:
		return notify.Event{
			Type:      notify.EventSIPExecuted,
			UserID:    tmpl.UserID.String(),
			Title:     "SIP contribution executed",
			Body:      fmt.Sprintf("%s: %.2f %s invested for %s", tmpl.Description, tmpl.Amount, tmpl.Currency, day),
			TargetURL: "/investments",
		}
	default:
		return notify.Event{
			Type:      notify.EventTransactionPosted,
			UserID:    tmpl.UserID.String(),
			Title:     "Recurring transaction posted",
			Body:      fmt.Sprintf("%s: %.2f %s posted for %s", tmpl.Description, tmpl.Amount, tmpl.Currency, day),
			TargetURL: "/transactions",
		}
	}
}
