package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
	"github.com/Raihan-Sharif/finmate-sub005/internal/schedule"
)

type memAuditStore struct {
	mu      sync.Mutex
	entries []*models.CronJobLog
}

func (s *memAuditStore) SweepStale(_ context.Context, jobName string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var swept int64
	for _, e := range s.entries {
		if e.JobName == jobName && e.Status == models.RunRunning && e.StartedAt.Before(cutoff) {
			e.Status = models.RunFailed
			now := time.Now()
			e.CompletedAt = &now
			e.Message = "stale running entry closed"
			swept++
		}
	}
	return swept, nil
}

func (s *memAuditStore) TryStart(_ context.Context, jobName, trigger string, startedAt time.Time) (*models.CronJobLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.JobName == jobName && e.Status == models.RunRunning {
			return nil, ErrRunInProgress
		}
	}
	entry := &models.CronJobLog{
		ID:        uuid.New(),
		JobName:   jobName,
		Status:    models.RunRunning,
		Trigger:   trigger,
		StartedAt: startedAt,
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *memAuditStore) Close(_ context.Context, entry *models.CronJobLog) error {
	return nil
}

func (s *memAuditStore) last() *models.CronJobLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

type memTemplateStore struct {
	mu        sync.Mutex
	templates map[uuid.UUID]*models.ObligationTemplate
	ledger    []models.LedgerEntry
	failing   map[uuid.UUID]error
}

func newMemTemplateStore() *memTemplateStore {
	return &memTemplateStore{
		templates: make(map[uuid.UUID]*models.ObligationTemplate),
		failing:   make(map[uuid.UUID]error),
	}
}

func (s *memTemplateStore) add(t models.ObligationTemplate) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.UserID == uuid.Nil {
		t.UserID = uuid.New()
	}
	s.templates[t.ID] = &t
	return t.ID
}

func (s *memTemplateStore) Due(_ context.Context, asOf time.Time) ([]models.ObligationTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.ObligationTemplate
	for _, t := range s.templates {
		if schedule.IsDue(t, asOf) {
			due = append(due, *t)
		}
	}
	return due, nil
}

func (s *memTemplateStore) Execute(_ context.Context, tmpl *models.ObligationTemplate, entry *models.LedgerEntry, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failing[tmpl.ID]; ok {
		return err
	}
	current, ok := s.templates[tmpl.ID]
	if !ok {
		return &apperr.NotFound{Entity: "template", ID: tmpl.ID.String()}
	}
	if current.NextExecutionDate == nil || !current.NextExecutionDate.Equal(*tmpl.NextExecutionDate) {
		return ErrSuperseded
	}
	s.ledger = append(s.ledger, *entry)
	current.NextExecutionDate = next
	current.ExecutedCount++
	if current.TenureRemaining != nil {
		n := *current.TenureRemaining - 1
		current.TenureRemaining = &n
	}
	if next == nil {
		current.IsActive = false
	}
	return nil
}

type memDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
	fail   bool
}

func (d *memDispatcher) Dispatch(_ context.Context, event notify.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("broker unavailable")
	}
	d.events = append(d.events, event)
	return nil
}

func activeTemplate(kind, frequency string, next time.Time) models.ObligationTemplate {
	return models.ObligationTemplate{
		Kind:              kind,
		Description:       "test " + kind,
		Amount:            100,
		Currency:          "USD",
		Frequency:         frequency,
		AnchorDate:        next,
		NextExecutionDate: &next,
		IsActive:          true,
	}
}

func newTestRunner(audit AuditStore, jobs ...Job) *Runner {
	r := NewRunner(audit, time.Hour)
	for _, j := range jobs {
		r.Register(j)
	}
	return r
}

func TestRunOnceProcessesAllKinds(t *testing.T) {
	store := newMemTemplateStore()
	dispatcher := &memDispatcher{}
	audit := &memAuditStore{}
	now := time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -1)

	store.add(activeTemplate(models.ObligationTransaction, models.FrequencyMonthly, due))
	store.add(activeTemplate(models.ObligationSIP, models.FrequencyMonthly, due))
	store.add(activeTemplate(models.ObligationLoanEMI, models.FrequencyMonthly, due))

	runner := newTestRunner(audit, NewObligationJob(store, dispatcher, 2))
	runner.now = func() time.Time { return now }

	summary, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerManual)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != models.RunCompleted {
		t.Errorf("status = %s, want %s", summary.Status, models.RunCompleted)
	}
	if summary.PaymentsProcessed != 2 {
		t.Errorf("payments_processed = %d, want 2", summary.PaymentsProcessed)
	}
	if summary.RemindersCreated != 1 {
		t.Errorf("reminders_created = %d, want 1", summary.RemindersCreated)
	}
	if len(store.ledger) != 3 {
		t.Errorf("ledger rows = %d, want 3", len(store.ledger))
	}
	if len(dispatcher.events) != 3 {
		t.Errorf("events = %d, want 3", len(dispatcher.events))
	}
	for _, tmpl := range store.templates {
		if tmpl.ExecutedCount != 1 {
			t.Errorf("template %s executed_count = %d, want 1", tmpl.Kind, tmpl.ExecutedCount)
		}
		if tmpl.NextExecutionDate == nil || !tmpl.NextExecutionDate.After(due) {
			t.Errorf("template %s did not advance", tmpl.Kind)
		}
	}
	entry := audit.last()
	if entry.Status != models.RunCompleted || entry.CompletedAt == nil {
		t.Errorf("audit entry not closed: %+v", entry)
	}
}

// Two immediate invocations must process each due template at most once: the
// second run finds nothing due that the first already advanced.
func TestRunOnceIdempotent(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	store.add(activeTemplate(models.ObligationTransaction, models.FrequencyWeekly, now))

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 1))
	runner.now = func() time.Time { return now }

	first, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.PaymentsProcessed != 1 || second.PaymentsProcessed != 0 {
		t.Errorf("processed = %d then %d, want 1 then 0", first.PaymentsProcessed, second.PaymentsProcessed)
	}
	if len(store.ledger) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(store.ledger))
	}
}

func TestRunOncePartialFailure(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, -2)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, store.add(activeTemplate(models.ObligationTransaction, models.FrequencyMonthly, due)))
	}
	store.failing[ids[2]] = errors.New("write rejected")

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 3))
	runner.now = func() time.Time { return now }

	summary, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != models.RunCompletedWithErrors {
		t.Errorf("status = %s, want %s", summary.Status, models.RunCompletedWithErrors)
	}
	if summary.PaymentsProcessed != 4 {
		t.Errorf("payments_processed = %d, want 4", summary.PaymentsProcessed)
	}
	if summary.ErrorsCount != 1 {
		t.Errorf("errors_count = %d, want 1", summary.ErrorsCount)
	}

	// The failed item stays due and is retried by the next invocation only.
	failed := store.templates[ids[2]]
	if failed.ExecutedCount != 0 || !failed.NextExecutionDate.Equal(due) {
		t.Errorf("failed template mutated: %+v", failed)
	}
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	audit := &memAuditStore{}
	if _, err := audit.TryStart(context.Background(), ObligationJobName, TriggerSchedule, time.Now()); err != nil {
		t.Fatalf("seed running entry: %v", err)
	}

	runner := newTestRunner(audit, NewObligationJob(newMemTemplateStore(), &memDispatcher{}, 1))
	_, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerManual)

	var abort *apperr.RunAbort
	if !errors.As(err, &abort) {
		t.Fatalf("expected RunAbort, got %v", err)
	}
}

func TestRunOnceSweepsStaleEntries(t *testing.T) {
	audit := &memAuditStore{}
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	// A run that died two hours ago still holds the lock.
	stale, err := audit.TryStart(context.Background(), ObligationJobName, TriggerSchedule, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("seed stale entry: %v", err)
	}

	runner := newTestRunner(audit, NewObligationJob(newMemTemplateStore(), &memDispatcher{}, 1))
	runner.now = func() time.Time { return now }

	summary, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule)
	if err != nil {
		t.Fatalf("RunOnce after sweep: %v", err)
	}
	if stale.Status != models.RunFailed {
		t.Errorf("stale entry status = %s, want %s", stale.Status, models.RunFailed)
	}
	if summary.Status != models.RunCompleted {
		t.Errorf("new run status = %s, want %s", summary.Status, models.RunCompleted)
	}
}

type erroringJob struct{ name string }

func (j erroringJob) Name() string { return j.name }
func (j erroringJob) Run(context.Context, time.Time, *Recorder) error {
	return errors.New("could not read due set")
}

func TestRunOnceClosesFailedOnJobError(t *testing.T) {
	audit := &memAuditStore{}
	runner := newTestRunner(audit, erroringJob{name: "broken"})

	summary, err := runner.RunOnce(context.Background(), "broken", TriggerSchedule)
	if err == nil {
		t.Fatal("expected error")
	}
	if summary == nil || summary.Status != models.RunFailed {
		t.Fatalf("summary = %+v, want failed", summary)
	}
	entry := audit.last()
	if entry.Status != models.RunFailed || entry.CompletedAt == nil {
		t.Errorf("audit entry not closed as failed: %+v", entry)
	}
}

type panickingJob struct{}

func (panickingJob) Name() string { return "panicky" }
func (panickingJob) Run(_ context.Context, _ time.Time, rec *Recorder) error {
	rec.AddProcessed()
	panic("boom")
}

func TestRunOnceClosesFailedOnPanic(t *testing.T) {
	audit := &memAuditStore{}
	runner := newTestRunner(audit, panickingJob{})

	summary, err := runner.RunOnce(context.Background(), "panicky", TriggerManual)
	if err == nil {
		t.Fatal("expected error from panicking job")
	}
	if summary.Status != models.RunFailed {
		t.Errorf("status = %s, want %s", summary.Status, models.RunFailed)
	}
	// Partial counters gathered before the panic survive in the entry.
	if audit.last().PaymentsProcessed != 1 {
		t.Errorf("partial counters lost: %+v", audit.last())
	}
}

func TestRunOnceUnknownJob(t *testing.T) {
	runner := newTestRunner(&memAuditStore{})
	_, err := runner.RunOnce(context.Background(), "nope", TriggerManual)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

// A monthly template due 2024-01-31 executed on 2024-02-01
// advances to 2024-02-29 (leap year), executed_count += 1.
func TestLeapYearMonthEndAdvance(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	due := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	id := store.add(activeTemplate(models.ObligationTransaction, models.FrequencyMonthly, due))

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 1))
	runner.now = func() time.Time { return time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC) }

	if _, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	tmpl := store.templates[id]
	want := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	if tmpl.NextExecutionDate == nil || !tmpl.NextExecutionDate.Equal(want) {
		t.Errorf("next_execution_date = %v, want %s", tmpl.NextExecutionDate, want.Format(time.DateOnly))
	}
	if tmpl.ExecutedCount != 1 {
		t.Errorf("executed_count = %d, want 1", tmpl.ExecutedCount)
	}
}

// A long outage resolves one period per pass, never by backdating several
// ledger rows in a single run.
func TestBacklogAdvancesOnePeriodPerRun(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	id := store.add(activeTemplate(models.ObligationTransaction, models.FrequencyWeekly, anchor))

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 1))
	now := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC) // four periods behind
	runner.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		if _, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	tmpl := store.templates[id]
	// Occurrences Jan 1, 8, 15, 22, 29 settle over the five passes.
	if tmpl.ExecutedCount != 5 {
		t.Errorf("executed_count = %d, want 5", tmpl.ExecutedCount)
	}
	if len(store.ledger) != 5 {
		t.Errorf("ledger rows = %d, want 5", len(store.ledger))
	}
	for i, entry := range store.ledger {
		want := anchor.AddDate(0, 0, 7*i)
		if !entry.OccurrenceDate.Equal(want) {
			t.Errorf("ledger[%d] occurrence = %s, want %s", i,
				entry.OccurrenceDate.Format(time.DateOnly), want.Format(time.DateOnly))
		}
	}
}

func TestTenureExhaustionDeactivates(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	due := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	tmpl := activeTemplate(models.ObligationLoanEMI, models.FrequencyMonthly, due)
	one := 1
	tmpl.TenureRemaining = &one
	id := store.add(tmpl)

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 1))
	runner.now = func() time.Time { return due }

	if _, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got := store.templates[id]
	if got.IsActive || got.NextExecutionDate != nil {
		t.Errorf("exhausted template not deactivated: active=%v next=%v", got.IsActive, got.NextExecutionDate)
	}
	if len(store.ledger) != 1 {
		t.Errorf("final occurrence not written, ledger rows = %d", len(store.ledger))
	}
}

func TestSupersededItemIsNeitherCountedNorFailed(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	id := store.add(activeTemplate(models.ObligationTransaction, models.FrequencyWeekly, due))
	store.failing[id] = ErrSuperseded

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 1))
	runner.now = func() time.Time { return due }

	summary, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != models.RunCompleted || summary.PaymentsProcessed != 0 || summary.ErrorsCount != 0 {
		t.Errorf("superseded item miscounted: %+v", summary)
	}
}

type memSubscriptionStore struct {
	subs []models.UserSubscription
}

func (s *memSubscriptionStore) ExpiringWithin(_ context.Context, asOf time.Time, window time.Duration) ([]models.UserSubscription, error) {
	var out []models.UserSubscription
	for _, sub := range s.subs {
		if sub.Status == models.SubscriptionActive && sub.EndDate != nil &&
			sub.EndDate.After(asOf) && !sub.EndDate.After(asOf.Add(window)) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func TestSubscriptionReminderJob(t *testing.T) {
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 3)
	far := now.AddDate(0, 2, 0)
	store := &memSubscriptionStore{subs: []models.UserSubscription{
		{ID: uuid.New(), UserID: uuid.New(), Status: models.SubscriptionActive, EndDate: &soon},
		{ID: uuid.New(), UserID: uuid.New(), Status: models.SubscriptionActive, EndDate: &far},
		{ID: uuid.New(), UserID: uuid.New(), Status: models.SubscriptionCancelled, EndDate: &soon},
	}}
	dispatcher := &memDispatcher{}
	audit := &memAuditStore{}

	runner := newTestRunner(audit, NewSubscriptionReminderJob(store, dispatcher, 7*24*time.Hour))
	runner.now = func() time.Time { return now }

	summary, err := runner.RunOnce(context.Background(), SubscriptionReminderJobName, TriggerSchedule)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.RemindersCreated != 1 {
		t.Errorf("reminders_created = %d, want 1", summary.RemindersCreated)
	}
	if len(dispatcher.events) != 1 || dispatcher.events[0].Type != notify.EventSubscriptionPending {
		t.Errorf("unexpected events: %+v", dispatcher.events)
	}
}

// Sanity check that N sequential executions equal NextOccurrence applied N
// times to the anchor.
func TestSequentialExecutionMatchesCalculator(t *testing.T) {
	store := newMemTemplateStore()
	audit := &memAuditStore{}
	anchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	id := store.add(activeTemplate(models.ObligationSIP, models.FrequencyMonthly, anchor))

	runner := newTestRunner(audit, NewObligationJob(store, &memDispatcher{}, 1))

	const n = 6
	clock := anchor
	for i := 0; i < n; i++ {
		runner.now = func() time.Time { return clock }
		if _, err := runner.RunOnce(context.Background(), ObligationJobName, TriggerSchedule); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		clock = clock.AddDate(0, 2, 0) // well past the next occurrence
	}

	want := anchor
	for i := 0; i < n; i++ {
		next, err := schedule.NextOccurrence(want, models.FrequencyMonthly)
		if err != nil {
			t.Fatalf("NextOccurrence: %v", err)
		}
		want = next
	}

	tmpl := store.templates[id]
	if tmpl.ExecutedCount != n {
		t.Errorf("executed_count = %d, want %d", tmpl.ExecutedCount, n)
	}
	if tmpl.NextExecutionDate == nil || !tmpl.NextExecutionDate.Equal(want) {
		t.Errorf("next = %v, want %s", tmpl.NextExecutionDate, want.Format(time.DateOnly))
	}
}
