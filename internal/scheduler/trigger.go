package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobSchedule declares when a registered job runs.
type JobSchedule struct {
	JobName string
	Spec    string
	Active  bool
}

// JobInfo is the monitoring view of a declared schedule.
type JobInfo struct {
	JobName string     `json:"job_name"`
	Spec    string     `json:"spec"`
	Active  bool       `json:"active"`
	NextRun *time.Time `json:"next_run"`
}

// CronTrigger is the time-based Trigger: it fires the locked RunOnce on the
// declared cron schedules. Scheduling policy lives here; execution logic
// stays in the Runner.
type CronTrigger struct {
	runner     *cron.Cron
	engine     *Runner
	schedules  []JobSchedule
	entries    map[string]cron.EntryID
	runTimeout time.Duration
}

func NewCronTrigger(engine *Runner, schedules []JobSchedule, runTimeout time.Duration) *CronTrigger {
	return &CronTrigger{
		runner:     cron.New(),
		engine:     engine,
		schedules:  schedules,
		entries:    make(map[string]cron.EntryID),
		runTimeout: runTimeout,
	}
}

func (t *CronTrigger) Start() error {
	for _, sched := range t.schedules {
		if !sched.Active {
			continue
		}
		jobName := sched.JobName
		id, err := t.runner.AddFunc(sched.Spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), t.runTimeout)
			defer cancel()
			if _, err := t.engine.RunOnce(ctx, jobName, TriggerSchedule); err != nil {
				slog.Error("scheduled run failed", "job", jobName, "error", err)
			}
		})
		if err != nil {
			return err
		}
		t.entries[jobName] = id
		slog.Info("scheduled job registered", "job", jobName, "spec", sched.Spec)
	}
	t.runner.Start()
	return nil
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (t *CronTrigger) Stop() {
	<-t.runner.Stop().Done()
}

// Jobs returns the declared schedules with their next fire times for the
// monitoring surface.
func (t *CronTrigger) Jobs() []JobInfo {
	infos := make([]JobInfo, 0, len(t.schedules))
	for _, sched := range t.schedules {
		info := JobInfo{JobName: sched.JobName, Spec: sched.Spec, Active: sched.Active}
		if id, ok := t.entries[sched.JobName]; ok {
			if next := t.runner.Entry(id).Next; !next.IsZero() {
				info.NextRun = &next
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// ManualTrigger is the on-demand Trigger used by the admin surface. It goes
// through the same lock as scheduled runs, so a manual fire during a
// scheduled run is rejected rather than interleaved.
type ManualTrigger struct {
	engine *Runner
}

func NewManualTrigger(engine *Runner) *ManualTrigger {
	return &ManualTrigger{engine: engine}
}

func (t *ManualTrigger) Fire(ctx context.Context, jobName string) (*RunSummary, error) {
	return t.engine.RunOnce(ctx, jobName, TriggerManual)
}
