package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Raihan-Sharif/finmate-sub005/internal/policy"
	"github.com/Raihan-Sharif/finmate-sub005/internal/scheduler"
	"github.com/Raihan-Sharif/finmate-sub005/internal/services"
)

// CronHandler serves the scheduler monitoring view and the manual trigger.
type CronHandler struct {
	cronLogs *services.CronLogService
	trigger  *scheduler.ManualTrigger
}

func NewCronHandler(cronLogs *services.CronLogService, trigger *scheduler.ManualTrigger) *CronHandler {
	return &CronHandler{cronLogs: cronLogs, trigger: trigger}
}

// Trigger fires the :job synchronously and returns the run summary. A run
// already in flight answers 409 rather than queuing a second one.
func (h *CronHandler) Trigger(c *fiber.Ctx) error {
	if err := authorize(c, policy.ActionTriggerScheduler, policy.Resource{Kind: "job"}); err != nil {
		return failAction(c, err)
	}
	summary, err := h.trigger.Fire(c.Context(), c.Params("job"))
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "job completed", summary)
}

func (h *CronHandler) RecentRuns(c *fiber.Ctx) error {
	if err := authorize(c, policy.ActionReadMonitoring, policy.Resource{Kind: "cron_log"}); err != nil {
		return failAction(c, err)
	}
	runs, err := h.cronLogs.RecentRuns(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(runs)
}

// Stats aggregates runs over ?days= (default 7) per job.
func (h *CronHandler) Stats(c *fiber.Ctx) error {
	if err := authorize(c, policy.ActionReadMonitoring, policy.Resource{Kind: "cron_log"}); err != nil {
		return failAction(c, err)
	}
	days := c.QueryInt("days", 7)
	if days < 1 || days > 90 {
		days = 7
	}
	stats, err := h.cronLogs.StatsByJob(c.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(stats)
}

func (h *CronHandler) JobStatus(c *fiber.Ctx) error {
	if err := authorize(c, policy.ActionReadMonitoring, policy.Resource{Kind: "cron_log"}); err != nil {
		return failAction(c, err)
	}
	statuses, err := h.cronLogs.JobStatus(c.Context())
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(statuses)
}
