package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/middleware"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/policy"
	"github.com/Raihan-Sharif/finmate-sub005/internal/services"
)

type ObligationHandler struct {
	obligations *services.ObligationService
}

func NewObligationHandler(obligations *services.ObligationService) *ObligationHandler {
	return &ObligationHandler{obligations: obligations}
}

func (h *ObligationHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateObligationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	tmpl, err := h.obligations.Create(c.Context(), actor.ID, &req)
	if err != nil {
		return failAction(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tmpl)
}

func (h *ObligationHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	templates, err := h.obligations.ListByUser(c.Context(), actor.ID)
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(templates)
}

func (h *ObligationHandler) Get(c *fiber.Ctx) error {
	tmpl, err := h.loadAuthorized(c, policy.ActionManageTemplate)
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(tmpl)
}

func (h *ObligationHandler) Update(c *fiber.Ctx) error {
	tmpl, err := h.loadAuthorized(c, policy.ActionManageTemplate)
	if err != nil {
		return failAction(c, err)
	}

	var req dto.UpdateObligationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	updated, err := h.obligations.Update(c.Context(), tmpl.ID, &req)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "template updated", updated)
}

func (h *ObligationHandler) Pause(c *fiber.Ctx) error {
	return h.setActive(c, false, "template paused")
}

func (h *ObligationHandler) Resume(c *fiber.Ctx) error {
	return h.setActive(c, true, "template resumed")
}

func (h *ObligationHandler) setActive(c *fiber.Ctx, active bool, message string) error {
	tmpl, err := h.loadAuthorized(c, policy.ActionManageTemplate)
	if err != nil {
		return failAction(c, err)
	}
	updated, err := h.obligations.SetActive(c.Context(), tmpl.ID, active)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, message, updated)
}

// Preview computes upcoming occurrence dates without touching any template.
// Query params: anchor (RFC 3339), frequency, count.
func (h *ObligationHandler) Preview(c *fiber.Ctx) error {
	anchor := time.Now()
	if raw := c.Query("anchor"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "anchor must be RFC 3339",
			})
		}
		anchor = parsed
	}
	frequency := c.Query("frequency", models.FrequencyMonthly)

	dates, err := h.obligations.Preview(anchor, frequency, c.QueryInt("count", 6))
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(dto.PreviewResponse{Frequency: frequency, Dates: dates})
}

// loadAuthorized resolves the :id template and checks the actor may act on it.
func (h *ObligationHandler) loadAuthorized(c *fiber.Ctx, action string) (*models.ObligationTemplate, error) {
	actor, err := middleware.Actor(c)
	if err != nil {
		return nil, &policy.Denied{Action: action}
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, &apperr.InvalidArgument{Reason: "id must be a UUID"}
	}
	tmpl, err := h.obligations.Get(c.Context(), id)
	if err != nil {
		return nil, err
	}
	resource := policy.Resource{Kind: "obligation_template", OwnerID: tmpl.UserID}
	if err := policy.Authorize(actor, action, resource); err != nil {
		return nil, err
	}
	return tmpl, nil
}
