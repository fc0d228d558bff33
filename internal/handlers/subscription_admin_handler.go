package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/middleware"
	"github.com/Raihan-Sharif/finmate-sub005/internal/policy"
	"github.com/Raihan-Sharif/finmate-sub005/internal/services"
)

// SubscriptionAdminHandler serves the admin subscription dashboard: the
// filterable list, the per-subscription action endpoint, manual creation,
// and the change history.
type SubscriptionAdminHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionAdminHandler(subscriptions *services.SubscriptionService) *SubscriptionAdminHandler {
	return &SubscriptionAdminHandler{subscriptions: subscriptions}
}

// List supports ?status=, ?search= (email substring), ?limit=, ?offset=.
func (h *SubscriptionAdminHandler) List(c *fiber.Ctx) error {
	if err := authorize(c, policy.ActionReadAdminSubscripts, policy.Resource{Kind: "subscription"}); err != nil {
		return failAction(c, err)
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	subs, total, err := h.subscriptions.List(c.Context(), c.Query("status"), c.Query("search"), limit, offset)
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(fiber.Map{
		"subscriptions": subs,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// Action applies one lifecycle action (activate, suspend, cancel, extend)
// to the :id subscription.
func (h *SubscriptionAdminHandler) Action(c *fiber.Ctx) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	if err := policy.Authorize(actor, policy.ActionManageSubscription, policy.Resource{Kind: "subscription"}); err != nil {
		return failAction(c, err)
	}
	id, err := subscriptionID(c)
	if err != nil {
		return failAction(c, err)
	}

	var req dto.SubscriptionActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	sub, err := h.subscriptions.Apply(c.Context(), id, req.Action, req.ExtendMonths, actor.ID)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "subscription "+req.Action+" applied", sub)
}

func (h *SubscriptionAdminHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	if err := policy.Authorize(actor, policy.ActionManageSubscription, policy.Resource{Kind: "subscription"}); err != nil {
		return failAction(c, err)
	}

	var req dto.CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	sub, err := h.subscriptions.CreateManual(c.Context(), req.UserID, req.PlanID, req.BillingCycle, actor.ID)
	if err != nil {
		return failAction(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ActionResult{
		Success: true, Message: "subscription created", Data: sub,
	})
}

func (h *SubscriptionAdminHandler) History(c *fiber.Ctx) error {
	if err := authorize(c, policy.ActionReadAdminSubscripts, policy.Resource{Kind: "subscription"}); err != nil {
		return failAction(c, err)
	}
	id, err := subscriptionID(c)
	if err != nil {
		return failAction(c, err)
	}
	history, err := h.subscriptions.History(c.Context(), id, c.QueryInt("limit", 50))
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(history)
}

func subscriptionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, &apperr.InvalidArgument{Reason: "id must be a UUID"}
	}
	return id, nil
}
