package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/middleware"
	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
	"github.com/Raihan-Sharif/finmate-sub005/internal/policy"
	"github.com/Raihan-Sharif/finmate-sub005/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create opens a pending payment for the authenticated user.
func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	payment, err := h.payments.Create(c.Context(), actor.ID, &req)
	if err != nil {
		return failAction(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	payment, _, err := h.loadAuthorized(c, policy.ActionSubmitPayment)
	if err != nil {
		return failAction(c, err)
	}
	return c.JSON(payment)
}

// Submit marks the caller's own pending payment as submitted for review.
func (h *PaymentHandler) Submit(c *fiber.Ctx) error {
	payment, _, err := h.loadAuthorized(c, policy.ActionSubmitPayment)
	if err != nil {
		return failAction(c, err)
	}
	payment, err = h.payments.Submit(c.Context(), payment.ID)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "payment submitted", payment)
}

func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	payment, actor, err := h.loadAuthorized(c, policy.ActionTransitionPayment)
	if err != nil {
		return failAction(c, err)
	}
	payment, err = h.payments.Verify(c.Context(), payment.ID, actor.ID)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "payment verified", payment)
}

// Approve finalizes the payment and provisions the subscription in the same
// transaction. The response carries both.
func (h *PaymentHandler) Approve(c *fiber.Ctx) error {
	payment, actor, err := h.loadAuthorized(c, policy.ActionTransitionPayment)
	if err != nil {
		return failAction(c, err)
	}
	payment, sub, err := h.payments.Approve(c.Context(), payment.ID, actor.ID)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "payment approved", fiber.Map{
		"payment":      payment,
		"subscription": sub,
	})
}

func (h *PaymentHandler) Reject(c *fiber.Ctx) error {
	payment, actor, err := h.loadAuthorized(c, policy.ActionTransitionPayment)
	if err != nil {
		return failAction(c, err)
	}

	var req dto.RejectPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	payment, err = h.payments.Reject(c.Context(), payment.ID, actor.ID, req.Reason)
	if err != nil {
		return failAction(c, err)
	}
	return okAction(c, "payment rejected", payment)
}

// loadAuthorized resolves the :id payment and checks the actor may perform
// action on it before any transition runs.
func (h *PaymentHandler) loadAuthorized(c *fiber.Ctx, action string) (*models.SubscriptionPayment, policy.Actor, error) {
	actor, err := middleware.Actor(c)
	if err != nil {
		return nil, policy.Actor{}, &policy.Denied{Action: action}
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, policy.Actor{}, &apperr.InvalidArgument{Reason: "id must be a UUID"}
	}
	payment, err := h.payments.Get(c.Context(), id)
	if err != nil {
		return nil, policy.Actor{}, err
	}
	resource := policy.Resource{Kind: "payment", OwnerID: payment.UserID}
	if err := policy.Authorize(actor, action, resource); err != nil {
		return nil, policy.Actor{}, err
	}
	return payment, actor, nil
}
