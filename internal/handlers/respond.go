package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Raihan-Sharif/finmate-sub005/internal/apperr"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
	"github.com/Raihan-Sharif/finmate-sub005/internal/middleware"
	"github.com/Raihan-Sharif/finmate-sub005/internal/policy"
)

// authorize resolves the request actor and asks policy whether it may perform
// action on resource. Every mutating or privileged handler calls this before
// touching its service.
func authorize(c *fiber.Ctx, action string, resource policy.Resource) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return &policy.Denied{Action: action}
	}
	return policy.Authorize(actor, action, resource)
}

// failAction maps taxonomy errors onto the {success, message, error}
// envelope with the right status code.
func failAction(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case apperr.IsNotFound(err):
		status = fiber.StatusNotFound
	case apperr.IsInvalidArgument(err):
		status = fiber.StatusBadRequest
	case apperr.IsStateViolation(err):
		status = fiber.StatusConflict
	case isDenied(err):
		status = fiber.StatusForbidden
	case isRunAbort(err):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(dto.ActionResult{
		Success: false,
		Message: "operation failed",
		Error:   err.Error(),
	})
}

func okAction(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(dto.ActionResult{Success: true, Message: message, Data: data})
}

func isDenied(err error) bool {
	var d *policy.Denied
	return errors.As(err, &d)
}

func isRunAbort(err error) bool {
	var ra *apperr.RunAbort
	return errors.As(err, &ra)
}
