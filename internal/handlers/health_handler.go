package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Raihan-Sharif/finmate-sub005/internal/database"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "up"
	if err := database.Ping(); err != nil {
		dbStatus = "down"
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": dbStatus,
	})
}
