package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/Raihan-Sharif/finmate-sub005/internal/config"
	"github.com/Raihan-Sharif/finmate-sub005/internal/dto"
)

// JWTProtected validates the bearer token. Requests carrying the configured
// admin token header bypass JWT entirely; AdminRequired and Actor treat them
// as a synthetic admin.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter: func(c *fiber.Ctx) bool {
			if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
				c.Locals("admin_token", true)
				return true
			}
			return false
		},
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}
