package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/policy"
)

var ErrNoActor = errors.New("no authenticated actor in request context")

// Actor builds the policy actor snapshot from the validated JWT. Admin-token
// requests (no JWT) get a synthetic admin actor.
func Actor(c *fiber.Ctx) (policy.Actor, error) {
	if c.Locals("admin_token") == true {
		return policy.Actor{Role: "admin"}, nil
	}

	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return policy.Actor{}, ErrNoActor
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return policy.Actor{}, ErrNoActor
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return policy.Actor{}, ErrNoActor
	}
	role, _ := claims["role"].(string)
	return policy.Actor{ID: id, Role: role}, nil
}
