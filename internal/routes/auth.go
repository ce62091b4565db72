package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/registration"
)

// RegisterRegistrationRoutes wires the signup endpoints. idempotency may be nil.
func RegisterRegistrationRoutes(r fiber.Router, h *registration.Handler, idempotency fiber.Handler) {
	group := r.Group("/auth")
	if idempotency != nil {
		group.Post("/register", idempotency, h.Register)
		group.Post("/verify", idempotency, h.Verify)
	} else {
		group.Post("/register", h.Register)
		group.Post("/verify", h.Verify)
	}
	group.Post("/register/resend", h.Resend)
}

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	r.Post("/auth/login", h.Login)
}
