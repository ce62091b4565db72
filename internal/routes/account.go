package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/middleware"
)

// RegisterAccountRoutes wires profile endpoints on a router already guarded by JWTAuth.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Get("/me", h.Me)
	r.Get("/admin/accounts/:id", middleware.RequireRole(account.RoleAdmin), h.Get)
}
