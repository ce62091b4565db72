package account

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// LocalAccountID is the fiber.Ctx locals key holding the authenticated account id.
const LocalAccountID = "account_id"

// Handler exposes account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	id, _ := c.Locals(LocalAccountID).(string)
	if id == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	account, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(account.Profile())
}

// Get returns the profile named by the :id route parameter.
func (h *Handler) Get(c *fiber.Ctx) error {
	account, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(account.Profile())
}
