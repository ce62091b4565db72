package registration

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

// Handler exposes signup endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a registration HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type resendRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone    string `json:"phone"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type ackResponse struct {
	Message string `json:"message"`
	Ack
}

// Register stages a signup and sends the verification code.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.InvalidBody(err)
	}
	ack, err := h.service.RequestRegistration(c.UserContext(), Request(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ackResponse{Message: "verification code sent", Ack: ack})
}

// Resend issues a new verification code.
func (h *Handler) Resend(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.InvalidBody(err)
	}
	ack, err := h.service.ResendCode(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Message: "verification code sent", Ack: ack})
}

// Verify completes a signup and returns the new account profile.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.InvalidBody(err)
	}
	acct, err := h.service.VerifyRegistration(c.UserContext(), Verification{Phone: req.Phone, Code: req.OTP, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(acct.Profile())
}
