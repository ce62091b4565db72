package middleware

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/auth"
)

func protectedApp(tokens *auth.TokenManager, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(apperr.Status(err)).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
	}})
	app.Use(RequestID(), Audit(logger))
	app.Get("/me", JWTAuth(tokens), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(account.LocalAccountID).(string))
	})
	app.Get("/admin", JWTAuth(tokens), RequireRole(account.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func bearer(t *testing.T, tokens *auth.TokenManager, role account.Role) string {
	t.Helper()
	token, _, err := tokens.Issue(account.Account{ID: "acc-1", Role: role}, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func TestJWTAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", "shopdesk", time.Hour)
	app := protectedApp(tokens, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", fiber.StatusUnauthorized},
		{"malformed", "/me", "Token abc", fiber.StatusUnauthorized},
		{"bad token", "/me", "Bearer not.a.token", fiber.StatusUnauthorized},
		{"foreign signature", "/me", bearer(t, auth.NewTokenManager("other", "shopdesk", time.Hour), account.RoleUser), fiber.StatusUnauthorized},
		{"valid", "/me", bearer(t, tokens, account.RoleUser), fiber.StatusOK},
		{"lowercase scheme", "/me", "bearer " + bearer(t, tokens, account.RoleUser)[len("Bearer "):], fiber.StatusOK},
		{"user on admin route", "/admin", bearer(t, tokens, account.RoleUser), fiber.StatusForbidden},
		{"admin on admin route", "/admin", bearer(t, tokens, account.RoleAdmin), fiber.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
		})
	}
}

func TestAuditLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	tokens := auth.NewTokenManager("secret", "shopdesk", time.Hour)
	app := protectedApp(tokens, slog.New(slog.NewJSONHandler(&buf, nil)))

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set(fiber.HeaderAuthorization, bearer(t, tokens, account.RoleUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"account_id":"acc-1"`)
	assert.Contains(t, buf.String(), `"status":200`)
}
