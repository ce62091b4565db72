package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/apperr"
)

func TestErrorHandler(t *testing.T) {
	var logs bytes.Buffer
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(slog.New(slog.NewJSONHandler(&logs, nil)))})
	app.Use(RequestID())
	app.Get("/conflict", func(*fiber.Ctx) error {
		return oops.Code("X").Public("phone or email already registered").Wrapf(apperr.ErrConflict, "dup")
	})
	app.Get("/boom", func(*fiber.Ctx) error {
		return oops.Code("DB_DOWN").Wrap(errors.New("dial tcp 10.0.0.1:5432"))
	})
	app.Get("/fiber", func(*fiber.Ctx) error {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "too large")
	})

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/conflict", fiber.StatusConflict, "phone or email already registered"},
		{"/boom", fiber.StatusInternalServerError, "internal server error"},
		{"/fiber", fiber.StatusRequestEntityTooLarge, "too large"},
		{"/missing", fiber.StatusNotFound, "Cannot GET /missing"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			req.Header.Set(RequestIDHeader, "req-1")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Error)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}

	assert.Contains(t, logs.String(), `"code":"DB_DOWN"`)
	assert.NotContains(t, logs.String(), "phone or email already registered")
}
