package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/auth"
)

// LocalRole is the fiber.Ctx locals key holding the authenticated role.
const LocalRole = "role"

// JWTAuth validates the bearer token and stores the account id and role in
// the request locals.
func JWTAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return unauthorized("missing bearer token")
		}
		claims, err := tokens.Parse(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return unauthorized("invalid token")
		}

		c.Locals(account.LocalAccountID, claims.Subject)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole rejects callers whose token does not carry one of roles. It must
// run after JWTAuth.
func RequireRole(roles ...account.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(account.Role)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return oops.Code("AUTH_ROLE_REQUIRED").
			With("role", string(role)).
			Public("insufficient role").
			Wrapf(apperr.ErrForbidden, "role %q not permitted", role)
	}
}

func unauthorized(msg string) error {
	return oops.Code("AUTH_UNAUTHORIZED").Public(msg).Wrapf(apperr.ErrInvalidCredentials, "%s", msg)
}
