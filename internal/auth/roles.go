package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bugtrack/internal/domain"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. Workflow
// operations check roles themselves to attach the proper error taxonomy; this
// guard is for plain administrative routes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewUnauthorized("insufficient role")
		}
		return c.Next()
	}
}
