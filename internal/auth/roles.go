package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticketflow/internal/domain"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// RequireUser allows only customer principals through.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewForbidden("customer account required")
		}
		return c.Next()
	}
}

// RequireStaff allows any authenticated staff member through.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return apperrors.NewForbidden("staff account required")
		}
		return c.Next()
	}
}

// RequireStaffRole allows staff holding one of the given roles.
func RequireStaffRole(roles ...domain.StaffRole) fiber.Handler {
	allowed := make(map[domain.StaffRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return apperrors.NewForbidden("staff account required")
		}
		if _, ok := allowed[principal.Staff.Role]; !ok {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
