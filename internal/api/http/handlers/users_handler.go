package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticketflow/internal/api/dto"
	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/service"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// UsersHandler exposes auth endpoints for customers and staff.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	user, token, exp, err := h.auth.RegisterUser(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, exp, err := h.auth.LoginUser(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// StaffLogin handles POST /auth/staff/login.
func (h *UsersHandler) StaffLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	staff, token, exp, err := h.auth.LoginStaff(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// CreateStaff handles POST /staff (admin only).
func (h *UsersHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	switch req.Role {
	case domain.StaffRoleAgent, domain.StaffRoleSupervisor, domain.StaffRoleAdmin:
	default:
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
	}

	staff, err := h.auth.CreateStaff(c.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// ChangePassword handles POST /auth/password/change for any principal.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current and new password required", nil)
	}

	subject := service.AuthSubject{Type: principal.SubjectType}
	switch {
	case principal.User != nil:
		subject.ID = principal.User.ID
	case principal.Staff != nil:
		subject.ID = principal.Staff.ID
	default:
		return apperrors.NewUnauthorized("authentication required")
	}

	if err := h.auth.ChangePassword(c.Context(), subject, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      staff.Role,
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
	}
}
