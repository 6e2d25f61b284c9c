package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/config"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/repository"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// AuthSubject identifies the caller when changing password.
type AuthSubject struct {
	Type domain.SubjectType
	ID   string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, staff repository.StaffRepository) *AuthService {
	return &AuthService{
		users:      users,
		staff:      staff,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterUser creates a new customer account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates a customer.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, &staff.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return staff, token, exp, nil
}

// CreateStaff provisions a staff member (admin operation). The directory
// only offers active staff for assignment, so provisioning sets the flag.
func (s *AuthService) CreateStaff(ctx context.Context, name, email, password string, role domain.StaffRole) (*domain.StaffMember, error) {
	if _, err := s.staff.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	staff := &domain.StaffMember{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ChangePassword verifies the current password before updating to a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject AuthSubject, currentPassword, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	switch subject.Type {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, subject.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		user.PasswordHash = hash
		return apperrors.MapError(s.users.Update(ctx, user))
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		staff.PasswordHash = hash
		return apperrors.MapError(s.staff.Update(ctx, staff))
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
