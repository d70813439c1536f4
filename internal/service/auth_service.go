package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bugtrack/internal/auth"
	"github.com/spec-kit/bugtrack/internal/config"
	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/repository"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterInput describes a new account request.
type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
	Role     domain.Role
}

// RegisterUser creates a new account. Role defaults to TESTER when absent.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleTester
	}
	if !domain.ValidRole(role) {
		return nil, "", time.Time{}, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("username already taken", map[string]any{"username": input.Username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if input.Email != "" {
		if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
			return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.MapError(err)
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		FullName:     input.FullName,
		Email:        input.Email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Login authenticates by username or email; identifiers containing "@" are
// treated as email addresses.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, string, time.Time, error) {
	var user *domain.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// GetUser loads a user by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
