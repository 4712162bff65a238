package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type UserServiceConfig struct {
	HashCost          int
	MinPasswordLength int
	// ProtectedUsername is the bootstrap administrator, who cannot be demoted or deactivated.
	ProtectedUsername string
}

type UserService struct {
	users     UserStore
	sessions  SessionRevoker
	validator *utils.Validator
	cfg       UserServiceConfig
}

// NewUserService builds the user administration service. sessions may be nil,
// in which case deactivated users keep their sessions until they expire.
func NewUserService(users UserStore, sessions SessionRevoker, validator *utils.Validator, cfg UserServiceConfig) *UserService {
	return &UserService{
		users:     users,
		sessions:  sessions,
		validator: validator,
		cfg:       cfg,
	}
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context, caller *domain.Identity) ([]*domain.User, error) {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}

	return users, nil
}

func (s *UserService) Create(ctx context.Context, caller *domain.Identity, in domain.CreateUserInput) (*domain.User, error) {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, domain.NewValidationError("role", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeError("create user", err)
	}

	return user, nil
}

// Update replaces full name, role and active flag of user id.
func (s *UserService) Update(ctx context.Context, caller *domain.Identity, id int64, in domain.UpdateUserInput) (*domain.User, error) {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, domain.NewValidationError("role", err.Error())
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError("get user", err)
	}

	if user.Username == s.cfg.ProtectedUsername && (role != domain.RoleAdmin || !*in.IsActive) {
		return nil, domain.ErrProtectedUser
	}

	// sessions carry the role they were opened with
	staleSessions := !*in.IsActive || user.Role != role

	user.FullName = in.FullName
	user.Role = role
	user.IsActive = *in.IsActive
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, storeError("update user", err)
	}

	if staleSessions && s.sessions != nil {
		// the account is already updated, a revocation failure only delays the logout
		if err := s.sessions.RevokeUser(ctx, user.ID); err != nil {
			slog.Error("failed to revoke user sessions", "userId", user.ID, "role", user.Role, "active", user.IsActive, "error", err)
		}
	}

	return user, nil
}

// ResetPassword replaces the password hash of user id.
func (s *UserService) ResetPassword(ctx context.Context, caller *domain.Identity, id int64, in domain.ResetPasswordInput) error {
	if err := domain.Authorize(caller, domain.CapabilityAdmin); err != nil {
		return err
	}

	if err := s.validator.Struct(in); err != nil {
		return err
	}
	if err := s.checkPasswordLength("newPassword", in.NewPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cfg.HashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdateUserPassword(ctx, id, string(hash)); err != nil {
		return storeError("update password", err)
	}

	return nil
}

func (s *UserService) checkPasswordLength(field, password string) error {
	if utf8.RuneCountInString(password) < s.cfg.MinPasswordLength {
		return domain.NewValidationError(field, fmt.Sprintf("%s must be at least %d characters in length", field, s.cfg.MinPasswordLength))
	}
	return nil
}
