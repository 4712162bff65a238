package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users     UserStore
	validator *utils.Validator

	// compared against when the username does not exist, so both failures take as long
	dummyHash []byte
}

func NewAuthService(users UserStore, validator *utils.Validator, hashCost int) (*AuthService, error) {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), hashCost)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:     users,
		validator: validator,
		dummyHash: dummyHash,
	}, nil
}

// Authenticate returns the active user matching username and password.
// Unknown users, inactive users and wrong passwords all fail with
// domain.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, in domain.LoginInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetActiveUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user %q: %w", in.Username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	return user, nil
}
