// Package service holds the mission, user, authentication and dashboard
// operations. Every method takes the caller's identity explicitly and checks
// it with domain.Authorize before touching a store.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/repository"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetActiveUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
}

type MissionStore interface {
	CreateMission(ctx context.Context, m *domain.Mission) error
	ListMissions(ctx context.Context, filter domain.MissionFilter) ([]*domain.Mission, error)
	GetMission(ctx context.Context, id int64, filter domain.MissionFilter) (*domain.Mission, error)
	UpdateMission(ctx context.Context, m *domain.Mission) error
	DeleteMission(ctx context.Context, id int64) error
}

type StatsStore interface {
	GetStats(ctx context.Context, today string, recentLimit int) (*domain.Stats, error)
}

// SessionRevoker ends every live session of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID int64) error
}

// Notifier is told about newly submitted missions.
type Notifier interface {
	MissionSubmitted(ctx context.Context, m *domain.Mission) error
}

// storeError maps driver errors onto domain errors. Anything unexpected is
// wrapped with op and left for the caller to report as an internal error.
func storeError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case repository.ConstraintUsersUsernameKey:
			return domain.ErrDuplicateUsername
		case repository.ConstraintMissionsDriverIDFkey:
			return domain.ErrNotFound
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
