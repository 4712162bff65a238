// Package seed loads development data.
package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type UserCreator interface {
	CreateUser(ctx context.Context, user *domain.User) error
}

type SampleDriver struct {
	Username string
	Password string
	FullName string
}

// SampleDrivers are the drivers of the first deployment.
var SampleDrivers = []SampleDriver{
	{Username: "Abdelaali", Password: "Abdelaali123", FullName: "Abdelaali Naciri"},
	{Username: "Ayoub", Password: "Ayoub123", FullName: "Ayoub Zouadi"},
	{Username: "Kamal", Password: "Kamal123", FullName: "Kamal Mouzouri"},
}

// SeedSampleDrivers creates every sample driver with its own password. Drivers
// that already exist are left alone. It returns how many were created.
func SeedSampleDrivers(ctx context.Context, users UserCreator, cost int) (int, error) {
	created := 0
	for _, d := range SampleDrivers {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), cost)
		if err != nil {
			return created, err
		}

		user := &domain.User{
			Username:     d.Username,
			PasswordHash: string(hash),
			FullName:     d.FullName,
			Role:         domain.RoleDriver,
		}
		if err := users.CreateUser(ctx, user); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == repository.ConstraintUsersUsernameKey {
				slog.Info("sample driver already exists", "username", d.Username)
				continue
			}
			return created, err
		}

		created++
	}

	return created, nil
}
