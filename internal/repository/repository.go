package repository

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/config"
)

// Migrations holds the schema, applied by cmd/migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Constraint names the services translate into domain errors.
const (
	ConstraintUsersUsernameKey     = "users_username_key"
	ConstraintMissionsDriverIDFkey = "missions_driver_id_fkey"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

func (r *Repository) transactionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
}

// Ping checks the database is reachable, for the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.dbpool.PingContext(ctx)
}

// affectedOne turns an UPDATE or DELETE that touched no row into sql.ErrNoRows.
func affectedOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
