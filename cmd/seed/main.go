package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/roadside-ops/mission-log/backend/internal/config"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/repository"
	"github.com/roadside-ops/mission-log/backend/internal/seed"
	"github.com/roadside-ops/mission-log/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "operation (1: random drivers, 2: random missions for every active driver, 3: sample drivers)")
	flag.IntVar(&n, "n", 5, "number of records to insert (per driver for op 2)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	ctx = context.Background()

	switch op {
	case 0:
		slog.Error("no operation given, use -op")
	case 1:
		if n <= 0 {
			slog.Error("the number of drivers must be positive")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomDriver(cfg.Seed.User.Password, cfg.Password.HashCost)
			if err != nil {
				slog.Error("failed to generate driver", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(ctx, user); err != nil {
				// random usernames may collide, the next attempt will do
				slog.Error("failed to insert driver", slog.String("username", user.Username), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("drivers inserted", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			slog.Error("the number of missions must be positive")
			return
		}

		users, err := repo.GetAllUsers(ctx)
		if err != nil {
			slog.Error("failed to list users", slog.String("error", err.Error()))
			return
		}

		now := time.Now()
		cnt := 0
		for _, user := range users {
			if user.Role != domain.RoleDriver || !user.IsActive {
				continue
			}

			for i := 0; i < n; i++ {
				m := utils.GenerateRandomMission(user.ID, now)
				if err := repo.CreateMission(ctx, m); err != nil {
					slog.Error("failed to insert mission", slog.Int64("driver_id", user.ID), slog.String("error", err.Error()))
					continue
				}
				cnt++
			}
		}

		slog.Info("missions inserted", slog.Int("count", cnt))
	case 3:
		cnt, err := seed.SeedSampleDrivers(ctx, repo, cfg.Password.HashCost)
		if err != nil {
			slog.Error("failed to insert sample drivers", slog.String("error", err.Error()))
			return
		}

		slog.Info("sample drivers inserted", slog.Int("count", cnt))
	default:
		slog.Error("unknown operation", slog.Int("op", op))
	}
}
