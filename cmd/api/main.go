package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/roadside-ops/mission-log/backend/internal/config"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/handler"
	"github.com/roadside-ops/mission-log/backend/internal/notify"
	"github.com/roadside-ops/mission-log/backend/internal/repository"
	"github.com/roadside-ops/mission-log/backend/internal/service"
	"github.com/roadside-ops/mission-log/backend/internal/session"
	"github.com/roadside-ops/mission-log/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * Logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * Configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger = utils.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	/**********************************************
	 * Database
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect, ping to fail fast
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * Repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * Initial administrator
	 **********************************************/
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), cfg.Password.HashCost)
	if err != nil {
		logger.Error("failed to hash initial admin password", "error", err)
		os.Exit(1)
	}
	initialAdmin := &domain.User{
		Username:     cfg.InitialAdmin.Username,
		PasswordHash: string(passwordHash),
		FullName:     cfg.InitialAdmin.FullName,
		Role:         domain.RoleAdmin,
	}
	if err := repo.CreateUser(ctx, initialAdmin); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == repository.ConstraintUsersUsernameKey:
			// already bootstrapped by an earlier start
		default:
			logger.Error("failed to create initial admin", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("initial admin created", "username", initialAdmin.Username)
	}

	/**********************************************
	 * Redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	redisCtx, redisCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer redisCancel()
	if err := rdb.Ping(redisCtx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * RabbitMQ (optional)
	 **********************************************/
	var notifier service.Notifier
	switch {
	case cfg.RabbitMQ.DSN == "":
		logger.Info("RABBITMQ_DSN is empty, mission notifications are disabled")
	case cfg.Email.DispatchAddress == "":
		logger.Warn("EMAIL_DISPATCH_ADDRESS is empty, mission notifications are disabled")
	default:
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Error("failed to open channel", "error", err)
			os.Exit(1)
		}
		defer ch.Close()

		if _, err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
			logger.Error("failed to declare queue", "queue", cfg.RabbitMQ.Queue, "error", err)
			os.Exit(1)
		}

		notifier = notify.NewPublisher(ch, cfg.RabbitMQ.Queue, cfg.Email.DispatchAddress, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	}

	/**********************************************
	 * Services
	 **********************************************/
	validator, err := utils.NewValidator()
	if err != nil {
		logger.Error("failed to create validator", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(rdb, cfg.Session.Secret, time.Duration(cfg.Session.Lifetime)*time.Second)

	var revoker service.SessionRevoker
	if cfg.Session.RevokeOnDeactivate {
		revoker = sessions
	}

	auth, err := service.NewAuthService(repo, validator, cfg.Password.HashCost)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	services := handler.Services{
		Auth: auth,
		Users: service.NewUserService(repo, revoker, validator, service.UserServiceConfig{
			HashCost:          cfg.Password.HashCost,
			MinPasswordLength: cfg.Password.MinLength,
			ProtectedUsername: cfg.InitialAdmin.Username,
		}),
		Missions: service.NewMissionService(repo, notifier, validator),
		Stats:    service.NewStatsService(repo, time.Now),
	}

	/**********************************************
	 * Handler
	 **********************************************/
	h := handler.NewHandler(cfg, services, sessions, rdb, map[string]handler.HealthCheck{
		"database": repo.Ping,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	})
	h.RegisterRoutes()

	/**********************************************
	 * HTTP server
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}
