package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type DatabaseConfig struct {
	DSN                string `env:"DSN,required"`
	ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
	TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
	MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		TrustProxy      bool   `env:"TRUST_PROXY" envDefault:"false"`
		StaticDir       string `env:"STATIC_DIR" envDefault:"./public"`
	} `envPrefix:"SERVER_"`
	Database     DatabaseConfig `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"Administrator"`
	} `envPrefix:"INITIAL_ADMIN_"`
	Session struct {
		Secret             string `env:"SECRET,required"`
		CookieName         string `env:"COOKIE_NAME" envDefault:"towing.sid"`
		Lifetime           int    `env:"LIFETIME" envDefault:"86400"` // 24 hours
		RevokeOnDeactivate bool   `env:"REVOKE_ON_DEACTIVATE" envDefault:"true"`
	} `envPrefix:"SESSION_"`
	Password struct {
		HashCost  int `env:"HASH_COST" envDefault:"10"`
		MinLength int `env:"MIN_LENGTH" envDefault:"6"`
	} `envPrefix:"PASSWORD_"`
	RateLimit struct {
		Window       int `env:"WINDOW" envDefault:"900"` // 15 minutes
		APIMax       int `env:"API_MAX" envDefault:"300"`
		LoginMax     int `env:"LOGIN_MAX" envDefault:"30"`
		StoreTimeout int `env:"STORE_TIMEOUT" envDefault:"2"`
	} `envPrefix:"RATE_LIMIT_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD"`
		DB             int    `env:"DB" envDefault:"0"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	RabbitMQ struct {
		DSN            string `env:"DSN"` // notifications are disabled when empty
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Email struct {
		DispatchAddress string `env:"DISPATCH_ADDRESS"`
		TemplateDir     string `env:"TEMPLATE_DIR" envDefault:"./templates"`
		SMTP            struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"Driver123!"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
}

// MigrateConfig is the subset of Config needed to run schema migrations.
type MigrateConfig struct {
	Environment string         `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string         `env:"LOG_LEVEL" envDefault:"info"`
	Database    DatabaseConfig `envPrefix:"DATABASE_"`
}

func parse(cfg any) error {
	// a missing .env is fine, the real environment always wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// only the first error keeps the log readable
			return aggErr.Errors[0]
		}
		return err
	}

	return nil
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Password.HashCost < bcrypt.DefaultCost || cfg.Password.HashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("PASSWORD_HASH_COST must be between %d and %d", bcrypt.DefaultCost, bcrypt.MaxCost)
	}
	if cfg.Password.MinLength < 6 {
		return nil, errors.New("PASSWORD_MIN_LENGTH must be at least 6")
	}
	if len(cfg.InitialAdmin.Password) < cfg.Password.MinLength {
		return nil, fmt.Errorf("INITIAL_ADMIN_PASSWORD must be at least %d characters", cfg.Password.MinLength)
	}

	return cfg, nil
}

func LoadMigrateConfig() (*MigrateConfig, error) {
	cfg := &MigrateConfig{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
