// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"bookrental/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Env        string
	ServerAddr string
	LogLevel   slog.Level

	StoreDriver    string
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	AutoMigrate    bool

	MongoURI      string
	MongoDatabase string

	Token TokenConfig

	DefaultRentalDays int
	LateFeePerDay     decimal.Decimal

	// OverdueSweepSchedule is a cron spec; empty disables the sweep.
	OverdueSweepSchedule string

	BootstrapAdminEmail string
	BootstrapAdminName  string
}

// TokenConfig holds the bearer token settings shared by the server and the
// token command.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// LoadToken reads JWT_SECRET and TOKEN_TTL only, for tools that issue tokens
// without a database.
func LoadToken() (*TokenConfig, error) {
	var errs []error
	tc := loadToken(&errs)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &tc, nil
}

func loadToken(errs *[]error) TokenConfig {
	tc := TokenConfig{
		Secret: os.Getenv("JWT_SECRET"),
		TTL:    getDuration("TOKEN_TTL", 7*24*time.Hour, errs),
	}
	if tc.Secret == "" {
		*errs = append(*errs, errors.New("JWT_SECRET is required"))
	}
	if tc.TTL <= 0 {
		*errs = append(*errs, errors.New("TOKEN_TTL must be positive"))
	}
	return tc
}

// Policy returns the rental policy configured for this process.
func (c *Config) Policy() domain.Policy {
	return domain.Policy{
		DefaultDays:   c.DefaultRentalDays,
		LateFeePerDay: c.LateFeePerDay,
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Load reads the configuration from the environment. Every problem found is
// reported at once.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "dev"),
		ServerAddr:           getEnv("SERVER_ADDR", ":8080"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MongoURI:             os.Getenv("MONGO_URI"),
		MongoDatabase:        getEnv("MONGO_DATABASE", "bookrental"),
		OverdueSweepSchedule: strings.TrimSpace(os.Getenv("OVERDUE_SWEEP_SCHEDULE")),
		BootstrapAdminEmail:  strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminName:   getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
	}

	cfg.DBMaxOpenConns = getInt("DB_MAX_OPEN_CONNS", 20, &errs)
	cfg.DBMaxIdleConns = getInt("DB_MAX_IDLE_CONNS", 10, &errs)
	cfg.AutoMigrate = getBool("AUTO_MIGRATE", true, &errs)
	cfg.Token = loadToken(&errs)
	cfg.DefaultRentalDays = getInt("DEFAULT_RENTAL_DAYS", domain.DefaultRentalDays, &errs)
	cfg.LateFeePerDay = getDecimal("LATE_FEE_PER_DAY", decimal.NewFromInt(domain.DefaultLateFeePerDay), &errs)

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver))
	}

	if cfg.DefaultRentalDays < 1 {
		errs = append(errs, errors.New("DEFAULT_RENTAL_DAYS must be at least 1"))
	}
	if cfg.LateFeePerDay.IsNegative() {
		errs = append(errs, errors.New("LATE_FEE_PER_DAY must not be negative"))
	}
	if cfg.OverdueSweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.OverdueSweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("OVERDUE_SWEEP_SCHEDULE: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getDecimal(key string, defaultValue decimal.Decimal, errs *[]error) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
