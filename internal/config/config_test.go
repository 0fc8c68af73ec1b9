package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "SERVER_ADDR", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "AUTO_MIGRATE", "MONGO_URI",
		"MONGO_DATABASE", "JWT_SECRET", "TOKEN_TTL", "DEFAULT_RENTAL_DAYS",
		"LATE_FEE_PER_DAY", "OVERDUE_SWEEP_SCHEDULE", "BOOTSTRAP_ADMIN_EMAIL",
		"BOOTSTRAP_ADMIN_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/rental")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 20, cfg.DBMaxOpenConns)
	assert.Equal(t, 10, cfg.DBMaxIdleConns)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "bookrental", cfg.MongoDatabase)
	assert.Equal(t, 168*time.Hour, cfg.Token.TTL)
	assert.Equal(t, "s3cret", cfg.Token.Secret)
	assert.Equal(t, 7, cfg.DefaultRentalDays)
	assert.True(t, cfg.LateFeePerDay.Equal(decimal.NewFromInt(5000)))
	assert.Empty(t, cfg.OverdueSweepSchedule)

	policy := cfg.Policy()
	assert.Equal(t, 7, policy.DefaultDays)
	assert.True(t, policy.LateFeePerDay.Equal(decimal.NewFromInt(5000)))
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("DEFAULT_RENTAL_DAYS", "14")
	t.Setenv("LATE_FEE_PER_DAY", "2500.50")
	t.Setenv("OVERDUE_SWEEP_SCHEDULE", "*/15 * * * *")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.Token.TTL)
	assert.Equal(t, 14, cfg.DefaultRentalDays)
	assert.True(t, cfg.LateFeePerDay.Equal(decimal.RequireFromString("2500.50")))
	assert.Equal(t, "*/15 * * * *", cfg.OverdueSweepSchedule)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("LATE_FEE_PER_DAY", "-1")
	t.Setenv("OVERDUE_SWEEP_SCHEDULE", "every tuesday")

	_, err := Load()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"DATABASE_URL is required",
		"JWT_SECRET is required",
		"DB_MAX_OPEN_CONNS",
		"LATE_FEE_PER_DAY must not be negative",
		"OVERDUE_SWEEP_SCHEDULE",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoadUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "cassandra")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.ErrorContains(t, err, `unknown driver "cassandra"`)
}

func TestLoadToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	tc, err := LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", tc.Secret)
	assert.Equal(t, 168*time.Hour, tc.TTL)

	t.Setenv("TOKEN_TTL", "30m")
	tc, err = LoadToken()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, tc.TTL)

	t.Setenv("TOKEN_TTL", "-1h")
	_, err = LoadToken()
	assert.ErrorContains(t, err, "TOKEN_TTL must be positive")

	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_TTL", "soon")
	_, err = LoadToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}
