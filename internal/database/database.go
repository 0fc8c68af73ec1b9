// Package database opens the connections behind the stores.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxConnectAttempts = 5
	connectRetryDelay  = 5 * time.Second
	pingTimeout        = 10 * time.Second
)

type PostgresOptions struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	Debug        bool
}

// OpenPostgres connects to PostgreSQL, retrying while the server comes up.
func OpenPostgres(ctx context.Context, opts PostgresOptions, log *slog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(opts.DSN), gormCfg)
		if err == nil {
			break
		}
		log.Warn("database connection attempt failed",
			"attempt", attempt,
			"max_attempts", maxConnectAttempts,
			"err", err,
		)
		if attempt == maxConnectAttempts {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		select {
		case <-time.After(connectRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get generic db: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to postgres", "max_open_conns", opts.MaxOpenConns)
	return db, nil
}

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
// Transactions require a replica set or sharded cluster.
func ConnectMongo(ctx context.Context, uri string, log *slog.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info("connected to mongo")
	return client, nil
}
