package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookrental/internal/config"
	"bookrental/internal/database"
	"bookrental/internal/handlers"
	"bookrental/internal/repositories"
	"bookrental/internal/repositories/mongostore"
	"bookrental/internal/scheduler"
	"bookrental/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	bookService := services.NewBookService(store, log)
	rentalService := services.NewRentalService(store, cfg.Policy(), log)
	userService := services.NewUserService(store, log)

	if cfg.BootstrapAdminEmail != "" {
		admin, err := userService.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminName)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("bootstrap admin ready", "user_id", admin.ID)
	}

	if cfg.OverdueSweepSchedule != "" {
		sched, err := scheduler.New(cfg.OverdueSweepSchedule, rentalService, log)
		if err != nil {
			return fmt.Errorf("overdue sweep: %w", err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		log.Info("overdue sweep scheduled", "schedule", cfg.OverdueSweepSchedule)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Dependencies{
		Books:     bookService,
		Rentals:   rentalService,
		Users:     userService,
		Store:     store,
		JWTSecret: cfg.Token.Secret,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.ServerAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repositories.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, log)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(client, cfg.MongoDatabase)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	default:
		db, err := database.OpenPostgres(ctx, database.PostgresOptions{
			DSN:          cfg.DatabaseURL,
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
			Debug:        cfg.LogLevel <= slog.LevelDebug,
		}, log)
		if err != nil {
			return nil, err
		}
		store := repositories.NewGormStore(db)
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema migrated")
		}
		return store, nil
	}
}
