package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-ledger/internal/alerts"
	"expense-ledger/internal/auth"
	"expense-ledger/internal/config"
	"expense-ledger/internal/handlers"
	"expense-ledger/internal/log"
	"expense-ledger/internal/storage"
)

const sessionCleanupInterval = time.Hour

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Format: cfg.LogFormat, Component: log.ComponentApp, Output: os.Stdout})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	db, err := storage.Open(ctx, storage.Options{Driver: storage.Driver(cfg.DBDriver), DSN: cfg.DSN()})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database ready", "driver", cfg.DBDriver, log.FieldOperation, log.OpMigrate)

	if err := bootstrapAdmin(ctx, db, cfg, logger); err != nil {
		return err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = auth.GenerateSessionToken(); err != nil {
			return fmt.Errorf("generate JWT secret: %w", err)
		}
		logger.Warn("JWT_SECRET not set, using a random secret; bearer tokens will not survive a restart")
	}

	var publisher alerts.Publisher = alerts.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		client, err := alerts.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("connect to AMQP broker: %w", err)
		}
		defer client.Close()
		publisher = client
		logger.Info("Publishing budget alerts", "exchange", cfg.AMQPExchange)
	}

	h := handlers.NewHandlers(handlers.Options{
		DB:              db,
		Tokens:          auth.NewTokenService(secret, cfg.JWTExpiresIn),
		Watcher:         alerts.NewWatcher(db, publisher, logger),
		SecureCookie:    cfg.SecureCookie,
		SessionDuration: cfg.SessionDuration,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(h, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	go cleanSessions(ctx, db, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// setupRouter mounts the API and wraps it with request logging.
func setupRouter(h *handlers.Handlers, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	h.Mount(mux)
	return log.Middleware(logger)(log.AccessLog(mux))
}

// bootstrapAdmin creates the configured account on an empty database.
func bootstrapAdmin(ctx context.Context, db *storage.DB, cfg *config.Config, logger *log.Logger) error {
	if cfg.AdminUser == "" {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user, err := db.CreateUser(ctx, cfg.AdminUser, "", hash)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("Created bootstrap user", log.FieldUserID, user.ID, "username", user.Username)
	return nil
}

func cleanSessions(ctx context.Context, db *storage.DB, logger *log.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanExpiredSessions(ctx)
			if err != nil {
				logger.Warn("Session cleanup failed", log.FieldError, err)
				continue
			}
			if n > 0 {
				logger.Info("Removed expired sessions", "count", n)
			}
		}
	}
}
