package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"expense-ledger/internal/alerts"
	"expense-ledger/internal/config"
	"expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		fmt.Fprintln(os.Stderr, "AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Format: cfg.LogFormat, Component: log.ComponentWorker, Output: os.Stdout})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Alert worker stopped", log.FieldOperation, log.OpShutdown)
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	db, err := storage.Open(ctx, storage.Options{Driver: storage.Driver(cfg.DBDriver), DSN: cfg.DSN()})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	client, err := alerts.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect to AMQP broker: %w", err)
	}
	defer client.Close()

	logger.Info("Alert worker started", "queue", cfg.AMQPQueue, log.FieldOperation, log.OpStartup)
	return client.Run(ctx, notify(db, logger))
}

type userReader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// notify delivers an alert to its owner. Delivery is a log line addressed to
// the user; alerts for deleted users are dropped, store outages requeue.
func notify(users userReader, logger *log.Logger) alerts.Handler {
	return func(ctx context.Context, alert *alerts.BudgetAlert) error {
		user, err := users.GetUserByID(ctx, alert.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			logger.WarnContext(ctx, "Dropping alert for unknown user", log.FieldUserID, alert.UserID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		logger.InfoContext(ctx, alert.Message(),
			log.FieldOperation, log.OpConsume,
			log.FieldUserID, user.ID,
			"username", user.Username,
			"email", user.Email,
			log.FieldCategory, alert.Category,
			"level", string(alert.Level),
			"spent", alert.Spent.StringFixed(2),
			"limit", alert.Limit.StringFixed(2),
			"window", alert.From.String()+".."+alert.To.String(),
		)
		return nil
	}
}
