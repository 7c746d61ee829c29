// worker consumes audit events from Kafka, stores them in audit_logs and, when LOKI_URL is set,
// pushes them to Loki. Requires KAFKA_BROKERS and DATABASE_URL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"teamos/backend/internal/audit"
	auditrepo "teamos/backend/internal/audit/repository"
	"teamos/backend/internal/config"
	"teamos/backend/internal/db"
	"teamos/backend/internal/platform/logging"
	"teamos/backend/internal/telemetry/loki"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	conn, err := db.OpenWithRetry(cfg.DatabaseURL, time.Minute, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer conn.Close()

	var lines audit.LinePusher
	if c := loki.NewClient(cfg.LokiURL); c != nil {
		lines = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("consuming audit events",
		zap.String("topic", cfg.AuditKafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Bool("loki", lines != nil))
	consumer := audit.NewConsumer(brokers, cfg.AuditKafkaTopic, cfg.KafkaGroupID, auditrepo.NewPostgresRepository(conn), lines, log)
	if err := consumer.Run(ctx); err != nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}
