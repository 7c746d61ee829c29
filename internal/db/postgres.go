package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so repositories run unchanged inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens a Postgres connection using the given DSN. Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("db: DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenWithRetry calls Open with exponential backoff until it succeeds or maxElapsed passes.
// Used at server start when Postgres may still be coming up next to the API container.
func OpenWithRetry(dsn string, maxElapsed time.Duration, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = maxElapsed

	var conn *sql.DB
	err := backoff.RetryNotify(func() error {
		c, err := Open(dsn)
		if err != nil {
			if dsn == "" {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}, bo, func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
