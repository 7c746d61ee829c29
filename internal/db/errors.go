package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned by repositories when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("db: duplicate key")

const uniqueViolation = "23505"

// MapError converts Postgres unique violations into ErrDuplicate (wrapped with the constraint name).
// Other errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
