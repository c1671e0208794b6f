package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidConfig     = errors.New("pg: invalid connection config")
	ErrConnectionFailed  = errors.New("pg: failed to connect")
	ErrHealthcheckFailed = errors.New("pg: healthcheck failed")
	ErrMigrationFailed   = errors.New("pg: failed to apply migrations")
)

// IsNotFoundError reports whether err is pgx's no-rows sentinel, so storage
// code can translate it into its own not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
