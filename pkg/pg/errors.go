package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrParseConfig      = errors.New("pg: parse connection config")
	ErrConnect          = errors.New("pg: connect to database")
	ErrHealthcheck      = errors.New("pg: healthcheck failed")
	ErrApplyMigrations  = errors.New("pg: apply migrations")
)

// IsNotFound reports whether err is the pgx no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports a unique constraint violation
// (SQLSTATE 23505), the signal the user directory turns into a
// conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports a referential integrity violation
// (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
