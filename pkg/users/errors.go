package users

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edulab/authcore/pkg/pg"
)

var (
	ErrNotFound     = errors.New("users: not found")
	ErrConflict     = errors.New("users: unique constraint violation")
	ErrInvalidField = errors.New("users: field not in lookup allow-list")
	ErrNoAuthMethod = errors.New("users: user needs a password or a provider identity")
	ErrEmptyPatch   = errors.New("users: no fields to update")
)

func isNoRows(err error) bool {
	return pg.IsNotFound(err)
}

func isUniqueViolation(err error) bool {
	return pg.IsUniqueViolation(err)
}

// constraintName extracts which unique constraint fired, for conflict
// messages that name the offending field.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return "unique field"
}
