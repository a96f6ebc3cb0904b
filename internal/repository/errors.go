package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate resource")
	ErrInvalidInput = errors.New("invalid input data")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
	pgNumericOutOfRange   = "22003"
)

// translatePgError maps constraint violations and out-of-range values onto
// the repository's error kinds. Uniqueness is only ever decided here, by the
// database, never by a lookup beforehand.
func translatePgError(err error, duplicate, missingRef string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, duplicate)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrInvalidInput, missingRef)
		case pgCheckViolation, pgStringTooLong, pgNumericOutOfRange:
			return fmt.Errorf("%w: %s", ErrInvalidInput, pgErr.Message)
		}
	}
	return err
}
