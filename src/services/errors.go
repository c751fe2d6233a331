package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Persistence errors
var (
	ErrNotFound = errors.New("record not found")
	// ErrValidation wraps model validation failures
	ErrValidation = errors.New("validation failed")
	// ErrConflict means the change would break a uniqueness or reference rule
	ErrConflict = errors.New("conflicting record")
)

// Postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapDBError translates driver errors into service errors
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	return err
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
