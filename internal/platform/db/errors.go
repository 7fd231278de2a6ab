package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Postgres error codes the engine maps into the business taxonomy.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Classify maps driver errors into the shared taxonomy. Domain errors pass
// through untouched so errors.Is chains keep working.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrInvalidTransition) ||
		errors.Is(err, shared.ErrConflict) ||
		errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
}
