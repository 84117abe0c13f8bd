package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"planwise/internal/domain"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// IsTransientError reports connection-level failures and serialization
// conflicts that are worth retrying.
func IsTransientError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 = serialization_failure, 40P01 = deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01" || pgconn.SafeToRetry(err)
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// MapWriteError translates constraint violations into domain errors.
func MapWriteError(op, resourceType, resourceID string, err error) error {
	switch {
	case IsPgDuplicateError(err):
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s %s already exists or conflicts with an existing row", resourceType, resourceID),
			ResourceType: resourceType,
			ResourceID:   resourceID,
		}
	case IsPgForeignKeyError(err):
		return fmt.Errorf("%s: referenced row missing: %w", op, domain.ErrNotFound)
	default:
		return WrapError(op, err)
	}
}

// WrapError annotates err with the operation, marking retryable failures
// with domain.ErrUnavailable.
func WrapError(op string, err error) error {
	if IsTransientError(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
