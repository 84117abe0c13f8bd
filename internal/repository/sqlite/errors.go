package sqlite

import (
	"fmt"
	"strings"

	"planwise/internal/domain"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// WrapError annotates err with the operation, marking a busy database with
// domain.ErrUnavailable so callers may retry.
func WrapError(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// mapWriteError translates constraint violations into domain errors
func mapWriteError(op, resourceType, resourceID string, err error) error {
	switch {
	case isUniqueViolation(err):
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s %s already exists or conflicts with an existing row", resourceType, resourceID),
			ResourceType: resourceType,
			ResourceID:   resourceID,
		}
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: referenced row missing: %w", op, domain.ErrNotFound)
	default:
		return WrapError(op, err)
	}
}
