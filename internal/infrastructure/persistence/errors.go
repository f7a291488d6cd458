package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/induservicios/backend/internal/domain/shared"
)

// translate maps driver errors to domain errors
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// isUniqueViolation recognises unique constraint errors from postgres (23505)
// and sqlite when gorm's TranslateError is not enabled.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
