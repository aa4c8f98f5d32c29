package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/catering-backend/pkg/errors"
)

const (
	pgUniqueViolation = "23505"
	pgValueTooLong    = "22001"
)

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is provided, the helper also requires the
// constraint name to appear in the driver error.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if pg, ok := pkgerrors.PGDetails(err); ok && pg.Code == pgUniqueViolation {
		return constraintName == "" || pg.Constraint == constraintName
	}

	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsValueTooLong reports whether Postgres rejected a string wider than its
// VARCHAR column.
func IsValueTooLong(err error) bool {
	pg, ok := pkgerrors.PGDetails(err)
	return ok && pg.Code == pgValueTooLong
}

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
