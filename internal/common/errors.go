package common

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrForbidden      = errors.New("forbidden")
	ErrEditConflict   = errors.New("edit conflict")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// UniqueViolation reports whether err is a unique constraint violation on the named constraint.
func UniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
	}

	return false
}

// ForeignKeyViolation reports whether err is a foreign key violation on the named constraint.
func ForeignKeyViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqForeignKeyViolation && pqErr.Constraint == constraint
	}

	return false
}
