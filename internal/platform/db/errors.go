package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeAdminShutdown       = "57P01"
	classConnectionFailure  = "08"
)

// ConstraintError reports a unique or foreign-key conflict raised by PostgreSQL.
// It matches shared.ErrConstraintViolation under errors.Is.
type ConstraintError struct {
	Code       string
	Constraint string
	err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated (%s)", e.Constraint, e.Code)
}

// Unwrap exposes both the taxonomy sentinel and the driver error.
func (e *ConstraintError) Unwrap() []error {
	return []error{shared.ErrConstraintViolation, e.err}
}

// Classify maps driver errors onto the shared error taxonomy. Unknown errors
// are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConstraintError
	if errors.As(err, &ce) || errors.Is(err, shared.ErrDatabaseUnavailable) || errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", shared.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation, pgErr.Code == codeForeignKeyViolation:
			return &ConstraintError{Code: pgErr.Code, Constraint: pgErr.ConstraintName, err: err}
		case strings.HasPrefix(pgErr.Code, classConnectionFailure), pgErr.Code == codeAdminShutdown:
			return fmt.Errorf("%w: %w", shared.ErrDatabaseUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", shared.ErrDatabaseUnavailable, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique violation on the named
// constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	return isConstraint(err, codeUniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err is a foreign-key violation on the
// named constraint. An empty constraint matches any foreign-key violation.
func IsForeignKeyViolation(err error, constraint string) bool {
	return isConstraint(err, codeForeignKeyViolation, constraint)
}

func isConstraint(err error, code, constraint string) bool {
	var ce *ConstraintError
	if !errors.As(Classify(err), &ce) {
		return false
	}
	if ce.Code != code {
		return false
	}
	return constraint == "" || ce.Constraint == constraint
}
