package errors

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reDetailKey pulls the column list out of a unique-violation detail line,
// "Key (handle)=(bob) already exists.".
var reDetailKey = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError translates driver-level errors that escaped the repository
// layer into AppErrors, so a raw constraint violation or a statement timeout
// still produces a sensible status instead of an opaque internal error.
// Errors it does not recognise pass through unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "The request timed out.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "The request was canceled.")
	case errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Resource not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		mapped := Wrap(err, ErrCodeConflict, "This value already exists.")
		mapped.Field = uniqueViolationField(pgErr)
		return mapped
	case pgerrcode.ForeignKeyViolation:
		return Wrap(err, ErrCodeForeignKey, "The record is referenced by other data.")
	case pgerrcode.NotNullViolation:
		mapped := Wrap(err, ErrCodeValidation, "A required field is missing.")
		mapped.Field = pgErr.ColumnName
		return mapped
	case pgerrcode.CheckViolation:
		return Wrap(err, ErrCodeValidation, "A field has an invalid value.")
	default:
		return Wrap(err, ErrCodeInternal, "A database error occurred.")
	}
}

// uniqueViolationField resolves the conflicting column, preferring driver
// metadata over the detail text. Empty when neither identifies it.
func uniqueViolationField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reDetailKey.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}
