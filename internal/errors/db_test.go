package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asAppError(t *testing.T, err error) *AppError {
	t.Helper()
	var appErr *AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %T", err)
	return appErr
}

func TestMapDBErrorNil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBErrorContextErrors(t *testing.T) {
	timeout := asAppError(t, MapDBError(context.DeadlineExceeded))
	assert.Equal(t, ErrCodeTimeout, timeout.Code)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	canceled := asAppError(t, MapDBError(fmt.Errorf("query: %w", context.Canceled)))
	assert.Equal(t, ErrCodeCanceled, canceled.Code)
}

func TestMapDBErrorNoRows(t *testing.T) {
	mapped := asAppError(t, MapDBError(pgx.ErrNoRows))
	assert.Equal(t, ErrCodeNotFound, mapped.Code)
	assert.True(t, IsNotFound(mapped))
}

func TestMapDBErrorUniqueViolation(t *testing.T) {
	t.Run("column from driver metadata", func(t *testing.T) {
		mapped := asAppError(t, MapDBError(&pgconn.PgError{
			Code:       pgerrcode.UniqueViolation,
			ColumnName: "handle",
		}))
		assert.Equal(t, ErrCodeConflict, mapped.Code)
		assert.Equal(t, "handle", mapped.Field)
	})

	t.Run("column from detail text", func(t *testing.T) {
		mapped := asAppError(t, MapDBError(&pgconn.PgError{
			Code:   pgerrcode.UniqueViolation,
			Detail: "Key (handle)=(bob) already exists.",
		}))
		assert.Equal(t, "handle", mapped.Field)
	})

	t.Run("column unknown", func(t *testing.T) {
		mapped := asAppError(t, MapDBError(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
		assert.Equal(t, ErrCodeConflict, mapped.Code)
		assert.Empty(t, mapped.Field)
	})
}

func TestMapDBErrorForeignKeyViolation(t *testing.T) {
	mapped := asAppError(t, MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (id)=(tech) is still referenced from table "user_groups".`,
	}))
	assert.Equal(t, ErrCodeForeignKey, mapped.Code)
}

func TestMapDBErrorValidationViolations(t *testing.T) {
	notNull := asAppError(t, MapDBError(&pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "name",
	}))
	assert.Equal(t, ErrCodeValidation, notNull.Code)
	assert.Equal(t, "name", notNull.Field)

	check := asAppError(t, MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation}))
	assert.Equal(t, ErrCodeValidation, check.Code)
}

func TestMapDBErrorUnknownPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	mapped := asAppError(t, MapDBError(pgErr))
	assert.Equal(t, ErrCodeInternal, mapped.Code)
	assert.ErrorIs(t, mapped, error(pgErr))
}

func TestMapDBErrorPassesThroughUnrecognised(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Equal(t, plain, MapDBError(plain))

	// Already-mapped application errors are left alone too.
	appErr := NotFound("gone")
	assert.Equal(t, error(appErr), MapDBError(appErr))
}

func TestMapDBErrorUnwrapsNestedDriverErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "name"}
	wrapped := fmt.Errorf("create label: %w", pgErr)

	mapped := asAppError(t, MapDBError(wrapped))
	assert.Equal(t, ErrCodeConflict, mapped.Code)
	assert.Equal(t, "name", mapped.Field)
}
