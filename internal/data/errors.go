package data

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Shared sentinel errors for data-layer repositories.
var (
	// Group repository sentinels.
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupAlreadyExists = errors.New("group already exists")

	// Key repository sentinels.
	ErrKeyNotFound = errors.New("key not found")

	// Upload repository sentinels.
	ErrUploadNotFound = errors.New("upload not found")

	// Cache repository sentinels.
	ErrCacheNotFound = errors.New("cache not found")

	// Label repository sentinels.
	ErrLabelNotFound   = errors.New("label not found")
	ErrLabelNameExists = errors.New("label name already exists")

	// Webhook sink repository sentinels.
	ErrWebhookSinkNotFound = errors.New("webhook sink not found")
)

// isUniqueViolation reports whether err is a unique violation on the named
// constraint. An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
