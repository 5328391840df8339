package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for reaper operations.
const (
	advisoryLockReaperMajor   = 1000
	advisoryLockReaperTimeout = 1 // minor key for TimeOutExpiredLeases
	advisoryLockReaperDelete  = 2 // minor key for DeleteOldJobs
	advisoryLockReaperUploads = 3 // minor key for DeleteAbandonedUploads
)

// TimeOutExpiredLeases marks running jobs whose worker lease has lapsed as
// timed out. Processes up to batchSize jobs per call to prevent long locks
// and I/O spikes. Uses advisory locks to prevent concurrent reaper instances
// from conflicting. Returns the number of jobs timed out.
func (r *JobRepo) TimeOutExpiredLeases(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperTimeout).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now().UTC()

			res, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET state = 'timeout',
					last_error = 'Worker lease expired',
					completed_at = $1,
					lease_expires_at = NULL,
					updated_at = $1
				WHERE id IN (
					SELECT id FROM jobs
					WHERE state = 'running'
					  AND lease_expires_at IS NOT NULL
					  AND lease_expires_at < $1
					ORDER BY lease_expires_at
					LIMIT $2
				)
			`, currentTime, batchSize)
			if err != nil {
				return fmt.Errorf("time out expired leases: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteOldJobs deletes jobs in the given state older than maxAge.
// Processes up to batchSize jobs per call to prevent long locks and I/O
// spikes. Uses advisory locks to prevent concurrent reaper instances from
// conflicting. Returns the number of jobs deleted.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.State.Valid() {
		return 0, fmt.Errorf("invalid job state: %s", params.State)
	}
	if !params.State.Terminal() {
		return 0, fmt.Errorf("job state %s is not terminal", params.State)
	}
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperDelete).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-params.MaxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE state = $1
					  AND (completed_at < $2 OR (completed_at IS NULL AND updated_at < $2))
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $3
				)
			`, params.State, cutoffTime, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete old jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteAbandonedUploads hard-deletes upload rows that were never finalized
// and are older than maxAge, plus soft-removed rows past the same cutoff.
// Returns the deleted rows so the caller can unlink the files on disk.
func (r *JobRepo) DeleteAbandonedUploads(ctx context.Context, maxAge time.Duration, batchSize int) ([]core.AbandonedUpload, error) {
	if batchSize <= 0 {
		return nil, errors.New("batch size must be greater than zero")
	}
	if maxAge <= 0 {
		return nil, errors.New("max age must be greater than zero")
	}

	var deleted []core.AbandonedUpload
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperUploads).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				deleted = nil
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-maxAge).UTC()

			rows, err := tx.QueryContext(ctx, `
				DELETE FROM uploads
				WHERE id IN (
					SELECT id FROM uploads
					WHERE (NOT ready AND created_at < $1)
					   OR (removed AND removed_at < $1)
					ORDER BY created_at
					LIMIT $2
				)
				RETURNING id, name_on_disk
			`, cutoffTime, batchSize)
			if err != nil {
				return fmt.Errorf("delete abandoned uploads: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var u core.AbandonedUpload
				if err := rows.Scan(&u.ID, &u.NameOnDisk); err != nil {
					return fmt.Errorf("scan abandoned upload: %w", err)
				}
				deleted = append(deleted, u)
			}
			return rows.Err()
		},
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
