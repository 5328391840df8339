package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data/database"
	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

const defaultRetryDelaySeconds = 30

func (r *JobRepo) retryDelay() int {
	if r.cfg.RetryDelaySeconds > 0 {
		return r.cfg.RetryDelaySeconds
	}
	return defaultRetryDelaySeconds
}

// SQL used by AcquireNext to atomically lease the next waiting job.
const acquireNextUpdateSQL = `
  WITH cte AS (
    SELECT id AS job_id FROM jobs
    WHERE workflow = ANY($1) AND state = 'waiting'
    ORDER BY created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    state = 'running',
    started_at = COALESCE(j.started_at, $2),
    lease_expires_at = $3,
    updated_at = $4
  FROM cte
  WHERE j.id = cte.job_id
  RETURNING ` + jobColumns

// Create enqueues a new workflow job for the given user.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest, userID string) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	now := r.timeProvider.Now().UTC()

	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO jobs (
				id, workflow, state, progress, args, user_id,
				max_retries, created_at, updated_at
			)
			VALUES ($1, $2, 'waiting', 0, $3, $4, $5, $6, $6)
			RETURNING `+jobColumns+`
		`, uuid.NewString(), req.Workflow, []byte(req.Args), userID, req.MaxRetries, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

// GetByID fetches a job by ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// List retrieves jobs with the given options using the query builder.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	queryOpts := []database.ListQueryOption{
		database.WithColumns(
			"id", "workflow", "state", "progress", "stage", "args", "user_id",
			"retry_count", "max_retries", "last_error", "started_at",
			"completed_at", "lease_expires_at", "created_at", "updated_at",
		),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("created_at", "DESC"),
	}
	if opts.State != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("state", database.Equal, string(*opts.State)),
		))
	}
	if opts.Workflow != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("workflow", database.Equal, string(*opts.Workflow)),
		))
	}
	if opts.UserID != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("user_id", database.Equal, *opts.UserID),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("jobs", queryOpts...))

	var jobs []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		jobs, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// AcquireNext leases the oldest waiting job of one of the given workflows.
// Returns model.ErrNoJobsAvailable when none is waiting.
func (r *JobRepo) AcquireNext(
	ctx context.Context,
	workflows []model.JobWorkflow,
	leaseSeconds int,
) (*model.Job, error) {
	if len(workflows) == 0 {
		return nil, errors.New("at least one workflow is required")
	}
	if leaseSeconds <= 0 {
		leaseSeconds = 60
	}

	names := make([]string, len(workflows))
	for i, w := range workflows {
		if !w.Valid() {
			return nil, fmt.Errorf("invalid workflow %q", w)
		}
		names[i] = string(w)
	}

	now := r.timeProvider.Now().UTC()
	leaseExpiry := now.Add(time.Duration(leaseSeconds) * time.Second)

	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, acquireNextUpdateSQL, names, now, leaseExpiry, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNoJobsAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("acquire next job: %w", err)
	}
	return &job, nil
}

// Ping renews the worker lease and records progress. Returns false if the
// job is no longer running.
func (r *JobRepo) Ping(ctx context.Context, id string, req model.JobProgressRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}

	now := r.timeProvider.Now().UTC()
	leaseExpiry := now.Add(time.Duration(r.leaseSeconds()) * time.Second)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET progress = $2, stage = COALESCE($3, stage),
		    lease_expires_at = $4, updated_at = $5
		WHERE id = $1 AND state = 'running'
	`, id, req.Progress, req.Stage, leaseExpiry, now)
	if err != nil {
		return false, fmt.Errorf("ping job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ping job rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *JobRepo) leaseSeconds() int {
	// Reuse the retry delay as the lease renewal horizon.
	return r.retryDelay() * 2
}

// Complete marks a running job as complete. Returns false if the job was
// not running.
func (r *JobRepo) Complete(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'complete', progress = 100,
		    completed_at = $2, lease_expires_at = NULL, updated_at = $2
		WHERE id = $1 AND state = 'running'
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete job rows affected: %w", err)
	}
	return affected > 0, nil
}

// Fail records a worker failure. Jobs with retries remaining are requeued
// after a delay; otherwise the job transitions to failed.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()

	var state string
	err := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET
			last_error = $2,
			retry_count = retry_count + 1,
			state = CASE WHEN retry_count + 1 >= max_retries THEN 'failed' ELSE 'waiting' END,
			completed_at = CASE WHEN retry_count + 1 >= max_retries THEN $3::timestamptz ELSE NULL END,
			lease_expires_at = NULL,
			updated_at = $3
		WHERE id = $1 AND state = 'running'
		RETURNING state
	`, id, errMsg, now).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}

	if r.logger != nil && state == string(model.JobStateFailed) {
		r.logger.WarnContext(ctx, "job failed permanently",
			"job_id", id,
			"error", errMsg,
		)
	}
	return true, nil
}

// Cancel stops a waiting or running job. Jobs already in a terminal state
// return ErrJobNotCancellable.
func (r *JobRepo) Cancel(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'cancelled', completed_at = $2,
		    lease_expires_at = NULL, updated_at = $2
		WHERE id = $1 AND state IN ('waiting', 'running')
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel job rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return false, getErr
		}
		return false, ErrJobNotCancellable
	}
	return true, nil
}

// Stats returns counts of jobs in each state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE state = 'waiting')   AS waiting,
			COUNT(*) FILTER (WHERE state = 'running')   AS running,
			COUNT(*) FILTER (WHERE state = 'complete')  AS complete,
			COUNT(*) FILTER (WHERE state IN ('failed', 'timeout')) AS failed,
			COUNT(*) FILTER (WHERE state = 'cancelled') AS cancelled
		FROM jobs
	`

	var stats model.JobStats
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&stats.Waiting, &stats.Running, &stats.Complete, &stats.Failed, &stats.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return &stats, nil
}

// Delete removes a job in a terminal state.
func (r *JobRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE id = $1
		  AND state IN ('complete', 'failed', 'cancelled', 'timeout')
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete job rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface checks
var (
	_ core.JobRepository = (*JobRepo)(nil)
)
