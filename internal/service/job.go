package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/job"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/observability/statsd"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo         core.JobRepository
	Webhooks     *WebhookService // Optional: finished-job webhook fan-out
	Metrics      *statsd.Client  // Optional: job state counters
	LeaseSeconds int             // Optional: default worker lease, 60s when unset
	Logger       *slog.Logger
}

const defaultJobLeaseSeconds = 60

// JobService provides business logic for the workflow job queue: creation,
// worker acquisition with leases, progress heartbeats, and terminal state
// transitions with webhook fan-out.
type JobService struct {
	repo     core.JobRepository
	webhooks *WebhookService
	metrics  *statsd.Client
	lease    *job.LeasePolicy
	logger   *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.LeaseSeconds <= 0 {
		opts.LeaseSeconds = defaultJobLeaseSeconds
	}
	lease, err := job.NewLeasePolicy(time.Duration(opts.LeaseSeconds) * time.Second)
	if err != nil {
		return nil, fmt.Errorf("lease policy: %w", err)
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:     opts.Repo,
		webhooks: opts.Webhooks,
		metrics:  opts.Metrics,
		lease:    lease,
		logger:   logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
func MustNewJobService(opts JobServiceOptions) *JobService {
	s, err := NewJobService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// Create enqueues a new workflow job for the given user.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest, userID string) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	job, err := s.repo.Create(ctx, req, userID)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.count("jobs.created", map[string]string{"workflow": string(job.Workflow)})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job created", "job_id", job.ID, "workflow", job.Workflow)
	}
	return job, nil
}

// GetByID returns a job by its ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrJobNotFound) {
		return nil, apperrors.NotFound("Job does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching the optional state/workflow/user filters.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}
	p := normalizePagination(opts.Limit, opts.Offset)
	opts.Limit = p.Limit
	opts.Offset = p.Offset

	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Acquire leases the oldest waiting job of one of the given workflows to a
// worker. model.ErrNoJobsAvailable passes through so pollers can
// distinguish an empty queue from a failure.
func (s *JobService) Acquire(ctx context.Context, workflows []model.JobWorkflow, leaseSeconds int) (*model.Job, error) {
	decision := s.lease.Resolve(time.Duration(leaseSeconds) * time.Second)

	job, err := s.repo.AcquireNext(ctx, workflows, decision.Seconds)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("acquire job: %w", err)
	}

	s.count("jobs.acquired", map[string]string{"workflow": string(job.Workflow)})
	if s.logger != nil {
		s.logger.DebugContext(ctx, "job acquired",
			"job_id", job.ID, "workflow", job.Workflow, "lease_seconds", decision.Seconds)
	}
	return job, nil
}

// Ping renews the worker lease and records progress. Returns false when the
// job is no longer running, signalling the worker to stop.
func (s *JobService) Ping(ctx context.Context, id string, req model.JobProgressRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, apperrors.Validation(err.Error())
	}

	alive, err := s.repo.Ping(ctx, id, req)
	if err != nil {
		return false, fmt.Errorf("ping job %s: %w", id, err)
	}
	return alive, nil
}

// Complete marks a running job as finished and fans the final document out
// to webhook sinks.
func (s *JobService) Complete(ctx context.Context, id string) (bool, error) {
	completed, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}
	if !completed {
		return false, nil
	}

	s.count("jobs.completed", nil)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job completed", "job_id", id)
	}
	s.notifyFinished(ctx, id)
	return true, nil
}

// Fail records a job failure. Jobs with retry budget left return to the
// queue; exhausted ones become terminal and fan out to webhook sinks.
func (s *JobService) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	failed, err := s.repo.Fail(ctx, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}
	if !failed {
		return false, nil
	}

	s.count("jobs.failed", nil)
	s.notifyIfTerminal(ctx, id)
	return true, nil
}

// Cancel cancels a waiting or running job.
func (s *JobService) Cancel(ctx context.Context, id string) error {
	_, err := s.repo.Cancel(ctx, id)
	if errors.Is(err, data.ErrJobNotFound) {
		return apperrors.NotFound("Job does not exist")
	}
	if errors.Is(err, data.ErrJobNotCancellable) {
		return apperrors.Conflict("Job is finished and cannot be cancelled")
	}
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}

	s.count("jobs.cancelled", nil)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job cancelled", "job_id", id)
	}
	s.notifyFinished(ctx, id)
	return nil
}

// Stats returns counts of jobs in each state.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return stats, nil
}

// Delete removes a terminal job's record.
func (s *JobService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete job %s: %w", id, err)
	}
	return deleted, nil
}

// notifyFinished loads the job's final document and dispatches it to the
// webhook sinks. Dispatch is best-effort and never blocks the transition.
func (s *JobService) notifyFinished(ctx context.Context, id string) {
	if s.webhooks == nil {
		return
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load job for webhook dispatch", "job_id", id, "error", err)
		}
		return
	}
	s.webhooks.DispatchJobFinished(ctx, job)
}

// notifyIfTerminal dispatches only when the failure exhausted the retry
// budget; a requeued job has not finished.
func (s *JobService) notifyIfTerminal(ctx context.Context, id string) {
	if s.webhooks == nil {
		return
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load job for webhook dispatch", "job_id", id, "error", err)
		}
		return
	}
	if !job.State.Terminal() {
		return
	}
	s.webhooks.DispatchJobFinished(ctx, job)
}

func (s *JobService) count(name string, tags map[string]string) {
	if s.metrics != nil {
		s.metrics.Count(name, 1, tags)
	}
}

// paginationParams holds normalized pagination parameters.
type paginationParams struct {
	Limit  int
	Offset int
}

// normalizePagination clamps pagination parameters to safe defaults.
// Default limit: 50, max limit: 1000, min offset: 0.
func normalizePagination(limit, offset int) paginationParams {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return paginationParams{Limit: limit, Offset: offset}
}
