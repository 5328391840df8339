package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

// memJobRepo is a map-backed stub mirroring the queue state machine.
type memJobRepo struct {
	jobs   map[string]*model.Job
	nextID int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[string]*model.Job{}}
}

func (m *memJobRepo) Create(_ context.Context, req *model.CreateJobRequest, userID string) (*model.Job, error) {
	m.nextID++
	job := &model.Job{
		ID:         fmt.Sprintf("job-%d", m.nextID),
		Workflow:   req.Workflow,
		State:      model.JobStateWaiting,
		Args:       req.Args,
		UserID:     userID,
		MaxRetries: req.MaxRetries,
		CreatedAt:  time.Now().Add(time.Duration(m.nextID) * time.Millisecond),
	}
	m.jobs[job.ID] = job
	clone := *job
	return &clone, nil
}

func (m *memJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *memJobRepo) List(_ context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	var out []*model.Job
	for _, job := range m.jobs {
		if opts.State != nil && job.State != *opts.State {
			continue
		}
		if opts.Workflow != nil && job.Workflow != *opts.Workflow {
			continue
		}
		if opts.UserID != nil && job.UserID != *opts.UserID {
			continue
		}
		clone := *job
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memJobRepo) AcquireNext(_ context.Context, workflows []model.JobWorkflow, leaseSeconds int) (*model.Job, error) {
	wanted := map[model.JobWorkflow]bool{}
	for _, w := range workflows {
		wanted[w] = true
	}
	var oldest *model.Job
	for _, job := range m.jobs {
		if job.State != model.JobStateWaiting || !wanted[job.Workflow] {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, model.ErrNoJobsAvailable
	}
	oldest.State = model.JobStateRunning
	lease := time.Now().Add(time.Duration(leaseSeconds) * time.Second)
	oldest.LeaseExpiresAt = &lease
	clone := *oldest
	return &clone, nil
}

func (m *memJobRepo) Ping(_ context.Context, id string, req model.JobProgressRequest) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || job.State != model.JobStateRunning {
		return false, nil
	}
	job.Progress = req.Progress
	job.Stage = req.Stage
	return true, nil
}

func (m *memJobRepo) Complete(_ context.Context, id string) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || job.State != model.JobStateRunning {
		return false, nil
	}
	job.State = model.JobStateComplete
	job.Progress = 100
	return true, nil
}

func (m *memJobRepo) Fail(_ context.Context, id, errMsg string) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || job.State != model.JobStateRunning {
		return false, nil
	}
	job.RetryCount++
	job.LastError = &errMsg
	if job.RetryCount >= job.MaxRetries {
		job.State = model.JobStateFailed
	} else {
		job.State = model.JobStateWaiting
	}
	return true, nil
}

func (m *memJobRepo) Cancel(_ context.Context, id string) (bool, error) {
	job, ok := m.jobs[id]
	if !ok {
		return false, data.ErrJobNotFound
	}
	if job.State.Terminal() {
		return false, data.ErrJobNotCancellable
	}
	job.State = model.JobStateCancelled
	return true, nil
}

func (m *memJobRepo) Stats(_ context.Context) (*model.JobStats, error) {
	stats := &model.JobStats{}
	for _, job := range m.jobs {
		switch job.State {
		case model.JobStateWaiting:
			stats.Waiting++
		case model.JobStateRunning:
			stats.Running++
		case model.JobStateComplete:
			stats.Complete++
		case model.JobStateFailed, model.JobStateTimeout:
			stats.Failed++
		case model.JobStateCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (m *memJobRepo) Delete(_ context.Context, id string) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || !job.State.Terminal() {
		return false, nil
	}
	delete(m.jobs, id)
	return true, nil
}

func newJobService(t *testing.T, repo *memJobRepo) *JobService {
	t.Helper()
	svc, err := NewJobService(JobServiceOptions{Repo: repo})
	require.NoError(t, err)
	return svc
}

func sampleArgs() json.RawMessage {
	return json.RawMessage(`{"sample_id":"s1"}`)
}

func TestJobService_CreateAndGet(t *testing.T) {
	svc := newJobService(t, newMemJobRepo())
	ctx := context.Background()

	job, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowCreateSample, Args: sampleArgs(), MaxRetries: 2,
	}, "bob-id")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateWaiting, job.State)
	assert.Equal(t, "bob-id", job.UserID)

	got, err := svc.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Job does not exist")
}

func TestJobService_CreateValidation(t *testing.T) {
	svc := newJobService(t, newMemJobRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateJobRequest{Workflow: "mine_bitcoin", Args: sampleArgs()}, "bob-id")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Create(ctx, &model.CreateJobRequest{Workflow: model.JobWorkflowNuVs}, "bob-id")
	assert.True(t, apperrors.IsValidation(err), "args required")

	_, err = svc.Create(ctx, &model.CreateJobRequest{Workflow: model.JobWorkflowNuVs, Args: sampleArgs()}, "")
	assert.Error(t, err)
}

func TestJobService_AcquireLifecycle(t *testing.T) {
	repo := newMemJobRepo()
	svc := newJobService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowPathoscope, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)

	// A worker subscribed to a different workflow sees an empty queue.
	_, err = svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowBuildIndex}, 0)
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

	job, err := svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowPathoscope}, 0)
	require.NoError(t, err)
	assert.Equal(t, created.ID, job.ID)
	assert.Equal(t, model.JobStateRunning, job.State)
	require.NotNil(t, job.LeaseExpiresAt)

	_, err = svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowPathoscope}, 0)
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

	stage := "mapping"
	alive, err := svc.Ping(ctx, job.ID, model.JobProgressRequest{Progress: 40, Stage: &stage})
	require.NoError(t, err)
	assert.True(t, alive)

	completed, err := svc.Complete(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	alive, err = svc.Ping(ctx, job.ID, model.JobProgressRequest{Progress: 50})
	require.NoError(t, err)
	assert.False(t, alive, "finished job rejects heartbeats")
}

func TestJobService_AcquireOldestFirst(t *testing.T) {
	repo := newMemJobRepo()
	svc := newJobService(t, repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)

	job, err := svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowNuVs}, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, job.ID)
}

func TestJobService_PingValidatesProgress(t *testing.T) {
	svc := newJobService(t, newMemJobRepo())

	_, err := svc.Ping(context.Background(), "j1", model.JobProgressRequest{Progress: 150})
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobService_FailRequeuesUntilExhausted(t *testing.T) {
	repo := newMemJobRepo()
	svc := newJobService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(), MaxRetries: 2,
	}, "bob-id")
	require.NoError(t, err)

	_, err = svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowNuVs}, 0)
	require.NoError(t, err)
	failed, err := svc.Fail(ctx, created.ID, "segfault in bowtie2")
	require.NoError(t, err)
	assert.True(t, failed)

	job, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateWaiting, job.State, "retry budget remains")

	_, err = svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowNuVs}, 0)
	require.NoError(t, err)
	failed, err = svc.Fail(ctx, created.ID, "segfault in bowtie2")
	require.NoError(t, err)
	assert.True(t, failed)

	job, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "segfault in bowtie2", *job.LastError)
}

func TestJobService_FailRequiresMessage(t *testing.T) {
	svc := newJobService(t, newMemJobRepo())

	_, err := svc.Fail(context.Background(), "j1", "")
	assert.Error(t, err)
}

func TestJobService_Cancel(t *testing.T) {
	repo := newMemJobRepo()
	svc := newJobService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, created.ID))

	err = svc.Cancel(ctx, created.ID)
	assert.True(t, apperrors.IsConflict(err), "terminal job cannot be cancelled")
	assert.Contains(t, err.Error(), "Job is finished and cannot be cancelled")

	err = svc.Cancel(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobService_ListFilters(t *testing.T) {
	repo := newMemJobRepo()
	svc := newJobService(t, repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowPathoscope, Args: sampleArgs(),
	}, "ada-id")
	require.NoError(t, err)

	wf := model.JobWorkflowPathoscope
	jobs, err := svc.List(ctx, &model.JobListOptions{Workflow: &wf})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "ada-id", jobs[0].UserID)

	jobs, err = svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestJobService_StatsAndDelete(t *testing.T) {
	repo := newMemJobRepo()
	svc := newJobService(t, repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)
	second, err := svc.Create(ctx, &model.CreateJobRequest{
		Workflow: model.JobWorkflowNuVs, Args: sampleArgs(),
	}, "bob-id")
	require.NoError(t, err)

	_, err = svc.Acquire(ctx, []model.JobWorkflow{model.JobWorkflowNuVs}, 0)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, first.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, 1, stats.Complete)

	deleted, err := svc.Delete(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "non-terminal job is not deletable")

	deleted, err = svc.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}
