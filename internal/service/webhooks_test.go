package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

// memWebhookSinkRepo is a map-backed stub applying the same defaults as the
// real repository.
type memWebhookSinkRepo struct {
	sinks  map[string]*model.WebhookSink
	nextID int
}

func newMemWebhookSinkRepo() *memWebhookSinkRepo {
	return &memWebhookSinkRepo{sinks: map[string]*model.WebhookSink{}}
}

func (m *memWebhookSinkRepo) Create(_ context.Context, req *model.CreateWebhookSinkRequest) (*model.WebhookSink, error) {
	m.nextID++
	sink := &model.WebhookSink{
		ID:       fmt.Sprintf("sink-%d", m.nextID),
		Name:     req.Name,
		URI:      req.URI,
		Method:   req.Method,
		Filter:   req.Filter,
		Token:    req.Token,
		OkStatus: 200,
		Retry:    3,
		Enabled:  true,
	}
	if req.OkStatus != nil {
		sink.OkStatus = *req.OkStatus
	}
	if req.Retry != nil {
		sink.Retry = *req.Retry
	}
	if req.Enabled != nil {
		sink.Enabled = *req.Enabled
	}
	m.sinks[sink.ID] = sink
	clone := *sink
	return &clone, nil
}

func (m *memWebhookSinkRepo) GetByID(_ context.Context, id string) (*model.WebhookSink, error) {
	sink, ok := m.sinks[id]
	if !ok {
		return nil, data.ErrWebhookSinkNotFound
	}
	clone := *sink
	return &clone, nil
}

func (m *memWebhookSinkRepo) List(_ context.Context) ([]*model.WebhookSink, error) {
	var out []*model.WebhookSink
	for _, sink := range m.sinks {
		clone := *sink
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memWebhookSinkRepo) ListEnabled(_ context.Context) ([]*model.WebhookSink, error) {
	var out []*model.WebhookSink
	for _, sink := range m.sinks {
		if !sink.Enabled {
			continue
		}
		clone := *sink
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memWebhookSinkRepo) Update(_ context.Context, id string, req *model.UpdateWebhookSinkRequest) (*model.WebhookSink, error) {
	sink, ok := m.sinks[id]
	if !ok {
		return nil, data.ErrWebhookSinkNotFound
	}
	if req.Name != nil {
		sink.Name = *req.Name
	}
	if req.URI != nil {
		sink.URI = *req.URI
	}
	if req.Method != nil {
		sink.Method = *req.Method
	}
	if req.Filter != nil {
		sink.Filter = req.Filter
	}
	if req.Token != nil {
		sink.Token = req.Token
	}
	if req.OkStatus != nil {
		sink.OkStatus = *req.OkStatus
	}
	if req.Retry != nil {
		sink.Retry = *req.Retry
	}
	if req.Enabled != nil {
		sink.Enabled = *req.Enabled
	}
	clone := *sink
	return &clone, nil
}

func (m *memWebhookSinkRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := m.sinks[id]; !ok {
		return false, nil
	}
	delete(m.sinks, id)
	return true, nil
}

// sinkReceiver records webhook deliveries and can fail the first N requests.
type sinkReceiver struct {
	mu        sync.Mutex
	requests  []*http.Request
	failFirst int
	server    *httptest.Server
}

func newSinkReceiver(t *testing.T) *sinkReceiver {
	t.Helper()
	r := &sinkReceiver{}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.requests = append(r.requests, req.Clone(req.Context()))
		if r.failFirst > 0 {
			r.failFirst--
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *sinkReceiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *sinkReceiver) last() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

func newWebhookService(t *testing.T, repo *memWebhookSinkRepo) *WebhookService {
	t.Helper()
	svc, err := NewWebhookService(WebhookServiceOptions{Repo: repo})
	require.NoError(t, err)
	return svc
}

func strptr(s string) *string { return &s }

func finishedJob(state model.JobState) *model.Job {
	return &model.Job{
		ID:       "job-1",
		Workflow: model.JobWorkflowPathoscope,
		State:    state,
		Progress: 100,
		UserID:   "bob-id",
	}
}

func TestWebhookService_CreateValidatesRequest(t *testing.T) {
	svc := newWebhookService(t, newMemWebhookSinkRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name: "hq", URI: "https://hooks.example.com", Method: "POST",
	})
	assert.True(t, apperrors.IsValidation(err), "name below minimum length")

	sink, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name: "lims bridge", URI: "https://hooks.example.com/jobs", Method: "post",
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", sink.Method, "method upper-cased")
	assert.Equal(t, 200, sink.OkStatus)
	assert.Equal(t, 3, sink.Retry)
	assert.True(t, sink.Enabled)
}

func TestWebhookService_UpdateAndDelete(t *testing.T) {
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name: "lims bridge", URI: "https://hooks.example.com/jobs", Method: "POST",
	})
	require.NoError(t, err)

	enabled := false
	updated, err := svc.Update(ctx, created.ID, &model.UpdateWebhookSinkRequest{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)

	_, err = svc.Update(ctx, created.ID, &model.UpdateWebhookSinkRequest{})
	assert.True(t, apperrors.IsValidation(err), "no fields to update")

	_, err = svc.Update(ctx, "missing", &model.UpdateWebhookSinkRequest{Enabled: &enabled})
	assert.True(t, apperrors.IsNotFound(err))

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.GetByID(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestWebhookService_DispatchDelivers(t *testing.T) {
	receiver := newSinkReceiver(t)
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "lims bridge",
		URI:    receiver.server.URL,
		Method: "POST",
		Token:  strptr("s3cret-token"),
	})
	require.NoError(t, err)

	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	require.Equal(t, 1, receiver.count())
	req := receiver.last()
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer s3cret-token", req.Header.Get("Authorization"))
}

func TestWebhookService_DispatchFilterMatching(t *testing.T) {
	matching := newSinkReceiver(t)
	nonMatching := newSinkReceiver(t)
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "complete only",
		URI:    matching.server.URL,
		Method: "POST",
		Filter: strptr("state == 'complete'"),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "failed only",
		URI:    nonMatching.server.URL,
		Method: "POST",
		Filter: strptr("state == 'failed'"),
	})
	require.NoError(t, err)

	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	assert.Equal(t, 1, matching.count())
	assert.Equal(t, 0, nonMatching.count(), "falsy filter result skips the sink")
}

func TestWebhookService_DispatchSkipsDisabledSinks(t *testing.T) {
	receiver := newSinkReceiver(t)
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	enabled := false
	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:    "dormant",
		URI:     receiver.server.URL,
		Method:  "POST",
		Enabled: &enabled,
	})
	require.NoError(t, err)

	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	assert.Equal(t, 0, receiver.count())
}

func TestWebhookService_DispatchRetriesUntilSuccess(t *testing.T) {
	receiver := newSinkReceiver(t)
	receiver.failFirst = 2
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	retry := 3
	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "flaky sink",
		URI:    receiver.server.URL,
		Method: "POST",
		Retry:  &retry,
	})
	require.NoError(t, err)

	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	assert.Equal(t, 3, receiver.count(), "two failures then success")
}

func TestWebhookService_DispatchExhaustsRetryBudget(t *testing.T) {
	receiver := newSinkReceiver(t)
	receiver.failFirst = 100
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	retry := 1
	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "dead sink",
		URI:    receiver.server.URL,
		Method: "POST",
		Retry:  &retry,
	})
	require.NoError(t, err)

	// Failure is logged, never returned to the job workflow.
	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	assert.Equal(t, 2, receiver.count(), "initial attempt plus one retry")
}

func TestWebhookService_DispatchIsolatesSinkFailures(t *testing.T) {
	broken := newSinkReceiver(t)
	broken.failFirst = 100
	healthy := newSinkReceiver(t)
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	retry := 0
	_, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "broken sink",
		URI:    broken.server.URL,
		Method: "POST",
		Retry:  &retry,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "healthy sink",
		URI:    healthy.server.URL,
		Method: "POST",
		Retry:  &retry,
	})
	require.NoError(t, err)

	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	assert.Equal(t, 1, healthy.count(), "one failing sink does not block the others")
}

func TestWebhookService_DispatchBadFilterSkipsSink(t *testing.T) {
	receiver := newSinkReceiver(t)
	repo := newMemWebhookSinkRepo()
	svc := newWebhookService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreateWebhookSinkRequest{
		Name:   "typo filter",
		URI:    receiver.server.URL,
		Method: "POST",
	})
	require.NoError(t, err)
	// Bypass request validation to simulate a stored filter that no longer parses.
	repo.sinks[created.ID].Filter = strptr("state ==")

	svc.DispatchJobFinished(ctx, finishedJob(model.JobStateComplete))

	assert.Equal(t, 0, receiver.count())
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(""))
	assert.False(t, truthy([]any{}))
	assert.False(t, truthy(map[string]any{}))
	assert.True(t, truthy(true))
	assert.True(t, truthy("complete"))
	assert.True(t, truthy([]any{1}))
	assert.True(t, truthy(float64(0)), "numbers are truthy, including zero")
}
