package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

const defaultWebhookTimeout = 10 * time.Second

// JMESPathEvaluator abstracts JMESPath filter evaluation for testability.
type JMESPathEvaluator interface {
	Evaluate(expr string, data any) (any, error)
}

type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// WebhookServiceOptions groups dependencies for WebhookService.
type WebhookServiceOptions struct {
	Repo       core.WebhookSinkRepository
	HTTPClient *http.Client      // Optional: defaults to a 10s-timeout client
	Evaluator  JMESPathEvaluator // Optional: defaults to go-jmespath
	Logger     *slog.Logger
}

// WebhookService manages outbound webhook sinks and delivers finished-job
// payloads to them.
type WebhookService struct {
	repo   core.WebhookSinkRepository
	client *http.Client
	jems   JMESPathEvaluator
	logger *slog.Logger
}

// NewWebhookService constructs a new WebhookService.
func NewWebhookService(opts WebhookServiceOptions) (*WebhookService, error) {
	if opts.Repo == nil {
		return nil, errors.New("WebhookSinkRepository is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}

	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "webhook_service")
	}

	return &WebhookService{repo: opts.Repo, client: client, jems: jems, logger: logger}, nil
}

// MustNewWebhookService constructs a new WebhookService and panics on error.
func MustNewWebhookService(opts WebhookServiceOptions) *WebhookService {
	s, err := NewWebhookService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// Create registers a new webhook sink.
func (s *WebhookService) Create(ctx context.Context, req *model.CreateWebhookSinkRequest) (*model.WebhookSink, error) {
	if req == nil {
		return nil, errors.New("create webhook sink request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	sink, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create webhook sink: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "webhook sink created", "sink_id", sink.ID)
	}
	return sink, nil
}

// GetByID retrieves a webhook sink by its ID.
func (s *WebhookService) GetByID(ctx context.Context, id string) (*model.WebhookSink, error) {
	sink, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrWebhookSinkNotFound) {
		return nil, apperrors.NotFound("Webhook sink does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook sink: %w", err)
	}
	return sink, nil
}

// List returns all webhook sinks.
func (s *WebhookService) List(ctx context.Context) ([]*model.WebhookSink, error) {
	sinks, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list webhook sinks: %w", err)
	}
	return sinks, nil
}

// Update applies a partial update to a webhook sink.
func (s *WebhookService) Update(ctx context.Context, id string, req *model.UpdateWebhookSinkRequest) (*model.WebhookSink, error) {
	if req == nil {
		return nil, errors.New("update webhook sink request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	sink, err := s.repo.Update(ctx, id, req)
	if errors.Is(err, data.ErrWebhookSinkNotFound) {
		return nil, apperrors.NotFound("Webhook sink does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("update webhook sink: %w", err)
	}
	return sink, nil
}

// Delete removes a webhook sink.
func (s *WebhookService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete webhook sink: %w", err)
	}
	return deleted, nil
}

// DispatchJobFinished delivers the finished job to every enabled sink whose
// filter matches. Delivery is best-effort per sink; one sink's failure does
// not block the others, and no error is returned to the job workflow.
func (s *WebhookService) DispatchJobFinished(ctx context.Context, job *model.Job) {
	if job == nil {
		return
	}

	sinks, err := s.repo.ListEnabled(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to list webhook sinks", "error", err)
		}
		return
	}
	if len(sinks) == 0 {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to marshal job payload", "job_id", job.ID, "error", err)
		}
		return
	}

	for _, sink := range sinks {
		matched, matchErr := s.matches(sink, payload)
		if matchErr != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "webhook filter evaluation failed",
					"sink_id", sink.ID, "error", matchErr)
			}
			continue
		}
		if !matched {
			continue
		}

		if deliverErr := s.deliver(ctx, sink, payload); deliverErr != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "webhook delivery failed",
					"sink_id", sink.ID, "job_id", job.ID, "error", deliverErr)
			}
			continue
		}

		if s.logger != nil {
			s.logger.InfoContext(ctx, "webhook delivered", "sink_id", sink.ID, "job_id", job.ID)
		}
	}
}

// matches evaluates the sink's JMESPath filter against the payload. An empty
// filter matches everything; a falsy result skips the sink.
func (s *WebhookService) matches(sink *model.WebhookSink, payload []byte) (bool, error) {
	if sink.Filter == nil || strings.TrimSpace(*sink.Filter) == "" {
		return true, nil
	}

	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return false, fmt.Errorf("unmarshal payload: %w", err)
	}

	result, err := s.jems.Evaluate(*sink.Filter, data)
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	return truthy(result), nil
}

// deliver posts the payload to the sink, retrying transient failures up to
// the sink's retry budget.
func (s *WebhookService) deliver(ctx context.Context, sink *model.WebhookSink, payload []byte) error {
	attempts := sink.Retry + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, sink.Method, sink.URI, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if sink.Token != nil && *sink.Token != "" {
			req.Header.Set("Authorization", "Bearer "+*sink.Token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == sink.OkStatus {
			return nil
		}
		lastErr = fmt.Errorf("unexpected status %d, want %d", resp.StatusCode, sink.OkStatus)
	}
	return lastErr
}

// truthy applies JMESPath falsiness rules: null, false, empty string, empty
// array, and empty object are all false.
func truthy(v any) bool {
	switch tv := v.(type) {
	case nil:
		return false
	case bool:
		return tv
	case string:
		return tv != ""
	case []any:
		return len(tv) > 0
	case map[string]any:
		return len(tv) > 0
	default:
		return true
	}
}
