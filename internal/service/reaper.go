package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seqdepot/seqdepot/config"
	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	obserrors "github.com/seqdepot/seqdepot/internal/observability/errors"
	"github.com/seqdepot/seqdepot/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository
	Config  config.ReaperConfig
	Files   UploadFileRemover // Optional: backing file cleanup for purged uploads
	Logger  *slog.Logger
	Metrics *statsd.Client // Optional
}

// ReaperService performs periodic database hygiene:
//   - timing out running jobs whose worker lease expired without a ping,
//   - deleting finished jobs past the retention window,
//   - purging upload rows that were never finalized or were soft-removed,
//     together with their backing files.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	files   UploadFileRemover
	logger  *slog.Logger
	metrics *statsd.Client
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"finished_max_age", opts.Config.FinishedMaxAge,
			"abandoned_upload_max_age", opts.Config.AbandonedUploadMaxAge,
		)
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		files:   opts.Files,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewReaperService constructs a new ReaperService and panics on error.
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	s, err := NewReaperService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter prevents a thundering herd when multiple instances start
	// together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.runCleanup(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runCleanup(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// waitWithJitter delays up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// runCleanup performs one full hygiene pass.
func (s *ReaperService) runCleanup(ctx context.Context) error {
	start := time.Now()
	var errs []error

	timedOut, err := s.timeOutExpiredLeases(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("time out expired leases: %w", err))
	}

	deleted, err := s.deleteFinishedJobs(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete finished jobs: %w", err))
	}

	purged, err := s.purgeAbandonedUploads(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge abandoned uploads: %w", err))
	}

	joined := errors.Join(errs...)
	s.emitCleanupMetrics(timedOut, deleted, purged, time.Since(start), joined)

	if joined != nil {
		if isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}
	return nil
}

// timeOutExpiredLeases moves running jobs with expired leases to the
// timeout state, in batches until none remain.
func (s *ReaperService) timeOutExpiredLeases(ctx context.Context) (int64, error) {
	var total int64
	for {
		count, err := s.repo.TimeOutExpiredLeases(ctx, s.config.BatchSize)
		if err != nil {
			return total, err
		}
		total += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "timed out expired job leases", "count", total)
	}
	return total, nil
}

// deleteFinishedJobs prunes jobs in every terminal state past the retention
// window.
func (s *ReaperService) deleteFinishedJobs(ctx context.Context) (int64, error) {
	states := []model.JobState{
		model.JobStateComplete,
		model.JobStateFailed,
		model.JobStateCancelled,
		model.JobStateTimeout,
	}

	var total int64
	for _, state := range states {
		for {
			count, err := s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				State:     state,
				MaxAge:    s.config.FinishedMaxAge,
				BatchSize: s.config.BatchSize,
			})
			if err != nil {
				return total, err
			}
			total += count
			if count == 0 {
				break
			}
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
		}
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old finished jobs",
			"count", total, "max_age", s.config.FinishedMaxAge)
	}
	return total, nil
}

// purgeAbandonedUploads deletes rows for uploads that never finished or were
// soft-removed, then removes their backing files best-effort.
func (s *ReaperService) purgeAbandonedUploads(ctx context.Context) (int64, error) {
	var total int64
	for {
		removed, err := s.repo.DeleteAbandonedUploads(ctx, s.config.AbandonedUploadMaxAge, s.config.BatchSize)
		if err != nil {
			return total, err
		}
		total += int64(len(removed))

		for _, upload := range removed {
			if s.files == nil || upload.NameOnDisk == "" {
				continue
			}
			if removeErr := s.files.Remove(upload.NameOnDisk); removeErr != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "failed to remove abandoned upload file",
					"upload_id", upload.ID, "name_on_disk", upload.NameOnDisk, "error", removeErr)
			}
		}

		if len(removed) == 0 {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "purged abandoned uploads",
			"count", total, "max_age", s.config.AbandonedUploadMaxAge)
	}
	return total, nil
}

func (s *ReaperService) emitCleanupMetrics(timedOut, deleted, purged int64, elapsed time.Duration, cleanupErr error) {
	if s.metrics == nil {
		return
	}

	result := "success"
	if cleanupErr != nil {
		result = "error"
	} else if timedOut+deleted+purged == 0 {
		result = "noop"
	}

	tags := map[string]string{"result": result}
	if cleanupErr != nil {
		tags["error_type"] = obserrors.Classify(cleanupErr)
	}
	s.metrics.Count("reaper.cleanup", 1, tags)
	s.metrics.Timing("reaper.cleanup_duration", elapsed, tags)

	if timedOut > 0 {
		s.metrics.Count("reaper.leases_timed_out", timedOut, nil)
	}
	if deleted > 0 {
		s.metrics.Count("reaper.jobs_deleted", deleted, nil)
	}
	if purged > 0 {
		s.metrics.Count("reaper.uploads_purged", purged, nil)
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
