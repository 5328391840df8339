package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/observability/statsd"
)

// UploadFileRemover removes an upload's backing file by its on-disk name.
// Removal is best-effort; a missing file is not an error.
type UploadFileRemover interface {
	Remove(nameOnDisk string) error
}

// UploadServiceOptions groups dependencies for UploadService.
type UploadServiceOptions struct {
	Repo    core.UploadRepository
	Files   UploadFileRemover // Optional: backing file cleanup on delete
	Metrics *statsd.Client    // Optional: upload counters
	Logger  *slog.Logger
}

// UploadService provides business logic for the upload lifecycle: a record
// is created before bytes are streamed, finalized once the stream completes,
// and soft-removed on delete so workflow references stay resolvable.
type UploadService struct {
	repo    core.UploadRepository
	files   UploadFileRemover
	metrics *statsd.Client
	logger  *slog.Logger
}

// NewUploadService constructs a new UploadService.
func NewUploadService(opts UploadServiceOptions) (*UploadService, error) {
	if opts.Repo == nil {
		return nil, errors.New("UploadRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "upload_service")
	}

	return &UploadService{
		repo:    opts.Repo,
		files:   opts.Files,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// MustNewUploadService constructs a new UploadService and panics on error.
func MustNewUploadService(opts UploadServiceOptions) *UploadService {
	s, err := NewUploadService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// Create opens an upload record before any bytes are written. The record is
// not listed until Finalize marks it ready.
func (s *UploadService) Create(ctx context.Context, req model.CreateUploadRequest, userID string) (*model.Upload, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	upload, err := s.repo.Create(ctx, &model.Upload{
		Name:   req.Name,
		Type:   req.Type,
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Count("uploads.created", 1, map[string]string{"type": string(req.Type)})
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "upload created",
			"upload_id", upload.ID, "name_on_disk", upload.NameOnDisk)
	}
	return upload, nil
}

// Finalize records the written byte count and marks the upload ready.
func (s *UploadService) Finalize(ctx context.Context, id, size int64) (*model.Upload, error) {
	if size < 0 {
		return nil, apperrors.Validation("size must be non-negative")
	}

	upload, err := s.repo.Finalize(ctx, id, size)
	if errors.Is(err, data.ErrUploadNotFound) {
		return nil, apperrors.NotFound("Upload does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Count("uploads.finalized", 1, map[string]string{"type": string(upload.Type)})
	}
	return upload, nil
}

// GetByID retrieves an upload by its ID, including unfinished and removed
// ones.
func (s *UploadService) GetByID(ctx context.Context, id int64) (*model.Upload, error) {
	upload, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrUploadNotFound) {
		return nil, apperrors.NotFound("Upload does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return upload, nil
}

// Find lists ready, non-removed uploads with optional type and user filters.
func (s *UploadService) Find(ctx context.Context, opts model.UploadListOptions) ([]*model.Upload, error) {
	if opts.Type != nil && !opts.Type.Valid() {
		return nil, apperrors.Validationf("invalid upload type %q", *opts.Type)
	}

	p := normalizePagination(opts.Limit, opts.Offset)
	opts.Limit = p.Limit
	opts.Offset = p.Offset

	uploads, err := s.repo.Find(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("find uploads: %w", err)
	}
	return uploads, nil
}

// Delete soft-removes an upload and deletes its backing file best-effort.
// A file removal failure is logged, not surfaced; the reaper retries
// abandoned files later.
func (s *UploadService) Delete(ctx context.Context, id int64) error {
	upload, err := s.repo.SetRemoved(ctx, id)
	if errors.Is(err, data.ErrUploadNotFound) {
		return apperrors.NotFound("Upload does not exist")
	}
	if err != nil {
		return fmt.Errorf("remove upload: %w", err)
	}

	if s.files != nil && upload.NameOnDisk != "" {
		if removeErr := s.files.Remove(upload.NameOnDisk); removeErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to remove upload file",
				"upload_id", id, "name_on_disk", upload.NameOnDisk, "error", removeErr)
		}
	}

	if s.metrics != nil {
		s.metrics.Count("uploads.removed", 1, nil)
	}
	return nil
}

// Reserve marks the uploads as attached to a workflow so a second workflow
// cannot claim them.
func (s *UploadService) Reserve(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.Reserve(ctx, ids); err != nil {
		return fmt.Errorf("reserve uploads: %w", err)
	}
	return nil
}

// Release returns reserved uploads to the pool.
func (s *UploadService) Release(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.Release(ctx, ids); err != nil {
		return fmt.Errorf("release uploads: %w", err)
	}
	return nil
}
