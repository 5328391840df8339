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
)

// LabelServiceOptions groups dependencies for LabelService.
type LabelServiceOptions struct {
	Repo   core.LabelRepository
	Logger *slog.Logger
}

// LabelService provides business logic for sample label CRUD.
type LabelService struct {
	repo   core.LabelRepository
	logger *slog.Logger
}

// NewLabelService constructs a new LabelService.
func NewLabelService(opts LabelServiceOptions) (*LabelService, error) {
	if opts.Repo == nil {
		return nil, errors.New("LabelRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "label_service")
	}

	return &LabelService{repo: opts.Repo, logger: logger}, nil
}

// MustNewLabelService constructs a new LabelService and panics on error.
func MustNewLabelService(opts LabelServiceOptions) *LabelService {
	s, err := NewLabelService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// Create creates a label. Label names are unique across the instance.
func (s *LabelService) Create(ctx context.Context, req model.CreateLabelRequest) (*model.Label, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	label, err := s.repo.Create(ctx, req)
	if errors.Is(err, data.ErrLabelNameExists) {
		return nil, apperrors.Conflict("Label name already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "label created", "label_id", label.ID)
	}
	return label, nil
}

// GetByID retrieves a label by its ID.
func (s *LabelService) GetByID(ctx context.Context, id int64) (*model.Label, error) {
	label, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrLabelNotFound) {
		return nil, apperrors.NotFound("Label does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", err)
	}
	return label, nil
}

// List returns all labels ordered by name.
func (s *LabelService) List(ctx context.Context) ([]*model.Label, error) {
	labels, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// Update applies a partial update to a label.
func (s *LabelService) Update(ctx context.Context, id int64, req model.UpdateLabelRequest) (*model.Label, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	label, err := s.repo.Update(ctx, id, req)
	if errors.Is(err, data.ErrLabelNotFound) {
		return nil, apperrors.NotFound("Label does not exist")
	}
	if errors.Is(err, data.ErrLabelNameExists) {
		return nil, apperrors.Conflict("Label name already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("update label: %w", err)
	}
	return label, nil
}

// Delete removes a label.
func (s *LabelService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete label: %w", err)
	}
	return deleted, nil
}
