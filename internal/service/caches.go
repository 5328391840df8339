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

// CacheDirectoryChecker reports whether a cache's backing directory still
// exists under the caches root.
type CacheDirectoryChecker interface {
	Exists(path string) bool
}

// CacheServiceOptions groups dependencies for CacheService.
type CacheServiceOptions struct {
	Repo   core.CacheRepository
	Dirs   CacheDirectoryChecker // Optional: filesystem presence checks
	Logger *slog.Logger
}

// CacheService provides read access to trimming caches and the legacy-row
// fixups run at startup.
type CacheService struct {
	repo   core.CacheRepository
	dirs   CacheDirectoryChecker
	logger *slog.Logger
}

// NewCacheService constructs a new CacheService.
func NewCacheService(opts CacheServiceOptions) (*CacheService, error) {
	if opts.Repo == nil {
		return nil, errors.New("CacheRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "cache_service")
	}

	return &CacheService{repo: opts.Repo, dirs: opts.Dirs, logger: logger}, nil
}

// MustNewCacheService constructs a new CacheService and panics on error.
func MustNewCacheService(opts CacheServiceOptions) *CacheService {
	s, err := NewCacheService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// GetByID retrieves a cache by its ID. When a directory checker is wired and
// the cache's backing directory has disappeared, the row is flagged missing
// before being returned.
func (s *CacheService) GetByID(ctx context.Context, id string) (*model.Cache, error) {
	cache, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrCacheNotFound) {
		return nil, apperrors.NotFound("Cache does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get cache: %w", err)
	}

	if s.dirs != nil && !cache.Missing && !s.dirs.Exists(cache.CachePath()) {
		if _, markErr := s.repo.SetMissing(ctx, cache.ID); markErr != nil {
			return nil, fmt.Errorf("mark cache missing: %w", markErr)
		}
		cache.Missing = true
		if s.logger != nil {
			s.logger.WarnContext(ctx, "cache backing directory gone", "cache_id", cache.ID)
		}
	}

	return cache, nil
}

// FindReusable returns a ready, non-missing cache matching the sample and
// trimming key, or a not-found error.
func (s *CacheService) FindReusable(ctx context.Context, sampleID, key string) (*model.Cache, error) {
	cache, err := s.repo.GetBySampleAndKey(ctx, sampleID, key)
	if errors.Is(err, data.ErrCacheNotFound) {
		return nil, apperrors.NotFound("Cache does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get cache by sample and key: %w", err)
	}
	if !cache.Reusable() {
		return nil, apperrors.NotFound("Cache does not exist")
	}
	return cache, nil
}

// ListBySample returns all caches recorded for a sample.
func (s *CacheService) ListBySample(ctx context.Context, sampleID string) ([]*model.Cache, error) {
	caches, err := s.repo.ListBySample(ctx, sampleID)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	return caches, nil
}

// RunStartupFixups applies idempotent repairs to legacy cache rows: rows
// predating the missing column get missing=false, and rows whose trimming
// fingerprint is still stored under the legacy "hash" field are rewritten to
// "key". Safe to run on every boot.
func (s *CacheService) RunStartupFixups(ctx context.Context) error {
	backfilled, err := s.repo.EnsureMissingFlag(ctx)
	if err != nil {
		return fmt.Errorf("backfill missing flag: %w", err)
	}

	renamed, err := s.repo.RenameHashField(ctx)
	if err != nil {
		return fmt.Errorf("rename hash field: %w", err)
	}

	if s.logger != nil && (backfilled > 0 || renamed > 0) {
		s.logger.InfoContext(ctx, "cache fixups applied",
			"missing_backfilled", backfilled, "hash_renamed", renamed)
	}
	return nil
}
