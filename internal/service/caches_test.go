package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

// memCacheRepo is a map-backed stub with fixup counters.
type memCacheRepo struct {
	caches          map[string]*model.Cache
	missingBackfill int64
	hashRenames     int64
}

func newMemCacheRepo(caches ...*model.Cache) *memCacheRepo {
	m := &memCacheRepo{caches: map[string]*model.Cache{}}
	for _, c := range caches {
		m.caches[c.ID] = c
	}
	return m
}

func (m *memCacheRepo) GetByID(_ context.Context, id string) (*model.Cache, error) {
	c, ok := m.caches[id]
	if !ok {
		return nil, data.ErrCacheNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memCacheRepo) GetBySampleAndKey(_ context.Context, sampleID, key string) (*model.Cache, error) {
	for _, c := range m.caches {
		if c.SampleID == sampleID && c.Key == key {
			clone := *c
			return &clone, nil
		}
	}
	return nil, data.ErrCacheNotFound
}

func (m *memCacheRepo) ListBySample(_ context.Context, sampleID string) ([]*model.Cache, error) {
	var out []*model.Cache
	for _, c := range m.caches {
		if c.SampleID == sampleID {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memCacheRepo) SetMissing(_ context.Context, id string) (int, error) {
	c, ok := m.caches[id]
	if !ok {
		return 0, nil
	}
	c.Missing = true
	return 1, nil
}

func (m *memCacheRepo) EnsureMissingFlag(_ context.Context) (int64, error) {
	return m.missingBackfill, nil
}

func (m *memCacheRepo) RenameHashField(_ context.Context) (int64, error) {
	return m.hashRenames, nil
}

// staticDirChecker reports presence from a fixed set.
type staticDirChecker map[string]bool

func (s staticDirChecker) Exists(path string) bool { return s[path] }

func newCacheService(t *testing.T, repo *memCacheRepo, dirs CacheDirectoryChecker) *CacheService {
	t.Helper()
	svc, err := NewCacheService(CacheServiceOptions{Repo: repo, Dirs: dirs})
	require.NoError(t, err)
	return svc
}

func TestCacheService_GetByID(t *testing.T) {
	repo := newMemCacheRepo(&model.Cache{ID: "c1", SampleID: "s1", Key: "abc", Ready: true})
	svc := newCacheService(t, repo, nil)

	cache, err := svc.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "s1", cache.SampleID)

	_, err = svc.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCacheService_GetByIDFlagsMissingDirectory(t *testing.T) {
	repo := newMemCacheRepo(
		&model.Cache{ID: "present", SampleID: "s1", Ready: true},
		&model.Cache{ID: "gone", SampleID: "s1", Ready: true},
	)
	svc := newCacheService(t, repo, staticDirChecker{"present": true})
	ctx := context.Background()

	cache, err := svc.GetByID(ctx, "present")
	require.NoError(t, err)
	assert.False(t, cache.Missing)

	cache, err = svc.GetByID(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, cache.Missing)
	assert.True(t, repo.caches["gone"].Missing, "flag persisted")
}

func TestCacheService_FindReusable(t *testing.T) {
	repo := newMemCacheRepo(
		&model.Cache{ID: "ok", SampleID: "s1", Key: "trim-v1", Ready: true},
		&model.Cache{ID: "unready", SampleID: "s2", Key: "trim-v1"},
		&model.Cache{ID: "lost", SampleID: "s3", Key: "trim-v1", Ready: true, Missing: true},
	)
	svc := newCacheService(t, repo, nil)
	ctx := context.Background()

	cache, err := svc.FindReusable(ctx, "s1", "trim-v1")
	require.NoError(t, err)
	assert.Equal(t, "ok", cache.ID)

	_, err = svc.FindReusable(ctx, "s2", "trim-v1")
	assert.True(t, apperrors.IsNotFound(err), "unready cache is not reusable")

	_, err = svc.FindReusable(ctx, "s3", "trim-v1")
	assert.True(t, apperrors.IsNotFound(err), "missing cache is not reusable")
}

func TestCacheService_RunStartupFixups(t *testing.T) {
	repo := newMemCacheRepo()
	repo.missingBackfill = 3
	repo.hashRenames = 2
	svc := newCacheService(t, repo, nil)

	assert.NoError(t, svc.RunStartupFixups(context.Background()))
	// Second run is a no-op by contract; the repo-side statements are
	// idempotent so calling again must not error.
	assert.NoError(t, svc.RunStartupFixups(context.Background()))
}
