package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

// memLabelRepo is a map-backed stub honoring the unique-name contract.
type memLabelRepo struct {
	labels map[int64]*model.Label
	nextID int64
}

func newMemLabelRepo() *memLabelRepo {
	return &memLabelRepo{labels: map[int64]*model.Label{}, nextID: 1}
}

func (m *memLabelRepo) nameTaken(name string, exclude int64) bool {
	for id, l := range m.labels {
		if id != exclude && l.Name == name {
			return true
		}
	}
	return false
}

func (m *memLabelRepo) Create(_ context.Context, req model.CreateLabelRequest) (*model.Label, error) {
	if m.nameTaken(req.Name, 0) {
		return nil, data.ErrLabelNameExists
	}
	label := &model.Label{
		ID:          m.nextID,
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	m.labels[label.ID] = label
	m.nextID++
	clone := *label
	return &clone, nil
}

func (m *memLabelRepo) GetByID(_ context.Context, id int64) (*model.Label, error) {
	l, ok := m.labels[id]
	if !ok {
		return nil, data.ErrLabelNotFound
	}
	clone := *l
	return &clone, nil
}

func (m *memLabelRepo) List(_ context.Context) ([]*model.Label, error) {
	out := make([]*model.Label, 0, len(m.labels))
	for _, l := range m.labels {
		clone := *l
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memLabelRepo) Update(_ context.Context, id int64, req model.UpdateLabelRequest) (*model.Label, error) {
	l, ok := m.labels[id]
	if !ok {
		return nil, data.ErrLabelNotFound
	}
	if req.Name != nil {
		if m.nameTaken(*req.Name, id) {
			return nil, data.ErrLabelNameExists
		}
		l.Name = *req.Name
	}
	if req.Color != nil {
		l.Color = *req.Color
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	clone := *l
	return &clone, nil
}

func (m *memLabelRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.labels[id]; !ok {
		return false, nil
	}
	delete(m.labels, id)
	return true, nil
}

func newLabelService(t *testing.T) (*LabelService, *memLabelRepo) {
	t.Helper()
	repo := newMemLabelRepo()
	svc, err := NewLabelService(LabelServiceOptions{Repo: repo})
	require.NoError(t, err)
	return svc, repo
}

func TestLabelService_CreateAndGet(t *testing.T) {
	svc, _ := newLabelService(t)
	ctx := context.Background()

	label, err := svc.Create(ctx, model.CreateLabelRequest{
		Name: "Clinical", Color: "#3C8786", Description: "Patient-derived samples",
	})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, label.ID)
	require.NoError(t, err)
	assert.Equal(t, "Clinical", got.Name)
	assert.Equal(t, "#3C8786", got.Color)
}

func TestLabelService_CreateDuplicateName(t *testing.T) {
	svc, _ := newLabelService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.CreateLabelRequest{Name: "Clinical", Color: "#3C8786"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, model.CreateLabelRequest{Name: "Clinical", Color: "#FF0000"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestLabelService_CreateInvalidColor(t *testing.T) {
	svc, _ := newLabelService(t)

	_, err := svc.Create(context.Background(), model.CreateLabelRequest{Name: "Clinical", Color: "teal"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestLabelService_Update(t *testing.T) {
	svc, _ := newLabelService(t)
	ctx := context.Background()

	label, err := svc.Create(ctx, model.CreateLabelRequest{Name: "Clinical", Color: "#3C8786"})
	require.NoError(t, err)

	name := "Environmental"
	updated, err := svc.Update(ctx, label.ID, model.UpdateLabelRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Environmental", updated.Name)
	assert.Equal(t, "#3C8786", updated.Color, "unset fields unchanged")
}

func TestLabelService_UpdateNotFound(t *testing.T) {
	svc, _ := newLabelService(t)

	name := "Ghost"
	_, err := svc.Update(context.Background(), 404, model.UpdateLabelRequest{Name: &name})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLabelService_Delete(t *testing.T) {
	svc, _ := newLabelService(t)
	ctx := context.Background()

	label, err := svc.Create(ctx, model.CreateLabelRequest{Name: "Clinical", Color: "#3C8786"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, label.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.GetByID(ctx, label.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
