package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
)

// KeyServiceOptions groups dependencies for KeyService.
type KeyServiceOptions struct {
	Repo   core.KeyRepository
	Time   data.TimeProvider
	Logger *slog.Logger
}

// KeyService provides business logic for API key management.
//
// A key's permissions are capped by the owner's effective permissions both
// at issuance and on every later update. Grants the owner does not hold are
// silently dropped, never rejected.
type KeyService struct {
	repo   core.KeyRepository
	time   data.TimeProvider
	logger *slog.Logger
}

// NewKeyService constructs a new KeyService.
func NewKeyService(opts KeyServiceOptions) (*KeyService, error) {
	if opts.Repo == nil {
		return nil, errors.New("KeyRepository is required")
	}
	if opts.Time == nil {
		opts.Time = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "key_service")
	}

	return &KeyService{repo: opts.Repo, time: opts.Time, logger: logger}, nil
}

// MustNewKeyService constructs a new KeyService and panics on error.
func MustNewKeyService(opts KeyServiceOptions) *KeyService {
	s, err := NewKeyService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// CreateKeyResult carries the stored key together with the raw bearer value.
// The raw value is shown exactly once and cannot be recovered later.
type CreateKeyResult struct {
	Key    *model.Key
	Secret string
}

// Create mints a new API key for the owner. The key snapshots the owner's
// administrator flag and group membership, and its permission set is the
// requested set intersected with the owner's effective permissions.
//
// Prefix is a readable label derived from the name with a per-owner
// duplicate counter, e.g. the second key named "My CI Key" gets
// "my_ci_key_2".
func (s *KeyService) Create(ctx context.Context, owner *model.User, req model.CreateKeyRequest) (*CreateKeyResult, error) {
	if owner == nil {
		return nil, errors.New("owner is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	prefix := model.KeyPrefix(req.Name)
	count, err := s.repo.CountByPrefix(ctx, owner.ID, prefix)
	if err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}

	raw, digest, err := model.GenerateKeySecret()
	if err != nil {
		return nil, fmt.Errorf("generate key secret: %w", err)
	}

	key := &model.Key{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Prefix:        fmt.Sprintf("%s_%d", prefix, count+1),
		Secret:        digest,
		UserID:        owner.ID,
		Administrator: owner.Administrator,
		Groups:        append([]string(nil), owner.Groups...),
		Permissions:   capPermissions(req.Permissions, owner.Permissions),
		CreatedAt:     s.time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "api key created", "key_id", created.ID, "user_id", owner.ID)
	}
	return &CreateKeyResult{Key: created, Secret: raw}, nil
}

// ListForUser returns all keys owned by the user.
func (s *KeyService) ListForUser(ctx context.Context, userID string) ([]*model.Key, error) {
	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// GetForUser retrieves a key, enforcing ownership. A key belonging to
// another user is indistinguishable from a missing one.
func (s *KeyService) GetForUser(ctx context.Context, userID, keyID string) (*model.Key, error) {
	key, err := s.repo.GetByID(ctx, keyID)
	if errors.Is(err, data.ErrKeyNotFound) {
		return nil, apperrors.NotFound("Key does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	if key.UserID != userID {
		return nil, apperrors.NotFound("Key does not exist")
	}
	return key, nil
}

// Update replaces a key's permission set, capped by the owner's effective
// permissions.
func (s *KeyService) Update(ctx context.Context, owner *model.User, keyID string, req model.UpdateKeyRequest) (*model.Key, error) {
	if owner == nil {
		return nil, errors.New("owner is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if _, err := s.GetForUser(ctx, owner.ID, keyID); err != nil {
		return nil, err
	}

	key, err := s.repo.SetPermissions(ctx, keyID, capPermissions(req.Permissions, owner.Permissions))
	if errors.Is(err, data.ErrKeyNotFound) {
		return nil, apperrors.NotFound("Key does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("update key: %w", err)
	}
	return key, nil
}

// Delete removes a key, enforcing ownership.
func (s *KeyService) Delete(ctx context.Context, userID, keyID string) error {
	if _, err := s.GetForUser(ctx, userID, keyID); err != nil {
		return err
	}

	if _, err := s.repo.Delete(ctx, keyID); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "api key deleted", "key_id", keyID, "user_id", userID)
	}
	return nil
}

// Authenticate resolves a raw bearer value to its key record.
func (s *KeyService) Authenticate(ctx context.Context, raw string) (*model.Key, error) {
	key, err := s.repo.GetBySecret(ctx, model.HashKeySecret(raw))
	if errors.Is(err, data.ErrKeyNotFound) {
		return nil, apperrors.Unauthorized("Invalid API key")
	}
	if err != nil {
		return nil, fmt.Errorf("get key by secret: %w", err)
	}
	return key, nil
}

// capPermissions intersects the requested grants with the cap. Admin owners
// are not special-cased here; administrator access bypasses permission
// checks at the middleware layer instead.
func capPermissions(requested, limit model.PermissionSet) model.PermissionSet {
	out := model.NoPermissions()
	for _, p := range model.AllPermissions() {
		out[p] = requested[p] && limit[p]
	}
	return out
}
