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

// AuthorizationPropagator pushes a user's committed authorization out to
// their live sessions and API keys. *UserService satisfies it.
type AuthorizationPropagator interface {
	Propagate(ctx context.Context, user *model.User) error
}

// GroupServiceOptions groups dependencies for GroupService.
type GroupServiceOptions struct {
	Repo       core.GroupRepository
	Users      core.UserRepository
	Propagator AuthorizationPropagator
	Logger     *slog.Logger
}

// GroupService provides business logic for permission group CRUD.
//
// A permission edit rewrites the effective permissions of every current
// member and propagates the result to their sessions and keys. Deleting a
// group is lazy: members keep the stale id until their own document is next
// edited.
type GroupService struct {
	repo       core.GroupRepository
	users      core.UserRepository
	propagator AuthorizationPropagator
	logger     *slog.Logger
}

// NewGroupService constructs a new GroupService.
func NewGroupService(opts GroupServiceOptions) (*GroupService, error) {
	if opts.Repo == nil {
		return nil, errors.New("GroupRepository is required")
	}
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Propagator == nil {
		return nil, errors.New("AuthorizationPropagator is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "group_service")
	}

	return &GroupService{
		repo:       opts.Repo,
		users:      opts.Users,
		propagator: opts.Propagator,
		logger:     logger,
	}, nil
}

// MustNewGroupService constructs a new GroupService and panics on error.
func MustNewGroupService(opts GroupServiceOptions) *GroupService {
	s, err := NewGroupService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// Create creates a group with all permissions denied.
func (s *GroupService) Create(ctx context.Context, req model.CreateGroupRequest) (*model.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	group, err := s.repo.Create(ctx, req)
	if errors.Is(err, data.ErrGroupAlreadyExists) {
		return nil, apperrors.Conflict("Group already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "group created", "group_id", group.ID)
	}
	return group, nil
}

// GetByID retrieves a group by its ID.
func (s *GroupService) GetByID(ctx context.Context, id string) (*model.Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, data.ErrGroupNotFound) {
		return nil, apperrors.NotFound("Group does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// List returns all groups.
func (s *GroupService) List(ctx context.Context) ([]*model.Group, error) {
	groups, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Update replaces a group's permission set, then recomputes the effective
// permissions of every member and fans the result out to their sessions and
// keys. A fan-out failure surfaces as ErrPropagationFailed with the already
// committed group.
func (s *GroupService) Update(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	group, err := s.repo.Update(ctx, id, req)
	if errors.Is(err, data.ErrGroupNotFound) {
		return nil, apperrors.NotFound("Group does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}

	if err := s.refreshMembers(ctx, id); err != nil {
		// The group write is already committed; report the partial state.
		return group, fmt.Errorf("%w: %v", ErrPropagationFailed, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "group updated", "group_id", id)
	}
	return group, nil
}

// refreshMembers recomputes the OR-merge of each member's group permissions,
// stores it on the user document, and propagates the committed authorization.
func (s *GroupService) refreshMembers(ctx context.Context, groupID string) error {
	members, err := s.users.ListByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	for _, member := range members {
		groups, err := s.repo.GetByIDs(ctx, member.Groups)
		if err != nil {
			return fmt.Errorf("get member groups: %w", err)
		}

		updated, err := s.users.Update(ctx, member.ID, model.UserUpdate{
			Permissions: model.MergeGroupPermissions(groups),
		})
		if err != nil {
			return fmt.Errorf("update member %s: %w", member.ID, err)
		}

		if err := s.propagator.Propagate(ctx, updated); err != nil {
			return fmt.Errorf("propagate member %s: %w", member.ID, err)
		}
	}
	return nil
}

// Delete removes a group. Users keep the group id in their membership list
// until their own document is next edited.
func (s *GroupService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete group: %w", err)
	}

	if s.logger != nil && deleted {
		s.logger.InfoContext(ctx, "group deleted", "group_id", id)
	}
	return deleted, nil
}
