package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data"
	domainauth "github.com/seqdepot/seqdepot/internal/domain/auth"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/ports"
)

// ErrPropagationFailed marks an edit whose user document write committed but
// whose session/key fan-out did not complete. Callers must be able to tell
// this apart from "nothing happened" so they can retrigger propagation.
var ErrPropagationFailed = errors.New("user updated but propagation incomplete")

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Users    core.UserRepository // Required: user repository
	Groups   core.GroupRepository
	Keys     core.KeyRepository
	Sessions ports.SessionStore
	Time     data.TimeProvider // Optional: defaults to wall clock
	Logger   *slog.Logger      // Optional: structured logger
}

// UserService provides account management: creation, credential checks, and
// the composite edit that rewrites a user document and fans the resulting
// authorization out to live sessions and API keys.
type UserService struct {
	users    core.UserRepository
	groups   core.GroupRepository
	keys     core.KeyRepository
	sessions ports.SessionStore
	time     data.TimeProvider
	logger   *slog.Logger
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) (*UserService, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Groups == nil {
		return nil, errors.New("GroupRepository is required")
	}
	if opts.Keys == nil {
		return nil, errors.New("KeyRepository is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}
	if opts.Time == nil {
		opts.Time = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "user_service")
	}

	return &UserService{
		users:    opts.Users,
		groups:   opts.Groups,
		keys:     opts.Keys,
		sessions: opts.Sessions,
		time:     opts.Time,
		logger:   logger,
	}, nil
}

// MustNewUserService constructs a new UserService and panics on error.
func MustNewUserService(opts UserServiceOptions) *UserService {
	service, err := NewUserService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return service
}

// Create provisions a user with local credentials. Handles are unique; a
// clash reports a conflict. Unless the request says otherwise the account is
// created with force_reset so the user must pick their own password.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	handle := strings.TrimSpace(req.Handle)
	exists, err := s.users.HandleExists(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("check handle: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	forceReset := true
	if req.ForceReset != nil {
		forceReset = *req.ForceReset
	}

	user := &model.User{
		ID:                 uuid.NewString(),
		Handle:             handle,
		Password:           hash,
		ForceReset:         forceReset,
		Permissions:        model.NoPermissions(),
		LastPasswordChange: s.time.Now().UTC(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, data.ErrUserHandleExists) {
			return nil, apperrors.Conflict("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user created", "user_id", created.ID, "handle", created.Handle)
	}
	return created, nil
}

// GetByID fetches a user by ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, apperrors.NotFound("User does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByHandle fetches a user by handle.
func (s *UserService) GetByHandle(ctx context.Context, handle string) (*model.User, error) {
	user, err := s.users.GetByHandle(ctx, handle)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, apperrors.NotFound("User does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by handle: %w", err)
	}
	return user, nil
}

// List returns users ordered by handle.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

// Delete removes a user along with their API keys and live sessions.
func (s *UserService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if _, err := s.keys.DeleteByUser(ctx, id); err != nil {
		return true, fmt.Errorf("delete user keys: %w", err)
	}
	if _, err := s.sessions.DeleteForUser(ctx, id); err != nil {
		return true, fmt.Errorf("delete user sessions: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	}
	return true, nil
}

// ValidateCredentials checks a handle/password pair and returns the user on
// success. Unknown handles and bad passwords are indistinguishable.
func (s *UserService) ValidateCredentials(ctx context.Context, handle, password string) (*model.User, error) {
	user, err := s.users.GetByHandle(ctx, handle)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, apperrors.Unauthorized("Invalid handle or password")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by handle: %w", err)
	}

	if len(user.Password) == 0 {
		return nil, apperrors.Unauthorized("Invalid handle or password")
	}
	if bcrypt.CompareHashAndPassword(user.Password, []byte(password)) != nil {
		return nil, apperrors.Unauthorized("Invalid handle or password")
	}
	return user, nil
}

// FindOrCreateByIdentity resolves an IdP identity to a local account,
// provisioning one on first login. Generated handles take the form
// <given>-<family>-<n> with n chosen to avoid collisions.
func (s *UserService) FindOrCreateByIdentity(ctx context.Context, identity domainauth.Identity) (*model.User, error) {
	if identity.RemoteID == "" {
		return nil, apperrors.Validation("identity has no remote id")
	}

	user, err := s.users.GetByRemoteID(ctx, identity.RemoteID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrUserNotFound) {
		return nil, fmt.Errorf("get user by remote id: %w", err)
	}

	handle, err := s.generateHandle(ctx, identity)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &model.User{
		ID:          uuid.NewString(),
		Handle:      handle,
		RemoteID:    identity.RemoteID,
		Permissions: model.NoPermissions(),
	})
	if err != nil {
		return nil, fmt.Errorf("create user for identity: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user provisioned from identity", "user_id", created.ID, "handle", handle)
	}
	return created, nil
}

const maxHandleAttempts = 100

func (s *UserService) generateHandle(ctx context.Context, identity domainauth.Identity) (string, error) {
	base := handleSlug(identity.GivenName) + "-" + handleSlug(identity.FamilyName)
	if base == "-" {
		base = handleSlug(strings.SplitN(identity.Email, "@", 2)[0])
		if base == "" {
			base = "user"
		}
	}

	for n := 1; n <= maxHandleAttempts; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		exists, err := s.users.HandleExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check handle: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique handle for %q", base)
}

func handleSlug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// Update edits a user. The requested changes are validated and composed into
// one partial update, written atomically, and the resulting authorization is
// propagated to every live session and API key before the call returns.
//
// Validation happens in full before any write: a failure in any sub-composer
// aborts the edit with the user untouched. A propagation failure after the
// document write surfaces as ErrPropagationFailed with the updated user.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, apperrors.NotFound("User does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if req.IsZero() {
		return user, nil
	}

	update := composeForceReset(req.ForceReset)

	groupsUpdate, err := s.composeGroups(ctx, req.Groups)
	if err != nil {
		return nil, err
	}
	update.Merge(groupsUpdate)

	passwordUpdate, err := s.composePassword(req.Password)
	if err != nil {
		return nil, err
	}
	update.Merge(passwordUpdate)

	primaryGroupUpdate, err := s.composePrimaryGroup(ctx, user, req.PrimaryGroup)
	if err != nil {
		return nil, err
	}
	update.Merge(primaryGroupUpdate)

	if req.Administrator != nil {
		update.Administrator = req.Administrator
	}

	updated, err := s.users.Update(ctx, id, update)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, apperrors.NotFound("User does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	revoke := update.InvalidateSessions != nil && *update.InvalidateSessions
	if err := s.fanOut(ctx, updated, revoke); err != nil {
		// The document write is already committed; report the partial state.
		return updated, fmt.Errorf("%w: %v", ErrPropagationFailed, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user updated", "user_id", id)
	}
	return updated, nil
}

// composeForceReset builds the partial update for a force-reset change.
// Setting the flag in either direction also invalidates existing sessions.
func composeForceReset(forceReset *bool) model.UserUpdate {
	if forceReset == nil {
		return model.UserUpdate{}
	}
	invalidate := true
	return model.UserUpdate{
		ForceReset:         forceReset,
		InvalidateSessions: &invalidate,
	}
}

// composePassword builds the partial update for a password change.
func (s *UserService) composePassword(password *string) (model.UserUpdate, error) {
	if password == nil {
		return model.UserUpdate{}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return model.UserUpdate{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.time.Now().UTC()
	invalidate := true
	return model.UserUpdate{
		Password:           hash,
		LastPasswordChange: &now,
		InvalidateSessions: &invalidate,
	}, nil
}

// composeGroups builds the partial update for a membership change. The new
// effective permissions are the OR-merge across the requested groups; the
// empty list clears membership and denies everything. Unknown group ids fail
// validation, listed comma-joined in request order.
func (s *UserService) composeGroups(ctx context.Context, groupIDs *[]string) (model.UserUpdate, error) {
	if groupIDs == nil {
		return model.UserUpdate{}, nil
	}

	requested := *groupIDs
	found, err := s.groups.GetByIDs(ctx, requested)
	if err != nil {
		return model.UserUpdate{}, fmt.Errorf("get groups: %w", err)
	}

	byID := make(map[string]*model.Group, len(found))
	for _, group := range found {
		byID[group.ID] = group
	}

	var missing []string
	ordered := make([]*model.Group, 0, len(requested))
	for _, id := range requested {
		group, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, group)
	}
	if len(missing) > 0 {
		return model.UserUpdate{}, apperrors.ValidationKindf(apperrors.KindNonExistentGroups,
			"Non-existent groups: %s", strings.Join(missing, ", "))
	}

	groups := append([]string(nil), requested...)
	return model.UserUpdate{
		Groups:      &groups,
		Permissions: model.MergeGroupPermissions(ordered),
	}, nil
}

// composePrimaryGroup builds the partial update for a primary-group change.
// Membership is checked against the user's current stored groups, not the
// groups requested in the same edit. The "none" sentinel clears the field.
func (s *UserService) composePrimaryGroup(ctx context.Context, user *model.User, primaryGroup *string) (model.UserUpdate, error) {
	if primaryGroup == nil {
		return model.UserUpdate{}, nil
	}

	value := *primaryGroup
	if value == model.PrimaryGroupNone {
		return model.UserUpdate{PrimaryGroup: primaryGroup}, nil
	}

	_, err := s.groups.GetByID(ctx, value)
	if errors.Is(err, data.ErrGroupNotFound) {
		return model.UserUpdate{}, apperrors.ValidationKindf(apperrors.KindNonExistentGroup,
			"Non-existent group: %s", value)
	}
	if err != nil {
		return model.UserUpdate{}, fmt.Errorf("get group: %w", err)
	}

	if !user.MemberOf(value) {
		return model.UserUpdate{}, apperrors.ValidationKind(apperrors.KindNotAMember,
			"User is not member of group")
	}
	return model.UserUpdate{PrimaryGroup: primaryGroup}, nil
}

// Propagate fans the user's committed authorization out to every live
// session and API key. Session snapshots are replaced verbatim; key
// permissions only ratchet down. It is idempotent and safe to retrigger
// after a failed edit.
func (s *UserService) Propagate(ctx context.Context, user *model.User) error {
	return s.fanOut(ctx, user, false)
}

// fanOut pushes the user's authorization to sessions and keys. Credential
// edits revoke sessions outright instead of rewriting them.
func (s *UserService) fanOut(ctx context.Context, user *model.User, revokeSessions bool) error {
	update := model.AuthorizationUpdate{
		Administrator: user.Administrator,
		Groups:        append([]string(nil), user.Groups...),
		Permissions:   user.Permissions.Clone(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if revokeSessions {
			if _, err := s.sessions.DeleteForUser(gctx, user.ID); err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			return nil
		}
		if _, err := s.sessions.UpdateAuthorizationForUser(gctx, user.ID, update); err != nil {
			return fmt.Errorf("update sessions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.keys.UpdateAuthorizationForUser(gctx, user.ID, update); err != nil {
			return fmt.Errorf("update keys: %w", err)
		}
		return nil
	})

	return g.Wait()
}
