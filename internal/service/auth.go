package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/ports"
)

// ErrSessionExpired is returned by GetSession for sessions past their expiry.
var ErrSessionExpired = errors.New("session expired")

const defaultSessionDuration = 24 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    *UserService
	Sessions ports.SessionStore

	// Provider is the identity provider for SSO logins. Nil disables the
	// SSO flow; password login still works.
	Provider ports.AuthProvider

	SessionDuration time.Duration
	Time            data.TimeProvider
	Logger          *slog.Logger
}

// AuthService orchestrates login flows. Sessions carry a snapshot of the
// owning user's authorization taken at login; later user edits rewrite the
// snapshot through propagation.
type AuthService struct {
	users    *UserService
	sessions ports.SessionStore
	provider ports.AuthProvider
	duration time.Duration
	time     data.TimeProvider
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Users == nil {
		return nil, errors.New("user service is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = defaultSessionDuration
	}
	if opts.Time == nil {
		opts.Time = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "auth_service")
	}

	return &AuthService{
		users:    opts.Users,
		sessions: opts.Sessions,
		provider: opts.Provider,
		duration: opts.SessionDuration,
		time:     opts.Time,
		logger:   logger,
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	s, err := NewAuthService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // fail fast on wiring errors
	}
	return s
}

// LoginResult is the outcome of a completed login.
type LoginResult struct {
	Session model.Session
	User    *model.User
}

// LoginWithPassword authenticates a handle/password pair and opens a session.
func (s *AuthService) LoginWithPassword(ctx context.Context, handle, password string) (*LoginResult, error) {
	user, err := s.users.ValidateCredentials(ctx, handle, password)
	if err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, user, s.time.Now().Add(s.duration))
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "password login", "user_id", user.ID)
	}
	return result, nil
}

// BeginLoginResult contains the result of beginning an SSO login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginSSOLogin initiates an identity-provider flow and returns the provider
// auth URL with state and nonce.
func (s *AuthService) BeginSSOLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, apperrors.NotFound("SSO login is not configured")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing an SSO login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteSSOLogin exchanges the authorization code for an identity, resolves
// or creates the matching account, and opens a session.
func (s *AuthService) CompleteSSOLogin(ctx context.Context, input CompleteLoginInput) (*LoginResult, error) {
	if s.provider == nil {
		return nil, apperrors.NotFound("SSO login is not configured")
	}
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	user, err := s.users.FindOrCreateByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	expiresAt := s.time.Now().Add(s.duration)
	if !identity.ExpiresAt.IsZero() && identity.ExpiresAt.Before(expiresAt) {
		expiresAt = identity.ExpiresAt
	}

	result, err := s.openSession(ctx, user, expiresAt)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "sso login", "user_id", user.ID)
	}
	return result, nil
}

// GetSession retrieves a session by ID, rejecting expired ones.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.time.Now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Logout removes a session. A missing or empty session ID is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user *model.User, expiresAt time.Time) (*LoginResult, error) {
	session := model.Session{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Administrator: user.Administrator,
		Groups:        append([]string(nil), user.Groups...),
		Permissions:   user.Permissions.Clone(),
		ExpiresAt:     expiresAt,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &LoginResult{Session: session, User: user}, nil
}
