package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// SessionCookieName is the cookie carrying the browser session id.
const SessionCookieName = "session_id"

// SessionAuthenticator resolves a session id to a live session.
type SessionAuthenticator interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// KeyAuthenticator resolves a raw bearer value to an API key.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.Key, error)
}

// Authenticators groups the credential resolvers used by the auth middleware.
type Authenticators struct {
	Sessions SessionAuthenticator
	Keys     KeyAuthenticator
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires an authenticated caller.
// A Bearer API key takes precedence; otherwise the session cookie is tried.
// Unauthenticated requests get a 401 JSON response.
func RequireAuth(auth Authenticators) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFromRequest(r, auth)
			if identity == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}

			ctx := SetIdentityInContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin wraps a handler so only administrators reach it.
// Must run inside RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.Administrator {
			WriteError(w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: "forbidden",
				Err:     errors.New("administrator access required"),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission wraps a handler so only callers holding the permission
// reach it. Must run inside RequireAuth.
func RequirePermission(p model.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.Can(p) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "forbidden",
					Err:     errors.New("missing permission: " + string(p)),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identityFromRequest resolves the caller from the Authorization header or
// the session cookie. Returns nil when no valid credential is present.
func identityFromRequest(r *http.Request, auth Authenticators) *Identity {
	if raw, ok := bearerToken(r); ok && auth.Keys != nil {
		key, err := auth.Keys.Authenticate(r.Context(), raw)
		if err != nil {
			return nil
		}
		return &Identity{
			UserID:        key.UserID,
			Administrator: key.Administrator,
			Permissions:   key.Permissions,
			KeyID:         key.ID,
		}
	}

	if auth.Sessions == nil {
		return nil
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}
	session, err := auth.Sessions.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return &Identity{
		UserID:        session.UserID,
		Administrator: session.Administrator,
		Permissions:   session.Permissions,
		SessionID:     session.ID,
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
