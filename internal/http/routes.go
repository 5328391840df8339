package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/seqdepot/seqdepot/internal/domain/model"
	"github.com/seqdepot/seqdepot/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Users    *service.UserService
	Groups   *service.GroupService
	Auth     *service.AuthService
	Keys     *service.KeyService
	Uploads  *service.UploadService
	Caches   *service.CacheService
	Jobs     *service.JobService
	Labels   *service.LabelService
	Webhooks *service.WebhookService

	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router for the JSON API.
//
// Route access falls into three tiers: administrator-only resources (users,
// groups, webhook sinks), permission-gated operations (uploads, job cancel
// and delete), and everything else behind plain authentication.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	auth := Authenticators{Sessions: services.Auth, Keys: services.Keys}
	authed := RequireAuth(auth)
	admin := func(h http.Handler) http.Handler { return authed(RequireAdmin(h)) }
	withPerm := func(p model.Permission, h http.Handler) http.Handler {
		return authed(RequirePermission(p)(h))
	}

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	accountHandlers := &AccountHandlers{Users: services.Users, Keys: services.Keys}
	userHandlers := &UserHandlers{Svc: services.Users}
	groupHandlers := &GroupHandlers{Svc: services.Groups}
	uploadHandlers := &UploadHandlers{Svc: services.Uploads}
	cacheHandlers := &CacheHandlers{Svc: services.Caches}
	jobHandlers := &JobHandlers{Svc: services.Jobs}
	labelHandlers := &LabelHandlers{Svc: services.Labels}
	webhookHandlers := &WebhookHandlers{Svc: services.Webhooks}

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	// Authentication. Login and the SSO round trip are the only routes that
	// work without credentials.
	mux.HandleFunc("POST /api/account/login", authHandlers.Login)
	mux.HandleFunc("GET /auth/login", authHandlers.BeginSSO)
	mux.HandleFunc("GET /auth/callback", authHandlers.Callback)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/status", authHandlers.Status)

	// Account self-service.
	mux.Handle("GET /api/account", authed(http.HandlerFunc(accountHandlers.Get)))
	mux.Handle("PUT /api/account/password", authed(http.HandlerFunc(accountHandlers.ChangePassword)))
	mux.Handle("GET /api/account/keys", authed(http.HandlerFunc(accountHandlers.ListKeys)))
	mux.Handle("POST /api/account/keys", authed(http.HandlerFunc(accountHandlers.CreateKey)))
	mux.Handle("GET /api/account/keys/{id}", authed(http.HandlerFunc(accountHandlers.GetKey)))
	mux.Handle("PATCH /api/account/keys/{id}", authed(http.HandlerFunc(accountHandlers.UpdateKey)))
	mux.Handle("DELETE /api/account/keys/{id}", authed(http.HandlerFunc(accountHandlers.DeleteKey)))

	// User administration.
	mux.Handle("GET /api/users", admin(http.HandlerFunc(userHandlers.List)))
	mux.Handle("POST /api/users", admin(http.HandlerFunc(userHandlers.Create)))
	mux.Handle("GET /api/users/{id}", admin(http.HandlerFunc(userHandlers.Get)))
	mux.Handle("PATCH /api/users/{id}", admin(http.HandlerFunc(userHandlers.Update)))
	mux.Handle("DELETE /api/users/{id}", admin(http.HandlerFunc(userHandlers.Delete)))

	// Group administration.
	mux.Handle("GET /api/groups", admin(http.HandlerFunc(groupHandlers.List)))
	mux.Handle("POST /api/groups", admin(http.HandlerFunc(groupHandlers.Create)))
	mux.Handle("GET /api/groups/{id}", admin(http.HandlerFunc(groupHandlers.Get)))
	mux.Handle("PATCH /api/groups/{id}", admin(http.HandlerFunc(groupHandlers.Update)))
	mux.Handle("DELETE /api/groups/{id}", admin(http.HandlerFunc(groupHandlers.Delete)))

	// Uploads.
	mux.Handle("POST /api/uploads", withPerm(model.PermissionUploadFile, http.HandlerFunc(uploadHandlers.Create)))
	mux.Handle("POST /api/uploads/{id}/finalize", withPerm(model.PermissionUploadFile, http.HandlerFunc(uploadHandlers.Finalize)))
	mux.Handle("GET /api/uploads", authed(http.HandlerFunc(uploadHandlers.Find)))
	mux.Handle("GET /api/uploads/{id}", authed(http.HandlerFunc(uploadHandlers.Get)))
	mux.Handle("DELETE /api/uploads/{id}", withPerm(model.PermissionRemoveFile, http.HandlerFunc(uploadHandlers.Delete)))
	mux.Handle("POST /api/uploads/reserve", authed(http.HandlerFunc(uploadHandlers.Reserve)))
	mux.Handle("POST /api/uploads/release", authed(http.HandlerFunc(uploadHandlers.Release)))

	// Analysis caches.
	mux.Handle("GET /api/caches/{id}", authed(http.HandlerFunc(cacheHandlers.Get)))
	mux.Handle("GET /api/samples/{id}/caches", authed(http.HandlerFunc(cacheHandlers.ListBySample)))
	mux.Handle("GET /api/samples/{id}/caches/reusable", authed(http.HandlerFunc(cacheHandlers.FindReusable)))

	// Jobs. Acquire, ping, complete, and fail are the worker surface and are
	// typically hit with an API key rather than a session.
	mux.Handle("POST /api/jobs", withPerm(model.PermissionCreateSample, http.HandlerFunc(jobHandlers.Create)))
	mux.Handle("GET /api/jobs", authed(http.HandlerFunc(jobHandlers.List)))
	mux.Handle("GET /api/jobs/stats", authed(http.HandlerFunc(jobHandlers.Stats)))
	mux.Handle("GET /api/jobs/{id}", authed(http.HandlerFunc(jobHandlers.Get)))
	mux.Handle("POST /api/jobs/acquire", authed(http.HandlerFunc(jobHandlers.Acquire)))
	mux.Handle("POST /api/jobs/{id}/ping", authed(http.HandlerFunc(jobHandlers.Ping)))
	mux.Handle("POST /api/jobs/{id}/complete", authed(http.HandlerFunc(jobHandlers.Complete)))
	mux.Handle("POST /api/jobs/{id}/fail", authed(http.HandlerFunc(jobHandlers.Fail)))
	mux.Handle("PUT /api/jobs/{id}/cancel", withPerm(model.PermissionCancelJob, http.HandlerFunc(jobHandlers.Cancel)))
	mux.Handle("DELETE /api/jobs/{id}", withPerm(model.PermissionRemoveJob, http.HandlerFunc(jobHandlers.Delete)))

	// Labels.
	mux.Handle("GET /api/labels", authed(http.HandlerFunc(labelHandlers.List)))
	mux.Handle("POST /api/labels", authed(http.HandlerFunc(labelHandlers.Create)))
	mux.Handle("GET /api/labels/{id}", authed(http.HandlerFunc(labelHandlers.Get)))
	mux.Handle("PATCH /api/labels/{id}", authed(http.HandlerFunc(labelHandlers.Update)))
	mux.Handle("DELETE /api/labels/{id}", authed(http.HandlerFunc(labelHandlers.Delete)))

	// Webhook sinks.
	mux.Handle("GET /api/webhooks", admin(http.HandlerFunc(webhookHandlers.List)))
	mux.Handle("POST /api/webhooks", admin(http.HandlerFunc(webhookHandlers.Create)))
	mux.Handle("GET /api/webhooks/{id}", admin(http.HandlerFunc(webhookHandlers.Get)))
	mux.Handle("PATCH /api/webhooks/{id}", admin(http.HandlerFunc(webhookHandlers.Update)))
	mux.Handle("DELETE /api/webhooks/{id}", admin(http.HandlerFunc(webhookHandlers.Delete)))

	var handler http.Handler = mux
	handler = Logging(services.Logger)(handler)
	handler = Recover(services.Logger)(handler)
	return handler
}

// parseIntQuery reads an integer query parameter, falling back to def when
// the parameter is absent or not an integer.
func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
