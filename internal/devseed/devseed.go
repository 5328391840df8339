// Package devseed populates a development database with a usable baseline:
// permission groups, accounts, sample labels, and a local webhook sink.
// Seeding is idempotent; records that already exist are left alone.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/data/cryptoutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
	apperrors "github.com/seqdepot/seqdepot/internal/errors"
	"github.com/seqdepot/seqdepot/internal/ports"
	"github.com/seqdepot/seqdepot/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB       *sql.DB
	users    *service.UserService
	groups   *service.GroupService
	labels   *service.LabelService
	webhooks *service.WebhookService
}

// NewServices constructs all required services for seeding using the
// provided DB. Sessions is needed by the user service for authorization
// fan-out; seeding itself never touches live sessions.
func NewServices(db *sql.DB, sessions ports.SessionStore) Services {
	tp := &data.RealTimeProvider{}

	userService := service.MustNewUserService(service.UserServiceOptions{
		Users:    data.NewUserRepo(db, tp),
		Groups:   data.NewGroupRepo(db, tp),
		Keys:     data.NewKeyRepo(db, tp),
		Sessions: sessions,
	})
	groupService := service.MustNewGroupService(service.GroupServiceOptions{
		Repo:       data.NewGroupRepo(db, tp),
		Users:      data.NewUserRepo(db, tp),
		Propagator: userService,
	})
	labelService := service.MustNewLabelService(service.LabelServiceOptions{
		Repo: data.NewLabelRepo(db, tp),
	})
	webhookService := service.MustNewWebhookService(service.WebhookServiceOptions{
		Repo: data.NewWebhookSinkRepo(db, cryptoutil.NoopEncryptor{}, tp),
	})

	return Services{
		DB:       db,
		users:    userService,
		groups:   groupService,
		labels:   labelService,
		webhooks: webhookService,
	}
}

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	groups := seedGroups(ctx, svcs.groups, logger)
	users := seedUsers(ctx, svcs, logger)
	labels := seedLabels(ctx, svcs.labels, logger)
	sinks := seedWebhookSinks(ctx, svcs.webhooks, logger)

	logger.Info("development seed complete",
		"groups", groups, "users", users, "labels", labels, "webhook_sinks", sinks)
	return nil
}

type groupSeed struct {
	id          string
	permissions []model.Permission
}

func defaultGroups() []groupSeed {
	return []groupSeed{
		{id: "technicians", permissions: []model.Permission{
			model.PermissionCreateSample,
			model.PermissionUploadFile,
		}},
		{id: "analysts", permissions: []model.Permission{
			model.PermissionCreateSample,
			model.PermissionCreateRef,
			model.PermissionUploadFile,
			model.PermissionCancelJob,
		}},
		{id: "curators", permissions: []model.Permission{
			model.PermissionModifyHMM,
			model.PermissionModifySubtraction,
			model.PermissionRemoveFile,
			model.PermissionRemoveJob,
		}},
	}
}

func seedGroups(ctx context.Context, svc *service.GroupService, logger *slog.Logger) int {
	created := 0
	for _, seed := range defaultGroups() {
		_, err := svc.Create(ctx, model.CreateGroupRequest{ID: seed.id})
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			logger.Warn("seed group", "group", seed.id, "error", err)
			continue
		}

		perms := model.NoPermissions()
		for _, p := range seed.permissions {
			perms[p] = true
		}
		if _, err := svc.Update(ctx, seed.id, model.UpdateGroupRequest{Permissions: perms}); err != nil {
			logger.Warn("seed group permissions", "group", seed.id, "error", err)
			continue
		}
		created++
	}
	return created
}

type userSeed struct {
	handle        string
	password      string
	administrator bool
	groups        []string
	primaryGroup  string
}

func defaultUsers() []userSeed {
	return []userSeed{
		{handle: "admin", password: "seqdepot-dev", administrator: true},
		{
			handle:       "tech",
			password:     "seqdepot-dev",
			groups:       []string{"technicians"},
			primaryGroup: "technicians",
		},
		{
			handle:       "analyst",
			password:     "seqdepot-dev",
			groups:       []string{"technicians", "analysts"},
			primaryGroup: "analysts",
		},
	}
}

func seedUsers(ctx context.Context, svcs Services, logger *slog.Logger) int {
	created := 0
	for _, seed := range defaultUsers() {
		if err := createUser(ctx, svcs.users, seed); err != nil {
			if !apperrors.IsConflict(err) {
				logger.Warn("seed user", "handle", seed.handle, "error", err)
			}
			continue
		}
		created++
	}
	return created
}

func createUser(ctx context.Context, svc *service.UserService, seed userSeed) error {
	noReset := false
	user, err := svc.Create(ctx, model.CreateUserRequest{
		Handle:     seed.handle,
		Password:   seed.password,
		ForceReset: &noReset,
	})
	if err != nil {
		return err
	}

	update := model.UpdateUserRequest{}
	if seed.administrator {
		update.Administrator = &seed.administrator
	}
	if len(seed.groups) > 0 {
		update.Groups = &seed.groups
	}
	if seed.primaryGroup != "" {
		update.PrimaryGroup = &seed.primaryGroup
	}
	if update.IsZero() {
		return nil
	}
	if _, err := svc.Update(ctx, user.ID, update); err != nil {
		return fmt.Errorf("apply seed roles: %w", err)
	}
	return nil
}

func defaultLabels() []model.CreateLabelRequest {
	return []model.CreateLabelRequest{
		{Name: "clinical", Color: "#0B7285", Description: "Samples from clinical submissions"},
		{Name: "environmental", Color: "#2B8A3E", Description: "Field and environmental isolates"},
		{Name: "qc-failed", Color: "#C92A2A", Description: "Held back by quality control"},
	}
}

func seedLabels(ctx context.Context, svc *service.LabelService, logger *slog.Logger) int {
	created := 0
	for _, req := range defaultLabels() {
		_, err := svc.Create(ctx, req)
		if apperrors.IsConflict(err) {
			continue
		}
		if err != nil {
			logger.Warn("seed label", "label", req.Name, "error", err)
			continue
		}
		created++
	}
	return created
}

func defaultWebhookSinks() []*model.CreateWebhookSinkRequest {
	filter := "state == 'failed'"
	return []*model.CreateWebhookSinkRequest{
		{
			Name:   "local failed-job log",
			URI:    "http://localhost:9090/hooks/jobs",
			Method: "POST",
			Filter: &filter,
		},
	}
}

func seedWebhookSinks(ctx context.Context, svc *service.WebhookService, logger *slog.Logger) int {
	created := 0
	existing, err := svc.List(ctx)
	if err != nil {
		logger.Warn("seed webhook sinks", "error", err)
		return 0
	}
	byName := make(map[string]bool, len(existing))
	for _, sink := range existing {
		byName[sink.Name] = true
	}

	for _, req := range defaultWebhookSinks() {
		if byName[req.Name] {
			continue
		}
		if _, err := svc.Create(ctx, req); err != nil {
			logger.Warn("seed webhook sink", "sink", req.Name, "error", err)
			continue
		}
		created++
	}
	return created
}
