// Package bootstrap wires configuration, storage, and services into runnable
// application modes.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/seqdepot/seqdepot/config"
	"github.com/seqdepot/seqdepot/internal/adapters/filestore"
	reaperadapter "github.com/seqdepot/seqdepot/internal/adapters/reaper"
	redisadapter "github.com/seqdepot/seqdepot/internal/adapters/redis"
	"github.com/seqdepot/seqdepot/internal/data"
	"github.com/seqdepot/seqdepot/internal/observability/statsd"
	"github.com/seqdepot/seqdepot/internal/service"
)

// ServiceContainer holds all constructed application services.
type ServiceContainer struct {
	Users    *service.UserService
	Groups   *service.GroupService
	Auth     *service.AuthService
	Keys     *service.KeyService
	Uploads  *service.UploadService
	Caches   *service.CacheService
	Jobs     *service.JobService
	Labels   *service.LabelService
	Webhooks *service.WebhookService

	Observability ObservabilityContainer
}

// ObservabilityContainer holds metrics emitters shared by the services.
type ObservabilityContainer struct {
	Metrics *statsd.Client
}

// ServiceDeps groups the external dependencies needed to build services.
type ServiceDeps struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// buildObservability constructs the metrics client from configuration.
// A disabled or unreachable sink degrades to a no-op client.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	client, err := statsd.NewClient(statsd.Config{
		Enabled:    cfg.Metrics.IsEnabled(),
		Address:    cfg.Metrics.StatsdAddress,
		Prefix:     cfg.Metrics.Prefix,
		GlobalTags: cfg.Metrics.GlobalTags(),
		Logger:     logger,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("statsd client unavailable, metrics disabled", "error", err)
		}
		client = nil
	}
	return ObservabilityContainer{Metrics: client}
}

// NewServices constructs the full service container.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps and config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, deps.Config.Observability)
	encryptor := CreateEncryptor(deps.Config.EncryptionKey, logger)

	store, err := filestore.NewStore(deps.Config.DataPath)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("init data directory: %w", err)
	}

	tp := &data.RealTimeProvider{}
	userRepo := data.NewUserRepo(deps.DB, tp)
	groupRepo := data.NewGroupRepo(deps.DB, tp)
	keyRepo := data.NewKeyRepo(deps.DB, tp)
	uploadRepo := data.NewUploadRepo(deps.DB, tp)
	cacheRepo := data.NewCacheRepo(deps.DB)
	labelRepo := data.NewLabelRepo(deps.DB, tp)
	sinkRepo := data.NewWebhookSinkRepo(deps.DB, encryptor, tp)
	jobRepo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: logger, TimeProvider: tp})

	webhooks := service.MustNewWebhookService(service.WebhookServiceOptions{
		Repo:   sinkRepo,
		Logger: logger,
	})

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:     jobRepo,
		Webhooks: webhooks,
		Metrics:  observability.Metrics,
		Logger:   logger,
	})

	userAuth, err := buildUserAndAuthServices(deps, userRepo, groupRepo, keyRepo, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Users: userAuth.users,
		Auth:  userAuth.auth,
		Groups: service.MustNewGroupService(service.GroupServiceOptions{
			Repo:       groupRepo,
			Users:      userRepo,
			Propagator: userAuth.users,
			Logger:     logger,
		}),
		Keys: service.MustNewKeyService(service.KeyServiceOptions{
			Repo:   keyRepo,
			Logger: logger,
		}),
		Uploads: service.MustNewUploadService(service.UploadServiceOptions{
			Repo:    uploadRepo,
			Files:   store,
			Metrics: observability.Metrics,
			Logger:  logger,
		}),
		Caches: service.MustNewCacheService(service.CacheServiceOptions{
			Repo:   cacheRepo,
			Dirs:   store,
			Logger: logger,
		}),
		Jobs: jobs,
		Labels: service.MustNewLabelService(service.LabelServiceOptions{
			Repo:   labelRepo,
			Logger: logger,
		}),
		Webhooks:      webhooks,
		Observability: observability,
	}, nil
}

type userAuthBundle struct {
	users *service.UserService
	auth  *service.AuthService
}

// buildUserAndAuthServices wires the user service and the auth service,
// which share the session store for authorization fan-out.
func buildUserAndAuthServices(
	deps *ServiceDeps,
	userRepo *data.UserRepo,
	groupRepo *data.GroupRepo,
	keyRepo *data.KeyRepo,
	logger *slog.Logger,
) (userAuthBundle, error) {
	if deps.Redis == nil {
		return userAuthBundle{}, errors.New("redis client is required for the session store")
	}

	authCfg := AuthConfig{
		Auth:        deps.Config.Auth,
		RedisClient: deps.Redis,
		Logger:      logger,
	}

	provider, err := buildAuthProvider(authCfg)
	if err != nil {
		return userAuthBundle{}, err
	}

	sessions := redisadapter.NewSessionStore(deps.Redis)
	users := service.MustNewUserService(service.UserServiceOptions{
		Users:    userRepo,
		Groups:   groupRepo,
		Keys:     keyRepo,
		Sessions: sessions,
		Logger:   logger,
	})

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Users:           users,
		Sessions:        sessions,
		Provider:        provider,
		SessionDuration: deps.Config.Auth.SessionDuration,
		Logger:          logger,
	})
	if err != nil {
		return userAuthBundle{}, fmt.Errorf("build auth service: %w", err)
	}

	return userAuthBundle{users: users, auth: auth}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started",
		"service", descriptor.name, "mode", descriptor.mode)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}

			store, err := filestore.NewStore(deps.cfg.Config.DataPath)
			if err != nil {
				return fmt.Errorf("init data directory: %w", err)
			}

			runner, err := reaperadapter.NewRunner(reaperadapter.RunnerOptions{
				DB:      deps.cfg.DB,
				Config:  deps.cfg.Config.Reaper,
				Files:   store,
				Metrics: deps.cfg.Services.Observability.Metrics,
				Logger:  deps.logger,
			})
			if err != nil {
				return err
			}

			err = runner.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	return []backgroundService{
		newReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the outcome of starting all enabled services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
