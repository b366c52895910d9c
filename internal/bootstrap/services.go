package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/agrovia/farmdesk/config"
	"github.com/agrovia/farmdesk/internal/adapters/broadcast"
	"github.com/agrovia/farmdesk/internal/adapters/reaper"
	redisadapter "github.com/agrovia/farmdesk/internal/adapters/redis"
	"github.com/agrovia/farmdesk/internal/data"
	"github.com/agrovia/farmdesk/internal/observability/notify/webhook"
	"github.com/agrovia/farmdesk/internal/observability/statsd"
	"github.com/agrovia/farmdesk/internal/service"
	"github.com/agrovia/farmdesk/internal/service/incidentnotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth          *service.AuthService
	Profiles      *service.UserProfileService
	Guard         *service.SessionGuard
	Selector      *service.CurrentFarmService
	Farms         *service.FarmService
	Plots         *service.PlotService
	Collaborators *service.CollaboratorService
	Activities    *service.ActivityService
	Harvests      *service.HarvestService
	Settings      *service.SettingService
	Users         *service.UserService
	Expiry        *broadcast.ExpiryBroadcaster
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    *statsd.Client
	MetricsConfig  config.ObservabilityMetricsConfig
	Notifier       *incidentnotifier.Service
	NotifierConfig config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB            *sql.DB
	Redis         redis.UniversalClient
	FarmRepo      *data.FarmRepo
	PlotRepo      *data.PlotRepo
	Collaborators *data.CollaboratorRepo
	Activities    *data.ActivityRepo
	Harvests      *data.HarvestRepo
	Settings      *data.SettingRepo
	Users         *data.UserRepo
	Selections    *redisadapter.SelectionStore
	Scratch       *redisadapter.ScratchStore
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "farmdesk",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	notifier := buildIncidentNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		Notifier:       notifier,
		NotifierConfig: cfg.Notifications,
	}
}

func buildIncidentNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *incidentnotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return incidentnotifier.NewService(incidentnotifier.Options{
			Logger: baseLogger.With("component", "incident_notifier"),
		})
	}

	sinks := make([]incidentnotifier.SinkRegistration, 0, 1)

	if cfg.Webhook.Enabled {
		client, err := webhook.NewClient(webhook.Config{
			URL:              cfg.Webhook.URL,
			Channel:          cfg.Webhook.Channel,
			Username:         cfg.Webhook.Username,
			DetailExpression: cfg.Webhook.DetailExpression,
			Timeout:          cfg.Timeout,
			RetryLimit:       cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise webhook notifier", "error", err)
		} else {
			sinks = append(sinks, incidentnotifier.SinkRegistration{
				Name: "webhook",
				Sink: client,
			})
		}
	}

	return incidentnotifier.NewService(incidentnotifier.Options{
		Logger: baseLogger.With("component", "incident_notifier"),
		Sinks:  sinks,
	})
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		DB:            db,
		Redis:         redisClient,
		FarmRepo:      data.NewFarmRepo(db),
		PlotRepo:      data.NewPlotRepo(db),
		Collaborators: data.NewCollaboratorRepo(db),
		Activities:    data.NewActivityRepo(db),
		Harvests:      data.NewHarvestRepo(db),
		Settings:      data.NewSettingRepo(db),
		Users:         data.NewUserRepo(db),
	}
	if redisClient != nil {
		repos.Selections = redisadapter.NewSelectionStore(redisClient, logger)
		repos.Scratch = redisadapter.NewScratchStore(redisClient)
	}
	return repos
}

// DomainServicesOptions groups inputs for buildDomainServices.
type DomainServicesOptions struct {
	Repos         *serviceRepositories
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Logger        *slog.Logger
}

// buildDomainServices wires business services using repositories and observability adapters.
func buildDomainServices(opts *DomainServicesOptions) ServiceContainer {
	if opts == nil {
		return ServiceContainer{}
	}
	svcLogger := opts.Logger
	if svcLogger == nil {
		svcLogger = slog.Default()
	}

	appCfg := opts.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	selector := service.NewCurrentFarmService(service.CurrentFarmServiceOptions{
		Farms:      opts.Repos.FarmRepo,
		Selections: opts.Repos.Selections,
		Logger:     svcLogger,
	})

	authService := BuildAuthService(AuthConfig{
		Auth:        appCfg.Auth,
		RedisClient: opts.Repos.Redis,
		Users:       opts.Repos.Users,
		Logger:      svcLogger,
	})

	profiles := service.NewUserProfileService(service.UserProfileServiceOptions{
		Users:   opts.Repos.Users,
		Scratch: opts.Repos.Scratch,
		Logger:  svcLogger,
	})

	// One broadcaster feeds both sides of the lock flow: the HTTP middleware
	// publishes expiry events, the guard consumes them.
	expiry := broadcast.NewExpiryBroadcaster()

	guard := service.NewSessionGuard(service.SessionGuardOptions{
		Source:   expiry,
		Scratch:  opts.Repos.Scratch,
		Profiles: profiles,
		Auth:     authService,
		Logger:   svcLogger,
	})

	return ServiceContainer{
		Auth:     authService,
		Profiles: profiles,
		Guard:    guard,
		Selector: selector,
		Farms: service.NewFarmService(service.FarmServiceOptions{
			Farms:    opts.Repos.FarmRepo,
			Selector: selector,
			Logger:   svcLogger,
		}),
		Plots: service.NewPlotService(service.PlotServiceOptions{
			Plots:    opts.Repos.PlotRepo,
			Selector: selector,
		}),
		Collaborators: service.NewCollaboratorService(service.CollaboratorServiceOptions{
			Collaborators: opts.Repos.Collaborators,
			Selector:      selector,
		}),
		Activities: service.NewActivityService(service.ActivityServiceOptions{
			Activities: opts.Repos.Activities,
			Selector:   selector,
		}),
		Harvests: service.NewHarvestService(service.HarvestServiceOptions{
			Harvests: opts.Repos.Harvests,
			Selector: selector,
		}),
		Settings: service.NewSettingService(service.SettingServiceOptions{
			Settings: opts.Repos.Settings,
			Selector: selector,
		}),
		Users: service.NewUserService(service.UserServiceOptions{
			Users: opts.Repos.Users,
		}),
		Expiry:        expiry,
		Observability: opts.Observability,
	}
}

// NewServices builds the full service container from raw dependencies.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var obsCfg config.ObservabilityConfig
	if deps.Config != nil {
		obsCfg = deps.Config.Observability
	}
	observability := buildObservability(logger, obsCfg)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)
	return buildDomainServices(&DomainServicesOptions{
		Repos:         repos,
		Observability: observability,
		Config:        deps.Config,
		Logger:        logger,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service
// fails; background services run under one errgroup so the first failure
// cancels the rest.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	var httpServer *http.Server
	if enabledServices[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	if enabledServices[config.ServiceModeExpiryWatcher] {
		guard := cfg.Services.Guard
		group.Go(func() error {
			logger.InfoContext(groupCtx, "background service started", "service", "expiry watcher")
			if runErr := guard.Run(groupCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("expiry watcher failed: %w", runErr)
			}
			return nil
		})
	}

	if enabledServices[config.ServiceModeReaper] {
		runner, runnerErr := reaper.NewRunner(reaper.RunnerOptions{
			Redis:    cfg.RedisClient,
			Config:   cfg.Config.Reaper,
			Logger:   logger,
			Metrics:  cfg.Services.Observability.MetricsSink,
			Notifier: cfg.Services.Observability.Notifier,
		})
		if runnerErr != nil {
			stop()
			return fmt.Errorf("build reaper: %w", runnerErr)
		}
		group.Go(func() error {
			logger.InfoContext(groupCtx, "background service started", "service", "reaper")
			if runErr := runner.Run(groupCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("reaper failed: %w", runErr)
			}
			return nil
		})
	}

	<-groupCtx.Done()
	logger.Info("shutting down services...")

	var shutdownErr error
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		shutdownErr = ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  httpServer,
			Logger:  logger,
		})
		cancel()
	}

	if waitErr := group.Wait(); waitErr != nil {
		return waitErr
	}
	return shutdownErr
}
