// Package reaper provides an adapter to run the stale-selection reaper loop.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agrovia/farmdesk/config"
	redisadapter "github.com/agrovia/farmdesk/internal/adapters/redis"
	"github.com/agrovia/farmdesk/internal/observability/statsd"
	"github.com/agrovia/farmdesk/internal/service"
	"github.com/agrovia/farmdesk/internal/service/incidentnotifier"
)

// Runner constructs the reaper service over the Redis selection keyspace and
// runs its cleanup loop.
type Runner struct {
	reaper  *service.ReaperService
	logger  *slog.Logger
	metrics statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Redis  goredis.UniversalClient
	Config config.ReaperConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo     service.SelectionReaperRepository
	Metrics  statsd.Sink
	Notifier *incidentnotifier.Service
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	repo := opts.Repo
	if repo == nil {
		repo = redisadapter.NewSelectionStore(opts.Redis, opts.Logger)
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:     repo,
		Config:   opts.Config,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Notifier: opts.Notifier,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{
		reaper:  reaper,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Redis == nil && opts.Repo == nil {
		return errors.New("redis client is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
