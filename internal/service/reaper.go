package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrovia/farmdesk/config"
	obserrors "github.com/agrovia/farmdesk/internal/observability/errors"
	"github.com/agrovia/farmdesk/internal/observability/metrics"
	"github.com/agrovia/farmdesk/internal/observability/notify"
	"github.com/agrovia/farmdesk/internal/observability/statsd"
	"github.com/agrovia/farmdesk/internal/service/incidentnotifier"
)

// SelectionReaperRepository purges persisted farm-selection pointers older
// than maxAge. Implemented over the Redis selection keyspace.
type SelectionReaperRepository interface {
	PurgeStaleSelections(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo     SelectionReaperRepository // Required: selection reaper repository
	Config   config.ReaperConfig       // Required: reaper configuration
	Logger   *slog.Logger              // Optional: structured logger
	Metrics  statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	Notifier *incidentnotifier.Service // Optional: incident notification fan-out
}

// ReaperService periodically removes stale current-farm pointers. Readers
// already ignore pointers past the freshness window; the reaper keeps the
// keyspace from accumulating them indefinitely.
type ReaperService struct {
	repo     SelectionReaperRepository
	config   config.ReaperConfig
	logger   *slog.Logger
	metrics  statsd.Sink
	notifier *incidentnotifier.Service
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("SelectionReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"selection_max_age", opts.Config.SelectionMaxAge,
		)
	}

	return &ReaperService{
		repo:     opts.Repo,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run cleanup immediately after jitter
	if err := s.runCleanup(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runLoop runs the cleanup loop until context is cancelled.
func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runCleanup(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
				// Continue running despite errors
			}
		}
	}
}

// runCleanup purges stale selections in batches until a pass removes nothing.
func (s *ReaperService) runCleanup(ctx context.Context) error {
	start := time.Now()

	var totalCount int64
	var cleanupErr error
	for {
		count, err := s.repo.PurgeStaleSelections(ctx, s.config.SelectionMaxAge, s.config.BatchSize)
		if err != nil {
			cleanupErr = err
			break
		}
		totalCount += count
		if count == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			cleanupErr = ctx.Err()
			break
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "purged stale farm selections",
			"count", totalCount,
			"max_age", s.config.SelectionMaxAge,
		)
	}

	s.emitCleanupMetrics(totalCount, cleanupErr, time.Since(start))

	if cleanupErr != nil {
		if isContextCancellation(cleanupErr) {
			return context.Canceled
		}
		s.notifyCleanupFailure(ctx, cleanupErr)
		return fmt.Errorf("cleanup failed: %w", cleanupErr)
	}
	return nil
}

func (s *ReaperService) notifyCleanupFailure(ctx context.Context, err error) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}

	s.notifier.NotifyIncident(ctx, notify.IncidentPayload{
		Component:  "selection_reaper",
		Operation:  "cleanup",
		Error:      err.Error(),
		ErrorClass: obserrors.Classify(err),
		Severity:   notify.SeverityWarning,
		OccurredAt: time.Now(),
		Detail: map[string]any{
			"max_age":    s.config.SelectionMaxAge.String(),
			"batch_size": s.config.BatchSize,
		},
	})
}

func (s *ReaperService) emitCleanupMetrics(count int64, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)

	if elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil && count > 0 {
		s.metrics.Count("reaper.selections_purged", count, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
