package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisadapter "github.com/agrovia/farmdesk/internal/adapters/redis"
)

const defaultPurgeTimeout = 2 * time.Minute

type purgeSelectionsOptions struct {
	MaxAge    time.Duration
	BatchSize int
	Timeout   time.Duration
}

// runPurgeStaleSelections removes persisted current-farm pointers older than
// the configured age. The reaper service does this continuously; the command
// exists for one-off cleanup and for deployments that do not run the reaper.
func runPurgeStaleSelections(cmdCtx *commandContext, args []string) error {
	opts, err := parsePurgeSelectionsFlags(cmdCtx, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	redisClient, err := maybeConnectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			return errors.New("redis is not configured; set REDIS_URI")
		}
		return err
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	selections := redisadapter.NewSelectionStore(redisClient, cmdCtx.Logger)

	var total int64
	for {
		deleted, purgeErr := selections.PurgeStaleSelections(ctx, opts.MaxAge, opts.BatchSize)
		if purgeErr != nil {
			return fmt.Errorf("purge stale selections: %w", purgeErr)
		}
		total += deleted
		if deleted == 0 {
			break
		}
	}

	cmdCtx.Logger.Info("stale selection purge completed",
		"deleted", total,
		"max_age", opts.MaxAge,
	)
	return nil
}

func parsePurgeSelectionsFlags(cmdCtx *commandContext, args []string) (purgeSelectionsOptions, error) {
	fs := flag.NewFlagSet("purge-stale-selections", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := purgeSelectionsOptions{
		MaxAge:    cmdCtx.Config.Reaper.SelectionMaxAge,
		BatchSize: cmdCtx.Config.Reaper.BatchSize,
		Timeout:   defaultPurgeTimeout,
	}
	fs.DurationVar(&opts.MaxAge, "max-age", opts.MaxAge, "Delete selections older than this duration")
	fs.IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "Maximum keys to delete per scan pass")
	fs.DurationVar(&opts.Timeout, "timeout", defaultPurgeTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return purgeSelectionsOptions{}, err
	}
	if opts.MaxAge <= 0 {
		return purgeSelectionsOptions{}, errors.New("--max-age must be greater than zero")
	}
	if opts.Timeout <= 0 {
		return purgeSelectionsOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}
