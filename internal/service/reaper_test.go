package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovia/farmdesk/config"
)

// fakeReaperRepo is a hand-rolled double for SelectionReaperRepository.
type fakeReaperRepo struct {
	mu        sync.Mutex
	calls     int
	purgeFunc func(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

func (f *fakeReaperRepo) PurgeStaleSelections(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.purgeFunc != nil {
		return f.purgeFunc(ctx, maxAge, batchSize)
	}
	return 0, nil
}

func (f *fakeReaperRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSink captures emitted metrics for assertions.
type recordingSink struct {
	mu     sync.Mutex
	counts map[string]int64
	tags   map[string]map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		counts: make(map[string]int64),
		tags:   make(map[string]map[string]string),
	}
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name] += value
	s.tags[name] = tags
}

func (s *recordingSink) Gauge(name string, _ float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name]++
	s.tags[name] = tags
}

func (s *recordingSink) Timing(name string, _ time.Duration, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name]++
	s.tags[name] = tags
}

func reaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:        time.Hour,
		SelectionMaxAge: 7 * 24 * time.Hour,
		BatchSize:       100,
	}
}

func TestNewReaperService_RequiresRepo(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{Config: reaperConfig()})
	require.Error(t, err)
}

func TestReaperCleanup_DrainsBatchesUntilEmpty(t *testing.T) {
	batches := []int64{5, 3, 0}
	repo := &fakeReaperRepo{}
	repo.purgeFunc = func(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
		assert.Equal(t, 7*24*time.Hour, maxAge)
		assert.Equal(t, 100, batchSize)
		n := batches[0]
		batches = batches[1:]
		return n, nil
	}
	sink := newRecordingSink()

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:    repo,
		Config:  reaperConfig(),
		Metrics: sink,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCleanup(context.Background()))

	assert.Equal(t, 3, repo.callCount())
	assert.Equal(t, int64(8), sink.counts["reaper.selections_purged"])
	assert.Equal(t, "success", sink.tags["reaper.cleanup"]["result"])
}

func TestReaperCleanup_EmptyKeyspaceIsNoop(t *testing.T) {
	repo := &fakeReaperRepo{}
	sink := newRecordingSink()

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:    repo,
		Config:  reaperConfig(),
		Metrics: sink,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCleanup(context.Background()))

	assert.Equal(t, 1, repo.callCount())
	assert.Equal(t, "noop", sink.tags["reaper.cleanup"]["result"])
	assert.Zero(t, sink.counts["reaper.selections_purged"])
}

func TestReaperCleanup_PropagatesRepoError(t *testing.T) {
	repo := &fakeReaperRepo{
		purgeFunc: func(context.Context, time.Duration, int) (int64, error) {
			return 0, errors.New("redis down")
		},
	}
	sink := newRecordingSink()

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:    repo,
		Config:  reaperConfig(),
		Metrics: sink,
	})
	require.NoError(t, err)

	err = svc.runCleanup(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup failed")
	assert.Equal(t, "error", sink.tags["reaper.cleanup"]["result"])
}

func TestReaperCleanup_ContextCancellationIsNotAFailure(t *testing.T) {
	repo := &fakeReaperRepo{
		purgeFunc: func(ctx context.Context, _ time.Duration, _ int) (int64, error) {
			return 0, ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: reaperConfig()})
	require.NoError(t, err)

	err = svc.runCleanup(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReaperRun_StopsOnCancel(t *testing.T) {
	repo := &fakeReaperRepo{}
	cfg := reaperConfig()
	cfg.Interval = 10 * time.Millisecond

	svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Let at least one cleanup pass happen before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case runErr := <-done:
		require.NoError(t, runErr)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, repo.callCount(), 1)
}
