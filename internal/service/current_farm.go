package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
	"github.com/agrovia/farmdesk/internal/ports"
)

// CurrentFarmServiceOptions groups dependencies for CurrentFarmService.
type CurrentFarmServiceOptions struct {
	Farms      core.FarmRepository
	Selections ports.SelectionStore
	Time       timeNow
	Logger     *slog.Logger
}

// timeNow abstracts the clock for freshness decisions.
type timeNow interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// CurrentFarmService holds, per user, the working list of farms and which
// one is current. The list is explicit state with its own lifecycle: loads
// replace it, mutations keep it consistent with the stored rows, and the
// current pointer is persisted durably so it survives sessions. Reads hand
// out snapshots, never live references.
type CurrentFarmService struct {
	farms      core.FarmRepository
	selections ports.SelectionStore
	clock      timeNow
	logger     *slog.Logger

	mu    sync.Mutex // guards the users map only
	users map[string]*userFarmState
}

// userFarmState is the per-user slice of selector state. Each user carries
// its own lock so slow selection-store calls for one user never stall
// another user's selector.
type userFarmState struct {
	mu      sync.Mutex
	farms   []*model.Farm
	current *model.Farm
	lastErr string

	loading  bool
	fetchSeq uint64 // highest sequence handed out
	applied  uint64 // sequence of the last applied completion
}

// FarmSnapshot is what readers get: copies of the list and pointer plus the
// last load error, if any.
type FarmSnapshot struct {
	Farms       []*model.Farm
	CurrentFarm *model.Farm
	Loading     bool
	LastError   string
}

// NewCurrentFarmService constructs a new CurrentFarmService.
func NewCurrentFarmService(opts CurrentFarmServiceOptions) *CurrentFarmService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Time
	if clock == nil {
		clock = realClock{}
	}
	return &CurrentFarmService{
		farms:      opts.Farms,
		selections: opts.Selections,
		clock:      clock,
		logger:     logger.With("component", "current_farm"),
		users:      make(map[string]*userFarmState),
	}
}

// LoadFarms fetches the user's farms and replaces the working list. A call
// while a load is already in flight is a no-op. Completions carry a sequence
// number; a completion older than one already applied is discarded, so a
// slow fetch can never clobber a fresher list. On success the first farm is
// auto-selected when nothing valid is selected; on failure the prior list
// stays and only the error message changes.
func (s *CurrentFarmService) LoadFarms(ctx context.Context, userID string) (FarmSnapshot, error) {
	st := s.state(userID)

	st.mu.Lock()
	if st.loading {
		snap := snapshotLocked(st)
		st.mu.Unlock()
		return snap, nil
	}
	st.loading = true
	st.fetchSeq++
	seq := st.fetchSeq
	st.mu.Unlock()

	farms, fetchErr := s.farms.ListByOwner(ctx, userID)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.loading = false

	if seq < st.applied {
		// A newer completion already landed; discard this one.
		return snapshotLocked(st), nil
	}
	st.applied = seq

	if fetchErr != nil {
		st.lastErr = "could not load farms"
		s.logger.WarnContext(ctx, "farm list load failed", "user_id", userID, "err", fetchErr)
		return snapshotLocked(st), fetchErr
	}

	st.farms = farms
	st.lastErr = ""
	s.reconcileSelectionLocked(ctx, userID, st)
	return snapshotLocked(st), nil
}

// Snapshot returns the current selector state for a user.
func (s *CurrentFarmService) Snapshot(userID string) FarmSnapshot {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshotLocked(st)
}

// SetCurrentFarm makes the given farm current and persists the pointer.
func (s *CurrentFarmService) SetCurrentFarm(ctx context.Context, userID string, farm *model.Farm) {
	if farm == nil {
		return
	}
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = farm
	s.persistSelectionLocked(ctx, userID, farm)
}

// SetCurrentFarmByID selects the farm with the given id from the working
// list. An id not in the list is a warn-level no-op, not an error.
func (s *CurrentFarmService) SetCurrentFarmByID(ctx context.Context, userID, farmID string) {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, f := range st.farms {
		if f.ID == farmID {
			st.current = f
			s.persistSelectionLocked(ctx, userID, f)
			return
		}
	}
	s.logger.WarnContext(ctx, "farm not in working list, selection unchanged",
		"user_id", userID, "farm_id", farmID)
}

// CurrentFarmID returns the selected farm's id. Farm-scoped operations call
// this as a hard precondition; no selection is an error, never a fallback.
func (s *CurrentFarmService) CurrentFarmID(userID string) (string, error) {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == nil {
		return "", apperrors.Precondition("no farm selected")
	}
	return st.current.ID, nil
}

// AddFarmToList inserts a farm at the head of the working list. Adding an id
// already present updates that entry in place instead of duplicating it. When
// nothing is selected yet, the new farm becomes current.
func (s *CurrentFarmService) AddFarmToList(ctx context.Context, userID string, farm *model.Farm) {
	if farm == nil {
		return
	}
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, f := range st.farms {
		if f.ID == farm.ID {
			st.farms[i] = farm
			s.refreshCurrentLocked(ctx, userID, st, farm)
			return
		}
	}
	st.farms = append([]*model.Farm{farm}, st.farms...)
	if st.current == nil {
		st.current = farm
		s.persistSelectionLocked(ctx, userID, farm)
	}
}

// UpdateFarmInList replaces the entry with the farm's id, if present.
func (s *CurrentFarmService) UpdateFarmInList(ctx context.Context, userID string, farm *model.Farm) {
	if farm == nil {
		return
	}
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, f := range st.farms {
		if f.ID == farm.ID {
			st.farms[i] = farm
			s.refreshCurrentLocked(ctx, userID, st, farm)
			return
		}
	}
}

// RemoveFarmFromList drops the farm from the working list. When the removed
// farm was current, selection cascades to the new first element, or clears
// when the list is empty.
func (s *CurrentFarmService) RemoveFarmFromList(ctx context.Context, userID, farmID string) {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	idx := -1
	for i, f := range st.farms {
		if f.ID == farmID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	st.farms = append(st.farms[:idx], st.farms[idx+1:]...)

	if st.current == nil || st.current.ID != farmID {
		return
	}
	if len(st.farms) > 0 {
		st.current = st.farms[0]
		s.persistSelectionLocked(ctx, userID, st.current)
		return
	}
	st.current = nil
	if err := s.selections.Clear(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear farm selection", "err", err)
	}
}

// Clear drops all in-memory selector state for a user. The persisted pointer
// is left alone so the next sign-in can restore it.
func (s *CurrentFarmService) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// state returns the per-user state, creating it on first touch.
func (s *CurrentFarmService) state(userID string) *userFarmState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok {
		st = &userFarmState{}
		s.users[userID] = st
	}
	return st
}

// snapshotLocked copies out the state. Callers hold st.mu.
func snapshotLocked(st *userFarmState) FarmSnapshot {
	farms := make([]*model.Farm, len(st.farms))
	copy(farms, st.farms)
	return FarmSnapshot{
		Farms:       farms,
		CurrentFarm: st.current,
		Loading:     st.loading,
		LastError:   st.lastErr,
	}
}

// reconcileSelectionLocked restores or repairs the current pointer after a
// successful load: a persisted pointer counts only when it is at most seven
// days old and its farm is in the loaded list; otherwise the first farm is
// selected. An empty list clears the selection. Callers hold st.mu.
func (s *CurrentFarmService) reconcileSelectionLocked(ctx context.Context, userID string, st *userFarmState) {
	// A still-valid in-memory selection survives the reload.
	if st.current != nil {
		for _, f := range st.farms {
			if f.ID == st.current.ID {
				st.current = f
				return
			}
		}
		st.current = nil
	}

	if len(st.farms) == 0 {
		return
	}

	if sel, ok := s.loadPersistedSelection(ctx, userID); ok {
		for _, f := range st.farms {
			if f.ID == sel.FarmID {
				st.current = f
				return
			}
		}
	}

	st.current = st.farms[0]
	s.persistSelectionLocked(ctx, userID, st.current)
}

// loadPersistedSelection reads the durable pointer, enforcing the freshness
// window. Stale pointers are dropped at the source.
func (s *CurrentFarmService) loadPersistedSelection(ctx context.Context, userID string) (model.FarmSelection, bool) {
	sel, ok, err := s.selections.Load(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load farm selection", "err", err)
		return model.FarmSelection{}, false
	}
	if !ok {
		return model.FarmSelection{}, false
	}
	if !sel.Fresh(s.clock.Now()) {
		if clearErr := s.selections.Clear(ctx, userID); clearErr != nil {
			s.logger.WarnContext(ctx, "failed to clear stale farm selection", "err", clearErr)
		}
		return model.FarmSelection{}, false
	}
	return sel, true
}

// persistSelectionLocked writes the durable pointer. Callers hold the user's
// st.mu, which keeps writes for one user ordered; other users are unaffected.
func (s *CurrentFarmService) persistSelectionLocked(ctx context.Context, userID string, farm *model.Farm) {
	sel := model.FarmSelection{
		FarmID:    farm.ID,
		FarmName:  farm.Name,
		Timestamp: s.clock.Now().UTC(),
	}
	if err := s.selections.Save(ctx, userID, sel); err != nil {
		// In-memory selection still works for this process lifetime.
		s.logger.WarnContext(ctx, "failed to persist farm selection", "err", err)
	}
}

// refreshCurrentLocked re-points the current farm at the updated entry when
// the update touched it. Callers hold st.mu.
func (s *CurrentFarmService) refreshCurrentLocked(ctx context.Context, userID string, st *userFarmState, farm *model.Farm) {
	if st.current != nil && st.current.ID == farm.ID {
		st.current = farm
		s.persistSelectionLocked(ctx, userID, farm)
	}
}
