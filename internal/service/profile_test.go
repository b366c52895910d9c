package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovia/farmdesk/internal/data"
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// fakeUserRepo is a hand-rolled double for core.UserRepository.
type fakeUserRepo struct {
	getByIDFunc    func(ctx context.Context, id string) (*model.UserProfile, error)
	getByEmailFunc func(ctx context.Context, email string) (*model.UserProfile, error)
	getByIDCalls   int
}

func (f *fakeUserRepo) Create(_ context.Context, _ *model.CreateUserRequest) (*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	f.getByIDCalls++
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, data.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	if f.getByEmailFunc != nil {
		return f.getByEmailFunc(ctx, email)
	}
	return nil, data.ErrUserNotFound
}

func (f *fakeUserRepo) ListWithOptions(_ context.Context, _ model.UsersListOptions) ([]*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) Update(_ context.Context, _ string, _ model.UpdateUserRequest) (*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) CredentialHash(_ context.Context, _ string) (string, []byte, error) {
	return "", nil, errors.New("not implemented")
}

func (f *fakeUserRepo) SoftDelete(_ context.Context, _ string) (bool, error) {
	return false, errors.New("not implemented")
}

// memoryScratchStore is an in-memory ports.ScratchStore. TTLs are recorded
// but not enforced; tests drive expiry through session lifetimes instead.
type memoryScratchStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryScratchStore() *memoryScratchStore {
	return &memoryScratchStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *memoryScratchStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memoryScratchStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryScratchStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	delete(s.ttls, key)
	return ok, nil
}

func profileSession() domainauth.Session {
	return domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		FirstName: "Maria",
		LastName:  "Vega",
		Email:     "maria@example.com",
		Role:      domainauth.RoleFarmOwner,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func storedProfile() *model.UserProfile {
	return &model.UserProfile{
		ID:        "user-1",
		Email:     "maria@example.com",
		FirstName: "Maria",
		LastName:  "Vega",
		Role:      domainauth.RoleFarmOwner,
		IsActive:  true,
	}
}

func TestGetCurrentUser_FetchesAndCaches(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	profile, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Maria", profile.FirstName)
	assert.Equal(t, 1, repo.getByIDCalls)

	// Second call hits the cache.
	profile, err = svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 1, repo.getByIDCalls)
}

func TestGetCurrentUser_MissingRowSynthesizesFallback(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: newMemoryScratchStore()})

	sess := profileSession()
	sess.FirstName = ""
	sess.LastName = ""

	profile, err := svc.GetCurrentUser(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, profile)
	// First name falls back to the email local-part; role to the lowest tier.
	assert.Equal(t, "maria", profile.FirstName)
	assert.Equal(t, domainauth.RoleCollaborator, profile.Role)
	assert.True(t, profile.IsActive)
}

func TestGetCurrentUser_LookupFailureSynthesizesFallback(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: newMemoryScratchStore()})

	profile, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Maria", profile.FirstName)
	assert.Equal(t, domainauth.RoleCollaborator, profile.Role)
}

func TestGetCurrentUser_AnonymousSessionYieldsNil(t *testing.T) {
	svc := NewUserProfileService(UserProfileServiceOptions{
		Users:   &fakeUserRepo{},
		Scratch: newMemoryScratchStore(),
	})

	profile, err := svc.GetCurrentUser(context.Background(), domainauth.Session{ID: "sess-1"})
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestGetCurrentUser_InvalidCacheEntryIsDiscarded(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	// Entry decodes but fails schema validation (no email, no first name).
	require.NoError(t, scratch.Set(context.Background(), "profile:sess-1", []byte(`{"id":"user-1"}`), time.Hour))

	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	profile, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "maria@example.com", profile.Email)
	assert.Equal(t, 1, repo.getByIDCalls)
}

func TestGetCurrentUser_CorruptCacheEntryIsDiscarded(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	require.NoError(t, scratch.Set(context.Background(), "profile:sess-1", []byte(`{not json`), time.Hour))

	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	profile, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 1, repo.getByIDCalls)

	// The bad entry was replaced by the fresh profile.
	raw, err := scratch.Get(context.Background(), "profile:sess-1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "maria@example.com")
}

func TestGetCurrentUser_ExpiredSessionIsNotCached(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	sess := profileSession()
	sess.ExpiresAt = time.Now().Add(-time.Minute)

	profile, err := svc.GetCurrentUser(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, profile)

	raw, err := scratch.Get(context.Background(), "profile:sess-1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRefresh_InvalidatesCache(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	_, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getByIDCalls)

	_, err = svc.Refresh(context.Background(), profileSession())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getByIDCalls)
}

func TestLastKnownEmail_SurvivesWithinSessionLifetime(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	_, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)

	email, ok := svc.LastKnownEmail(context.Background(), "sess-1")
	require.True(t, ok)
	assert.Equal(t, "maria@example.com", email)

	_, ok = svc.LastKnownEmail(context.Background(), "sess-other")
	assert.False(t, ok)
}

func TestLogout_ClearsCache(t *testing.T) {
	repo := &fakeUserRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.UserProfile, error) {
			return storedProfile(), nil
		},
	}
	scratch := newMemoryScratchStore()
	svc := NewUserProfileService(UserProfileServiceOptions{Users: repo, Scratch: scratch})

	_, err := svc.GetCurrentUser(context.Background(), profileSession())
	require.NoError(t, err)

	svc.Logout(context.Background(), "sess-1")

	_, ok := svc.LastKnownEmail(context.Background(), "sess-1")
	assert.False(t, ok)
}

func TestDisplayHelpers_Placeholders(t *testing.T) {
	svc := NewUserProfileService(UserProfileServiceOptions{
		Users:   &fakeUserRepo{},
		Scratch: newMemoryScratchStore(),
	})

	assert.Equal(t, "User", svc.FullName(nil))
	assert.Equal(t, "User", svc.FullName(&model.UserProfile{}))
	assert.Equal(t, "Maria Vega", svc.FullName(storedProfile()))

	assert.Equal(t, "Collaborator", svc.RoleDisplayName(nil))
	assert.Equal(t, "Farm Owner", svc.RoleDisplayName(storedProfile()))
	admin := storedProfile()
	admin.Role = domainauth.RoleAdmin
	assert.Equal(t, "Administrator", svc.RoleDisplayName(admin))
}
