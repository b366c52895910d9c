package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/ports"
)

// fakeAuthProvider is a hand-rolled double for ports.AuthProvider.
type fakeAuthProvider struct {
	beginFunc    func(ctx context.Context, in ports.BeginInput) (string, string, string, error)
	exchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)
}

func (f *fakeAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if f.beginFunc != nil {
		return f.beginFunc(ctx, in)
	}
	return "", "", "", errors.New("not implemented")
}

func (f *fakeAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if f.exchangeFunc != nil {
		return f.exchangeFunc(ctx, in)
	}
	return domainauth.Identity{}, errors.New("not implemented")
}

// fakePasswordAuthenticator is a hand-rolled double for ports.PasswordAuthenticator.
type fakePasswordAuthenticator struct {
	authenticateFunc func(ctx context.Context, email, password string) (domainauth.Identity, error)
}

func (f *fakePasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if f.authenticateFunc != nil {
		return f.authenticateFunc(ctx, email, password)
	}
	return domainauth.Identity{}, errors.New("not implemented")
}

// memorySessionStore is an in-memory ports.SessionStore.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	saveErr  error
	getErr   error
	delErr   error
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (s *memorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	if s.getErr != nil {
		return domainauth.Session{}, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domainauth.Session{}, errors.New("session not found")
	}
	return sess, nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memorySessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// staticRoles maps every group set to a fixed role.
type staticRoles struct{ role domainauth.Role }

func (r staticRoles) Map(_ []string) domainauth.Role { return r.role }

func testIdentity(expiry time.Time) domainauth.Identity {
	return domainauth.Identity{
		UserID:    "user-1",
		Email:     "maria@example.com",
		FirstName: "Maria",
		LastName:  "Vega",
		Groups:    []string{"farm-owners"},
		ExpiresAt: expiry,
	}
}

func TestBeginLogin_ReturnsProviderRedirect(t *testing.T) {
	provider := &fakeAuthProvider{
		beginFunc: func(_ context.Context, in ports.BeginInput) (string, string, string, error) {
			assert.Equal(t, "https://app.example.com/callback", in.RedirectURL)
			return "https://idp.example.com/authorize", "state-1", "nonce-1", nil
		},
	}
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Sessions: newMemorySessionStore(),
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	result, err := svc.BeginLogin(context.Background(), "https://app.example.com/callback")

	require.NoError(t, err)
	assert.Equal(t, "https://idp.example.com/authorize", result.AuthURL)
	assert.Equal(t, "state-1", result.State)
	assert.Equal(t, "nonce-1", result.Nonce)
}

func TestBeginLogin_WithoutProvider(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Sessions: newMemorySessionStore(),
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	_, err := svc.BeginLogin(context.Background(), "https://app.example.com/callback")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestCompleteLogin_PersistsSessionWithMappedRole(t *testing.T) {
	expiry := time.Now().Add(8 * time.Hour)
	provider := &fakeAuthProvider{
		exchangeFunc: func(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
			assert.Equal(t, "code-1", in.Code)
			assert.Equal(t, "state-1", in.State)
			assert.Equal(t, "nonce-1", in.Nonce)
			return testIdentity(expiry), nil
		},
	}
	store := newMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Sessions: store,
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	result, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{
		Code:  "code-1",
		State: "state-1",
		Nonce: "nonce-1",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Session.ID)
	assert.Equal(t, "user-1", result.Session.UserID)
	assert.Equal(t, domainauth.RoleFarmOwner, result.Session.Role)
	assert.Equal(t, expiry, result.Session.ExpiresAt)
	assert.Equal(t, 1, store.len())
}

func TestCompleteLogin_RequiresCodeStateNonce(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Provider: &fakeAuthProvider{},
		Sessions: newMemorySessionStore(),
		Roles:    staticRoles{role: domainauth.RoleCollaborator},
	})

	cases := []struct {
		name  string
		input CompleteLoginInput
	}{
		{name: "missing code", input: CompleteLoginInput{State: "s", Nonce: "n"}},
		{name: "missing state", input: CompleteLoginInput{Code: "c", Nonce: "n"}},
		{name: "missing nonce", input: CompleteLoginInput{Code: "c", State: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CompleteLogin(context.Background(), tc.input)
			require.Error(t, err)
		})
	}
}

func TestLoginWithPassword_EstablishesSession(t *testing.T) {
	expiry := time.Now().Add(8 * time.Hour)
	passwords := &fakePasswordAuthenticator{
		authenticateFunc: func(_ context.Context, email, password string) (domainauth.Identity, error) {
			assert.Equal(t, "maria@example.com", email)
			assert.Equal(t, "correct horse", password)
			return testIdentity(expiry), nil
		},
	}
	store := newMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Passwords: passwords,
		Sessions:  store,
		Roles:     staticRoles{role: domainauth.RoleFarmOwner},
	})

	result, err := svc.LoginWithPassword(context.Background(), "maria@example.com", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", result.Session.Email)
	assert.Equal(t, 1, store.len())
}

func TestLoginWithPassword_WithoutAuthenticator(t *testing.T) {
	svc := NewAuthService(AuthServiceOptions{
		Sessions: newMemorySessionStore(),
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	_, err := svc.LoginWithPassword(context.Background(), "maria@example.com", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestLoginWithPassword_PropagatesAuthFailure(t *testing.T) {
	authErr := errors.New("invalid credentials")
	svc := NewAuthService(AuthServiceOptions{
		Passwords: &fakePasswordAuthenticator{
			authenticateFunc: func(context.Context, string, string) (domainauth.Identity, error) {
				return domainauth.Identity{}, authErr
			},
		},
		Sessions: newMemorySessionStore(),
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	_, err := svc.LoginWithPassword(context.Background(), "maria@example.com", "wrong")
	require.ErrorIs(t, err, authErr)
}

func TestRenewSession_IssuesFreshSession(t *testing.T) {
	expiry := time.Now().Add(8 * time.Hour)
	store := newMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Passwords: &fakePasswordAuthenticator{
			authenticateFunc: func(context.Context, string, string) (domainauth.Identity, error) {
				return testIdentity(expiry), nil
			},
		},
		Sessions: store,
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	first, err := svc.LoginWithPassword(context.Background(), "maria@example.com", "pw")
	require.NoError(t, err)

	renewed, err := svc.RenewSession(context.Background(), "maria@example.com", "pw")
	require.NoError(t, err)

	assert.NotEqual(t, first.Session.ID, renewed.Session.ID)
	assert.Equal(t, first.Session.UserID, renewed.Session.UserID)
}

func TestGetSession_ExpiredSessionIsDeleted(t *testing.T) {
	store := newMemorySessionStore()
	expired := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Email:     "maria@example.com",
		Role:      domainauth.RoleFarmOwner,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Save(context.Background(), expired))

	svc := NewAuthService(AuthServiceOptions{
		Sessions: store,
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	_, err := svc.GetSession(context.Background(), "sess-1")

	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, store.len())
}

func TestGetSession_ValidSession(t *testing.T) {
	store := newMemorySessionStore()
	sess := domainauth.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Email:     "maria@example.com",
		Role:      domainauth.RoleFarmOwner,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(context.Background(), sess))

	svc := NewAuthService(AuthServiceOptions{
		Sessions: store,
		Roles:    staticRoles{role: domainauth.RoleFarmOwner},
	})

	got, err := svc.GetSession(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
}

func TestLogout_RemovesSession(t *testing.T) {
	store := newMemorySessionStore()
	require.NoError(t, store.Save(context.Background(), domainauth.Session{
		ID:        "sess-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	svc := NewAuthService(AuthServiceOptions{
		Sessions: store,
		Roles:    staticRoles{role: domainauth.RoleCollaborator},
	})

	require.NoError(t, svc.Logout(context.Background(), "sess-1"))
	assert.Zero(t, store.len())

	// Logging out an empty session ID is a no-op, not an error.
	require.NoError(t, svc.Logout(context.Background(), ""))
}
