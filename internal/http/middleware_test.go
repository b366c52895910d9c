package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/ports"
	"github.com/agrovia/farmdesk/internal/service"
)

// mockAuthService is a test double for service.AuthService.
type mockAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	passwordLoginFunc func(ctx context.Context, email, password string) (*service.CompleteLoginResult, error)
	getSessionFunc    func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	logoutFunc        func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) BeginLogin(
	ctx context.Context,
	redirectURL string,
) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://example.com/auth?state=test-state&nonce=test-nonce",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{Session: testSession("test-session-id")}, nil
}

func (m *mockAuthService) LoginWithPassword(
	ctx context.Context,
	email, password string,
) (*service.CompleteLoginResult, error) {
	if m.passwordLoginFunc != nil {
		return m.passwordLoginFunc(ctx, email, password)
	}
	return &service.CompleteLoginResult{Session: testSession("test-session-id")}, nil
}

func (m *mockAuthService) GetSession(
	ctx context.Context,
	sessionID string,
) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	s := testSession(sessionID)
	return &s, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func testSession(id string) domainauth.Session {
	return domainauth.Session{
		ID:        id,
		UserID:    "user-1",
		FirstName: "Maria",
		LastName:  "Vega",
		Email:     "maria@example.com",
		Role:      domainauth.RoleFarmOwner,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// mockExpiryPublisher records expiry events for assertions.
type mockExpiryPublisher struct {
	events []ports.SessionExpiryEvent
}

func (m *mockExpiryPublisher) Publish(ev ports.SessionExpiryEvent) {
	m.events = append(m.events, ev)
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	auth := &SessionAuth{Svc: &mockAuthService{}}
	called := false

	req := httptest.NewRequest(http.MethodGet, "/api/farms", nil)
	w := httptest.NewRecorder()

	auth.RequireAuth()(okHandler(&called)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_required")
	assert.False(t, called)
}

func TestRequireAuth_ExpiredSessionPublishesEvent(t *testing.T) {
	publisher := &mockExpiryPublisher{}
	auth := &SessionAuth{
		Svc: &mockAuthService{
			getSessionFunc: func(_ context.Context, _ string) (*domainauth.Session, error) {
				return nil, service.ErrSessionExpired
			},
		},
		Expiry: publisher,
	}
	called := false

	req := httptest.NewRequest(http.MethodGet, "/api/plots?page=2", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-42"})
	req.Header.Set("X-App-Location", "/plots?crop=coffee")
	w := httptest.NewRecorder()

	auth.RequireAuth()(okHandler(&called)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session_expired")
	assert.False(t, called)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "sess-42", publisher.events[0].SessionID)
	assert.Equal(t, "/plots?crop=coffee", publisher.events[0].Location)
	assert.False(t, publisher.events[0].Timestamp.IsZero())
}

func TestRequireAuth_ExpiredSessionLocationFallsBackToRequestURI(t *testing.T) {
	publisher := &mockExpiryPublisher{}
	auth := &SessionAuth{
		Svc: &mockAuthService{
			getSessionFunc: func(_ context.Context, _ string) (*domainauth.Session, error) {
				return nil, service.ErrSessionExpired
			},
		},
		Expiry: publisher,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/harvests?product=beans", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-7"})
	w := httptest.NewRecorder()

	var called bool
	auth.RequireAuth()(okHandler(&called)).ServeHTTP(w, req)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "/api/harvests?product=beans", publisher.events[0].Location)
}

func TestRequireAuth_ProviderPhrasedExpiryPublishesEvent(t *testing.T) {
	// Expiry surfaced with the identity provider's wording rather than the
	// service sentinel still feeds the lock flow.
	providerErrs := []error{
		errors.New("verify credential: oidc: jwt expired"),
		errors.New("refresh grant: invalid token"),
		errors.New("backend says: Not Authenticated"),
	}

	for _, provErr := range providerErrs {
		publisher := &mockExpiryPublisher{}
		auth := &SessionAuth{
			Svc: &mockAuthService{
				getSessionFunc: func(_ context.Context, _ string) (*domainauth.Session, error) {
					return nil, provErr
				},
			},
			Expiry: publisher,
		}

		req := httptest.NewRequest(http.MethodGet, "/api/activities", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-11"})
		w := httptest.NewRecorder()

		var called bool
		auth.RequireAuth()(okHandler(&called)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "error: %v", provErr)
		assert.Contains(t, w.Body.String(), "session_expired", "error: %v", provErr)
		assert.False(t, called)
		require.Len(t, publisher.events, 1, "error: %v", provErr)
		assert.Equal(t, "sess-11", publisher.events[0].SessionID)
	}
}

func TestRequireAuth_InvalidSession(t *testing.T) {
	publisher := &mockExpiryPublisher{}
	auth := &SessionAuth{
		Svc: &mockAuthService{
			getSessionFunc: func(_ context.Context, _ string) (*domainauth.Session, error) {
				return nil, errors.New("get session: not found")
			},
		},
		Expiry: publisher,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/farms", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "bogus"})
	w := httptest.NewRecorder()

	var called bool
	auth.RequireAuth()(okHandler(&called)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_required")
	// Only genuinely expired sessions feed the lock flow.
	assert.Empty(t, publisher.events)
}

func TestRequireAuth_ValidSessionInContext(t *testing.T) {
	auth := &SessionAuth{Svc: &mockAuthService{}}

	var got *domainauth.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/farms", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	auth.RequireAuth()(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, domainauth.RoleFarmOwner, got.Role)
}

func TestRequireRole_Hierarchy(t *testing.T) {
	tests := []struct {
		name       string
		have       domainauth.Role
		want       domainauth.Role
		wantStatus int
	}{
		{"collaborator blocked from manager route", domainauth.RoleCollaborator, domainauth.RoleFarmManager, http.StatusForbidden},
		{"manager allowed on manager route", domainauth.RoleFarmManager, domainauth.RoleFarmManager, http.StatusOK},
		{"owner allowed on manager route", domainauth.RoleFarmOwner, domainauth.RoleFarmManager, http.StatusOK},
		{"owner blocked from admin route", domainauth.RoleFarmOwner, domainauth.RoleAdmin, http.StatusForbidden},
		{"admin allowed everywhere", domainauth.RoleAdmin, domainauth.RoleFarmOwner, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &SessionAuth{
				Svc: &mockAuthService{
					getSessionFunc: func(_ context.Context, id string) (*domainauth.Session, error) {
						s := testSession(id)
						s.Role = tt.have
						return &s, nil
					},
				},
			}

			req := httptest.NewRequest(http.MethodPut, "/api/settings/coffee_price", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
			w := httptest.NewRecorder()

			var called bool
			auth.RequireRole(tt.want)(okHandler(&called)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "insufficient_permissions")
				assert.False(t, called)
			} else {
				assert.True(t, called)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	auth := &SessionAuth{Svc: &mockAuthService{}}

	t.Run("no cookie passes through unauthenticated", func(t *testing.T) {
		var got *domainauth.Session
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetSessionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
		w := httptest.NewRecorder()

		auth.OptionalAuth()(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, got)
	})

	t.Run("valid cookie attaches session", func(t *testing.T) {
		var got *domainauth.Session
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetSessionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-9"})
		w := httptest.NewRecorder()

		auth.OptionalAuth()(next).ServeHTTP(w, req)

		require.NotNil(t, got)
		assert.Equal(t, "sess-9", got.ID)
	})
}
