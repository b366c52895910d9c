package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
	"github.com/agrovia/farmdesk/internal/service"
)

// mockProfileService is a test double for service.UserProfileService.
type mockProfileService struct {
	getCurrentUserFunc func(ctx context.Context, sess domainauth.Session) (*model.UserProfile, error)
	refreshFunc        func(ctx context.Context, sess domainauth.Session) (*model.UserProfile, error)
	logoutCalls        []string
}

func (m *mockProfileService) GetCurrentUser(
	ctx context.Context,
	sess domainauth.Session,
) (*model.UserProfile, error) {
	if m.getCurrentUserFunc != nil {
		return m.getCurrentUserFunc(ctx, sess)
	}
	return &model.UserProfile{
		ID:        sess.UserID,
		Email:     sess.Email,
		FirstName: sess.FirstName,
		LastName:  sess.LastName,
		Role:      sess.Role,
		IsActive:  true,
	}, nil
}

func (m *mockProfileService) Refresh(
	ctx context.Context,
	sess domainauth.Session,
) (*model.UserProfile, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, sess)
	}
	return m.GetCurrentUser(ctx, sess)
}

func (m *mockProfileService) Logout(_ context.Context, sessionID string) {
	m.logoutCalls = append(m.logoutCalls, sessionID)
}

func (m *mockProfileService) FullName(profile *model.UserProfile) string {
	if profile == nil {
		return ""
	}
	return strings.TrimSpace(profile.FirstName + " " + profile.LastName)
}

func (m *mockProfileService) RoleDisplayName(profile *model.UserProfile) string {
	if profile == nil {
		return ""
	}
	return string(profile.Role)
}

// mockGuard is a test double for service.SessionGuard.
type mockGuard struct {
	renewFunc func(ctx context.Context, expiredSessionID, password string) (
		*service.CompleteLoginResult, service.Navigation, error)
}

func (m *mockGuard) RenewWithPassword(
	ctx context.Context,
	expiredSessionID, password string,
) (*service.CompleteLoginResult, service.Navigation, error) {
	if m.renewFunc != nil {
		return m.renewFunc(ctx, expiredSessionID, password)
	}
	return &service.CompleteLoginResult{Session: testSession("renewed-session")},
		service.Navigation{Route: "/"}, nil
}

func TestPasswordLogin_Success(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}}

	body := strings.NewReader(`{"email":"maria@example.com","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	w := httptest.NewRecorder()

	handlers.PasswordLogin(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := w.Result()
	defer resp.Body.Close()
	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "test-session-id", sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	user, ok := payload["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "maria@example.com", user["email"])
}

func TestPasswordLogin_InvalidCredentials(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{
		passwordLoginFunc: func(_ context.Context, _, _ string) (*service.CompleteLoginResult, error) {
			return nil, apperrors.Unauthorized("invalid credentials")
		},
	}}

	body := strings.NewReader(`{"email":"maria@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	w := httptest.NewRecorder()

	handlers.PasswordLogin(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestRenew_NoSessionCookie(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}, Guard: &mockGuard{}}

	body := strings.NewReader(`{"password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/renew", body)
	w := httptest.NewRecorder()

	handlers.Renew(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no_renewable_session")
}

func TestRenew_ResumesAtCapturedLocation(t *testing.T) {
	var gotSessionID, gotPassword string
	handlers := &AuthHandlers{
		Svc: &mockAuthService{},
		Guard: &mockGuard{
			renewFunc: func(_ context.Context, expiredSessionID, password string) (
				*service.CompleteLoginResult, service.Navigation, error,
			) {
				gotSessionID = expiredSessionID
				gotPassword = password
				return &service.CompleteLoginResult{Session: testSession("fresh-session")},
					service.Navigation{Route: "/plots?crop=coffee"}, nil
			},
		},
	}

	body := strings.NewReader(`{"password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/renew", body)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "expired-session"})
	w := httptest.NewRecorder()

	handlers.Renew(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "expired-session", gotSessionID)
	assert.Equal(t, "hunter22", gotPassword)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "/plots?crop=coffee", payload["return_to"])

	resp := w.Result()
	defer resp.Body.Close()
	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "fresh-session", sessionCookie.Value)
}

func TestRenew_WrongPassword(t *testing.T) {
	handlers := &AuthHandlers{
		Svc: &mockAuthService{},
		Guard: &mockGuard{
			renewFunc: func(_ context.Context, _, _ string) (
				*service.CompleteLoginResult, service.Navigation, error,
			) {
				return nil, service.Navigation{}, apperrors.Unauthorized("invalid credentials")
			},
		},
	}

	body := strings.NewReader(`{"password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/renew", body)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "expired-session"})
	w := httptest.NewRecorder()

	handlers.Renew(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestLogout_ClearsSessionAndProfileCache(t *testing.T) {
	profiles := &mockProfileService{}
	var loggedOut string
	handlers := &AuthHandlers{
		Svc: &mockAuthService{
			logoutFunc: func(_ context.Context, sessionID string) error {
				loggedOut = sessionID
				return nil
			},
		},
		Profiles: profiles,
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-3"})
	w := httptest.NewRecorder()

	handlers.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-3", loggedOut)
	assert.Equal(t, []string{"sess-3"}, profiles.logoutCalls)
	assert.Contains(t, w.Body.String(), "signed_out")

	resp := w.Result()
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			assert.Equal(t, -1, c.MaxAge)
		}
	}
}

func TestMe_ReturnsProfileWithDisplayFields(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}, Profiles: &mockProfileService{}}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	sess := testSession("sess-1")
	req = req.WithContext(SetSessionInContext(req.Context(), &sess))
	w := httptest.NewRecorder()

	handlers.Me(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Maria Vega", payload["full_name"])
	assert.Equal(t, "farm_owner", payload["role_display"])
}

func TestMe_Unauthenticated(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}, Profiles: &mockProfileService{}}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()

	handlers.Me(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_required")
}
