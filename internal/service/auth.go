package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService. Provider (OIDC/dev)
// and Passwords (credential mode) are each optional; at least one must be set.
type AuthServiceOptions struct {
	Provider  ports.AuthProvider
	Passwords ports.PasswordAuthenticator
	Sessions  ports.SessionStore
	Roles     ports.RoleMapper
}

// AuthService orchestrates authentication flows by coordinating provider,
// role mapping, and session persistence.
type AuthService struct {
	provider  ports.AuthProvider
	passwords ports.PasswordAuthenticator
	sessions  ports.SessionStore
	roles     ports.RoleMapper
}

// ErrSessionExpired marks a session found past its expiry. Callers compare
// with errors.Is to distinguish expiry from other authentication failures.
var ErrSessionExpired = errors.New("session expired")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	return &AuthService{
		provider:  opts.Provider,
		passwords: opts.Passwords,
		sessions:  opts.Sessions,
		roles:     opts.Roles,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates a redirect-based authentication flow and returns the
// provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, errors.New("redirect-based login is not configured")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	input := ports.BeginInput{RedirectURL: redirectURL}
	authURL, state, nonce, err := s.provider.Begin(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin completes a redirect-based flow by exchanging the code for an
// identity, mapping roles, and persisting a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if s.provider == nil {
		return nil, errors.New("redirect-based login is not configured")
	}
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	exchangeInput := ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	}
	identity, err := s.provider.Exchange(ctx, exchangeInput)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	session, err := s.establishSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &CompleteLoginResult{Session: session}, nil
}

// LoginWithPassword verifies email/password credentials and persists a new
// session on success.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*CompleteLoginResult, error) {
	if s.passwords == nil {
		return nil, errors.New("password login is not configured")
	}

	identity, err := s.passwords.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err := s.establishSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &CompleteLoginResult{Session: session}, nil
}

// RenewSession verifies the password for an existing (possibly expired)
// session's email and issues a fresh session carrying the same identity.
func (s *AuthService) RenewSession(ctx context.Context, email, password string) (*CompleteLoginResult, error) {
	return s.LoginWithPassword(ctx, email, password)
}

func (s *AuthService) establishSession(ctx context.Context, identity domainauth.Identity) (domainauth.Session, error) {
	role := s.roles.Map(identity.Groups)

	session := domainauth.Session{
		ID:        generateSessionID(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Role:      role,
		ExpiresAt: identity.ExpiresAt,
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", saveErr)
	}
	return session, nil
}

// GetSession retrieves a session by ID, deleting and rejecting expired ones.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
