package passwordauth

// Package passwordauth implements ports.PasswordAuthenticator against the
// users table. It backs the password auth mode and the lock-screen renewal
// flow, where a user re-enters only their password to resume a session.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/data"
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// Authenticator verifies email/password credentials against stored bcrypt
// hashes. Unknown emails and wrong passwords both map to the same
// unauthorized error so callers cannot probe for accounts.
type Authenticator struct {
	users           core.UserRepository
	sessionDuration time.Duration
}

// NewAuthenticator creates an Authenticator. sessionDuration defaults to 8h
// when zero.
func NewAuthenticator(users core.UserRepository, sessionDuration time.Duration) *Authenticator {
	if sessionDuration <= 0 {
		sessionDuration = 8 * time.Hour
	}
	return &Authenticator{users: users, sessionDuration: sessionDuration}
}

// Authenticate verifies the credentials and returns the identity for a
// successful match.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if email == "" || password == "" {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid credentials")
	}

	userID, hash, err := a.users.CredentialHash(ctx, email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			// Burn a comparison anyway to keep timing consistent with the
			// wrong-password path.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return domainauth.Identity{}, apperrors.Unauthorized("invalid credentials")
		}
		return domainauth.Identity{}, fmt.Errorf("lookup credentials: %w", err)
	}
	if len(hash) == 0 {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid credentials")
	}

	if compareErr := bcrypt.CompareHashAndPassword(hash, []byte(password)); compareErr != nil {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid credentials")
	}

	profile, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("load user profile: %w", err)
	}
	if !profile.IsActive {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid credentials")
	}

	return domainauth.Identity{
		UserID:    profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
		Groups:    []string{string(profile.Role)},
		ExpiresAt: time.Now().Add(a.sessionDuration),
	}, nil
}

// dummyHash is a valid bcrypt hash of an unguessable constant, used to
// equalize timing when the email does not exist.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
