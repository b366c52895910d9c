package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/data"
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/ports"
)

// UserProfileServiceOptions groups dependencies for UserProfileService.
type UserProfileServiceOptions struct {
	Users   core.UserRepository
	Scratch ports.ScratchStore
	Logger  *slog.Logger
}

// UserProfileService resolves and caches the application profile for the
// signed-in user. The cache is session-scoped: entries carry the remaining
// session lifetime and die with the session. Display-facing methods never
// propagate resolution errors; they degrade to placeholders.
type UserProfileService struct {
	users   core.UserRepository
	scratch ports.ScratchStore
	logger  *slog.Logger
}

// NewUserProfileService constructs a new UserProfileService.
func NewUserProfileService(opts UserProfileServiceOptions) *UserProfileService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserProfileService{
		users:   opts.Users,
		scratch: opts.Scratch,
		logger:  logger.With("component", "profile_service"),
	}
}

// GetCurrentUser returns the profile for the session's user. A validated
// cache hit wins; otherwise the profile row is fetched and cached. When the
// row is missing or the fetch fails, a fallback profile is synthesized from
// the session identity and cached as authoritative.
func (s *UserProfileService) GetCurrentUser(ctx context.Context, sess domainauth.Session) (*model.UserProfile, error) {
	if cached := s.readCache(ctx, sess.ID); cached != nil {
		return cached, nil
	}

	profile := s.resolve(ctx, sess)
	if profile == nil {
		return nil, nil
	}

	s.writeCache(ctx, sess, profile)
	return profile, nil
}

// Refresh invalidates the cached profile and re-resolves it.
func (s *UserProfileService) Refresh(ctx context.Context, sess domainauth.Session) (*model.UserProfile, error) {
	if _, err := s.scratch.Delete(ctx, profileCacheKey(sess.ID)); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate profile cache", "err", err)
	}
	return s.GetCurrentUser(ctx, sess)
}

// Logout clears the cached profile without resolving a new one.
func (s *UserProfileService) Logout(ctx context.Context, sessionID string) {
	if _, err := s.scratch.Delete(ctx, profileCacheKey(sessionID)); err != nil {
		s.logger.WarnContext(ctx, "failed to clear profile cache", "err", err)
	}
}

// LastKnownEmail returns the cached email for a session, if any. The cache
// outlives backend credential expiry within the session TTL, which is what
// the lock-screen renewal flow relies on.
func (s *UserProfileService) LastKnownEmail(ctx context.Context, sessionID string) (string, bool) {
	cached := s.readCache(ctx, sessionID)
	if cached == nil || cached.Email == "" {
		return "", false
	}
	return cached.Email, true
}

// FullName renders a display name for a profile. A nil profile yields a
// fixed placeholder.
func (s *UserProfileService) FullName(profile *model.UserProfile) string {
	if profile == nil {
		return "User"
	}
	full := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if full == "" {
		return "User"
	}
	return full
}

// RoleDisplayName renders the profile role for display. A nil profile yields
// a fixed placeholder.
func (s *UserProfileService) RoleDisplayName(profile *model.UserProfile) string {
	if profile == nil {
		return "Collaborator"
	}
	switch profile.Role {
	case domainauth.RoleAdmin:
		return "Administrator"
	case domainauth.RoleFarmOwner:
		return "Farm Owner"
	case domainauth.RoleFarmManager:
		return "Farm Manager"
	case domainauth.RoleCollaborator:
		return "Collaborator"
	default:
		return "Collaborator"
	}
}

// resolve fetches the profile row for the session identity, synthesizing a
// fallback when the row is missing or the lookup fails.
func (s *UserProfileService) resolve(ctx context.Context, sess domainauth.Session) *model.UserProfile {
	if sess.UserID == "" && sess.Email == "" {
		return nil
	}

	var (
		profile *model.UserProfile
		err     error
	)
	if sess.UserID != "" {
		profile, err = s.users.GetByID(ctx, sess.UserID)
	} else {
		profile, err = s.users.GetByEmail(ctx, sess.Email)
	}
	if err != nil {
		if !errors.Is(err, data.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "profile lookup failed, synthesizing fallback", "err", err)
		}
		return s.synthesize(sess)
	}
	return profile
}

// synthesize builds a fallback profile from session identity fields. First
// name falls back to the email local-part when the identity carries none.
func (s *UserProfileService) synthesize(sess domainauth.Session) *model.UserProfile {
	firstName := strings.TrimSpace(sess.FirstName)
	if firstName == "" {
		firstName = emailLocalPart(sess.Email)
	}
	return &model.UserProfile{
		ID:        sess.UserID,
		Email:     sess.Email,
		FirstName: firstName,
		LastName:  strings.TrimSpace(sess.LastName),
		Role:      domainauth.RoleCollaborator,
		IsActive:  true,
	}
}

func (s *UserProfileService) readCache(ctx context.Context, sessionID string) *model.UserProfile {
	if sessionID == "" {
		return nil
	}
	raw, err := s.scratch.Get(ctx, profileCacheKey(sessionID))
	if err != nil {
		s.logger.WarnContext(ctx, "profile cache read failed", "err", err)
		return nil
	}
	if raw == nil {
		return nil
	}

	var profile model.UserProfile
	if unmarshalErr := json.Unmarshal(raw, &profile); unmarshalErr != nil || !profile.Valid() {
		// Unreadable or schema-invalid entries are a miss, not an error.
		if _, delErr := s.scratch.Delete(ctx, profileCacheKey(sessionID)); delErr != nil {
			s.logger.WarnContext(ctx, "failed to drop invalid profile cache entry", "err", delErr)
		}
		return nil
	}
	return &profile
}

func (s *UserProfileService) writeCache(ctx context.Context, sess domainauth.Session, profile *model.UserProfile) {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to marshal profile for cache", "err", err)
		return
	}
	if setErr := s.scratch.Set(ctx, profileCacheKey(sess.ID), raw, ttl); setErr != nil {
		s.logger.WarnContext(ctx, "profile cache write failed", "err", setErr)
	}
}

func profileCacheKey(sessionID string) string { return "profile:" + sessionID }

// emailLocalPart returns the part of an email before the @, or the whole
// string when no @ is present.
func emailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
