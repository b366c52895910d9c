package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/agrovia/farmdesk/internal/errors"
	"github.com/agrovia/farmdesk/internal/ports"
)

// Routes the guard navigates to. The lock view keeps the user's email and
// lets them resume with only a password; the sign-in view starts over.
const (
	RouteLock   = "/auth/lock"
	RouteSignIn = "/auth/signin"
)

// returnURLTTL bounds how long a captured pre-expiry location survives. The
// owning session is already gone when the capture happens, so the entry
// carries its own small lifetime instead of a session TTL.
const returnURLTTL = 30 * time.Minute

// Navigation is the guard's decision after a session expires or renews.
type Navigation struct {
	Route          string
	SessionExpired bool
	Email          string
	ReturnURL      string
}

// emailResolver supplies the last known email for a session, surviving
// credential expiry within the session-scoped cache lifetime.
type emailResolver interface {
	LastKnownEmail(ctx context.Context, sessionID string) (string, bool)
}

// sessionRenewer issues a fresh session from email/password credentials.
type sessionRenewer interface {
	RenewSession(ctx context.Context, email, password string) (*CompleteLoginResult, error)
}

// SessionGuardOptions groups dependencies for SessionGuard.
type SessionGuardOptions struct {
	Source   ports.ExpirySource
	Scratch  ports.ScratchStore
	Profiles emailResolver
	Auth     sessionRenewer
	Logger   *slog.Logger
}

// SessionGuard reacts to session-expiry events: it captures where the user
// was, decides where to send them, and runs the password-only renewal that
// brings them back. Every failure inside the guard degrades to the plain
// sign-in path; nothing here is allowed to be fatal.
type SessionGuard struct {
	source   ports.ExpirySource
	scratch  ports.ScratchStore
	profiles emailResolver
	auth     sessionRenewer
	logger   *slog.Logger
}

// NewSessionGuard constructs a new SessionGuard.
func NewSessionGuard(opts SessionGuardOptions) *SessionGuard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionGuard{
		source:   opts.Source,
		scratch:  opts.Scratch,
		profiles: opts.Profiles,
		auth:     opts.Auth,
		logger:   logger.With("component", "session_guard"),
	}
}

// ObserveExpiry returns the stream of expiry events plus a cancel function.
// The subscription is restartable: cancel and call again.
func (g *SessionGuard) ObserveExpiry() (<-chan ports.SessionExpiryEvent, func()) {
	return g.source.Subscribe()
}

// Run consumes expiry events until the context is cancelled or the source
// closes. Each event is handled independently; OnExpiry never errors.
func (g *SessionGuard) Run(ctx context.Context) error {
	events, cancel := g.ObserveExpiry()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			g.OnExpiry(ctx, ev)
		}
	}
}

// OnExpiry records the pre-expiry location and decides where to send the
// user: the lock view when an email is still resolvable, plain sign-in
// otherwise.
func (g *SessionGuard) OnExpiry(ctx context.Context, ev ports.SessionExpiryEvent) Navigation {
	g.logger.InfoContext(ctx, "session expired", "session_id", ev.SessionID, "at", ev.Timestamp)

	g.captureReturnURL(ctx, ev)

	email, ok := g.profiles.LastKnownEmail(ctx, ev.SessionID)
	if !ok || email == "" {
		return Navigation{Route: RouteSignIn, SessionExpired: true}
	}

	return Navigation{
		Route:          RouteLock,
		SessionExpired: true,
		Email:          email,
		ReturnURL:      ev.Location,
	}
}

// captureReturnURL stores the in-app location at the moment of expiry so a
// successful renewal can resume there. Locations already under /auth/ are
// not worth returning to.
func (g *SessionGuard) captureReturnURL(ctx context.Context, ev ports.SessionExpiryEvent) {
	loc := strings.TrimSpace(ev.Location)
	if loc == "" || strings.HasPrefix(loc, "/auth/") {
		return
	}
	if ev.SessionID == "" {
		return
	}

	if err := g.scratch.Set(ctx, returnURLKey(ev.SessionID), []byte(loc), returnURLTTL); err != nil {
		// Renewal still works without the capture; the user just lands on /.
		g.logger.WarnContext(ctx, "failed to capture return URL", "err", err)
	}
}

// RenewWithPassword re-authenticates with the session's last known email and
// a fresh password. On success the stored return URL is popped (read once,
// then deleted) and the navigation points there, defaulting to the root.
func (g *SessionGuard) RenewWithPassword(
	ctx context.Context,
	expiredSessionID, password string,
) (*CompleteLoginResult, Navigation, error) {
	email, ok := g.profiles.LastKnownEmail(ctx, expiredSessionID)
	if !ok || email == "" {
		return nil, Navigation{Route: RouteSignIn, SessionExpired: true},
			apperrors.Unauthorized("no renewable session")
	}

	result, err := g.auth.RenewSession(ctx, email, password)
	if err != nil {
		return nil, Navigation{}, err
	}

	return result, Navigation{Route: g.popReturnURL(ctx, expiredSessionID)}, nil
}

// popReturnURL reads and deletes the stored return URL, defaulting to "/".
func (g *SessionGuard) popReturnURL(ctx context.Context, sessionID string) string {
	if sessionID == "" {
		return "/"
	}

	raw, err := g.scratch.Get(ctx, returnURLKey(sessionID))
	if err != nil {
		g.logger.WarnContext(ctx, "failed to read return URL", "err", err)
		return "/"
	}
	if _, delErr := g.scratch.Delete(ctx, returnURLKey(sessionID)); delErr != nil {
		g.logger.WarnContext(ctx, "failed to delete return URL", "err", delErr)
	}
	if len(raw) == 0 {
		return "/"
	}
	return string(raw)
}

func returnURLKey(sessionID string) string { return "returnurl:" + sessionID }
