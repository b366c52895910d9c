package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
	"github.com/agrovia/farmdesk/internal/ports"
	"github.com/agrovia/farmdesk/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionAuth resolves sessions from the session cookie and publishes expiry
// events for sessions that have lapsed.
type SessionAuth struct {
	Svc    AuthServiceInterface
	Expiry ports.ExpiryPublisher
}

// RequireAuth returns a middleware that requires authentication.
// An expired session gets a 401 with a dedicated error code after the expiry
// event is published; a missing or invalid session gets a plain 401.
func (a *SessionAuth) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := a.resolveSession(w, r)
			if !ok {
				return
			}

			ctx := SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns a middleware that requires at least the given role.
// Authorization uses the role hierarchy, so an admin passes every check.
func (a *SessionAuth) RequireRole(requiredRole domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := a.resolveSession(w, r)
			if !ok {
				return
			}

			if session.Role.Level() < requiredRole.Level() {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}

			ctx := SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth returns a middleware that adds session information when present
// and otherwise lets the request through unauthenticated.
func (a *SessionAuth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(sessionCookieName); err == nil {
				if session, sessErr := a.Svc.GetSession(r.Context(), cookie.Value); sessErr == nil {
					r = r.WithContext(SetSessionInContext(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession loads the session for the request. A false return means the
// response has been written. Expired sessions fan out an expiry event carrying
// the in-app location so the lock flow can resume there.
func (a *SessionAuth) resolveSession(w http.ResponseWriter, r *http.Request) (*domainauth.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return nil, false
	}

	session, err := a.Svc.GetSession(r.Context(), cookie.Value)
	if err != nil {
		// Besides the service's own sentinel, provider-phrased failures
		// ("jwt expired", "invalid token", ...) count as expiry too.
		if errors.Is(err, service.ErrSessionExpired) || apperrors.IsSessionExpiry(0, err) {
			a.publishExpiry(cookie.Value, r)
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "session_expired",
				Err:     errors.New("session expired"),
			})
			return nil, false
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return nil, false
	}

	return session, true
}

func (a *SessionAuth) publishExpiry(sessionID string, r *http.Request) {
	if a.Expiry == nil {
		return
	}
	location := r.Header.Get("X-App-Location")
	if location == "" {
		location = r.URL.RequestURI()
	}
	a.Expiry.Publish(ports.SessionExpiryEvent{
		SessionID: sessionID,
		Location:  location,
		Timestamp: time.Now(),
	})
}
