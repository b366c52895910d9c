package bootstrap

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/agrovia/farmdesk/config"
	"github.com/agrovia/farmdesk/internal/adapters/authroles"
	"github.com/agrovia/farmdesk/internal/adapters/devauth"
	"github.com/agrovia/farmdesk/internal/adapters/oidc"
	"github.com/agrovia/farmdesk/internal/adapters/passwordauth"
	redisadapter "github.com/agrovia/farmdesk/internal/adapters/redis"
	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/ports"
	"github.com/agrovia/farmdesk/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Users       core.UserRepository
	Logger      *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns nil if auth is not configured or configuration is invalid.
//
// The password authenticator is wired whenever a user repository is
// available, regardless of mode: the lock screen renews expired sessions
// with a password even when the redirect flow is OAuth.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	if cfg.RedisClient == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		}
		return nil
	}

	// Create Redis session store shared by all modes
	sessionStore := redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, "session:")

	// Role mapper is shared
	roleMapper := authroles.StaticRoleMapper{
		AdminGroup:   cfg.Auth.AdminGroup,
		OwnerGroup:   cfg.Auth.OwnerGroup,
		ManagerGroup: cfg.Auth.ManagerGroup,
	}

	var passwords *passwordauth.Authenticator
	if cfg.Users != nil {
		passwords = passwordauth.NewAuthenticator(cfg.Users, cfg.Auth.SessionDuration)
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthService(cfg, sessionStore, roleMapper, passwords)

	case config.AuthModeOAuth:
		return buildOAuthService(cfg, sessionStore, roleMapper, passwords)

	case config.AuthModePassword:
		return buildPasswordAuthService(cfg, sessionStore, roleMapper, passwords)

	default:
		return nil
	}
}

func buildDevAuthService(
	cfg AuthConfig,
	sessionStore *redisadapter.SessionStore,
	roleMapper authroles.StaticRoleMapper,
	passwords *passwordauth.Authenticator,
) *service.AuthService {
	// Explicitly enabled dev auth mode; build a local provider.
	prov, err := devauth.NewProvider(devauth.Config{
		UserID:          cfg.Auth.DevAuth.UserID,
		Email:           cfg.Auth.DevAuth.Email,
		FirstName:       cfg.Auth.DevAuth.FirstName,
		LastName:        cfg.Auth.DevAuth.LastName,
		Groups:          cfg.Auth.DevAuth.Groups,
		SessionDuration: cfg.Auth.SessionDuration,
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create dev auth provider, auth disabled", "error", err)
		}
		return nil
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider:  prov,
		Passwords: optionalAuthenticator(passwords),
		Sessions:  sessionStore,
		Roles:     roleMapper,
	})
}

func buildOAuthService(
	cfg AuthConfig,
	sessionStore *redisadapter.SessionStore,
	roleMapper authroles.StaticRoleMapper,
	passwords *passwordauth.Authenticator,
) *service.AuthService {
	// Only enable when fully configured
	oauth := cfg.Auth.OAuth
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		if cfg.Logger != nil {
			cfg.Logger.Warn("AuthModeOAuth selected but required config missing; auth disabled",
				"discovery_url_empty", oauth.DiscoveryURL == "",
				"client_id_empty", oauth.ClientID == "",
				"client_secret_empty", oauth.ClientSecret == "",
			)
		}
		return nil
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create OIDC provider, auth disabled", "error", err)
		}
		return nil
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider:  prov,
		Passwords: optionalAuthenticator(passwords),
		Sessions:  sessionStore,
		Roles:     roleMapper,
	})
}

func buildPasswordAuthService(
	cfg AuthConfig,
	sessionStore *redisadapter.SessionStore,
	roleMapper authroles.StaticRoleMapper,
	passwords *passwordauth.Authenticator,
) *service.AuthService {
	if passwords == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("AuthModePassword selected but user repository missing; auth disabled")
		}
		return nil
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Passwords: passwords,
		Sessions:  sessionStore,
		Roles:     roleMapper,
	})
}

// optionalAuthenticator keeps a typed-nil *Authenticator from becoming a
// non-nil ports.PasswordAuthenticator interface value.
//
//nolint:ireturn // narrowing to the port interface is the point.
func optionalAuthenticator(a *passwordauth.Authenticator) ports.PasswordAuthenticator {
	if a == nil {
		return nil
	}
	return a
}
