package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication (enterprise SSO).
	AuthModeOAuth AuthMode = "oauth"
	// AuthModePassword uses email/password credentials stored in the users table.
	AuthModePassword AuthMode = "password"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "password", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, password, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"farmdesk"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"farmdesk"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-user"`
	Email     string   `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"User"`
	Groups    []string `env:"GROUPS"     envDefault:"admins"          envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionDuration is the lifetime of a newly issued session.
	SessionDuration time.Duration `env:"AUTH_SESSION_DURATION" envDefault:"8h"`

	// AdminGroup is the IdP group mapped to the admin role (oauth mode).
	AdminGroup string `env:"ADMIN_GROUP" envDefault:"admins"`

	// OwnerGroup is the IdP group mapped to the farm_owner role (oauth mode).
	OwnerGroup string `env:"OWNER_GROUP" envDefault:"farm-owners"`

	// ManagerGroup is the IdP group mapped to the farm_manager role (oauth mode).
	ManagerGroup string `env:"MANAGER_GROUP" envDefault:"farm-managers"`
}
