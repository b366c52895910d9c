package bootstrap

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovia/farmdesk/config"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// stubUserRepo satisfies core.UserRepository without touching a database.
type stubUserRepo struct{}

func (stubUserRepo) Create(context.Context, *model.CreateUserRequest) (*model.UserProfile, error) {
	return nil, nil
}

func (stubUserRepo) GetByID(context.Context, string) (*model.UserProfile, error) { return nil, nil }

func (stubUserRepo) GetByEmail(context.Context, string) (*model.UserProfile, error) {
	return nil, nil
}

func (stubUserRepo) ListWithOptions(context.Context, model.UsersListOptions) ([]*model.UserProfile, error) {
	return nil, nil
}

func (stubUserRepo) Update(context.Context, string, model.UpdateUserRequest) (*model.UserProfile, error) {
	return nil, nil
}

func (stubUserRepo) CredentialHash(context.Context, string) (string, []byte, error) {
	return "", nil, nil
}

func (stubUserRepo) SoftDelete(context.Context, string) (bool, error) { return false, nil }

func testRedisClient() redis.UniversalClient {
	// The client connects lazily; nothing in these tests issues a command.
	return redis.NewClient(&redis.Options{Addr: "localhost:6379"})
}

func TestBuildAuthService_RequiresRedis(t *testing.T) {
	svc := BuildAuthService(AuthConfig{
		Auth: config.AuthConfig{Mode: config.AuthModeMock},
	})
	assert.Nil(t, svc)
}

func TestBuildAuthService_MockMode(t *testing.T) {
	svc := BuildAuthService(AuthConfig{
		Auth: config.AuthConfig{
			Mode: config.AuthModeMock,
			DevAuth: config.DevAuthConfig{
				UserID: "dev-user",
				Email:  "dev@example.com",
				Groups: []string{"admins"},
			},
		},
		RedisClient: testRedisClient(),
		Users:       stubUserRepo{},
	})
	require.NotNil(t, svc)
}

func TestBuildAuthService_MockModeRequiresIdentity(t *testing.T) {
	svc := BuildAuthService(AuthConfig{
		Auth:        config.AuthConfig{Mode: config.AuthModeMock},
		RedisClient: testRedisClient(),
	})
	assert.Nil(t, svc)
}

func TestBuildAuthService_PasswordMode(t *testing.T) {
	svc := BuildAuthService(AuthConfig{
		Auth:        config.AuthConfig{Mode: config.AuthModePassword},
		RedisClient: testRedisClient(),
		Users:       stubUserRepo{},
	})
	require.NotNil(t, svc)
}

func TestBuildAuthService_PasswordModeRequiresUsers(t *testing.T) {
	svc := BuildAuthService(AuthConfig{
		Auth:        config.AuthConfig{Mode: config.AuthModePassword},
		RedisClient: testRedisClient(),
	})
	assert.Nil(t, svc)
}

func TestBuildAuthService_OAuthModeIncompleteConfig(t *testing.T) {
	svc := BuildAuthService(AuthConfig{
		Auth: config.AuthConfig{
			Mode: config.AuthModeOAuth,
			// DiscoveryURL intentionally missing
			OAuth: config.OAuthConfig{ClientID: "farmdesk", ClientSecret: "secret"},
		},
		RedisClient: testRedisClient(),
	})
	assert.Nil(t, svc)
}
