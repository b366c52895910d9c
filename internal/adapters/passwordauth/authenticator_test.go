package passwordauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrovia/farmdesk/internal/data"
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// fakeUserRepo is a hand-rolled double for core.UserRepository. Only the
// credential lookup paths carry behavior hooks.
type fakeUserRepo struct {
	credentialHashFunc func(ctx context.Context, email string) (string, []byte, error)
	getByIDFunc        func(ctx context.Context, id string) (*model.UserProfile, error)
}

func (f *fakeUserRepo) Create(_ context.Context, _ *model.CreateUserRequest) (*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) ListWithOptions(_ context.Context, _ model.UsersListOptions) ([]*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) Update(_ context.Context, _ string, _ model.UpdateUserRequest) (*model.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) CredentialHash(ctx context.Context, email string) (string, []byte, error) {
	if f.credentialHashFunc != nil {
		return f.credentialHashFunc(ctx, email)
	}
	return "", nil, errors.New("not implemented")
}

func (f *fakeUserRepo) SoftDelete(_ context.Context, _ string) (bool, error) {
	return false, errors.New("not implemented")
}

func activeProfile(id string) *model.UserProfile {
	return &model.UserProfile{
		ID:        id,
		Email:     "maria@example.com",
		FirstName: "Maria",
		LastName:  "Vega",
		Role:      domainauth.RoleFarmOwner,
		IsActive:  true,
	}
}

func hashFor(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestAuthenticate_Success(t *testing.T) {
	hash := hashFor(t, "correct horse")
	repo := &fakeUserRepo{
		credentialHashFunc: func(_ context.Context, email string) (string, []byte, error) {
			assert.Equal(t, "maria@example.com", email)
			return "user-1", hash, nil
		},
		getByIDFunc: func(_ context.Context, id string) (*model.UserProfile, error) {
			return activeProfile(id), nil
		},
	}
	auth := NewAuthenticator(repo, 2*time.Hour)

	before := time.Now()
	identity, err := auth.Authenticate(context.Background(), "maria@example.com", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "maria@example.com", identity.Email)
	assert.Equal(t, []string{string(domainauth.RoleFarmOwner)}, identity.Groups)
	assert.WithinRange(t, identity.ExpiresAt, before.Add(2*time.Hour), time.Now().Add(2*time.Hour))
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	repo := &fakeUserRepo{
		credentialHashFunc: func(_ context.Context, _ string) (string, []byte, error) {
			return "user-1", hashFor(t, "correct horse"), nil
		},
	}
	auth := NewAuthenticator(repo, 0)

	_, err := auth.Authenticate(context.Background(), "maria@example.com", "battery staple")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	repo := &fakeUserRepo{
		credentialHashFunc: func(_ context.Context, _ string) (string, []byte, error) {
			return "", nil, data.ErrUserNotFound
		},
	}
	auth := NewAuthenticator(repo, 0)

	_, err := auth.Authenticate(context.Background(), "nobody@example.com", "whatever")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthenticate_EmptyCredentials(t *testing.T) {
	auth := NewAuthenticator(&fakeUserRepo{}, 0)

	_, err := auth.Authenticate(context.Background(), "", "pw")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = auth.Authenticate(context.Background(), "maria@example.com", "")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthenticate_NoStoredHash(t *testing.T) {
	repo := &fakeUserRepo{
		credentialHashFunc: func(_ context.Context, _ string) (string, []byte, error) {
			// OAuth-provisioned accounts have no password credentials.
			return "user-1", nil, nil
		},
	}
	auth := NewAuthenticator(repo, 0)

	_, err := auth.Authenticate(context.Background(), "maria@example.com", "pw")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthenticate_InactiveAccount(t *testing.T) {
	repo := &fakeUserRepo{
		credentialHashFunc: func(_ context.Context, _ string) (string, []byte, error) {
			return "user-1", hashFor(t, "correct horse"), nil
		},
		getByIDFunc: func(_ context.Context, id string) (*model.UserProfile, error) {
			p := activeProfile(id)
			p.IsActive = false
			return p, nil
		},
	}
	auth := NewAuthenticator(repo, 0)

	_, err := auth.Authenticate(context.Background(), "maria@example.com", "correct horse")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthenticate_LookupFailureIsNotUnauthorized(t *testing.T) {
	repo := &fakeUserRepo{
		credentialHashFunc: func(_ context.Context, _ string) (string, []byte, error) {
			return "", nil, errors.New("connection refused")
		},
	}
	auth := NewAuthenticator(repo, 0)

	_, err := auth.Authenticate(context.Background(), "maria@example.com", "pw")

	require.Error(t, err)
	assert.False(t, apperrors.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "lookup credentials")
}
