package data

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/testutil"
)

func uniqueEmail() string {
	return fmt.Sprintf("user-%s@example.com", uuid.New().String()[:8])
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := NewUserRepo(db)
	email := uniqueEmail()

	created, err := users.Create(context.Background(), &model.CreateUserRequest{
		Email:     email,
		FirstName: "Maria",
		LastName:  "Vega",
		Role:      domainauth.RoleFarmOwner,
		Password:  "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)

	byID, err := users.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)

	byEmail, err := users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := NewUserRepo(db)
	email := uniqueEmail()

	req := &model.CreateUserRequest{
		Email:     email,
		FirstName: "Maria",
		Role:      domainauth.RoleFarmOwner,
		Password:  "correct horse battery",
	}
	_, err := users.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = users.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrUserEmailExists)
}

func TestUserRepo_CredentialHashVerifiesPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := NewUserRepo(db)
	email := uniqueEmail()

	created, err := users.Create(context.Background(), &model.CreateUserRequest{
		Email:     email,
		FirstName: "Maria",
		Role:      domainauth.RoleFarmOwner,
		Password:  "correct horse battery",
	})
	require.NoError(t, err)

	userID, hash, err := users.CredentialHash(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, userID)
	require.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("correct horse battery")))
	require.Error(t, bcrypt.CompareHashAndPassword(hash, []byte("wrong")))
}

func TestUserRepo_CredentialHashUnknownEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := NewUserRepo(db)

	_, _, err := users.CredentialHash(context.Background(), uniqueEmail())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_UpdateRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := NewUserRepo(db)

	created, err := users.Create(context.Background(), &model.CreateUserRequest{
		Email:     uniqueEmail(),
		FirstName: "Jose",
		Role:      domainauth.RoleCollaborator,
		Password:  "correct horse battery",
	})
	require.NoError(t, err)

	role := domainauth.RoleFarmManager
	updated, err := users.Update(context.Background(), created.ID, model.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleFarmManager, updated.Role)
}

func TestUserRepo_SoftDeleteDeactivates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := NewUserRepo(db)

	created, err := users.Create(context.Background(), &model.CreateUserRequest{
		Email:     uniqueEmail(),
		FirstName: "Carmen",
		Role:      domainauth.RoleCollaborator,
		Password:  "correct horse battery",
	})
	require.NoError(t, err)

	ok, err := users.SoftDelete(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := users.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
