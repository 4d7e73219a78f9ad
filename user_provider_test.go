package todos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func hashedUser(t *testing.T, email, password string) *todos.User {
	t.Helper()

	hash, err := todos.HashPassword(password)
	require.NoError(t, err)

	return &todos.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
	}
}

func TestVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	user := hashedUser(t, "user@example.com", "password123")

	store := new(MockUserStore)
	store.On("GetByIdentifier", ctx, "user@example.com").Return(user, nil)

	provider := todos.NewUserProvider(store)

	identity, err := provider.VerifyIdentity(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, user.Email, identity.Email())

	store.AssertExpectations(t)
}

func TestVerifyIdentityNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	user := hashedUser(t, "user@example.com", "password123")

	store := new(MockUserStore)
	// The provider lowercases before hitting the store.
	store.On("GetByIdentifier", ctx, "user@example.com").Return(user, nil)

	provider := todos.NewUserProvider(store)

	_, err := provider.VerifyIdentity(ctx, "  USER@Example.COM ", "password123")
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestVerifyIdentitySameErrorBothPaths(t *testing.T) {
	ctx := context.Background()
	user := hashedUser(t, "known@example.com", "password123")

	store := new(MockUserStore)
	store.On("GetByIdentifier", ctx, "missing@example.com").
		Return(nil, repository.NewRecordNotFound())
	store.On("GetByIdentifier", ctx, "known@example.com").Return(user, nil)

	provider := todos.NewUserProvider(store)

	_, errUnknown := provider.VerifyIdentity(ctx, "missing@example.com", "password123")
	_, errBadPass := provider.VerifyIdentity(ctx, "known@example.com", "not-the-password")

	require.Error(t, errUnknown)
	require.Error(t, errBadPass)
	assert.Equal(t, errUnknown, errBadPass)
	assert.Equal(t, errUnknown.Error(), errBadPass.Error())

	store.AssertExpectations(t)
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()

	store := new(MockUserStore)
	store.On("GetByIdentifier", ctx, "new@example.com").
		Return(nil, repository.NewRecordNotFound())
	store.On("Register", ctx, mock.MatchedBy(func(user *todos.User) bool {
		return user.Email == "new@example.com" &&
			user.Name == "New User" &&
			user.PasswordHash != "" &&
			user.PasswordHash != "password123"
	})).Return(&todos.User{
		ID:    uuid.New(),
		Name:  "New User",
		Email: "new@example.com",
	}, nil)

	provider := todos.NewUserProvider(store)

	created, err := provider.RegisterUser(ctx, "New User", "NEW@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Email)

	store.AssertExpectations(t)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	existing := hashedUser(t, "taken@example.com", "password123")

	store := new(MockUserStore)
	store.On("GetByIdentifier", ctx, "taken@example.com").Return(existing, nil)

	provider := todos.NewUserProvider(store)

	// Same address in a different case still collides.
	_, err := provider.RegisterUser(ctx, "Someone", "Taken@Example.com", "password123")
	require.Error(t, err)
	assert.True(t, todos.IsDuplicateIdentity(err))

	store.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegisterUserEmptyPassword(t *testing.T) {
	ctx := context.Background()

	store := new(MockUserStore)
	store.On("GetByIdentifier", ctx, "new@example.com").
		Return(nil, repository.NewRecordNotFound())

	provider := todos.NewUserProvider(store)

	_, err := provider.RegisterUser(ctx, "New User", "new@example.com", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, todos.ErrNoEmptyString)

	store.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}
