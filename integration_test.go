package todos_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/goliatone/go-todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type repoStoreAdapter struct {
	users todos.Users
}

func (a repoStoreAdapter) GetByIdentifier(ctx context.Context, identifier string) (*todos.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a repoStoreAdapter) Register(ctx context.Context, user *todos.User) (*todos.User, error) {
	return a.users.Register(ctx, user)
}

func setupIntegrationDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*todos.User)(nil)).IfNotExists().Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewCreateTable().Model((*todos.Todo)(nil)).IfNotExists().Exec(ctx)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

// Exercises the full account lifecycle against real storage: register, login,
// resolve the session back to an identity, then run a todo through create,
// update, delete, and list.
func TestAccountAndTodoLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupIntegrationDB(t)
	manager := todos.NewRepositoryManager(db)

	cfg := testConfig{
		signingKey:      "integration-signing-key",
		tokenExpiration: 1,
		issuer:          "integration",
		audience:        []string{"integration"},
	}

	provider := todos.NewUserProvider(repoStoreAdapter{users: manager.Users()})
	auther := todos.NewAuthenticator(provider, cfg)

	// Register and immediately authenticate with the issued token.
	user, token, err := auther.Register(ctx, "Test User", "Lifecycle@Example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "lifecycle@example.com", user.Email)

	loginToken, err := auther.Login(ctx, "lifecycle@example.com", "password123")
	require.NoError(t, err)

	session, err := auther.SessionFromToken(loginToken)
	require.NoError(t, err)

	identity, err := auther.IdentityFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	ownerID := user.ID
	repo := manager.Todos()

	created, err := repo.CreateOwned(ctx, ownerID, "buy milk", false)
	require.NoError(t, err)

	items, total, err := repo.ListByOwner(ctx, ownerID, 1, todos.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)

	updated, err := repo.UpdateOwned(ctx, ownerID, created.ID, "buy oat milk", true)
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", updated.Title)
	assert.True(t, updated.Completed)

	deletedID, err := repo.DeleteOwned(ctx, ownerID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deletedID)

	items, total, err = repo.ListByOwner(ctx, ownerID, 1, todos.DefaultPageSize)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

// Wrong password and unknown email come back indistinguishable so login
// failures cannot be used to probe for accounts.
func TestLoginFailureShapes(t *testing.T) {
	ctx := context.Background()
	db := setupIntegrationDB(t)
	manager := todos.NewRepositoryManager(db)

	cfg := testConfig{
		signingKey:      "integration-signing-key",
		tokenExpiration: 1,
		issuer:          "integration",
		audience:        []string{"integration"},
	}

	provider := todos.NewUserProvider(repoStoreAdapter{users: manager.Users()})
	auther := todos.NewAuthenticator(provider, cfg)

	_, _, err := auther.Register(ctx, "Test User", "known@example.com", "password123")
	require.NoError(t, err)

	_, errBadPassword := auther.Login(ctx, "known@example.com", "wrong-password")
	_, errUnknown := auther.Login(ctx, "nobody@example.com", "password123")

	require.Error(t, errBadPassword)
	require.Error(t, errUnknown)
	assert.Equal(t, errBadPassword.Error(), errUnknown.Error())
}
