package todos_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/goliatone/go-todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupUsersDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.NewCreateTable().
		Model((*todos.User)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func TestUsersRegister(t *testing.T) {
	ctx := context.Background()
	db := setupUsersDB(t)
	repo := todos.NewUsersRepository(db)

	created, err := repo.Register(ctx, &todos.User{
		Name:         "Test User",
		Email:        "  Mixed.Case@Example.COM ",
		PasswordHash: "irrelevant-hash",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "mixed.case@example.com", created.Email)
}

func TestUsersGetByIdentifier(t *testing.T) {
	ctx := context.Background()
	db := setupUsersDB(t)
	repo := todos.NewUsersRepository(db)

	created, err := repo.Register(ctx, &todos.User{
		Name:         "Test User",
		Email:        "user@example.com",
		PasswordHash: "irrelevant-hash",
	})
	require.NoError(t, err)

	// By canonical email.
	found, err := repo.GetByIdentifier(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// By mixed-case email; lookup compares lowercased columns.
	found, err = repo.GetByIdentifier(ctx, "USER@Example.Com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// By id.
	found, err = repo.GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Email, found.Email)
}

func TestUsersGetByIdentifierMisses(t *testing.T) {
	ctx := context.Background()
	db := setupUsersDB(t)
	repo := todos.NewUsersRepository(db)

	cases := []string{
		"nobody@example.com",
		uuid.New().String(),
		"not-an-email-or-uuid",
		"",
	}

	for _, identifier := range cases {
		_, err := repo.GetByIdentifier(ctx, identifier)
		require.Error(t, err, "identifier %q", identifier)
		assert.True(t, repository.IsRecordNotFound(err), "identifier %q", identifier)
	}
}

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()
	db := setupUsersDB(t)
	manager := todos.NewRepositoryManager(db)

	handler := todos.NewRegisterUserHandler(manager)

	user, err := handler.Execute(ctx, todos.RegisterUserMessage{
		Name:     "Test User",
		Email:    "Handler@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "handler@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "password123", user.PasswordHash)

	// The same address in a different case collides.
	_, err = handler.Execute(ctx, todos.RegisterUserMessage{
		Name:     "Imposter",
		Email:    "HANDLER@example.COM",
		Password: "password456",
	})
	require.Error(t, err)
	assert.True(t, todos.IsDuplicateIdentity(err))
}
