package todos_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/goliatone/go-todos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTodosDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.NewCreateTable().
		Model((*todos.Todo)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

// seedTodos inserts count rows for ownerID with strictly increasing
// created_at so newest-first ordering is deterministic.
func seedTodos(t *testing.T, db *bun.DB, ownerID uuid.UUID, count int) []*todos.Todo {
	t.Helper()

	base := time.Now().Add(-time.Duration(count) * time.Minute)

	items := make([]*todos.Todo, 0, count)
	for i := 1; i <= count; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		items = append(items, &todos.Todo{
			ID:        uuid.New(),
			Title:     fmt.Sprintf("item-%d", i),
			OwnerID:   ownerID,
			CreatedAt: &ts,
			UpdatedAt: &ts,
		})
	}

	_, err := db.NewInsert().Model(&items).Exec(context.Background())
	require.NoError(t, err)

	return items
}

func TestCreateOwned(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)
	ownerID := uuid.New()

	todo, err := repo.CreateOwned(ctx, ownerID, "  buy milk  ", false)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, todo.ID)
	assert.Equal(t, "buy milk", todo.Title)
	assert.False(t, todo.Completed)
	assert.Equal(t, ownerID, todo.OwnerID)
	require.NotNil(t, todo.CreatedAt)
}

func TestCreateOwnedEmptyTitle(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := repo.CreateOwned(ctx, uuid.New(), title, false)
		assert.ErrorIs(t, err, todos.ErrEmptyTitle)
	}
}

func TestListByOwnerPagination(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	other := uuid.New()
	seedTodos(t, db, owner, 25)
	seedTodos(t, db, other, 3)

	page1, total, err := repo.ListByOwner(ctx, owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, page1, 10)

	// Newest first: the last seeded row leads the first page.
	assert.Equal(t, "item-25", page1[0].Title)
	assert.Equal(t, "item-16", page1[9].Title)

	page3, total, err := repo.ListByOwner(ctx, owner, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, page3, 5)
	assert.Equal(t, "item-5", page3[0].Title)
	assert.Equal(t, "item-1", page3[4].Title)
}

func TestListByOwnerOutOfRangePage(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	seedTodos(t, db, owner, 5)

	items, total, err := repo.ListByOwner(ctx, owner, 99, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, items)
}

func TestListByOwnerDefaults(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	seedTodos(t, db, owner, 12)

	// page 0 and a non-positive limit fall back to page 1 / default size.
	items, total, err := repo.ListByOwner(ctx, owner, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, items, todos.DefaultPageSize)
}

func TestListByOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	other := uuid.New()
	mine := seedTodos(t, db, owner, 4)
	seedTodos(t, db, other, 4)

	items, total, err := repo.ListByOwner(ctx, owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 4)

	ids := map[uuid.UUID]bool{}
	for _, item := range mine {
		ids[item.ID] = true
	}
	for _, item := range items {
		assert.True(t, ids[item.ID], "list leaked a foreign row")
		assert.Equal(t, owner, item.OwnerID)
	}

	// A user with no rows gets an empty page, not an error.
	items, total, err = repo.ListByOwner(ctx, uuid.New(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestUpdateOwned(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	created, err := repo.CreateOwned(ctx, owner, "original", false)
	require.NoError(t, err)

	updated, err := repo.UpdateOwned(ctx, owner, created.ID, "changed", true)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "changed", updated.Title)
	assert.True(t, updated.Completed)
}

func TestUpdateOwnedForeignRow(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	intruder := uuid.New()
	created, err := repo.CreateOwned(ctx, owner, "mine", false)
	require.NoError(t, err)

	// Another user's update and an update of a random id answer identically.
	_, errForeign := repo.UpdateOwned(ctx, intruder, created.ID, "hijacked", true)
	_, errMissing := repo.UpdateOwned(ctx, intruder, uuid.New(), "hijacked", true)

	require.Error(t, errForeign)
	require.Error(t, errMissing)
	assert.True(t, todos.IsNotFoundOrForbidden(errForeign))
	assert.True(t, todos.IsNotFoundOrForbidden(errMissing))

	// The row is untouched for its owner.
	items, _, err := repo.ListByOwner(ctx, owner, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "mine", items[0].Title)
	assert.False(t, items[0].Completed)
}

func TestUpdateOwnedEmptyTitle(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	created, err := repo.CreateOwned(ctx, owner, "fine", false)
	require.NoError(t, err)

	_, err = repo.UpdateOwned(ctx, owner, created.ID, "   ", true)
	assert.ErrorIs(t, err, todos.ErrEmptyTitle)
}

func TestDeleteOwned(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	created, err := repo.CreateOwned(ctx, owner, "short lived", false)
	require.NoError(t, err)

	deleted, err := repo.DeleteOwned(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted)

	// Deleting the same row twice reports the merged not-found.
	_, err = repo.DeleteOwned(ctx, owner, created.ID)
	require.Error(t, err)
	assert.True(t, todos.IsNotFoundOrForbidden(err))
}

func TestDeleteOwnedForeignRow(t *testing.T) {
	ctx := context.Background()
	db := setupTodosDB(t)
	repo := todos.NewTodosRepository(db)

	owner := uuid.New()
	intruder := uuid.New()
	created, err := repo.CreateOwned(ctx, owner, "keep me", false)
	require.NoError(t, err)

	_, err = repo.DeleteOwned(ctx, intruder, created.ID)
	require.Error(t, err)
	assert.True(t, todos.IsNotFoundOrForbidden(err))

	items, total, err := repo.ListByOwner(ctx, owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
}
