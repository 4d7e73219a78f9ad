package todos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultPageSize is the list window used when the caller does not specify
// a limit.
const DefaultPageSize = 10

// Todos is the owner-scoped todo store. Every method takes the acting
// owner's id and bakes it into the SQL predicate; a row that exists under a
// different owner is indistinguishable from a row that does not exist.
type Todos interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*Todo, int, error)
	CreateOwned(ctx context.Context, ownerID uuid.UUID, title string, completed bool) (*Todo, error)
	UpdateOwned(ctx context.Context, ownerID, id uuid.UUID, title string, completed bool) (*Todo, error)
	DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (uuid.UUID, error)
}

type todosRepo struct {
	db bun.IDB
}

var _ Todos = (*todosRepo)(nil)

// NewTodosRepository creates the bun-backed todo store.
func NewTodosRepository(db bun.IDB) Todos {
	return &todosRepo{db: db}
}

// ListByOwner returns one page of the owner's todos, newest first, plus the
// owner's full item count. An out-of-range page yields an empty slice with
// the real count, never an error.
func (r *todosRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*Todo, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPageSize
	}

	var items []*Todo
	count, err := r.db.NewSelect().
		Model(&items).
		Where("?TableAlias.owner_id = ?", ownerID).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*Todo{}, count, nil
		}
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to list todos")
	}

	if items == nil {
		items = []*Todo{}
	}

	return items, count, nil
}

// CreateOwned inserts a new todo under ownerID.
func (r *todosRepo) CreateOwned(ctx context.Context, ownerID uuid.UUID, title string, completed bool) (*Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	now := time.Now()
	record := &Todo{
		ID:        uuid.New(),
		Title:     title,
		Completed: completed,
		OwnerID:   ownerID,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create todo")
	}

	return record, nil
}

// UpdateOwned rewrites title and completed on the owner's row. Zero affected
// rows collapses "missing" and "owned by someone else" into ErrTodoNotFound.
func (r *todosRepo) UpdateOwned(ctx context.Context, ownerID, id uuid.UUID, title string, completed bool) (*Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	now := time.Now()
	record := &Todo{
		ID:        id,
		Title:     title,
		Completed: completed,
		OwnerID:   ownerID,
		UpdatedAt: &now,
	}

	res, err := r.db.NewUpdate().
		Model(record).
		Column("title", "completed", "updated_at").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", ownerID).
		Exec(ctx)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update todo")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrTodoNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	// Re-read so callers see server-assigned fields, not the sparse model.
	fresh := &Todo{}
	err = r.db.NewSelect().
		Model(fresh).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", ownerID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound.WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to reload todo")
	}

	return fresh, nil
}

// DeleteOwned removes the owner's row, returning the deleted id. Deleting a
// row twice reports ErrTodoNotFound on the second call.
func (r *todosRepo) DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (uuid.UUID, error) {
	res, err := r.db.NewDelete().
		Model((*Todo)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", ownerID).
		Exec(ctx)

	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryInternal, "failed to delete todo")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return uuid.Nil, ErrTodoNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return id, nil
}
