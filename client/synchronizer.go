package client

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-todos"
)

// StatusFilter selects which completion states are visible.
type StatusFilter string

const (
	// StatusAll shows every cached item.
	StatusAll StatusFilter = "all"
	// StatusActive shows items not yet completed.
	StatusActive StatusFilter = "active"
	// StatusCompleted shows completed items.
	StatusCompleted StatusFilter = "completed"
)

// PaginationState mirrors the server's view of the collection.
type PaginationState struct {
	CurrentPage  int
	TotalPages   int
	TotalItems   int
	ItemsPerPage int
}

// FilterState is the pure client-side view filter. It never triggers a
// server call and never changes pagination.
type FilterState struct {
	Status StatusFilter
	Query  string
}

// TodoAPI is the server surface the synchronizer drives.
type TodoAPI interface {
	ListTodos(ctx context.Context, page, limit int) ([]TodoItem, int, error)
	CreateTodo(ctx context.Context, title string, completed bool) (*TodoItem, error)
	UpdateTodo(ctx context.Context, id, title string, completed bool) (*TodoItem, error)
	DeleteTodo(ctx context.Context, id string) (string, error)
}

// SessionController is the slice of the session manager the synchronizer
// needs: gate on Active, force a logout when the server rejects the token.
type SessionController interface {
	State() SessionState
	Logout()
}

// SynchronizerOption customizes synchronizer construction.
type SynchronizerOption func(*Synchronizer)

// WithItemsPerPage overrides the page size requested from the server.
func WithItemsPerPage(perPage int) SynchronizerOption {
	return func(s *Synchronizer) {
		if perPage > 0 {
			s.pagination.ItemsPerPage = perPage
		}
	}
}

// Synchronizer keeps one page of todos cached locally and applies every
// mutation server-first: the cache only changes after the server confirmed.
// A failed call leaves the cache exactly as it was.
type Synchronizer struct {
	mu sync.Mutex

	api     TodoAPI
	session SessionController

	items      []TodoItem
	pagination PaginationState
	filter     FilterState
	current    *TodoItem
}

// NewSynchronizer creates a synchronizer over api, gated by session.
func NewSynchronizer(api TodoAPI, session SessionController, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		api:     api,
		session: session,
		items:   []TodoItem{},
		pagination: PaginationState{
			CurrentPage:  1,
			ItemsPerPage: todos.DefaultPageSize,
		},
		filter: FilterState{Status: StatusAll},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// LoadPage fetches a page and replaces the cache. On failure the previous
// cache, filter, and pagination all survive untouched.
func (s *Synchronizer) LoadPage(ctx context.Context, page int) error {
	if err := s.requireActive(); err != nil {
		return err
	}

	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	perPage := s.pagination.ItemsPerPage
	s.mu.Unlock()

	items, total, err := s.api.ListTodos(ctx, page, perPage)
	if err != nil {
		return s.cascade(err)
	}

	s.mu.Lock()
	s.items = items
	s.pagination.CurrentPage = page
	s.pagination.TotalItems = total
	s.pagination.TotalPages = pageCount(total, perPage)
	s.mu.Unlock()

	return nil
}

// AddItem creates a todo on the server, then prepends it so it shows where
// the next newest-first reload would place it.
func (s *Synchronizer) AddItem(ctx context.Context, title string, completed bool) (*TodoItem, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}

	item, err := s.api.CreateTodo(ctx, title, completed)
	if err != nil {
		return nil, s.cascade(err)
	}

	s.mu.Lock()
	s.items = append([]TodoItem{*item}, s.items...)
	s.pagination.TotalItems++
	s.pagination.TotalPages = pageCount(s.pagination.TotalItems, s.pagination.ItemsPerPage)
	s.current = item
	s.mu.Unlock()

	return item, nil
}

// EditItem updates a todo on the server, then replaces the cached copy in
// place. A merged not-found answer leaves the stale cached row alone; the
// next LoadPage reconciles.
func (s *Synchronizer) EditItem(ctx context.Context, id, title string, completed bool) (*TodoItem, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}

	item, err := s.api.UpdateTodo(ctx, id, title, completed)
	if err != nil {
		return nil, s.cascade(err)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = *item
			break
		}
	}
	s.current = item
	s.mu.Unlock()

	return item, nil
}

// RemoveItem deletes a todo on the server, then drops it from the cache.
func (s *Synchronizer) RemoveItem(ctx context.Context, id string) error {
	if err := s.requireActive(); err != nil {
		return err
	}

	deleted, err := s.api.DeleteTodo(ctx, id)
	if err != nil {
		return s.cascade(err)
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != deleted {
			kept = append(kept, item)
		}
	}
	s.items = kept
	if s.pagination.TotalItems > 0 {
		s.pagination.TotalItems--
	}
	s.pagination.TotalPages = pageCount(s.pagination.TotalItems, s.pagination.ItemsPerPage)
	if s.current != nil && s.current.ID == deleted {
		s.current = nil
	}
	s.mu.Unlock()

	return nil
}

// ApplyFilter sets the view filter. Purely local.
func (s *Synchronizer) ApplyFilter(status StatusFilter, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == "" {
		status = StatusAll
	}

	s.filter = FilterState{Status: status, Query: query}
}

// Visible returns the cached items that pass the current filter: exact
// completion-state match plus case-insensitive substring match on the title.
func (s *Synchronizer) Visible() []TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(s.filter.Query))

	out := []TodoItem{}
	for _, item := range s.items {
		switch s.filter.Status {
		case StatusActive:
			if item.Completed {
				continue
			}
		case StatusCompleted:
			if !item.Completed {
				continue
			}
		}

		if query != "" && !strings.Contains(strings.ToLower(item.Title), query) {
			continue
		}

		out = append(out, item)
	}

	return out
}

// Items returns a copy of the raw cached page.
func (s *Synchronizer) Items() []TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TodoItem, len(s.items))
	copy(out, s.items)
	return out
}

// Current returns the most recently created or edited item.
func (s *Synchronizer) Current() *TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	item := *s.current
	return &item
}

// Pagination returns the current pagination snapshot.
func (s *Synchronizer) Pagination() PaginationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// Filter returns the current filter snapshot.
func (s *Synchronizer) Filter() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Synchronizer) requireActive() error {
	if s.session == nil {
		return nil
	}
	if s.session.State() != SessionActive {
		return ErrSessionNotActive
	}
	return nil
}

// cascade inspects a server error; an authentication rejection means the
// held token is no longer honored, so the session is logged out before the
// error is handed back.
func (s *Synchronizer) cascade(err error) error {
	if err == nil {
		return nil
	}

	if s.session != nil && isUnauthenticated(err) {
		s.session.Logout()
	}

	return err
}

func isUnauthenticated(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}

	switch richErr.TextCode {
	case todos.TextCodeUnauthenticated, todos.TextCodeTokenExpired, todos.TextCodeTokenMalformed:
		return true
	}

	return false
}

// pageCount is ceil(total/perPage); an empty collection has zero pages.
func pageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
