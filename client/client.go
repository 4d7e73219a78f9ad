// Package client holds the consumer side of the todos API: a typed HTTP
// client, a session lifecycle manager that enforces an idle window on top of
// the server token, and a synchronizer that keeps a local page cache
// consistent with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-todos"
)

const (
	// TextCodeTransportFailure tags network level failures, as opposed to an
	// HTTP response carrying an application error.
	TextCodeTransportFailure = "TRANSPORT_FAILURE"
)

// ErrTransportFailure is returned when a request never produced an HTTP
// response. Retryable, unlike the application errors the server answers with.
var ErrTransportFailure = errors.New("transport failure", errors.CategoryExternal).
	WithTextCode(TextCodeTransportFailure)

// TokenSource supplies the bearer token for authorized calls. The
// SessionManager implements it.
type TokenSource interface {
	Token() (string, error)
}

// Config holds API client configuration.
type Config struct {
	BaseURL string
	Tokens  TokenSource

	HTTPClient *http.Client
}

// Client is a typed HTTP client for the todos API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New creates an API client. Tokens may be nil when only the public auth
// endpoints are needed.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		tokens:     cfg.Tokens,
		httpClient: httpClient,
	}
}

// AuthResponse is the body of a successful register or login call.
type AuthResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// Profile is the body of /auth/me.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TodoItem is the wire representation of a todo.
type TodoItem struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	OwnerID   string     `json:"owner_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Register creates an account and returns the fresh token with the profile.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	out := new(AuthResponse)
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, false, out, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	out := new(AuthResponse)
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, false, out, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	out := new(Profile)
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, true, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTodos fetches one page and the total row count from the x-total-count
// header.
func (c *Client) ListTodos(ctx context.Context, page, limit int) ([]TodoItem, int, error) {
	var items []TodoItem
	total := 0

	path := fmt.Sprintf("/todos?page=%d&limit=%d", page, limit)
	err := c.doJSON(ctx, http.MethodGet, path, nil, true, &items, func(resp *http.Response) {
		if raw := resp.Header.Get("x-total-count"); raw != "" {
			if val, err := strconv.Atoi(raw); err == nil {
				total = val
			}
		}
	})
	if err != nil {
		return nil, 0, err
	}

	if items == nil {
		items = []TodoItem{}
	}

	return items, total, nil
}

// CreateTodo creates a todo owned by the current session's user.
func (c *Client) CreateTodo(ctx context.Context, title string, completed bool) (*TodoItem, error) {
	out := new(TodoItem)
	err := c.doJSON(ctx, http.MethodPost, "/todos", map[string]any{
		"title":     title,
		"completed": completed,
	}, true, out, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTodo replaces title and completed on an owned todo.
func (c *Client) UpdateTodo(ctx context.Context, id, title string, completed bool) (*TodoItem, error) {
	out := new(TodoItem)
	err := c.doJSON(ctx, http.MethodPut, "/todos/"+id, map[string]any{
		"title":     title,
		"completed": completed,
	}, true, out, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTodo removes an owned todo, returning the deleted id.
func (c *Client) DeleteTodo(ctx context.Context, id string) (string, error) {
	out := struct {
		ID string `json:"id"`
	}{}
	if err := c.doJSON(ctx, http.MethodDelete, "/todos/"+id, nil, true, &out, nil); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, authorized bool, out any, inspect func(*http.Response)) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "unable to encode request body")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unable to build request")
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authorized {
		token, err := c.tokenFromSource()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, ErrTransportFailure.Message).
			WithTextCode(TextCodeTransportFailure)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, ErrTransportFailure.Message).
			WithTextCode(TextCodeTransportFailure)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, raw)
	}

	if inspect != nil {
		inspect(resp)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "unable to decode response body")
		}
	}

	return nil
}

func (c *Client) tokenFromSource() (string, error) {
	if c.tokens == nil {
		return "", ErrSessionNotActive
	}
	return c.tokens.Token()
}

type apiErrorBody struct {
	Message  string `json:"message"`
	TextCode string `json:"text_code"`
}

// apiError maps an HTTP failure back onto the shared error taxonomy so
// callers can branch with the same helpers on both sides of the wire.
func apiError(status int, raw []byte) error {
	body := apiErrorBody{}
	// Body may not be JSON; the status code still decides the mapping.
	_ = json.Unmarshal(raw, &body)

	switch status {
	case http.StatusUnauthorized:
		switch body.TextCode {
		case todos.TextCodeTokenExpired:
			return todos.ErrTokenExpired
		case todos.TextCodeTokenMalformed:
			return todos.ErrTokenMalformed
		case todos.TextCodeInvalidCreds:
			return todos.ErrMismatchedHashAndPassword
		}
		return todos.ErrUnauthenticated
	case http.StatusNotFound:
		return todos.ErrTodoNotFound
	case http.StatusBadRequest:
		switch body.TextCode {
		case todos.TextCodeDuplicateIdentity:
			return todos.ErrDuplicateIdentity
		case todos.TextCodeEmptyTitle:
			return todos.ErrEmptyTitle
		}
		return errors.New(messageOrDefault(body.Message, "invalid request"), errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode(body.TextCode)
	}

	return errors.New(messageOrDefault(body.Message, "server error"), errors.CategoryExternal).
		WithCode(status).
		WithTextCode(body.TextCode)
}

func messageOrDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
