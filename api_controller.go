package todos

import (
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// APIControllerRoutes holds the mount points for the JSON API.
type APIControllerRoutes struct {
	Register string
	Login    string
	Me       string
	Todos    string
}

type APIController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *APIControllerRoutes
	Auther       Authenticator
	Middleware   HTTPAuthenticator
	Config       Config
	ErrorHandler router.ErrorHandler
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger: defLogger{},
		Routes: &APIControllerRoutes{
			Register: "/auth/register",
			Login:    "/auth/login",
			Me:       "/auth/me",
			Todos:    "/todos",
		},
	}

	c.ErrorHandler = c.respondError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in API controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in API controller...")
	}

	if c.Middleware == nil {
		panic("Missing HTTPAuthenticator in API controller...")
	}

	if c.Config == nil {
		panic("Missing Config in API controller...")
	}

	return c
}

func WithAPILogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAPIRepo(repo RepositoryManager) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Repo = repo
		return c
	}
}

func WithAPIAuthenticator(auther Authenticator) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Auther = auther
		return c
	}
}

func WithAPIMiddleware(mw HTTPAuthenticator) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Middleware = mw
		return c
	}
}

func WithAPIConfig(cfg Config) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Config = cfg
		return c
	}
}

func WithAPIDebug(debug bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Debug = debug
		return c
	}
}

// RegisterAPIRoutes mounts the JSON endpoints. The todo routes and /auth/me
// sit behind bearer-token validation; register and login are public.
func RegisterAPIRoutes[T any](app router.Router[T], opts ...APIControllerOption) {
	c := NewAPIController(opts...)

	protected := c.Middleware.ProtectedRoute(c.Config, c.Middleware.MakeAPIAuthErrorHandler())

	app.Post(c.Routes.Register, c.RegisterPost).SetName("api.auth.register")
	app.Post(c.Routes.Login, c.LoginPost).SetName("api.auth.login")
	app.Get(c.Routes.Me, c.MeShow, protected).SetName("api.auth.me")

	app.Get(c.Routes.Todos, c.TodosIndex, protected).SetName("api.todos.index")
	app.Post(c.Routes.Todos, c.TodosCreate, protected).SetName("api.todos.create")
	app.Put(c.Routes.Todos+"/:id", c.TodosUpdate, protected).SetName("api.todos.update")
	app.Delete(c.Routes.Todos+"/:id", c.TodosDelete, protected).SetName("api.todos.delete")
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

// LoginPayload is the login body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// TodoPayload is the body for todo create and update
type TodoPayload struct {
	Title     string `form:"title" json:"title"`
	Completed bool   `form:"completed" json:"completed"`
}

// Validate will run validation rules
func (r TodoPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
	)
}

func (a *APIController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(RegisterPayload{
			Name:  payload.Name,
			Email: payload.Email,
		}))
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("register user", "error", err, "email", NormalizeEmail(payload.Email))
		return a.ErrorHandler(ctx, err)
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("register issue token", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"id":    user.ID.String(),
		"name":  user.Name,
		"email": user.Email,
		"token": token,
	})
}

func (a *APIController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Info("login rejected", "email", NormalizeEmail(payload.Email))
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), payload.Email)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"id":    user.ID.String(),
		"name":  user.Name,
		"email": user.Email,
		"token": token,
	})
}

func (a *APIController) MeShow(ctx router.Context) error {
	ownerID, err := OwnerFromRouterContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ownerID.String())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"id":    user.ID.String(),
		"name":  user.Name,
		"email": user.Email,
	})
}

func (a *APIController) TodosIndex(ctx router.Context) error {
	ownerID, err := OwnerFromRouterContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	page := queryInt(ctx, "page", 1)
	limit := queryInt(ctx, "limit", DefaultPageSize)

	items, total, err := a.Repo.Todos().ListByOwner(ctx.Context(), ownerID, page, limit)
	if err != nil {
		a.Logger.Error("todos list", "error", err, "owner", ownerID)
		return a.ErrorHandler(ctx, err)
	}

	ctx.SetHeader("x-total-count", strconv.Itoa(total))

	return ctx.JSON(router.StatusOK, items)
}

func (a *APIController) TodosCreate(ctx router.Context) error {
	ownerID, err := OwnerFromRouterContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(TodoPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.respondValidation(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	todo, err := a.Repo.Todos().CreateOwned(ctx.Context(), ownerID, payload.Title, payload.Completed)
	if err != nil {
		a.Logger.Error("todo create", "error", err, "owner", ownerID)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, todo)
}

func (a *APIController) TodosUpdate(ctx router.Context) error {
	ownerID, err := OwnerFromRouterContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := todoIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(TodoPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.respondValidation(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	todo, err := a.Repo.Todos().UpdateOwned(ctx.Context(), ownerID, id, payload.Title, payload.Completed)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, todo)
}

func (a *APIController) TodosDelete(ctx router.Context) error {
	ownerID, err := OwnerFromRouterContext(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := todoIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	deleted, err := a.Repo.Todos().DeleteOwned(ctx.Context(), ownerID, id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"id": deleted.String(),
	})
}

// todoIDParam parses the :id route segment. A non-UUID id gets the same
// merged not-found answer as a row the caller does not own.
func todoIDParam(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	if raw == "" {
		return uuid.Nil, ErrTodoNotFound
	}

	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrTodoNotFound
	}

	return id, nil
}

func queryInt(ctx router.Context, name string, def int) int {
	raw := ctx.Query(name, "")
	if raw == "" {
		return def
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return val
}

// respondError maps the error taxonomy onto HTTP statuses. Rich errors carry
// their own status code; everything else is a 500.
func (a *APIController) respondError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = errors.CodeInternal
	}

	if status >= 500 {
		a.Logger.Error("api error", "error", err)
	}

	return ctx.JSON(status, map[string]any{
		"message":   richErr.Message,
		"text_code": richErr.TextCode,
	})
}

// respondValidation renders bind and ozzo validation failures as a 400 with a
// per-field error map.
func (a *APIController) respondValidation(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"message":    "validation failed",
		"text_code":  "VALIDATION_ERROR",
		"validation": FormatValidationErrorToMap(err),
	})
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field-to-message map. Non-field errors land under "payload".
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}
