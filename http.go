package todos

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-todos/middleware/jwtware"
)

// Middleware is the route-protection surface the API controller needs.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// HTTPAuthenticator glues the Authenticator to HTTP routes.
type HTTPAuthenticator interface {
	Middleware
	MakeAPIAuthErrorHandler() func(c router.Context, err error) error
}

type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute wraps a handler with bearer-token validation. The verified
// claims end up in the router locals under the configured context key.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: tokenValidatorAdapter{auth: a.auth},
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
	})
}

// MakeAPIAuthErrorHandler renders every token failure as a 401 JSON payload.
// The body carries the text code so API clients can cascade a forced logout.
func (a *RouteAuthenticator) MakeAPIAuthErrorHandler() func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, ErrUnauthenticated.Message).
				WithTextCode(ErrUnauthenticated.TextCode).
				WithCode(errors.CodeUnauthorized)
		}

		a.Logger.Info("Authentication error",
			"error", richErr.Message,
			"text_code", richErr.TextCode,
			"path", ctx.OriginalURL(),
		)

		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		})
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	return c.JSON(richErr.Code, map[string]any{
		"message":   richErr.Message,
		"text_code": richErr.TextCode,
	})
}

// tokenValidatorAdapter lets the jwtware package validate tokens without
// importing this one.
type tokenValidatorAdapter struct {
	auth Authenticator
}

func (t tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	session, err := t.auth.SessionFromToken(tokenString)
	if err != nil {
		return nil, err
	}

	return sessionClaims{session: session}, nil
}

// sessionClaims adapts a Session to the claims surface jwtware stores in the
// request locals. It also satisfies AuthClaims so handlers can recover the
// owner id through GetRouterClaims.
type sessionClaims struct {
	session Session
}

var _ AuthClaims = sessionClaims{}

func (s sessionClaims) Subject() string {
	return s.session.GetUserID()
}

func (s sessionClaims) UserID() string {
	return s.session.GetUserID()
}

func (s sessionClaims) Expires() time.Time {
	if exp := s.session.GetExpiration(); exp != nil {
		return *exp
	}
	return time.Time{}
}

func (s sessionClaims) IssuedAt() time.Time {
	if iat := s.session.GetIssuedAt(); iat != nil {
		return *iat
	}
	return time.Time{}
}
