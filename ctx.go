package todos

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// OwnerFromRouterContext resolves the verified owner id stored by the JWT
// middleware. Handlers use this; they never read the Authorization header
// themselves.
func OwnerFromRouterContext(ctx router.Context, key string) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}

	ownerID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrUnableToDecodeSession
	}

	return ownerID, nil
}
