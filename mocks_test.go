package todos_test

import (
	"context"

	"github.com/goliatone/go-todos"
	"github.com/stretchr/testify/mock"
)

// MockUserStore implements todos.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*todos.User, error) {
	args := m.Called(ctx, identifier)
	if user := args.Get(0); user != nil {
		return user.(*todos.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) Register(ctx context.Context, user *todos.User) (*todos.User, error) {
	args := m.Called(ctx, user)
	if created := args.Get(0); created != nil {
		return created.(*todos.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockIdentityRegistry implements todos.IdentityRegistry
type MockIdentityRegistry struct {
	mock.Mock
}

func (m *MockIdentityRegistry) VerifyIdentity(ctx context.Context, identifier, password string) (todos.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if identity := args.Get(0); identity != nil {
		return identity.(todos.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityRegistry) FindIdentityByIdentifier(ctx context.Context, identifier string) (todos.Identity, error) {
	args := m.Called(ctx, identifier)
	if identity := args.Get(0); identity != nil {
		return identity.(todos.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityRegistry) RegisterUser(ctx context.Context, name, email, password string) (*todos.User, error) {
	args := m.Called(ctx, name, email, password)
	if user := args.Get(0); user != nil {
		return user.(*todos.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenService implements todos.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(identity todos.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) SignClaims(claims *todos.JWTClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (todos.AuthClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(todos.AuthClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockIdentity is a plain value implementing todos.Identity
type mockIdentity struct {
	id    string
	name  string
	email string
}

func (m mockIdentity) ID() string    { return m.id }
func (m mockIdentity) Name() string  { return m.name }
func (m mockIdentity) Email() string { return m.email }

// testConfig implements todos.Config
type testConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	audience        []string
}

func (c testConfig) GetSigningKey() string    { return c.signingKey }
func (c testConfig) GetSigningMethod() string { return "HS256" }
func (c testConfig) GetContextKey() string    { return "user" }
func (c testConfig) GetTokenExpiration() int  { return c.tokenExpiration }
func (c testConfig) GetTokenLookup() string   { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string    { return "Bearer" }
func (c testConfig) GetIssuer() string        { return c.issuer }
func (c testConfig) GetAudience() []string    { return c.audience }
