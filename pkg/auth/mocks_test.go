package auth

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edulab/authcore/pkg/users"
)

// MockUserStore is a mock implementation of UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Add(ctx context.Context, u *users.User) (*users.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserStore) GetByField(ctx context.Context, field users.Field, value any) (*users.User, error) {
	args := m.Called(ctx, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserStore) GetByProvider(ctx context.Context, provider, providerID string) (*users.User, error) {
	args := m.Called(ctx, provider, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserStore) LinkProvider(ctx context.Context, id int64, provider, providerID string) error {
	args := m.Called(ctx, id, provider, providerID)
	return args.Error(0)
}

// MockProviderAdapter is a mock implementation of ProviderAdapter.
type MockProviderAdapter struct {
	mock.Mock
}

func (m *MockProviderAdapter) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProviderAdapter) UsesPKCE() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockProviderAdapter) CheckConfig() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockProviderAdapter) AuthCodeURL(state, verifier string) string {
	args := m.Called(state, verifier)
	return args.String(0)
}

func (m *MockProviderAdapter) Exchange(ctx context.Context, code, verifier string) (string, error) {
	args := m.Called(ctx, code, verifier)
	return args.String(0), args.Error(1)
}

func (m *MockProviderAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(Profile), args.Error(1)
}
