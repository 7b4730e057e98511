package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edulab/authcore/pkg/password"
	"github.com/edulab/authcore/pkg/sessions"
	"github.com/edulab/authcore/pkg/tokens"
	"github.com/edulab/authcore/pkg/users"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T, store *MockUserStore, opts ...ServiceOption) (*Service, *sessions.MemoryStore) {
	t.Helper()

	codec, err := tokens.New(testSecret)
	require.NoError(t, err)

	mem := sessions.NewMemoryStore()
	hasher := password.New(password.WithCost(bcrypt.MinCost))
	return NewService(store, mem, codec, hasher, opts...), mem
}

func activeUser(t *testing.T, plaintext string) *users.User {
	t.Helper()

	hash, err := password.New(password.WithCost(bcrypt.MinCost)).Hash(plaintext)
	require.NoError(t, err)
	return &users.User{
		ID:           42,
		FirstName:    "Ivan",
		Email:        "ivan@example.com",
		PasswordHash: &hash,
		Role:         users.RoleUser,
		Active:       true,
	}
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)

		store.On("Add", mock.Anything, mock.MatchedBy(func(u *users.User) bool {
			return u.Email == "ivan@example.com" &&
				u.PasswordHash != nil && *u.PasswordHash != "secret-password"
		})).Return(&users.User{ID: 1, Email: "ivan@example.com"}, nil)

		created, err := svc.Register(ctx, RegisterParams{
			FirstName: "Ivan",
			Email:     "  Ivan@Example.COM ",
			Password:  "secret-password",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		store.AssertExpectations(t)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)

		_, err := svc.Register(ctx, RegisterParams{Email: "not-an-email", Password: "secret-password"})
		assert.ErrorIs(t, err, ErrInvalidEmail)
		store.AssertNotCalled(t, "Add")
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)

		_, err := svc.Register(ctx, RegisterParams{Email: "a@b.com", Password: "short"})
		assert.ErrorIs(t, err, ErrPasswordTooWeak)
	})

	t.Run("propagates directory conflict", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		store.On("Add", mock.Anything, mock.Anything).Return(nil, users.ErrConflict)

		_, err := svc.Register(ctx, RegisterParams{Email: "a@b.com", Password: "secret-password"})
		assert.ErrorIs(t, err, users.ErrConflict)
	})
}

func TestService_Authenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid email and password", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, mem := newTestService(t, store)
		u := activeUser(t, "correct horse")
		store.On("GetByField", mock.Anything, users.FieldEmail, "ivan@example.com").Return(u, nil)

		token, err := svc.Authenticate(ctx, "Ivan@Example.com", "correct horse")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		snap, err := mem.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), snap.UserID)
		assert.Equal(t, "ivan@example.com", snap.Email)
	})

	t.Run("identifier without at sign looked up as phone", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		u := activeUser(t, "correct horse")
		store.On("GetByField", mock.Anything, users.FieldPhone, "+79990001122").Return(u, nil)

		_, err := svc.Authenticate(ctx, "+79990001122", "correct horse")
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		store.On("GetByField", mock.Anything, users.FieldEmail, "ghost@example.com").Return(nil, users.ErrNotFound)

		_, err := svc.Authenticate(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("inactive user", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		u := activeUser(t, "correct horse")
		u.Active = false
		store.On("GetByField", mock.Anything, users.FieldEmail, "ivan@example.com").Return(u, nil)

		_, err := svc.Authenticate(ctx, "ivan@example.com", "correct horse")
		assert.ErrorIs(t, err, ErrUserInactive)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		store.On("GetByField", mock.Anything, users.FieldEmail, "ivan@example.com").Return(activeUser(t, "correct horse"), nil)

		_, err := svc.Authenticate(ctx, "ivan@example.com", "wrong horse")
		assert.ErrorIs(t, err, ErrBadPassword)
	})

	t.Run("provider-only account has no password", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		u := activeUser(t, "correct horse")
		u.PasswordHash = nil
		gid := "g-1"
		u.GoogleID = &gid
		store.On("GetByField", mock.Anything, users.FieldEmail, "ivan@example.com").Return(u, nil)

		_, err := svc.Authenticate(ctx, "ivan@example.com", "correct horse")
		assert.ErrorIs(t, err, ErrBadPassword)
	})

	t.Run("every failure collapses to invalid credentials", func(t *testing.T) {
		t.Parallel()

		for _, sentinel := range []error{ErrUserNotFound, ErrUserInactive, ErrBadPassword} {
			assert.ErrorIs(t, sentinel, ErrInvalidCredentials)
		}
	})
}

func TestService_ValidateAndLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		token, err := svc.IssueSession(ctx, activeUser(t, "pw"))
		require.NoError(t, err)

		snap, err := svc.Validate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "ivan@example.com", snap.Email)
		assert.Equal(t, string(users.RoleUser), snap.Role)

		require.NoError(t, svc.Logout(ctx, token))

		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("revoked token with valid signature is rejected", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, mem := newTestService(t, store)
		token, err := svc.IssueSession(ctx, activeUser(t, "pw"))
		require.NoError(t, err)

		require.NoError(t, mem.DeleteSession(ctx, token))

		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("malformed token fails validation", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)

		_, err := svc.Validate(ctx, "not.a.token")
		assert.ErrorIs(t, err, tokens.ErrMalformed)
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		token, err := svc.IssueSession(ctx, activeUser(t, "pw"))
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, token))
		require.NoError(t, svc.Logout(ctx, token))
	})

	t.Run("expired token can still log out", func(t *testing.T) {
		t.Parallel()

		past := time.Now().Add(-time.Hour)
		codec, err := tokens.New(testSecret, tokens.WithClock(func() time.Time { return past }))
		require.NoError(t, err)
		expired, err := codec.Issue("ivan@example.com", time.Minute)
		require.NoError(t, err)

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)

		_, err = svc.Validate(ctx, expired)
		assert.ErrorIs(t, err, tokens.ErrExpired)
		assert.NoError(t, svc.Logout(ctx, expired))
	})

	t.Run("garbage token logout is a no-op", func(t *testing.T) {
		t.Parallel()

		store := &MockUserStore{}
		svc, _ := newTestService(t, store)
		assert.NoError(t, svc.Logout(ctx, "garbage"))
	})
}

func TestService_RevokeUserSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &MockUserStore{}
	svc, _ := newTestService(t, store)
	u := activeUser(t, "pw")

	first, err := svc.IssueSession(ctx, u)
	require.NoError(t, err)
	second, err := svc.IssueSession(ctx, u)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, svc.RevokeUserSessions(ctx, "Ivan@Example.com"))

	_, err = svc.Validate(ctx, first)
	assert.ErrorIs(t, err, sessions.ErrNotFound)
	_, err = svc.Validate(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sessions.ErrNotFound))
}
