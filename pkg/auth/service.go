package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edulab/authcore/pkg/password"
	"github.com/edulab/authcore/pkg/sessions"
	"github.com/edulab/authcore/pkg/tokens"
	"github.com/edulab/authcore/pkg/users"
)

// UserStore is the slice of the user directory the orchestrators need.
type UserStore interface {
	Add(ctx context.Context, u *users.User) (*users.User, error)
	GetByField(ctx context.Context, field users.Field, value any) (*users.User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*users.User, error)
	LinkProvider(ctx context.Context, id int64, provider, providerID string) error
}

// DefaultTokenTTL is the session lifetime unless configured otherwise.
const DefaultTokenTTL = 30 * time.Minute

// Service is the single path through which session tokens are minted and
// revoked. Codec and store always see the same TTL, so the stateless
// expiry and the cached entry cannot diverge.
type Service struct {
	users    UserStore
	store    sessions.Store
	codec    *tokens.Codec
	hasher   *password.Hasher
	logger   *slog.Logger
	tokenTTL time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithTokenTTL sets the session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService wires the auth orchestrator.
func NewService(userStore UserStore, store sessions.Store, codec *tokens.Codec, hasher *password.Hasher, opts ...ServiceOption) *Service {
	s := &Service{
		users:    userStore,
		store:    store,
		codec:    codec,
		hasher:   hasher,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tokenTTL: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams is the password-registration input.
type RegisterParams struct {
	FirstName  string
	LastName   string
	MiddleName string
	Email      string
	Phone      string
	Password   string
}

// Register creates a password-based account. Uniqueness of email and
// phone is enforced by the directory's constraints and surfaces as
// users.ErrConflict.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*users.User, error) {
	email := normalizeEmail(params.Email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(params.Password) < 8 {
		return nil, ErrPasswordTooWeak
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &users.User{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        email,
		PasswordHash: &hash,
	}
	if params.MiddleName != "" {
		u.MiddleName = &params.MiddleName
	}
	if params.Phone != "" {
		phone := params.Phone
		u.Phone = &phone
	}

	created, err := s.users.Add(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", created.ID),
		slog.String("email", created.Email),
	)
	return created, nil
}

// Authenticate verifies an identifier/password pair and returns a fresh
// session token. An identifier containing '@' is treated as an email,
// anything else as a phone number. Every failure satisfies
// errors.Is(err, ErrInvalidCredentials); the boundary must not reveal
// which check failed.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (string, error) {
	field := users.FieldPhone
	value := identifier
	if strings.Contains(identifier, "@") {
		field = users.FieldEmail
		value = normalizeEmail(identifier)
	}

	u, err := s.users.GetByField(ctx, field, value)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if !u.Active {
		return "", ErrUserInactive
	}
	// Provider-only accounts have no password to check against.
	if u.PasswordHash == nil || !s.hasher.Verify(*u.PasswordHash, password) {
		return "", ErrBadPassword
	}

	return s.IssueSession(ctx, u)
}

// IssueSession mints a token for u and caches its snapshot. This is the
// only place tokens are created; the OAuth flow relies on it too.
func (s *Service) IssueSession(ctx context.Context, u *users.User) (string, error) {
	token, err := s.codec.Issue(u.Email, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	snap := sessions.Snapshot{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.DisplayName(),
		Role:   string(u.Role),
	}
	if err := s.store.PutSession(ctx, token, snap, s.tokenTTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	s.logger.InfoContext(ctx, "session issued", slog.Int64("user_id", u.ID))
	return token, nil
}

// Validate checks a presented token against both the codec and the
// session store. A token that verifies but has no store entry was
// revoked and is rejected.
func (s *Service) Validate(ctx context.Context, token string) (sessions.Snapshot, error) {
	if _, err := s.codec.Decode(token); err != nil {
		return sessions.Snapshot{}, err
	}
	snap, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return sessions.Snapshot{}, sessions.ErrNotFound
		}
		return sessions.Snapshot{}, fmt.Errorf("load session: %w", err)
	}
	return snap, nil
}

// Logout revokes the session entry for token. Expired tokens can still
// log out; unknown or garbage tokens are a silent no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if _, err := s.codec.DecodeExpired(token); err != nil {
		// Not one of ours; nothing to revoke.
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RevokeUserSessions invalidates every session of the given email. Not
// called by any default flow; exposed as the policy hook for password
// changes and account deactivation.
func (s *Service) RevokeUserSessions(ctx context.Context, email string) error {
	if err := s.store.DeleteUserSessions(ctx, normalizeEmail(email)); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
