// Package auth is the HTTP face of the authentication core: password
// login/logout, registration, and the per-provider OAuth redirect and
// callback endpoints. Handlers stay thin; every decision lives in the
// orchestrators behind the two service interfaces.
package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edulab/authcore/pkg/auth"
	"github.com/edulab/authcore/pkg/sessions"
	"github.com/edulab/authcore/pkg/users"
)

// AuthService is the slice of the auth orchestrator the handlers call.
type AuthService interface {
	Register(ctx context.Context, params auth.RegisterParams) (*users.User, error)
	Authenticate(ctx context.Context, identifier, password string) (string, error)
	Validate(ctx context.Context, token string) (sessions.Snapshot, error)
	Logout(ctx context.Context, token string) error
}

// OAuthService drives the provider flows.
type OAuthService interface {
	Start(ctx context.Context, provider string) (string, error)
	Callback(ctx context.Context, provider, code, state string) (string, error)
}

// Module bundles the handlers and their dependencies.
type Module struct {
	auth   AuthService
	oauth  OAuthService
	logger *slog.Logger
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) { m.logger = l }
}

// New creates the auth HTTP module.
func New(authSvc AuthService, oauthSvc OAuthService, opts ...Option) *Module {
	m := &Module{
		auth:   authSvc,
		oauth:  oauthSvc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler returns the routed handler, mountable under any prefix.
func (m *Module) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/register", m.handleRegister)
	r.Post("/login", m.handleLogin)
	r.Post("/logout", m.handleLogout)
	r.Get("/me", m.handleMe)

	r.Route("/oauth/{provider}", func(r chi.Router) {
		r.Get("/", m.handleOAuthStart)
		r.Get("/callback", m.handleOAuthCallback)
	})

	return r
}
