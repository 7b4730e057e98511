package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCredentials is the only credential failure the boundary may
// show. The specific reasons below wrap it, so handlers collapse them
// with a single errors.Is check while logs keep the distinction.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserNotFound       = fmt.Errorf("%w: unknown identifier", ErrInvalidCredentials)
	ErrUserInactive       = fmt.Errorf("%w: account deactivated", ErrInvalidCredentials)
	ErrBadPassword        = fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
)

// OAuth flow errors.
var (
	ErrUnsupportedProvider = errors.New("auth: unsupported oauth provider")
	ErrInvalidFlowState    = errors.New("auth: invalid or expired oauth state")
	ErrProviderExchange    = errors.New("auth: provider code exchange failed")
	ErrProviderProfile     = errors.New("auth: provider profile fetch failed")
)

// Registration input errors.
var (
	ErrInvalidEmail    = errors.New("auth: invalid email")
	ErrPasswordTooWeak = errors.New("auth: password does not meet requirements")
)

// ProviderConfigError reports which credential bundle fields a provider
// is missing. It is a deployment fault, never a client fault.
type ProviderConfigError struct {
	Provider string
	Missing  []string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("auth: provider %s misconfigured, missing %s",
		e.Provider, strings.Join(e.Missing, ", "))
}
