package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edulab/authcore/pkg/auth"
	"github.com/edulab/authcore/pkg/tokens"
	"github.com/edulab/authcore/pkg/users"
)

// tokenResponse is the body of every endpoint that ends a login.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// genericAuthFailure is the single message for every credential
// failure. The boundary must not reveal whether the account exists, is
// inactive, or had the wrong password.
const genericAuthFailure = "invalid credentials"

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeToken(w http.ResponseWriter, token string) {
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAuthError maps orchestrator errors onto the HTTP taxonomy.
func (m *Module) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *auth.ProviderConfigError

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserInactive):
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
	case errors.Is(err, tokens.ErrMalformed), errors.Is(err, tokens.ErrExpired), errors.Is(err, tokens.ErrBadSignature):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrUnsupportedProvider):
		writeError(w, http.StatusNotFound, "unsupported provider")
	case errors.As(err, &cfgErr):
		m.logger.ErrorContext(r.Context(), "provider misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, "provider not configured")
	case errors.Is(err, auth.ErrInvalidFlowState):
		writeError(w, http.StatusBadRequest, "invalid or expired oauth state")
	case errors.Is(err, auth.ErrProviderExchange), errors.Is(err, auth.ErrProviderProfile):
		m.logger.WarnContext(r.Context(), "provider call failed", "error", err)
		writeError(w, http.StatusBadGateway, "provider unavailable")
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrPasswordTooWeak):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrConflict):
		writeError(w, http.StatusConflict, "account already exists")
	default:
		m.logger.ErrorContext(r.Context(), "unhandled auth error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
