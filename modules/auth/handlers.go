package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edulab/authcore/pkg/auth"
)

// maxBodyBytes bounds request bodies; auth payloads are tiny.
const maxBodyBytes = 64 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}

type registerRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

type registerResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (m *Module) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := m.auth.Register(r.Context(), auth.RegisterParams{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		m.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: created.ID, Email: created.Email})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (m *Module) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Identifier == "" || req.Password == "" {
		// Same body as a failed credential check; an empty form reveals
		// nothing either way.
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	token, err := m.auth.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		m.writeAuthError(w, r, err)
		return
	}
	writeToken(w, token)
}

// handleLogout answers 200 regardless of token state: revoking an
// already-dead session is not an error the client can act on.
func (m *Module) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
		token = req.Token
	}

	if err := m.auth.Logout(r.Context(), token); err != nil {
		m.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (m *Module) handleMe(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	snap, err := m.auth.Validate(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (m *Module) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	redirectURL, err := m.oauth.Start(r.Context(), provider)
	if err != nil {
		m.writeAuthError(w, r, err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (m *Module) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "missing code or state")
		return
	}

	token, err := m.oauth.Callback(r.Context(), provider, code, state)
	if err != nil {
		m.writeAuthError(w, r, err)
		return
	}
	writeToken(w, token)
}
