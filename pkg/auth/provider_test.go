package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// tokenEndpoint fakes a provider token URL, recording the form of the
// last exchange request.
func tokenEndpoint(t *testing.T, accessToken string, lastForm *url.Values) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if lastForm != nil {
			*lastForm = r.PostForm
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func TestGoogleAdapter(t *testing.T) {
	t.Parallel()

	baseCfg := GoogleConfig{
		ClientID:     "google-client",
		ClientSecret: "google-secret",
		RedirectURL:  "https://app.test/oauth/google/callback",
		AuthURL:      "https://accounts.google.test/auth",
		TokenURL:     "https://accounts.google.test/token",
		UserInfoURL:  "https://google.test/userinfo",
		Scopes:       []string{"email", "profile"},
	}

	t.Run("auth url carries state and scopes", func(t *testing.T) {
		t.Parallel()

		adapter := NewGoogleAdapter(baseCfg)
		assert.False(t, adapter.UsesPKCE())

		raw := adapter.AuthCodeURL("state-123", "")
		u, err := url.Parse(raw)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "state-123", q.Get("state"))
		assert.Equal(t, "google-client", q.Get("client_id"))
		assert.Equal(t, "email profile", q.Get("scope"))
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Empty(t, q.Get("code_challenge"))
	})

	t.Run("exchange returns access token", func(t *testing.T) {
		t.Parallel()

		var form url.Values
		srv := tokenEndpoint(t, "google-access", &form)
		defer srv.Close()

		cfg := baseCfg
		cfg.TokenURL = srv.URL
		adapter := NewGoogleAdapter(cfg)

		token, err := adapter.Exchange(context.Background(), "auth-code", "")
		require.NoError(t, err)
		assert.Equal(t, "google-access", token)
		assert.Equal(t, "auth-code", form.Get("code"))
		assert.Empty(t, form.Get("code_verifier"))
	})

	t.Run("profile maps userinfo fields", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer google-access", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "g-100",
				"email": "ivan@gmail.com",
				"given_name": "Ivan",
				"family_name": "Petrov",
				"picture": "https://lh3.test/photo.jpg"
			}`))
		}))
		defer srv.Close()

		cfg := baseCfg
		cfg.UserInfoURL = srv.URL
		adapter := NewGoogleAdapter(cfg)

		profile, err := adapter.FetchProfile(context.Background(), "google-access")
		require.NoError(t, err)
		assert.Equal(t, Profile{
			Provider:   "google",
			ProviderID: "g-100",
			Email:      "ivan@gmail.com",
			FirstName:  "Ivan",
			LastName:   "Petrov",
			Avatar:     "https://lh3.test/photo.jpg",
		}, profile)
	})

	t.Run("check config lists missing fields", func(t *testing.T) {
		t.Parallel()

		adapter := NewGoogleAdapter(GoogleConfig{AuthURL: "x", TokenURL: "y", UserInfoURL: "z"})
		err := adapter.CheckConfig()
		var cfgErr *ProviderConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "google", cfgErr.Provider)
		assert.Equal(t, []string{"client_id", "client_secret", "redirect_url"}, cfgErr.Missing)

		assert.NoError(t, NewGoogleAdapter(baseCfg).CheckConfig())
	})
}

func TestVKAdapter(t *testing.T) {
	t.Parallel()

	baseCfg := VKConfig{
		ClientID:     "vk-client",
		ClientSecret: "vk-secret",
		RedirectURL:  "https://app.test/oauth/vk/callback",
		AuthURL:      "https://id.vk.test/authorize",
		TokenURL:     "https://id.vk.test/oauth2/auth",
		UserInfoURL:  "https://id.vk.test/oauth2/user_info",
		Scopes:       []string{"email"},
	}

	t.Run("auth url carries S256 challenge", func(t *testing.T) {
		t.Parallel()

		adapter := NewVKAdapter(baseCfg)
		assert.True(t, adapter.UsesPKCE())

		verifier := oauth2.GenerateVerifier()
		raw := adapter.AuthCodeURL("state-vk", verifier)
		u, err := url.Parse(raw)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "state-vk", q.Get("state"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		challenge := q.Get("code_challenge")
		assert.NotEmpty(t, challenge)
		assert.NotEqual(t, verifier, challenge, "challenge must be derived, not the raw verifier")
	})

	t.Run("exchange presents the verifier", func(t *testing.T) {
		t.Parallel()

		var form url.Values
		srv := tokenEndpoint(t, "vk-access", &form)
		defer srv.Close()

		cfg := baseCfg
		cfg.TokenURL = srv.URL
		adapter := NewVKAdapter(cfg)

		verifier := oauth2.GenerateVerifier()
		token, err := adapter.Exchange(context.Background(), "vk-code", verifier)
		require.NoError(t, err)
		assert.Equal(t, "vk-access", token)
		assert.Equal(t, "vk-code", form.Get("code"))
		assert.Equal(t, verifier, form.Get("code_verifier"))
	})

	t.Run("profile unwraps the user envelope", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"user": {
					"user_id": "987654",
					"email": "ivan@vk.com",
					"first_name": "Иван",
					"last_name": "Петров",
					"avatar": "https://sun.vk.test/avatar.jpg"
				}
			}`))
		}))
		defer srv.Close()

		cfg := baseCfg
		cfg.UserInfoURL = srv.URL
		adapter := NewVKAdapter(cfg)

		profile, err := adapter.FetchProfile(context.Background(), "vk-access")
		require.NoError(t, err)
		assert.Equal(t, "vk", profile.Provider)
		assert.Equal(t, "987654", profile.ProviderID)
		assert.Equal(t, "ivan@vk.com", profile.Email)
		assert.Equal(t, "Иван", profile.FirstName)
	})

	t.Run("profile tolerates withheld email", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user": {"user_id": "987654", "first_name": "Ivan"}}`))
		}))
		defer srv.Close()

		cfg := baseCfg
		cfg.UserInfoURL = srv.URL
		adapter := NewVKAdapter(cfg)

		profile, err := adapter.FetchProfile(context.Background(), "vk-access")
		require.NoError(t, err)
		assert.Empty(t, profile.Email, "missing email is the orchestrator's call, not a fetch error")
	})
}

func TestYandexAdapter(t *testing.T) {
	t.Parallel()

	baseCfg := YandexConfig{
		ClientID:     "ya-client",
		ClientSecret: "ya-secret",
		RedirectURL:  "https://app.test/oauth/yandex/callback",
		AuthURL:      "https://oauth.yandex.test/authorize",
		TokenURL:     "https://oauth.yandex.test/token",
		UserInfoURL:  "https://login.yandex.test/info",
	}

	t.Run("profile uses the OAuth scheme and default_email", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "OAuth ya-access", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "555",
				"login": "ivan.petrov",
				"default_email": "ivan@yandex.ru",
				"first_name": "Ivan",
				"last_name": "Petrov"
			}`))
		}))
		defer srv.Close()

		cfg := baseCfg
		cfg.UserInfoURL = srv.URL
		adapter := NewYandexAdapter(cfg)
		assert.False(t, adapter.UsesPKCE())

		profile, err := adapter.FetchProfile(context.Background(), "ya-access")
		require.NoError(t, err)
		assert.Equal(t, "yandex", profile.Provider)
		assert.Equal(t, "555", profile.ProviderID)
		assert.Equal(t, "ivan@yandex.ru", profile.Email)
	})

	t.Run("exchange returns access token", func(t *testing.T) {
		t.Parallel()

		srv := tokenEndpoint(t, "ya-access", nil)
		defer srv.Close()

		cfg := baseCfg
		cfg.TokenURL = srv.URL
		adapter := NewYandexAdapter(cfg)

		token, err := adapter.Exchange(context.Background(), "ya-code", "")
		require.NoError(t, err)
		assert.Equal(t, "ya-access", token)
	})
}

func TestFetchJSON(t *testing.T) {
	t.Parallel()

	t.Run("retries once on 5xx", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
		defer srv.Close()

		var out struct {
			OK bool `json:"ok"`
		}
		err := fetchJSON(context.Background(), srv.Client(), srv.URL, "Bearer t", &out)
		require.NoError(t, err)
		assert.True(t, out.OK)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		var out map[string]any
		err := fetchJSON(context.Background(), srv.Client(), srv.URL, "Bearer t", &out)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after the retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		var out map[string]any
		err := fetchJSON(context.Background(), srv.Client(), srv.URL, "Bearer t", &out)
		require.Error(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestMissingFields(t *testing.T) {
	t.Parallel()

	assert.Nil(t, missingFields("a", "1", "b", "2"))
	assert.Equal(t, []string{"a", "c"}, missingFields("a", "", "b", "2", "c", ""))
}
