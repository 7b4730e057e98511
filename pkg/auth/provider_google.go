package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/edulab/authcore/pkg/users"
)

// GoogleConfig is the Google credential bundle. Endpoint URLs default to
// Google's production endpoints and are overridable for tests.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL"`
	AuthURL      string   `env:"GOOGLE_OAUTH_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	TokenURL     string   `env:"GOOGLE_OAUTH_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	UserInfoURL  string   `env:"GOOGLE_OAUTH_USERINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v2/userinfo"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"email,profile"`
}

type googleAdapter struct {
	cfg    GoogleConfig
	conf   *oauth2.Config
	client *http.Client
}

var _ ProviderAdapter = (*googleAdapter)(nil)

// NewGoogleAdapter creates the Google provider adapter. Google uses the
// plain authorization-code flow; state alone correlates the callback.
func NewGoogleAdapter(cfg GoogleConfig) ProviderAdapter {
	return &googleAdapter{
		cfg: cfg,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		client: newProviderClient(),
	}
}

func (a *googleAdapter) Name() string   { return users.ProviderGoogle }
func (a *googleAdapter) UsesPKCE() bool { return false }

func (a *googleAdapter) CheckConfig() error {
	missing := missingFields(
		"client_id", a.cfg.ClientID,
		"client_secret", a.cfg.ClientSecret,
		"redirect_url", a.cfg.RedirectURL,
		"auth_url", a.cfg.AuthURL,
		"token_url", a.cfg.TokenURL,
		"user_info_url", a.cfg.UserInfoURL,
	)
	if len(missing) > 0 {
		return &ProviderConfigError{Provider: a.Name(), Missing: missing}
	}
	return nil
}

func (a *googleAdapter) AuthCodeURL(state, _ string) string {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (a *googleAdapter) Exchange(ctx context.Context, code, _ string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// googleUser mirrors the v2 userinfo response.
type googleUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (a *googleAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	var u googleUser
	if err := fetchJSON(ctx, a.client, a.cfg.UserInfoURL, "Bearer "+accessToken, &u); err != nil {
		return Profile{}, fmt.Errorf("google userinfo: %w", err)
	}

	return Profile{
		Provider:   a.Name(),
		ProviderID: u.ID,
		Email:      u.Email,
		FirstName:  u.GivenName,
		LastName:   u.FamilyName,
		Avatar:     u.Picture,
	}, nil
}
