package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/edulab/authcore/pkg/users"
)

// VKConfig is the VK ID credential bundle. VK mandates PKCE: the
// authorization request carries an S256 challenge and the token exchange
// must present the matching verifier.
type VKConfig struct {
	ClientID     string   `env:"VK_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"VK_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"VK_OAUTH_REDIRECT_URL"`
	AuthURL      string   `env:"VK_OAUTH_AUTH_URL" envDefault:"https://id.vk.com/authorize"`
	TokenURL     string   `env:"VK_OAUTH_TOKEN_URL" envDefault:"https://id.vk.com/oauth2/auth"`
	UserInfoURL  string   `env:"VK_OAUTH_USERINFO_URL" envDefault:"https://id.vk.com/oauth2/user_info"`
	Scopes       []string `env:"VK_OAUTH_SCOPES" envSeparator:"," envDefault:"email"`
}

type vkAdapter struct {
	cfg    VKConfig
	conf   *oauth2.Config
	client *http.Client
}

var _ ProviderAdapter = (*vkAdapter)(nil)

// NewVKAdapter creates the VK provider adapter.
func NewVKAdapter(cfg VKConfig) ProviderAdapter {
	return &vkAdapter{
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

func (a *vkAdapter) Name() string   { return users.ProviderVK }
func (a *vkAdapter) UsesPKCE() bool { return true }

func (a *vkAdapter) CheckConfig() error {
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

func (a *vkAdapter) AuthCodeURL(state, verifier string) string {
	return a.conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (a *vkAdapter) Exchange(ctx context.Context, code, verifier string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", fmt.Errorf("vk exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// vkUserEnvelope mirrors the VK ID user_info response, which nests the
// record under "user". Email and phone are present only when the user
// granted access.
type vkUserEnvelope struct {
	User struct {
		UserID    string `json:"user_id"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Avatar    string `json:"avatar"`
	} `json:"user"`
}

func (a *vkAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	var envelope vkUserEnvelope
	if err := fetchJSON(ctx, a.client, a.cfg.UserInfoURL, "Bearer "+accessToken, &envelope); err != nil {
		return Profile{}, fmt.Errorf("vk user_info: %w", err)
	}

	u := envelope.User
	return Profile{
		Provider:   a.Name(),
		ProviderID: u.UserID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Avatar:     u.Avatar,
	}, nil
}
