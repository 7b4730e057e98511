package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/edulab/authcore/pkg/users"
)

// YandexConfig is the Yandex credential bundle.
type YandexConfig struct {
	ClientID     string   `env:"YANDEX_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"YANDEX_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"YANDEX_OAUTH_REDIRECT_URL"`
	AuthURL      string   `env:"YANDEX_OAUTH_AUTH_URL" envDefault:"https://oauth.yandex.ru/authorize"`
	TokenURL     string   `env:"YANDEX_OAUTH_TOKEN_URL" envDefault:"https://oauth.yandex.ru/token"`
	UserInfoURL  string   `env:"YANDEX_OAUTH_USERINFO_URL" envDefault:"https://login.yandex.ru/info"`
	Scopes       []string `env:"YANDEX_OAUTH_SCOPES" envSeparator:"," envDefault:"login:email"`
}

type yandexAdapter struct {
	cfg    YandexConfig
	conf   *oauth2.Config
	client *http.Client
}

var _ ProviderAdapter = (*yandexAdapter)(nil)

// NewYandexAdapter creates the Yandex provider adapter. Yandex runs the
// plain code flow; its only quirk is the user-info field mapping.
func NewYandexAdapter(cfg YandexConfig) ProviderAdapter {
	return &yandexAdapter{
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

func (a *yandexAdapter) Name() string   { return users.ProviderYandex }
func (a *yandexAdapter) UsesPKCE() bool { return false }

func (a *yandexAdapter) CheckConfig() error {
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

func (a *yandexAdapter) AuthCodeURL(state, _ string) string {
	return a.conf.AuthCodeURL(state)
}

func (a *yandexAdapter) Exchange(ctx context.Context, code, _ string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("yandex exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// yandexUser mirrors login.yandex.ru/info. The reliable address lives in
// default_email; the bare email field may be absent.
type yandexUser struct {
	ID           string `json:"id"`
	DefaultEmail string `json:"default_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Login        string `json:"login"`
}

func (a *yandexAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	var u yandexUser
	// Yandex expects its own "OAuth" authorization scheme here.
	if err := fetchJSON(ctx, a.client, a.cfg.UserInfoURL, "OAuth "+accessToken, &u); err != nil {
		return Profile{}, fmt.Errorf("yandex info: %w", err)
	}

	return Profile{
		Provider:   a.Name(),
		ProviderID: u.ID,
		Email:      u.DefaultEmail,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}, nil
}
