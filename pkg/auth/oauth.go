package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/edulab/authcore/pkg/sessions"
	"github.com/edulab/authcore/pkg/users"
)

// OAuthFlow drives the authorization-code dance for every registered
// provider. Per flow it moves through start -> awaiting callback ->
// exchanging -> resolved, failing closed at each transition; the
// provider quirks stay behind the ProviderAdapter contract.
type OAuthFlow struct {
	providers map[string]ProviderAdapter
	store     sessions.Store
	users     UserStore
	auth      *Service
	logger    *slog.Logger
	flowTTL   time.Duration
}

// OAuthOption configures an OAuthFlow.
type OAuthOption func(*OAuthFlow)

// WithOAuthLogger sets the flow logger.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(f *OAuthFlow) { f.logger = l }
}

// WithFlowTTL bounds the window between redirect and callback.
func WithFlowTTL(ttl time.Duration) OAuthOption {
	return func(f *OAuthFlow) {
		if ttl > 0 {
			f.flowTTL = ttl
		}
	}
}

// NewOAuthFlow wires the orchestrator with its provider registry.
// Adapter selection happens by name lookup, never by type.
func NewOAuthFlow(store sessions.Store, userStore UserStore, authSvc *Service, adapters []ProviderAdapter, opts ...OAuthOption) *OAuthFlow {
	f := &OAuthFlow{
		providers: make(map[string]ProviderAdapter, len(adapters)),
		store:     store,
		users:     userStore,
		auth:      authSvc,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		flowTTL:   sessions.DefaultFlowStateTTL,
	}
	for _, a := range adapters {
		f.providers[a.Name()] = a
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start validates the provider, generates state (and a PKCE verifier
// where required), persists the flow state, and returns the redirect
// URL. The state embedded in the URL is exactly the one the callback
// will be checked against.
func (f *OAuthFlow) Start(ctx context.Context, provider string) (string, error) {
	adapter, ok := f.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	if err := adapter.CheckConfig(); err != nil {
		return "", err
	}

	state, err := newState()
	if err != nil {
		return "", err
	}

	verifier := ""
	if adapter.UsesPKCE() {
		verifier = oauth2.GenerateVerifier()
	}

	// Stored for every provider, PKCE or not: the callback must present
	// a state this instance (or a peer sharing the store) handed out,
	// and each state works exactly once.
	if err := f.store.PutFlowState(ctx, state, verifier, f.flowTTL); err != nil {
		return "", fmt.Errorf("persist flow state: %w", err)
	}

	f.logger.InfoContext(ctx, "oauth flow started", slog.String("provider", provider))
	return adapter.AuthCodeURL(state, verifier), nil
}

// Callback consumes the flow state, exchanges the code, resolves the
// local user, and returns a freshly issued session token.
//
// Consuming the state happens strictly before the exchange: the
// verifier is the proof that this callback belongs to the flow that
// started it, and a consumed flow is never restored — an aborted or
// replayed callback must restart from Start.
func (f *OAuthFlow) Callback(ctx context.Context, provider, code, state string) (string, error) {
	adapter, ok := f.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	verifier, err := f.store.TakeFlowState(ctx, state)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) || errors.Is(err, sessions.ErrEmptyKey) {
			return "", ErrInvalidFlowState
		}
		return "", fmt.Errorf("take flow state: %w", err)
	}
	if adapter.UsesPKCE() && verifier == "" {
		// State resolved but carries no verifier a PKCE provider needs;
		// treat as a forged or crossed flow.
		return "", ErrInvalidFlowState
	}

	accessToken, err := adapter.Exchange(ctx, code, verifier)
	if err != nil {
		f.logger.WarnContext(ctx, "oauth exchange failed",
			slog.String("provider", provider), slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", ErrProviderExchange, err)
	}

	profile, err := adapter.FetchProfile(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderProfile, err)
	}
	if profile.ProviderID == "" {
		return "", fmt.Errorf("%w: missing provider user id", ErrProviderProfile)
	}
	if profile.Email == "" {
		// VK in particular omits email when the user withheld it; without
		// one there is no canonical record to resolve against.
		return "", fmt.Errorf("%w: provider returned no email", ErrProviderProfile)
	}
	profile.Email = normalizeEmail(profile.Email)

	user, err := f.resolveUser(ctx, adapter.Name(), profile)
	if err != nil {
		return "", err
	}
	if !user.Active {
		return "", ErrUserInactive
	}

	token, err := f.auth.IssueSession(ctx, user)
	if err != nil {
		return "", err
	}

	f.logger.InfoContext(ctx, "oauth login",
		slog.String("provider", provider), slog.Int64("user_id", user.ID))
	return token, nil
}

// resolveUser maps a provider profile onto the one canonical user
// record: match by provider id, else attach the provider id to the
// account sharing the email, else create a provider-only account.
func (f *OAuthFlow) resolveUser(ctx context.Context, provider string, profile Profile) (*users.User, error) {
	user, err := f.users.GetByProvider(ctx, provider, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("lookup by provider id: %w", err)
	}

	user, err = f.users.GetByField(ctx, users.FieldEmail, profile.Email)
	if err == nil {
		// Account merge: same verified email, new login method. No
		// duplicate row.
		if err := f.users.LinkProvider(ctx, user.ID, provider, profile.ProviderID); err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("lookup by email: %w", err)
	}

	created, err := f.createUser(ctx, provider, profile)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (f *OAuthFlow) createUser(ctx context.Context, provider string, profile Profile) (*users.User, error) {
	u := &users.User{
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
	}
	if u.FirstName == "" {
		u.FirstName = (&users.User{Email: profile.Email}).DisplayName()
	}
	if profile.Avatar != "" {
		avatar := profile.Avatar
		u.Avatar = &avatar
	}
	if err := applyProviderID(u, provider, profile.ProviderID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderProfile, err)
	}

	created, err := f.users.Add(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}

	f.logger.InfoContext(ctx, "oauth user created",
		slog.String("provider", provider), slog.Int64("user_id", created.ID))
	return created, nil
}

// applyProviderID sets the provider identity column for a new record,
// converting to the column's representation.
func applyProviderID(u *users.User, provider, providerID string) error {
	switch provider {
	case users.ProviderGoogle:
		id := providerID
		u.GoogleID = &id
	case users.ProviderVK:
		id, err := parseNumericID(providerID)
		if err != nil {
			return err
		}
		u.VKID = &id
	case users.ProviderYandex:
		id, err := parseNumericID(providerID)
		if err != nil {
			return err
		}
		u.YandexID = &id
	default:
		return fmt.Errorf("no identity column for provider %q", provider)
	}
	return nil
}

func parseNumericID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric provider id %q", s)
	}
	return id, nil
}
