package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Profile is the normalized identity a provider hands back after a
// successful exchange. It is transient: used once to resolve or create
// a local user, never persisted.
type Profile struct {
	Provider   string
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
	Avatar     string
}

// ProviderAdapter isolates everything provider-specific: the
// authorization URL shape, whether PKCE applies, the token-exchange
// request, and the user-info field mapping. The flow orchestrator only
// talks to this contract.
type ProviderAdapter interface {
	// Name is the registry key and URL path segment for the provider.
	Name() string

	// UsesPKCE reports whether the provider requires a proof-of-possession
	// verifier (RFC 7636).
	UsesPKCE() bool

	// CheckConfig validates the credential bundle, returning a
	// *ProviderConfigError naming any missing fields.
	CheckConfig() error

	// AuthCodeURL builds the authorization redirect embedding state and,
	// for PKCE providers, the S256 challenge derived from verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades the authorization code (plus verifier when PKCE)
	// for a provider access token.
	Exchange(ctx context.Context, code, verifier string) (string, error)

	// FetchProfile loads and normalizes the provider's user-info record.
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)
}

// providerHTTPTimeout bounds every outbound call to a provider so a
// stalled provider cannot pin a worker.
const providerHTTPTimeout = 10 * time.Second

func newProviderClient() *http.Client {
	return &http.Client{Timeout: providerHTTPTimeout}
}

// newState produces the random value correlating a callback with the
// flow that started it: 32 bytes, base64url.
func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// fetchJSON performs an authenticated GET against a user-info endpoint
// and decodes the JSON body into out. Transient faults (transport
// errors, 5xx) are retried once after a short pause.
func fetchJSON(ctx context.Context, client *http.Client, url, authorization string, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", authorization)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return lastErr
}

// missingFields collects config validation results for CheckConfig
// implementations.
func missingFields(pairs ...string) []string {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}
