package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// minSecretBytes is the floor for HMAC-SHA256 keys; anything shorter
// weakens the signature below the hash's own strength.
const minSecretBytes = 32

// Claims is the payload carried by every session token.
type Claims struct {
	jwt.RegisteredClaims
}

// UserSubject returns the token subject (the user email).
func (c Claims) UserSubject() string { return c.Subject }

// Expiry returns the expires-at instant. Zero if the claim is absent.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Codec issues and verifies session tokens with a process-wide secret.
// The same clock is used for issuing and validating so boundary behavior
// is consistent across both paths.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Codec. The secret must be at least 32 bytes.
func New(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrWeakSecret
	}

	c := &Codec{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject that expires after ttl.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("tokens: signing failed: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token. Structural damage,
// a bad signature, and expiry are reported as ErrMalformed,
// ErrBadSignature, and ErrExpired respectively; an expired token with a
// valid signature is still a rejection.
func (c *Codec) Decode(token string) (Claims, error) {
	return c.parse(token, true)
}

// DecodeExpired verifies everything except expiry. Logout uses it so an
// already-expired token can still revoke its session entry.
func (c *Codec) DecodeExpired(token string) (Claims, error) {
	return c.parse(token, false)
}

func (c *Codec) parse(token string, checkExpiry bool) (Claims, error) {
	opts := []jwt.ParserOption{
		// Pin the algorithm to prevent alg-confusion downgrades.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}
	return claims, nil
}

// IsExpired reports whether expiresAt lies at or before the codec's
// current time. Exposed so callers share the codec's clock instead of
// comparing against their own.
func (c *Codec) IsExpired(expiresAt time.Time) bool {
	return !c.now().Before(expiresAt)
}
