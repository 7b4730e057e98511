package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword   = errors.New("password: empty password")
	ErrPasswordTooLong = errors.New("password: exceeds 72 bytes")
	ErrHashingFailed   = errors.New("password: hashing failed")
)

// maxPasswordBytes is the bcrypt input limit; longer inputs are silently
// truncated by some implementations, so they are rejected outright here.
const maxPasswordBytes = 72

// Hasher hashes and verifies passwords with a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCost overrides the bcrypt cost. Values outside the valid bcrypt
// range fall back to the default cost.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// New creates a Hasher with bcrypt.DefaultCost unless overridden.
func New(opts ...Option) *Hasher {
	h := &Hasher{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash produces a salted bcrypt digest of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Join(ErrHashingFailed, err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. It never returns an
// error: malformed digests, empty inputs, and mismatches all yield false.
// The underlying comparison is constant-time.
func (h *Hasher) Verify(digest, password string) bool {
	if digest == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
