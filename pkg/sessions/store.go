package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("sessions: not found")
	ErrEmptyKey = errors.New("sessions: empty key")
)

// DefaultFlowStateTTL bounds how long an OAuth flow may sit between the
// redirect and the callback.
const DefaultFlowStateTTL = 5 * time.Minute

// Snapshot is the minimal user identity cached alongside an issued
// token. It is what authenticated-request middleware reads on every hit,
// so it stays small and JSON-serializable.
type Snapshot struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Store persists session entries and OAuth flow state.
type Store interface {
	// PutSession upserts the token -> snapshot mapping with the given TTL
	// and indexes the token under the snapshot's email.
	PutSession(ctx context.Context, token string, snap Snapshot, ttl time.Duration) error

	// GetSession returns the snapshot for token. ErrNotFound is the
	// normal "not logged in" signal, not a fault.
	GetSession(ctx context.Context, token string) (Snapshot, error)

	// DeleteSession removes the entry for token. Deleting an unknown
	// token is a no-op.
	DeleteSession(ctx context.Context, token string) error

	// DeleteUserSessions removes every session indexed under email.
	DeleteUserSessions(ctx context.Context, email string) error

	// PutFlowState stores the state -> verifier mapping for an OAuth
	// flow. The verifier may be empty for providers without PKCE; the
	// state entry itself still guards the callback.
	PutFlowState(ctx context.Context, state, verifier string, ttl time.Duration) error

	// TakeFlowState consumes the verifier stored under state as one
	// atomic get-and-delete. A second take on the same state, or a take
	// after expiry, returns ErrNotFound.
	TakeFlowState(ctx context.Context, state string) (string, error)
}
