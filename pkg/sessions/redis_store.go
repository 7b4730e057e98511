package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "session:"
	userIndexKeyPrefix = "user_sessions:"
	flowStateKeyPrefix = "oauth_state:"
)

// RedisStore implements Store on a shared Redis instance. It holds no
// local state, so any number of service instances can serve the same
// sessions and OAuth flows concurrently.
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Store backed by client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) PutSession(ctx context.Context, token string, snap Snapshot, ttl time.Duration) error {
	if token == "" {
		return ErrEmptyKey
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sessions: marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+token, data, ttl)
	pipe.SAdd(ctx, userIndexKeyPrefix+snap.Email, token)
	// The index only needs to outlive the longest-lived member.
	pipe.Expire(ctx, userIndexKeyPrefix+snap.Email, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sessions: store session: %w", err)
	}
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, token string) (Snapshot, error) {
	if token == "" {
		return Snapshot{}, ErrEmptyKey
	}

	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("sessions: get session: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("sessions: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	// Drop the index entry when the snapshot is still readable; an
	// already-expired snapshot leaves at most a stale set member behind,
	// which the index TTL reclaims.
	if snap, err := s.GetSession(ctx, token); err == nil {
		if err := s.client.SRem(ctx, userIndexKeyPrefix+snap.Email, token).Err(); err != nil {
			return fmt.Errorf("sessions: unindex session: %w", err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("sessions: delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteUserSessions(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}

	tokens, err := s.client.SMembers(ctx, userIndexKeyPrefix+email).Result()
	if err != nil {
		return fmt.Errorf("sessions: list user sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKeyPrefix+token)
	}
	keys = append(keys, userIndexKeyPrefix+email)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("sessions: delete user sessions: %w", err)
	}
	return nil
}

func (s *RedisStore) PutFlowState(ctx context.Context, state, verifier string, ttl time.Duration) error {
	if state == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultFlowStateTTL
	}

	if err := s.client.Set(ctx, flowStateKeyPrefix+state, verifier, ttl).Err(); err != nil {
		return fmt.Errorf("sessions: store flow state: %w", err)
	}
	return nil
}

func (s *RedisStore) TakeFlowState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrEmptyKey
	}

	// GETDEL makes the take a single atomic server-side operation; a
	// separate GET followed by DEL would let a replayed callback win the
	// race and reuse the verifier.
	verifier, err := s.client.GetDel(ctx, flowStateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sessions: take flow state: %w", err)
	}
	return verifier, nil
}
