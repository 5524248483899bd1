package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swarmworks/responder/pkg/logger"
)

const defaultKeyPrefix = "responder"

// RedisStore persists swarm state as JSON documents.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces all keys written by the store.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires stored snapshots; zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(swarmID string) string {
	return fmt.Sprintf("%s:swarm:%s", s.prefix, swarmID)
}

func (s *RedisStore) GetState(ctx context.Context, swarmID string) (*State, error) {
	raw, err := s.client.Get(ctx, s.key(swarmID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, swarmID)
	}
	if err != nil {
		return nil, fmt.Errorf("read swarm state %s: %w", swarmID, err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode swarm state %s: %w", swarmID, err)
	}
	return &state, nil
}

func (s *RedisStore) SaveState(ctx context.Context, state *State) error {
	if state == nil || state.ID == "" {
		return errors.New("swarm state requires an id")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode swarm state %s: %w", state.ID, err)
	}
	if err := s.client.Set(ctx, s.key(state.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("write swarm state %s: %w", state.ID, err)
	}
	logger.FromContext(ctx).Debug("Swarm state saved", "swarm_id", state.ID, "bytes", len(raw))
	return nil
}
