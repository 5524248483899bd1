package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound indicates that no state exists for the requested swarm.
var ErrNotFound = errors.New("swarm state not found")

// Store reads and writes swarm state snapshots.
type Store interface {
	GetState(ctx context.Context, swarmID string) (*State, error)
	SaveState(ctx context.Context, state *State) error
}

// MemoryStore keeps deep copies of state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (m *MemoryStore) GetState(_ context.Context, swarmID string) (*State, error) {
	m.mu.RLock()
	raw, ok := m.states[swarmID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, swarmID)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode swarm state %s: %w", swarmID, err)
	}
	return &state, nil
}

func (m *MemoryStore) SaveState(_ context.Context, state *State) error {
	if state == nil || state.ID == "" {
		return errors.New("swarm state requires an id")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode swarm state %s: %w", state.ID, err)
	}
	m.mu.Lock()
	m.states[state.ID] = raw
	m.mu.Unlock()
	return nil
}
