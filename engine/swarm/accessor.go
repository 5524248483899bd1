package swarm

import (
	"context"
	"errors"
	"fmt"

	"github.com/swarmworks/responder/engine/core"
)

var ErrPathNotFound = errors.New("swarm path not found")

// Accessor resolves dotted paths against the stored swarm state.
type Accessor struct {
	store Store
}

func NewAccessor(store Store) *Accessor {
	return &Accessor{store: store}
}

// Access resolves segments (relative to the state root) for swarmID.
func (a *Accessor) Access(ctx context.Context, swarmID string, segments []string) (any, error) {
	if a == nil || a.store == nil {
		return nil, errors.New("swarm accessor has no store")
	}
	state, err := a.store.GetState(ctx, swarmID)
	if err != nil {
		return nil, err
	}
	value, ok, err := core.LookupPath(state, segments)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrPathNotFound, segments)
	}
	return value, nil
}
