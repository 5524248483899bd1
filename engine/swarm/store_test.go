package swarm

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmworks/responder/pkg/logger"
)

func sampleState() *State {
	return &State{
		ID:       "swarm-1",
		Name:     "Research",
		Goal:     "Write the report",
		LeaderID: "bot-lead",
		Subtasks: []Subtask{
			{ID: "t1", Description: "collect sources", Status: SubtaskDone},
			{ID: "t2", Description: "draft outline", Status: SubtaskInProgress},
		},
		Blackboard: []BlackboardItem{{ID: "note", Value: "use APA"}},
		Stats:      Stats{TotalToolCalls: 3, TotalCredits: "12.5"},
	}
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, WithKeyPrefix("test")), mr
}

func TestRedisStore(t *testing.T) {
	t.Run("Should round trip state under the prefixed key", func(t *testing.T) {
		store, mr := newRedisStore(t)
		ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())
		require.NoError(t, store.SaveState(ctx, sampleState()))
		assert.True(t, mr.Exists("test:swarm:swarm-1"))

		got, err := store.GetState(ctx, "swarm-1")
		require.NoError(t, err)
		assert.Equal(t, "Write the report", got.Goal)
		assert.Len(t, got.Subtasks, 2)
	})

	t.Run("Should return ErrNotFound for unknown swarms", func(t *testing.T) {
		store, _ := newRedisStore(t)
		_, err := store.GetState(t.Context(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Should expire state when a ttl is set", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		store := NewRedisStore(client, WithTTL(time.Minute))
		require.NoError(t, store.SaveState(t.Context(), sampleState()))
		mr.FastForward(2 * time.Minute)
		_, err := store.GetState(t.Context(), "swarm-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Run("Should isolate stored copies from caller mutation", func(t *testing.T) {
		store := NewMemoryStore()
		state := sampleState()
		require.NoError(t, store.SaveState(t.Context(), state))
		state.Goal = "changed"
		got, err := store.GetState(t.Context(), "swarm-1")
		require.NoError(t, err)
		assert.Equal(t, "Write the report", got.Goal)
	})
	t.Run("Should reject state without id", func(t *testing.T) {
		assert.Error(t, NewMemoryStore().SaveState(t.Context(), &State{}))
	})
}

func TestAccessor(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SaveState(t.Context(), sampleState()))
	accessor := NewAccessor(store)

	t.Run("Should resolve nested paths", func(t *testing.T) {
		v, err := accessor.Access(t.Context(), "swarm-1", []string{"subtasks", "1", "description"})
		require.NoError(t, err)
		assert.Equal(t, "draft outline", v)
	})
	t.Run("Should fail for missing paths", func(t *testing.T) {
		_, err := accessor.Access(t.Context(), "swarm-1", []string{"nope"})
		assert.ErrorIs(t, err, ErrPathNotFound)
	})
	t.Run("Should fail for unknown swarms", func(t *testing.T) {
		_, err := accessor.Access(t.Context(), "other", []string{"goal"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestState_SplitSubtasks(t *testing.T) {
	t.Run("Should separate active and completed subtasks", func(t *testing.T) {
		active, completed := sampleState().SplitSubtasks()
		require.Len(t, active, 1)
		require.Len(t, completed, 1)
		assert.Equal(t, "t2", active[0].ID)
		assert.Equal(t, "t1", completed[0].ID)
	})
}
