package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiofs/kvctl/internal/pattern"
	"github.com/maxiofs/kvctl/internal/scan"
	"github.com/maxiofs/kvctl/internal/store"
)

func TestDispatch(t *testing.T) {
	s, cleanup := setupTestStore(t, store.EnginePebble)
	defer cleanup()
	m := setupTestManager(t, s, "json")
	ctx := context.Background()

	t.Run("Put", func(t *testing.T) {
		out, err := Dispatch(ctx, m, Invocation{Command: CommandPut, Key: "a1", Value: "one"})
		require.NoError(t, err)
		assert.Equal(t, CommandPut, out.Command)
	})

	t.Run("SetIsPut", func(t *testing.T) {
		_, err := Dispatch(ctx, m, Invocation{Command: CommandSet, Key: "a2", Value: "two"})
		require.NoError(t, err)
		_, err = Dispatch(ctx, m, Invocation{Command: CommandSet, Key: "b1", Value: "three"})
		require.NoError(t, err)
	})

	t.Run("Get", func(t *testing.T) {
		out, err := Dispatch(ctx, m, Invocation{Command: CommandGet, Key: "a2"})
		require.NoError(t, err)
		assert.Equal(t, "two", out.Value)
	})

	t.Run("List", func(t *testing.T) {
		q, err := scan.NewQuery(scan.Options{Pattern: pattern.MustCompile("^a"), OnlyValues: true})
		require.NoError(t, err)
		out, err := Dispatch(ctx, m, Invocation{Command: CommandList, Query: q})
		require.NoError(t, err)
		require.NotNil(t, out.Result)
		assert.Equal(t, []string{"one", "two"}, out.Result.Values())
	})

	t.Run("DelExact", func(t *testing.T) {
		out, err := Dispatch(ctx, m, Invocation{Command: CommandDel, Key: "b1"})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Deleted)
	})

	t.Run("DelPattern", func(t *testing.T) {
		out, err := Dispatch(ctx, m, Invocation{Command: CommandDel, Key: "^a", Pattern: true})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Deleted)
	})

	t.Run("DelPatternNoMatch", func(t *testing.T) {
		_, err := Dispatch(ctx, m, Invocation{Command: CommandDel, Key: "^a", Pattern: true})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := Dispatch(ctx, m, Invocation{Command: CommandGet, Key: "a1"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Dispatch(ctx, m, Invocation{Command: "compact"})
		assert.ErrorIs(t, err, ErrUnknownCommand)
		assert.Contains(t, err.Error(), "compact")
	})
}

func TestIsWriteCommand(t *testing.T) {
	assert.True(t, IsWriteCommand(CommandPut))
	assert.True(t, IsWriteCommand(CommandSet))
	assert.False(t, IsWriteCommand(CommandDel))
	assert.False(t, IsWriteCommand(CommandGet))
	assert.False(t, IsWriteCommand(CommandList))
}
