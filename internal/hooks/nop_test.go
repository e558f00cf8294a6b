package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itaame/MCC-COMMS/types"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()
	ctx := context.Background()

	require.NoError(t, hooks.OnStateChanged(ctx, types.ChannelEvent{Channel: "FD"}))
	require.NoError(t, hooks.OnRequestDropped(ctx, "FD", types.StateTalking))
	require.NoError(t, hooks.OnDelayChanged(ctx, types.DelayPolicy{Enabled: true}))
}

func TestFill(t *testing.T) {
	t.Run("nil hooks", func(t *testing.T) {
		h := Fill(nil)
		require.NotNil(t, h.OnStateChanged)
		require.NotNil(t, h.OnRequestDropped)
		require.NotNil(t, h.OnDelayChanged)
	})

	t.Run("keeps provided callbacks", func(t *testing.T) {
		errDropped := errors.New("dropped")
		h := Fill(&types.Hooks{
			OnRequestDropped: func(context.Context, string, types.State) error { return errDropped },
		})

		require.ErrorIs(t, h.OnRequestDropped(context.Background(), "FD", types.StateListening), errDropped)
		require.NoError(t, h.OnStateChanged(context.Background(), types.ChannelEvent{}))
		require.NoError(t, h.OnDelayChanged(context.Background(), types.DelayPolicy{}))
	})
}
