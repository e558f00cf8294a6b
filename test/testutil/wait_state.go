package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/itaame/MCC-COMMS/types"
)

// ViewSource is anything that can report a channel view (the coordinator,
// the engine, or a test double).
type ViewSource interface {
	View() types.View
}

// WaitChannelState polls src until channel name reaches want.
//
// Parameters:
//   - ctx: Context for cancellation
//   - src: View provider
//   - name: Channel name
//   - want: Expected state
//   - timeout: Maximum time to wait
//
// Returns:
//   - error: nil once the state is observed, a timeout or context error otherwise
//
// Example:
//
//	err := testutil.WaitChannelState(ctx, coord, "FD", types.StateTalking, time.Second)
//	require.NoError(t, err)
func WaitChannelState(ctx context.Context, src ViewSource, name string, want types.State, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cv, ok := src.View().Channels[name]; ok && cv.State == want {
			return nil
		}

		select {
		case <-ctx.Done():
			got := src.View().Channels[name].State

			return fmt.Errorf("channel %s: want %s, still %s: %w", name, want, got, ctx.Err())
		case <-ticker.C:
		}
	}
}
