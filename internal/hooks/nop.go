// Package hooks provides default Hooks implementations.
package hooks

import (
	"context"

	"github.com/itaame/MCC-COMMS/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, types.ChannelEvent) error  = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, string, types.State) error = (*NopHooks)(nil).OnRequestDropped
	_ func(context.Context, types.DelayPolicy) error   = (*NopHooks)(nil).OnDelayChanged
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnStateChanged:   h.OnStateChanged,
		OnRequestDropped: h.OnRequestDropped,
		OnDelayChanged:   h.OnDelayChanged,
	}
}

// Fill returns h with every nil callback replaced by a no-op.
func Fill(h *types.Hooks) types.Hooks {
	out := NewNop()
	if h == nil {
		return out
	}
	if h.OnStateChanged != nil {
		out.OnStateChanged = h.OnStateChanged
	}
	if h.OnRequestDropped != nil {
		out.OnRequestDropped = h.OnRequestDropped
	}
	if h.OnDelayChanged != nil {
		out.OnDelayChanged = h.OnDelayChanged
	}

	return out
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(ctx context.Context, ev types.ChannelEvent) error {
	return nil
}

// OnRequestDropped is a no-op implementation.
func (h *NopHooks) OnRequestDropped(ctx context.Context, channel string, desired types.State) error {
	return nil
}

// OnDelayChanged is a no-op implementation.
func (h *NopHooks) OnDelayChanged(ctx context.Context, policy types.DelayPolicy) error {
	return nil
}
