package source

import (
	"context"
	"sync"

	"github.com/itaame/MCC-COMMS/types"
)

// Static implements a channel source with a fixed list of channels.
type Static struct {
	mu       sync.RWMutex
	channels []types.Channel
}

var _ types.ChannelSource = (*Static)(nil)

// NewStatic creates a new static channel source.
//
// Useful for tests and for embedding the coordinator with a catalog known
// at compile time.
//
// Parameters:
//   - channels: Fixed list of channels in display order
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := source.NewStatic([]types.Channel{
//	    {Name: "FD", CanListen: true, CanTalk: true},
//	    {Name: "PAO", CanListen: true},
//	})
//	coord, err := comms.New(&cfg, src)
func NewStatic(channels []types.Channel) *Static {
	return &Static{channels: cloneChannels(channels)}
}

// ListChannels returns the static list of channels.
//
// Returns:
//   - []types.Channel: Copy of the channel list
//   - error: Always nil (never fails)
func (s *Static) ListChannels(_ context.Context) ([]types.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneChannels(s.channels), nil
}

// Update replaces the channel list. The coordinator reads its catalog once
// at Start, so updates only affect coordinators started afterwards.
func (s *Static) Update(channels []types.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = cloneChannels(channels)
}

func cloneChannels(in []types.Channel) []types.Channel {
	out := make([]types.Channel, len(in))
	for i, ch := range in {
		out[i] = ch
		if ch.Extra != nil {
			out[i].Extra = make(map[string]any, len(ch.Extra))
			for k, v := range ch.Extra {
				out[i].Extra[k] = v
			}
		}
	}

	return out
}
