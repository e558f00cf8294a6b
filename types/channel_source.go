package types

import "context"

// ChannelSource provides the channel catalog.
//
// Implementations can read from various backends:
//   - File: a per-role JSON catalog on disk
//   - Static: fixed list for testing
//
// The Coordinator calls ListChannels exactly once, during Start. A failed
// load is not fatal: the coordinator logs it and runs with an empty catalog.
type ChannelSource interface {
	// ListChannels returns the channel catalog in display order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - []Channel: Catalog entries
	//   - error: Load error (nil on success)
	ListChannels(ctx context.Context) ([]Channel, error)
}
