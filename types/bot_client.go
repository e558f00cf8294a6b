package types

import "context"

// BotClient talks to the bot control API.
//
// Implementations must be safe for concurrent use and must honor ctx
// deadlines; the coordinator bounds every call with a timeout.
type BotClient interface {
	// Send delivers one command and reports how it went. It never panics and
	// never retries; failures are reported in Outcome.Err.
	Send(ctx context.Context, action Action) Outcome

	// Status fetches the per-channel user counts a bot reports.
	//
	// Returns:
	//   - map[string]int: Channel name -> user count
	//   - error: Transport failure, ErrBotStatus or ErrMalformedStatus
	Status(ctx context.Context, endpoint string) (map[string]int, error)
}
