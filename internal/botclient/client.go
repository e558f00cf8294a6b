// Package botclient implements types.BotClient over the bots' HTTP control API.
package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itaame/MCC-COMMS/types"
)

// maxStatusBody caps how much of a status reply is read.
const maxStatusBody = 1 << 20

// Client sends commands to bots over HTTP.
type Client struct {
	http *http.Client
}

// Compile-time assertion that Client implements BotClient.
var _ types.BotClient = (*Client)(nil)

// New creates a bot client.
//
// Parameters:
//   - httpClient: Underlying client (http.DefaultClient if nil). Per-call
//     timeouts come from the context, not from httpClient.Timeout.
//
// Returns:
//   - *Client: Ready client
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{http: httpClient}
}

// Send posts one command to the bot named in action.
//
// The action's Delay is ignored; scheduling is the caller's job.
func (c *Client) Send(ctx context.Context, action types.Action) types.Outcome {
	out := types.Outcome{Action: action}
	start := time.Now()

	var body io.Reader
	if payload := action.Command.Body(); payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			out.Err = fmt.Errorf("encode %s body: %w", action.Command.Kind, err)
			return out
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, action.Command.Kind.Method(), join(action.Endpoint, action.Command.Kind.Path()), body)
	if err != nil {
		out.Err = fmt.Errorf("build %s request: %w", action.Command.Kind, err)
		return out
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	out.Latency = time.Since(start)
	if err != nil {
		out.Err = err
		return out
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBody))

	out.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Err = fmt.Errorf("%w: %s %s: %d", types.ErrBotStatus, action.WorkerID, action.Command.Kind, resp.StatusCode)
	}

	return out
}

type statusReply struct {
	UserCounts map[string]int `json:"user_counts"`
}

// Status fetches GET /status from a bot.
//
// A reply without user_counts is valid and yields an empty map.
func (c *Client) Status(ctx context.Context, endpoint string) (map[string]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, join(endpoint, "/status"), nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBody))
		return nil, fmt.Errorf("%w: status: %d", types.ErrBotStatus, resp.StatusCode)
	}

	var reply statusReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStatusBody)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrMalformedStatus, err)
	}
	if reply.UserCounts == nil {
		return map[string]int{}, nil
	}

	return reply.UserCounts, nil
}

func join(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + path
}
