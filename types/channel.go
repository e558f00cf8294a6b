package types

import (
	"encoding/json"
	"fmt"
)

// Channel is one loop from the catalog.
//
// Channels are loaded once at startup and never mutated. Keys in the
// catalog entry other than name, can_listen and can_talk are kept in
// Extra and passed through untouched.
type Channel struct {
	// Name uniquely identifies the channel.
	Name string `json:"name"`

	// CanListen allows a bot to join the channel muted.
	CanListen bool `json:"can_listen"`

	// CanTalk allows the channel to become the talking channel.
	CanTalk bool `json:"can_talk"`

	// Extra holds passthrough catalog keys.
	Extra map[string]any `json:"-"`
}

var channelKnownKeys = map[string]struct{}{
	"name":       {},
	"can_listen": {},
	"can_talk":   {},
}

// UnmarshalJSON decodes a catalog entry, collecting unknown keys into Extra.
func (c *Channel) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode channel: %w", err)
	}

	var ch Channel
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &ch.Name); err != nil {
			return fmt.Errorf("decode channel name: %w", err)
		}
	}
	if v, ok := raw["can_listen"]; ok {
		if err := json.Unmarshal(v, &ch.CanListen); err != nil {
			return fmt.Errorf("decode can_listen for %q: %w", ch.Name, err)
		}
	}
	if v, ok := raw["can_talk"]; ok {
		if err := json.Unmarshal(v, &ch.CanTalk); err != nil {
			return fmt.Errorf("decode can_talk for %q: %w", ch.Name, err)
		}
	}

	for key, value := range raw {
		if _, known := channelKnownKeys[key]; known {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decode %q for %q: %w", key, ch.Name, err)
		}
		if ch.Extra == nil {
			ch.Extra = make(map[string]any)
		}
		ch.Extra[key] = v
	}

	*c = ch

	return nil
}

// MarshalJSON encodes the channel with its passthrough keys inlined.
func (c Channel) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["name"] = c.Name
	out["can_listen"] = c.CanListen
	out["can_talk"] = c.CanTalk

	return json.Marshal(out)
}

// Bot is a roster entry for one speaker worker process.
type Bot struct {
	// Name uniquely identifies the bot (e.g., "BOT1").
	Name string `yaml:"name" json:"name"`

	// Endpoint is the bot control API base URL (e.g., "http://127.0.0.1:6001").
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}
