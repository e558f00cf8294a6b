package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itaame/MCC-COMMS/types"
)

// BotCall is one command received by a FakeBot.
type BotCall struct {
	Command string
	Loop    string
	Seconds float64
	At      time.Time
}

// FakeBot is an httptest server that speaks the bot control API.
//
// It records every command, tracks the joined loop and mute state like a
// real bot would, and serves configurable user counts on GET /status.
type FakeBot struct {
	Name string
	URL  string

	mu      sync.Mutex
	calls   []BotCall
	counts  map[string]int
	loop    string
	talking bool
	delay   float64
	failing bool
	notify  chan BotCall
}

// StartFakeBot starts a fake bot named name. It is closed by t.Cleanup.
func StartFakeBot(t *testing.T, name string) *FakeBot {
	t.Helper()

	b := &FakeBot{
		Name:   name,
		counts: make(map[string]int),
		notify: make(chan BotCall, 64),
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	b.URL = srv.URL
	t.Cleanup(srv.Close)

	return b
}

// Bot returns the roster entry for this bot.
func (b *FakeBot) Bot() types.Bot {
	return types.Bot{Name: b.Name, Endpoint: b.URL}
}

// Calls returns a copy of every command received so far.
func (b *FakeBot) Calls() []BotCall {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]BotCall(nil), b.calls...)
}

// Commands returns the received command names in order.
func (b *FakeBot) Commands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.Command
	}

	return out
}

// Reset forgets recorded commands. Loop and mute state are kept.
func (b *FakeBot) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = nil
	for {
		select {
		case <-b.notify:
		default:
			return
		}
	}
}

// WaitCommand blocks until the next command arrives or timeout elapses.
//
// Returns:
//   - BotCall: The command
//   - bool: false on timeout
func (b *FakeBot) WaitCommand(timeout time.Duration) (BotCall, bool) {
	select {
	case c := <-b.notify:
		return c, true
	case <-time.After(timeout):
		return BotCall{}, false
	}
}

// SetCounts sets the user counts served by GET /status.
func (b *FakeBot) SetCounts(counts map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts = make(map[string]int, len(counts))
	for k, v := range counts {
		b.counts[k] = v
	}
}

// SetFailing makes every endpoint answer 503 while on.
func (b *FakeBot) SetFailing(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failing = on
}

// State returns the joined loop ("" if none) and whether the bot is talking.
func (b *FakeBot) State() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.loop, b.talking
}

// DelaySeconds returns the delay set by the last delay_on (0 after delay_off).
func (b *FakeBot) DelaySeconds() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.delay
}

func (b *FakeBot) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	failing := b.failing
	b.mu.Unlock()

	if failing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	cmd := strings.TrimPrefix(r.URL.Path, "/")
	if cmd == "status" && r.Method == http.MethodGet {
		b.serveStatus(w)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Loop    string  `json:"loop"`
		Seconds float64 `json:"seconds"`
	}
	if r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	call := BotCall{Command: cmd, Loop: body.Loop, Seconds: body.Seconds, At: time.Now()}

	b.mu.Lock()
	switch cmd {
	case "join":
		b.loop = body.Loop
	case "talk":
		b.talking = true
	case "mute", "mute_after_delay":
		b.talking = false
	case "leave", "leave_after_delay":
		b.loop = ""
		b.talking = false
	case "delay_on":
		b.delay = body.Seconds
	case "delay_off":
		b.delay = 0
	default:
		b.mu.Unlock()
		http.NotFound(w, r)

		return
	}
	b.calls = append(b.calls, call)
	b.mu.Unlock()

	select {
	case b.notify <- call:
	default:
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (b *FakeBot) serveStatus(w http.ResponseWriter) {
	b.mu.Lock()
	reply := map[string]any{
		"user_counts": b.counts,
		"loop":        b.loop,
		"talking":     b.talking,
	}
	data, err := json.Marshal(reply)
	b.mu.Unlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
