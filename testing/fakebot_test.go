package testing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func post(t *testing.T, url string, body any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf) //nolint:noctx // test helper
	require.NoError(t, err)
	resp.Body.Close()

	return resp.StatusCode
}

func TestFakeBot_TracksCommands(t *testing.T) {
	bot := StartFakeBot(t, "BOT1")

	require.Equal(t, http.StatusOK, post(t, bot.URL+"/join", map[string]string{"loop": "FD"}))
	require.Equal(t, http.StatusOK, post(t, bot.URL+"/talk", nil))

	loop, talking := bot.State()
	require.Equal(t, "FD", loop)
	require.True(t, talking)

	require.Equal(t, http.StatusOK, post(t, bot.URL+"/leave", nil))
	loop, talking = bot.State()
	require.Empty(t, loop)
	require.False(t, talking)

	require.Equal(t, []string{"join", "talk", "leave"}, bot.Commands())
	require.Equal(t, "FD", bot.Calls()[0].Loop)

	c, ok := bot.WaitCommand(time.Second)
	require.True(t, ok)
	require.Equal(t, "join", c.Command)

	bot.Reset()
	require.Empty(t, bot.Commands())
	_, ok = bot.WaitCommand(10 * time.Millisecond)
	require.False(t, ok)
}

func TestFakeBot_DelayAndStatus(t *testing.T) {
	bot := StartFakeBot(t, "BOT2")
	bot.SetCounts(map[string]int{"FD": 3})

	require.Equal(t, http.StatusOK, post(t, bot.URL+"/delay_on", map[string]float64{"seconds": 3}))
	require.InDelta(t, 3.0, bot.DelaySeconds(), 0)

	resp, err := http.Get(bot.URL + "/status") //nolint:noctx // test helper
	require.NoError(t, err)
	defer resp.Body.Close()

	var reply struct {
		UserCounts map[string]int `json:"user_counts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	require.Equal(t, map[string]int{"FD": 3}, reply.UserCounts)
}

func TestFakeBot_FailingAndUnknown(t *testing.T) {
	bot := StartFakeBot(t, "BOT3")

	require.Equal(t, http.StatusNotFound, post(t, bot.URL+"/explode", nil))

	bot.SetFailing(true)
	require.Equal(t, http.StatusServiceUnavailable, post(t, bot.URL+"/mute", nil))
	require.Empty(t, bot.Commands())

	bot.SetFailing(false)
	require.Equal(t, http.StatusOK, post(t, bot.URL+"/mute", nil))
	require.Equal(t, "BOT3", bot.Bot().Name)
}
