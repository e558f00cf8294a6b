package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/itaame/MCC-COMMS/internal/logging"
	"github.com/itaame/MCC-COMMS/internal/metrics"
	commstest "github.com/itaame/MCC-COMMS/testing"
	"github.com/itaame/MCC-COMMS/types"
)

type fakeSource struct {
	mu     sync.Mutex
	view   types.View
	states map[string]types.ChannelState
}

func newSource() *fakeSource {
	return &fakeSource{
		view: types.View{
			Order: []string{"FD", "A/G 1"},
			Channels: map[string]types.ChannelView{
				"FD":    {State: types.StateTalking, Count: 4},
				"A/G 1": {State: types.StateOff},
			},
			Delay: types.DelayPolicy{Enabled: true, Delay: 3 * time.Second},
		},
		states: map[string]types.ChannelState{
			"FD":    {State: types.StateTalking, Worker: "BOT1"},
			"A/G 1": {State: types.StateOff},
		},
	}
}

func (s *fakeSource) View() types.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view
}

func (s *fakeSource) States() map[string]types.ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.states
}

func (s *fakeSource) set(name string, st types.ChannelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = map[string]types.ChannelState{"FD": s.states["FD"], "A/G 1": s.states["A/G 1"]}
	s.states[name] = st
	channels := map[string]types.ChannelView{}
	for k, v := range s.view.Channels {
		channels[k] = v
	}
	cv := channels[name]
	cv.State = st.State
	channels[name] = cv
	s.view.Channels = channels
}

func testConfig() Config {
	return Config{Prefix: "FLIGHT", Logger: logging.NewNop(), Metrics: metrics.NewNop()}
}

func readRecord(t *testing.T, kv jetstream.KeyValue, key string, into any) {
	t.Helper()

	entry, err := kv.Get(t.Context(), key)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(entry.Value(), into))
}

func TestKey(t *testing.T) {
	require.Equal(t, "FLIGHT.FD", Key("FLIGHT", "FD"))
	require.Equal(t, "FLIGHT.A_G_1", Key("FLIGHT", "A/G 1"))
	require.Equal(t, "CAPCOM.EVA_1_2", Key("CAPCOM", "EVA.1.2"))
	require.Equal(t, "_._", Key("", ""))
}

func TestIsConnectivityError(t *testing.T) {
	require.False(t, isConnectivityError(nil))
	require.True(t, isConnectivityError(nats.ErrTimeout))
	require.True(t, isConnectivityError(types.ErrConnectivity))
	require.True(t, isConnectivityError(errors.New("dial tcp: connection refused")))
	require.False(t, isConnectivityError(errors.New("invalid key")))
}

func TestPublishNow_WritesChannelsAndDelay(t *testing.T) {
	_, nc := commstest.StartEmbeddedNATS(t)
	kv := commstest.CreateViewBucket(t, nc, "view-publish-now")
	p := New(kv, testConfig())

	require.NoError(t, p.PublishNow(t.Context(), newSource(), false))

	var fd channelRecord
	readRecord(t, kv, "FLIGHT.FD", &fd)
	require.Equal(t, channelRecord{State: types.StateTalking, Worker: "BOT1", Count: 4}, fd)

	var ag channelRecord
	readRecord(t, kv, "FLIGHT.A_G_1", &ag)
	require.Equal(t, types.StateOff, ag.State)
	require.Empty(t, ag.Worker)

	var delay delayRecord
	readRecord(t, kv, "FLIGHT._delay", &delay)
	require.Equal(t, delayRecord{Enabled: true, Seconds: 3}, delay)
}

func TestPublishNow_SkipsUnchangedValues(t *testing.T) {
	_, nc := commstest.StartEmbeddedNATS(t)
	kv := commstest.CreateViewBucket(t, nc, "view-skip")
	p := New(kv, testConfig())
	src := newSource()

	require.NoError(t, p.PublishNow(t.Context(), src, false))
	first, err := kv.Get(t.Context(), "FLIGHT.FD")
	require.NoError(t, err)

	require.NoError(t, p.PublishNow(t.Context(), src, false))
	again, err := kv.Get(t.Context(), "FLIGHT.FD")
	require.NoError(t, err)
	require.Equal(t, first.Revision(), again.Revision())

	require.NoError(t, p.PublishNow(t.Context(), src, true))
	forced, err := kv.Get(t.Context(), "FLIGHT.FD")
	require.NoError(t, err)
	require.Greater(t, forced.Revision(), first.Revision())
}

func TestPublisher_Lifecycle(t *testing.T) {
	_, nc := commstest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	p, err := Open(t.Context(), js, "view-lifecycle", testConfig())
	require.NoError(t, err)

	// Opening the same bucket twice must reuse it.
	_, err = Open(t.Context(), js, "view-lifecycle", testConfig())
	require.NoError(t, err)

	src := newSource()
	require.NoError(t, p.Start(t.Context(), src))
	require.True(t, p.IsStarted())
	require.ErrorIs(t, p.Start(t.Context(), src), types.ErrAlreadyStarted)

	kv, err := js.KeyValue(t.Context(), "view-lifecycle")
	require.NoError(t, err)

	src.set("FD", types.ChannelState{State: types.StateListening, Worker: "BOT1"})
	p.Notify()

	require.Eventually(t, func() bool {
		entry, err := kv.Get(t.Context(), "FLIGHT.FD")
		if err != nil {
			return false
		}
		var rec channelRecord
		if json.Unmarshal(entry.Value(), &rec) != nil {
			return false
		}

		return rec.State == types.StateListening
	}, 2*time.Second, 10*time.Millisecond)

	src.set("A/G 1", types.ChannelState{State: types.StateListening, Worker: "BOT2"})
	require.NoError(t, p.Stop())
	require.False(t, p.IsStarted())

	var ag channelRecord
	readRecord(t, kv, "FLIGHT.A_G_1", &ag)
	require.Equal(t, "BOT2", ag.Worker)

	require.ErrorIs(t, p.Stop(), types.ErrNotStarted)
	require.NotPanics(t, p.Notify)
}
