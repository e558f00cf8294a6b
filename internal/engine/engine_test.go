package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/itaame/MCC-COMMS/internal/logging"
	"github.com/itaame/MCC-COMMS/internal/metrics"
	"github.com/itaame/MCC-COMMS/internal/pool"
	"github.com/itaame/MCC-COMMS/test/testutil"
	"github.com/itaame/MCC-COMMS/types"
)

var epoch = time.Date(2024, 7, 20, 20, 17, 0, 0, time.UTC)

var testCatalog = []types.Channel{
	{Name: "FD", CanListen: true, CanTalk: true},
	{Name: "AFD", CanListen: true, CanTalk: true},
	{Name: "FAO", CanListen: true, CanTalk: true},
	{Name: "EECOM", CanListen: true, CanTalk: true},
	{Name: "PAO", CanListen: true, CanTalk: false},
	{Name: "DARK", CanListen: false, CanTalk: false},
}

func roster(n int) []types.Bot {
	bots := make([]types.Bot, n)
	for i := range bots {
		bots[i] = types.Bot{Name: fmt.Sprintf("BOT%d", i+1), Endpoint: fmt.Sprintf("http://bot%d.test", i+1)}
	}

	return bots
}

func newTestEngine(t *testing.T, bots int, delay types.DelayPolicy) (*Engine, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(epoch)
	p, err := pool.New(roster(bots), clk)
	require.NoError(t, err)

	e := New(Config{
		Channels: testCatalog,
		Pool:     p,
		Delay:    delay,
		Clock:    clk,
		Logger:   logging.NewNop(),
		Metrics:  metrics.NewNop(),
	})

	return e, clk
}

func request(t *testing.T, e *Engine, name string, desired types.State) Plan {
	t.Helper()

	plan, err := e.Request(name, desired)
	require.NoError(t, err)
	assertInvariants(t, e)

	return plan
}

func assertInvariants(t *testing.T, e *Engine) {
	t.Helper()
	testutil.AssertInvariants(t, e.Channels(), e.States(), e.Workers())
}

func cmds(actions []types.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.WorkerID + ":" + a.Command.Kind.String()
		if a.Delay > 0 {
			out[i] += "@" + a.Delay.String()
		}
	}

	return out
}

var noDelay = types.DelayPolicy{Enabled: false, Delay: 3 * time.Second}

func TestNew_SkipsDuplicatesAndUnnamed(t *testing.T) {
	clk := clock.NewFake(epoch)
	p, err := pool.New(roster(1), clk)
	require.NoError(t, err)

	e := New(Config{
		Channels: []types.Channel{
			{Name: "FD", CanListen: true, CanTalk: true},
			{Name: "", CanListen: true},
			{Name: "FD", CanListen: false},
			{Name: "PAO", CanListen: true},
		},
		Pool:    p,
		Clock:   clk,
		Logger:  logging.NewNop(),
		Metrics: metrics.NewNop(),
	})

	chs := e.Channels()
	require.Len(t, chs, 2)
	require.Equal(t, "FD", chs[0].Name)
	require.True(t, chs[0].CanListen)
	require.Equal(t, "PAO", chs[1].Name)
	require.Equal(t, []string{"FD", "PAO"}, e.View().Order)
}

func TestRequest_Errors(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	_, err := e.Request("NOPE", types.StateListening)
	require.ErrorIs(t, err, types.ErrUnknownChannel)

	_, err = e.Request("FD", types.State(7))
	require.ErrorIs(t, err, types.ErrInvalidState)
}

func TestRequest_ListenFromOff(t *testing.T) {
	e, clk := newTestEngine(t, 3, noDelay)

	plan := request(t, e, "FD", types.StateListening)

	require.Equal(t, types.OutcomeApplied, plan.Result.Outcome)
	require.Equal(t, types.ChannelState{State: types.StateListening, Worker: "BOT1"}, plan.Result.State)
	require.Equal(t, []string{"BOT1:join", "BOT1:mute"}, cmds(plan.Actions))
	require.Equal(t, "FD", plan.Actions[0].Command.Loop)
	require.Equal(t, "http://bot1.test", plan.Actions[0].Endpoint)

	require.Len(t, plan.Events, 1)
	require.Equal(t, types.ChannelEvent{
		Channel: "FD",
		From:    types.ChannelState{State: types.StateOff},
		To:      types.ChannelState{State: types.StateListening, Worker: "BOT1"},
		At:      clk.Now(),
	}, plan.Events[0])
}

func TestRequest_TalkingPreemptsTalker(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	plan := request(t, e, "FD", types.StateTalking)
	require.Equal(t, []string{"BOT1:join", "BOT1:talk"}, cmds(plan.Actions))

	plan = request(t, e, "AFD", types.StateTalking)
	require.Equal(t, []string{"BOT1:mute", "BOT2:join", "BOT2:talk"}, cmds(plan.Actions))
	require.Len(t, plan.Events, 2)
	require.Equal(t, "FD", plan.Events[0].Channel)
	require.Equal(t, types.StateListening, plan.Events[0].To.State)
	require.Equal(t, "AFD", plan.Events[1].Channel)

	states := e.States()
	require.Equal(t, types.ChannelState{State: types.StateListening, Worker: "BOT1"}, states["FD"])
	require.Equal(t, types.ChannelState{State: types.StateTalking, Worker: "BOT2"}, states["AFD"])

	talking := 0
	for _, st := range states {
		if st.State == types.StateTalking {
			talking++
		}
	}
	require.Equal(t, 1, talking)
}

func TestRequest_FullPoolDropsRequest(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	request(t, e, "FD", types.StateListening)
	request(t, e, "AFD", types.StateTalking)
	request(t, e, "FAO", types.StateListening)
	before := e.States()

	plan := request(t, e, "EECOM", types.StateListening)

	require.Equal(t, types.OutcomeDropped, plan.Result.Outcome)
	require.True(t, plan.Empty())
	require.Equal(t, types.ChannelState{State: types.StateOff}, plan.Result.State)
	require.Equal(t, before, e.States())
}

func TestRequest_OffOnOffIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	plan := request(t, e, "FD", types.StateOff)

	require.Equal(t, types.OutcomeUnchanged, plan.Result.Outcome)
	require.True(t, plan.Empty())
	require.Equal(t, 3, idle(e))
}

func TestRequest_OffReleasesWorker(t *testing.T) {
	e, clk := newTestEngine(t, 3, noDelay)

	request(t, e, "FD", types.StateTalking)
	clk.Advance(time.Minute)

	plan := request(t, e, "FD", types.StateOff)

	require.Equal(t, types.OutcomeApplied, plan.Result.Outcome)
	require.Equal(t, []string{"BOT1:leave", "BOT1:mute"}, cmds(plan.Actions))
	require.Equal(t, types.ChannelState{State: types.StateOff}, plan.Result.State)

	w, ok := pool.Worker{}, false
	for _, cand := range e.Workers() {
		if cand.ID == "BOT1" {
			w, ok = cand, true
		}
	}
	require.True(t, ok)
	require.True(t, w.Idle())
	require.Equal(t, epoch.Add(time.Minute), w.LastReleased)
}

func TestRequest_ReleaseDelay(t *testing.T) {
	delay := types.DelayPolicy{Enabled: true, Delay: 3 * time.Second}

	t.Run("escalation delays talk and demotion mute", func(t *testing.T) {
		e, _ := newTestEngine(t, 3, delay)
		request(t, e, "FD", types.StateTalking)

		plan := request(t, e, "AFD", types.StateTalking)

		require.Equal(t, []string{"BOT1:mute_after_delay@3s", "BOT2:join", "BOT2:talk@3s"}, cmds(plan.Actions))
	})

	t.Run("demote to listening is a delayed mute only", func(t *testing.T) {
		e, _ := newTestEngine(t, 3, delay)
		request(t, e, "FD", types.StateTalking)

		plan := request(t, e, "FD", types.StateListening)

		require.Equal(t, []string{"BOT1:mute_after_delay@3s"}, cmds(plan.Actions))
		require.Equal(t, types.StateListening, plan.Result.State.State)
	})

	t.Run("off from talking is one delayed leave", func(t *testing.T) {
		e, _ := newTestEngine(t, 3, delay)
		request(t, e, "FD", types.StateTalking)

		plan := request(t, e, "FD", types.StateOff)

		require.Equal(t, []string{"BOT1:leave_after_delay@3s"}, cmds(plan.Actions))
		require.Equal(t, 3, idle(e))
	})

	t.Run("off from listening is immediate", func(t *testing.T) {
		e, _ := newTestEngine(t, 3, delay)
		request(t, e, "FD", types.StateListening)

		plan := request(t, e, "FD", types.StateOff)

		require.Equal(t, []string{"BOT1:leave", "BOT1:mute"}, cmds(plan.Actions))
	})

	t.Run("disabled policy sends everything immediately", func(t *testing.T) {
		e, _ := newTestEngine(t, 3, noDelay)
		request(t, e, "FD", types.StateTalking)

		plan := request(t, e, "FD", types.StateListening)

		require.Equal(t, []string{"BOT1:mute"}, cmds(plan.Actions))
	})
}

func TestRequest_ListenOnlyEscalationClampsToOff(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	request(t, e, "PAO", types.StateListening)
	plan := request(t, e, "PAO", types.StateTalking)

	require.Equal(t, types.OutcomeApplied, plan.Result.Outcome)
	require.Equal(t, types.ChannelState{State: types.StateOff}, plan.Result.State)
	require.Equal(t, []string{"BOT1:leave", "BOT1:mute"}, cmds(plan.Actions))

	plan = request(t, e, "PAO", types.StateTalking)
	require.Equal(t, types.OutcomeUnchanged, plan.Result.Outcome)
}

func TestRequest_CannotListenIsRejected(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	for _, desired := range []types.State{types.StateListening, types.StateTalking} {
		plan := request(t, e, "DARK", desired)
		require.Equal(t, types.OutcomeRejected, plan.Result.Outcome)
		require.True(t, plan.Empty())
	}

	plan := request(t, e, "DARK", types.StateOff)
	require.Equal(t, types.OutcomeUnchanged, plan.Result.Outcome)
}

func TestRequest_LeastRecentlyReleasedWorker(t *testing.T) {
	e, clk := newTestEngine(t, 3, noDelay)

	request(t, e, "FD", types.StateListening)  // BOT1
	request(t, e, "AFD", types.StateListening) // BOT2
	request(t, e, "FAO", types.StateListening) // BOT3

	clk.Advance(time.Second)
	request(t, e, "AFD", types.StateOff) // BOT2 released at t+1s
	clk.Advance(time.Second)
	request(t, e, "FD", types.StateOff) // BOT1 released at t+2s

	plan := request(t, e, "EECOM", types.StateListening)
	require.Equal(t, "BOT2", plan.Result.State.Worker)

	plan = request(t, e, "FD", types.StateListening)
	require.Equal(t, "BOT1", plan.Result.State.Worker)
}

func TestRequest_KeepsWorkerAcrossStates(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	request(t, e, "FD", types.StateListening)
	plan := request(t, e, "FD", types.StateTalking)

	require.Equal(t, "BOT1", plan.Result.State.Worker)
	require.Equal(t, []string{"BOT1:join", "BOT1:talk"}, cmds(plan.Actions))
	require.Equal(t, 2, idle(e))
}

func TestRequest_RepeatedStateIsUnchanged(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	request(t, e, "FD", types.StateListening)
	plan := request(t, e, "FD", types.StateListening)
	require.Equal(t, types.OutcomeUnchanged, plan.Result.Outcome)
	require.Equal(t, types.ChannelState{State: types.StateListening, Worker: "BOT1"}, plan.Result.State)
	require.Empty(t, plan.Events)
	require.Equal(t, []string{"BOT1:join", "BOT1:mute"}, cmds(plan.Actions), "commands are re-sent")

	plan = request(t, e, "FD", types.StateTalking)
	require.Equal(t, types.OutcomeApplied, plan.Result.Outcome)

	plan = request(t, e, "FD", types.StateTalking)
	require.Equal(t, types.OutcomeUnchanged, plan.Result.Outcome)
	require.Empty(t, plan.Events)
	require.Equal(t, []string{"BOT1:join", "BOT1:talk"}, cmds(plan.Actions))
	require.Equal(t, 2, idle(e))
}

func TestToggle(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	want := []types.State{types.StateListening, types.StateTalking, types.StateListening, types.StateTalking}
	for _, st := range want {
		plan, err := e.Toggle("FD")
		require.NoError(t, err)
		require.Equal(t, st, plan.Result.State.State)
		assertInvariants(t, e)
	}

	t.Run("listen-only stays listening", func(t *testing.T) {
		for range 3 {
			plan, err := e.Toggle("PAO")
			require.NoError(t, err)
			require.Equal(t, types.StateListening, plan.Result.State.State)
		}
	})

	t.Run("cannot listen is rejected", func(t *testing.T) {
		plan, err := e.Toggle("DARK")
		require.NoError(t, err)
		require.Equal(t, types.OutcomeRejected, plan.Result.Outcome)
		require.True(t, plan.Empty())
	})

	t.Run("unknown channel", func(t *testing.T) {
		_, err := e.Toggle("NOPE")
		require.ErrorIs(t, err, types.ErrUnknownChannel)
	})
}

func TestNextState(t *testing.T) {
	talker := types.Channel{Name: "FD", CanListen: true, CanTalk: true}
	listener := types.Channel{Name: "PAO", CanListen: true}

	require.Equal(t, types.StateListening, NextState(talker, types.StateOff))
	require.Equal(t, types.StateTalking, NextState(talker, types.StateListening))
	require.Equal(t, types.StateListening, NextState(talker, types.StateTalking))
	require.Equal(t, types.StateListening, NextState(listener, types.StateOff))
	require.Equal(t, types.StateListening, NextState(listener, types.StateListening))
}

func TestSetDelay_BroadcastsToEveryBot(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)

	policy, actions := e.ToggleDelay()
	require.True(t, policy.Enabled)
	require.Equal(t, []string{"BOT1:delay_on", "BOT2:delay_on", "BOT3:delay_on"}, cmds(actions))
	require.InDelta(t, 3.0, actions[0].Command.Seconds, 0)
	require.Equal(t, map[string]any{"seconds": 3.0}, actions[0].Command.Body())

	policy, actions = e.ToggleDelay()
	require.False(t, policy.Enabled)
	require.Equal(t, []string{"BOT1:delay_off", "BOT2:delay_off", "BOT3:delay_off"}, cmds(actions))

	policy, _ = e.SetDelay(true)
	require.True(t, policy.Enabled)
	require.Equal(t, policy, e.Delay())

	policy = e.SetDelayDuration(-time.Second)
	require.Zero(t, policy.Delay)
	require.True(t, policy.Enabled)
}

func TestMergeCountsAndView(t *testing.T) {
	e, _ := newTestEngine(t, 3, noDelay)
	request(t, e, "FD", types.StateTalking)

	n := e.MergeCounts(map[string]int{"FD": 4, "PAO": 2, "GHOST": 9})
	require.Equal(t, 2, n)

	n = e.MergeCounts(map[string]int{"FD": 5})
	require.Equal(t, 1, n)

	v := e.View()
	require.Equal(t, []string{"FD", "AFD", "FAO", "EECOM", "PAO", "DARK"}, v.Order)
	require.Equal(t, types.ChannelView{State: types.StateTalking, Count: 5}, v.Channels["FD"])
	require.Equal(t, types.ChannelView{State: types.StateOff, Count: 2}, v.Channels["PAO"])
	require.NotContains(t, v.Channels, "GHOST")
	require.False(t, v.Delay.Enabled)

	ch, ok := e.Channel("PAO")
	require.True(t, ok)
	require.False(t, ch.CanTalk)
}

func TestRequest_RandomSequencesHoldInvariants(t *testing.T) {
	names := make([]string, 0, len(testCatalog)+1)
	for _, ch := range testCatalog {
		names = append(names, ch.Name)
	}

	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))
		delay := types.DelayPolicy{Enabled: seed%2 == 0, Delay: 3 * time.Second}
		e, clk := newTestEngine(t, 1+int(seed%4), delay)

		for step := range 200 {
			name := names[rng.IntN(len(names))]
			if rng.IntN(4) == 0 {
				_, err := e.Toggle(name)
				require.NoError(t, err)
			} else {
				_, err := e.Request(name, types.State(rng.IntN(3)))
				require.NoError(t, err)
			}
			clk.Advance(time.Duration(rng.IntN(1000)) * time.Millisecond)

			if err := testutil.CheckInvariants(e.Channels(), e.States(), e.Workers()); err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
		}
	}
}

func TestEngine_ConcurrentCallersHoldInvariants(t *testing.T) {
	names := make([]string, 0, len(testCatalog))
	for _, ch := range testCatalog {
		names = append(names, ch.Name)
	}

	e, _ := newTestEngine(t, 3, types.DelayPolicy{Enabled: true, Delay: 3 * time.Second})

	const goroutines = 8
	errs := make(chan error, goroutines)

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()

			rng := rand.New(rand.NewPCG(uint64(g), 42))
			for range 300 {
				name := names[rng.IntN(len(names))]
				var err error
				switch rng.IntN(6) {
				case 0:
					_, err = e.Toggle(name)
				case 1:
					_, err = e.Request(name, types.StateOff)
				case 2:
					e.MergeCounts(map[string]int{name: rng.IntN(10)})
				case 3:
					e.ToggleDelay()
				default:
					_, err = e.Request(name, types.State(rng.IntN(3)))
				}
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assertInvariants(t, e)

	talking := 0
	for _, cv := range e.View().Channels {
		if cv.State == types.StateTalking {
			talking++
		}
	}
	require.LessOrEqual(t, talking, 1)
}

func idle(e *Engine) int {
	n := 0
	for _, w := range e.Workers() {
		if w.Idle() {
			n++
		}
	}

	return n
}
