// Package comms coordinates voice loop monitoring for a mission control
// console.
//
// A console role (FLIGHT, CAPCOM, ...) has a catalog of loops it may monitor
// and a small fixed roster of speaker bots. Each bot joins at most one loop at
// a time, and at most one loop in the whole console is keyed for talking.
// The Coordinator arbitrates operator requests over that roster, sends the
// bots their join/talk/mute/leave commands, and polls them for user counts.
//
// # Quick Start
//
//	import (
//	    comms "github.com/itaame/MCC-COMMS"
//	    "github.com/itaame/MCC-COMMS/source"
//	)
//
//	cfg := comms.DefaultConfig()
//	coord, err := comms.New(&cfg, source.NewFile(cfg.LoopsDir, cfg.Role))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := coord.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Stop(context.Background())
//
//	res, err := coord.SetChannelState(ctx, "FLIGHT DIRECTOR", comms.StateTalking)
//
// # Key Features
//
//   - Single talker: keying a loop demotes whoever was talking to listening
//   - Least recently released bot is reused first, so a bot that just left
//     a loop gets a moment before it is reassigned
//   - Release delay: demoted talkers stay keyed and new talkers wait for the
//     configured delay, scheduled here or on the bots themselves
//   - Best-effort delivery: a failed bot command is logged and counted, never
//     retried and never rolled back into coordinator state
//
// # Channel States
//
// Each loop is in one of three states:
//
//	Off → Listening → Talking
//
// Toggle walks that cycle (Talking goes back to Listening) and skips Talking
// for listen-only loops. A request that finds every bot busy is dropped with
// OutcomeDropped and changes nothing.
//
// # Observability
//
// comms.WithMetrics accepts any MetricsCollector (the binary registers a
// Prometheus collector), comms.WithLogger any Logger, and comms.WithNATS
// mirrors every loop state into a JetStream KV bucket for read-only
// dashboards.
//
// See cmd/mcc-comms for the HTTP control server.
package comms
