// Package testing provides test utilities for the MCC-COMMS coordinator.
//
// It follows Go's convention of shipping test helpers in a dedicated
// package (like net/http/httptest). Import it under an alias:
//
//	import commstest "github.com/itaame/MCC-COMMS/testing"
//
// Key utilities:
//   - StartFakeBot: httptest server speaking the bot control API, recording every command
//   - StartEmbeddedNATS: in-process NATS server with JetStream
//   - CreateViewBucket: in-memory KV bucket shaped like the view mirror
//   - MirroredChannel: decode one mirrored channel record
//   - NewTestLogger: types.Logger writing through t.Logf
//
// Example usage:
//
//	func TestToggle(t *testing.T) {
//	    bot := commstest.StartFakeBot(t, "BOT1")
//	    cfg := comms.TestConfig()
//	    cfg.Bots = []comms.Bot{bot.Bot()}
//	    // ...
//	}
package testing
