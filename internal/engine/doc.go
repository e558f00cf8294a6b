// Package engine implements the channel assignment engine.
//
// The engine is the single owner of every piece of mutable coordination
// state: per-channel states, the bot pool, the delay policy and the cached
// occupancy counts. All of it sits behind one mutex, and every operation
// reads and writes it atomically so the invariants below hold after each
// call returns:
//
//   - a bot serves at most one channel
//   - at most one channel is Talking
//   - a channel that cannot talk never Talks
//   - a channel that cannot listen never leaves Off
//   - a channel has a bot if and only if it is not Off
//
// # Plans
//
// The engine never performs I/O. Each operation returns a Plan: the
// resulting state, the transitions that happened, and the remote Actions to
// send to bots. The caller executes the plan after the lock is released, so
// a slow or unreachable bot never stalls other requests. Remote failures do
// not feed back: the engine records intended state and bots are expected to
// converge or be restarted.
//
// # Request algorithm
//
//  1. Unknown channel: ErrUnknownChannel.
//  2. Listening disabled and desired is not Off: rejected, no change.
//  3. Listen-only channel asked for Talking: clamped to Off.
//  4. Off: send leave+mute (or one delayed leave if the channel was
//     Talking and the delay is on), release the bot.
//  5. Listening/Talking: bind the least recently released idle bot if the
//     channel has none. No idle bot: dropped, no change.
//  6. Talking: demote every other Talking channel to Listening (mute,
//     delayed if the delay is on), then join and talk (talk delayed).
//  7. Listening from Talking: mute only (delayed if on). Otherwise join
//     and mute.
package engine
