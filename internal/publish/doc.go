// Package publish mirrors the coordinator's channel view into a NATS
// JetStream KV bucket.
//
// The mirror is one-way: the coordinator writes, dashboards and other
// consoles watch. Nothing is ever read back, so a broker outage only makes
// the mirror stale; it never affects assignment.
//
// # Key Format
//
// One key per channel plus one for the delay policy:
//
//	{prefix}.{channel}   {"state":2,"worker":"BOT1","count":4}
//	{prefix}._delay      {"enabled":true,"seconds":3}
//
// The prefix is normally the console role (e.g., "FLIGHT"). Characters NATS
// does not allow in keys are replaced with '_'.
//
// # Lifecycle
//
//  1. Open the bucket with Open(ctx, js, bucket, ...) or wrap one with New
//  2. Start(ctx) launches the background writer
//  3. Notify() after every state change; bursts coalesce into one write pass
//  4. Stop() performs a final write pass and waits for the writer to exit
//
// Unchanged values are not rewritten. A periodic pass every Interval
// rewrites everything so a bucket recreated behind the coordinator's back
// is refilled.
package publish
