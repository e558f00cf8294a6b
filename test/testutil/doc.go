// Package testutil provides shared assertion and wait helpers for tests.
//
// Use AssertInvariants after any sequence of engine operations to check the
// coordination invariants, and WaitChannelState to wait for asynchronous
// effects to show up in a coordinator view.
//
// Note: For NATS servers and fake bots, use the github.com/itaame/MCC-COMMS/testing package.
package testutil
