// Package types provides core type definitions and interfaces for the comms coordinator.
//
// This package contains shared types that are used across multiple packages in the
// module. By keeping these types in a separate package, we avoid import cycles
// between the root comms package and its internal implementations.
//
// Key types:
//   - Channel: A loop from the catalog with its capability flags
//   - State / ChannelState: Tri-state loop state and its owning bot
//   - Command / Action: Remote bot commands planned by the engine
//   - Outcome: Best-effort result of one remote bot call
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
