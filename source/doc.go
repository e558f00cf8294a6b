// Package source provides built-in channel catalog implementations.
//
// Channel sources supply the loop catalog the coordinator loads at startup.
// The package includes:
//
//   - Static: Fixed list of channels
//   - File: Role-specific JSONC catalog file (loops_<ROLE>.txt)
//
// Custom sources can be implemented by satisfying the types.ChannelSource interface.
package source
