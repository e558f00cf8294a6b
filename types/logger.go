package types

// Logger is the structured logging interface used throughout the coordinator.
//
// Method signatures match zap.SugaredLogger, so a sugared zap logger can be
// passed directly; internal/logging wraps log/slog for the default binary.
// Every method takes a message followed by alternating key-value pairs.
type Logger interface {
	// Debug logs at debug level. Per-command delivery results go here.
	Debug(msg string, keysAndValues ...any)

	// Info logs at info level. State transitions and dropped requests go here.
	Info(msg string, keysAndValues ...any)

	// Warn logs at warn level.
	Warn(msg string, keysAndValues ...any)

	// Error logs at error level.
	Error(msg string, keysAndValues ...any)

	// Fatal logs at error level and terminates the process with os.Exit(1).
	// Test and no-op implementations may not exit.
	Fatal(msg string, keysAndValues ...any)
}
