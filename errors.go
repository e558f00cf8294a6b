package comms

import "github.com/itaame/MCC-COMMS/types"

// Sentinel errors returned by the Coordinator.
//
// They alias the values in the types package so errors.Is works no matter
// which package a caller imports.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrChannelSourceRequired is returned when the channel source is nil.
	ErrChannelSourceRequired = types.ErrChannelSourceRequired

	// ErrAlreadyStarted is returned when Start is called on a running coordinator.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when an operation needs a started coordinator.
	ErrNotStarted = types.ErrNotStarted

	// ErrUnknownChannel is returned for a channel name missing from the catalog.
	ErrUnknownChannel = types.ErrUnknownChannel

	// ErrInvalidState is returned for a state outside Off/Listening/Talking.
	ErrInvalidState = types.ErrInvalidState

	// ErrEmptyRoster is returned when no bots are configured.
	ErrEmptyRoster = types.ErrEmptyRoster
)
