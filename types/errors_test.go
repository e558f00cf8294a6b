package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrorsWrap(t *testing.T) {
	wrapped := fmt.Errorf("toggle %q: %w", "FAO", ErrUnknownChannel)
	require.ErrorIs(t, wrapped, ErrUnknownChannel)
	require.NotErrorIs(t, wrapped, ErrInvalidState)
}

func TestSentinelErrorsDistinct(t *testing.T) {
	all := []error{
		ErrInvalidConfig, ErrChannelSourceRequired, ErrAlreadyStarted, ErrNotStarted,
		ErrUnknownChannel, ErrInvalidState, ErrEmptyRoster, ErrInvalidBot, ErrDuplicateBot,
		ErrAggregatorAlreadyStarted, ErrAggregatorNotStarted, ErrSchedulerClosed,
		ErrBotStatus, ErrMalformedStatus, ErrConnectivity, ErrPublishFailed,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}
