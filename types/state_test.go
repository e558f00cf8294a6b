package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateOff, "Off"},
		{StateListening, "Listening"},
		{StateTalking, "Talking"},
		{State(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseState(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want State
	}{
		{"off", StateOff},
		{"0", StateOff},
		{"listening", StateListening},
		{"1", StateListening},
		{"talking", StateTalking},
		{"2", StateTalking},
	} {
		got, err := ParseState(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseState("shouting")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStateValid(t *testing.T) {
	require.True(t, StateOff.Valid())
	require.True(t, StateTalking.Valid())
	require.False(t, State(-1).Valid())
	require.False(t, State(3).Valid())
}
