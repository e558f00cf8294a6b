package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandKind_Path(t *testing.T) {
	require.Equal(t, "/join", CmdJoin.Path())
	require.Equal(t, "/mute_after_delay", CmdMuteAfterDelay.Path())
	require.Equal(t, "/leave_after_delay", CmdLeaveAfterDelay.Path())
	require.Equal(t, "/delay_on", CmdDelayOn.Path())
	require.Equal(t, "unknown", CommandKind(0).String())
}

func TestCommandKind_Base(t *testing.T) {
	base, delayed := CmdMuteAfterDelay.Base()
	require.True(t, delayed)
	require.Equal(t, CmdMute, base)

	base, delayed = CmdLeaveAfterDelay.Base()
	require.True(t, delayed)
	require.Equal(t, CmdLeave, base)

	base, delayed = CmdTalk.Base()
	require.False(t, delayed)
	require.Equal(t, CmdTalk, base)
}

func TestCommand_Body(t *testing.T) {
	require.Equal(t, map[string]any{"loop": "FLIGHT"}, Command{Kind: CmdJoin, Loop: "FLIGHT"}.Body())
	require.Equal(t, map[string]any{"seconds": 3.0}, Command{Kind: CmdDelayOn, Seconds: 3}.Body())
	require.Nil(t, Command{Kind: CmdMute}.Body())
}

func TestOutcome_OK(t *testing.T) {
	require.True(t, Outcome{StatusCode: 200}.OK())
	require.True(t, Outcome{StatusCode: 204}.OK())
	require.False(t, Outcome{StatusCode: 500}.OK())
	require.False(t, Outcome{StatusCode: 200, Err: errors.New("boom")}.OK())
	require.False(t, Outcome{}.OK())
}
