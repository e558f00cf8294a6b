package engine

import (
	"time"

	"github.com/itaame/MCC-COMMS/types"
)

// Plan is the result of one engine operation.
type Plan struct {
	// Result describes the requested channel after the operation.
	Result types.Result

	// Actions are the remote commands to deliver, in order.
	Actions []types.Action

	// Events are the channel transitions that happened, in order.
	Events []types.ChannelEvent
}

// Empty reports whether the plan carries no actions and no events.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0 && len(p.Events) == 0
}

func (p *Plan) send(worker, endpoint string, cmd types.Command) {
	p.Actions = append(p.Actions, types.Action{WorkerID: worker, Endpoint: endpoint, Command: cmd})
}

func (p *Plan) sendAfter(worker, endpoint string, cmd types.Command, delay time.Duration) {
	p.Actions = append(p.Actions, types.Action{WorkerID: worker, Endpoint: endpoint, Command: cmd, Delay: delay})
}

// mute appends a mute for worker. With a delay it becomes a deferred
// mute_after_delay; the dispatcher decides who waits.
func (p *Plan) mute(worker, endpoint string, delay time.Duration) {
	if delay > 0 {
		p.sendAfter(worker, endpoint, types.Command{Kind: types.CmdMuteAfterDelay}, delay)
		return
	}
	p.send(worker, endpoint, types.Command{Kind: types.CmdMute})
}
