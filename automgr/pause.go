package automgr

import "github.com/deimos-rover/deimos/comms/tc"

// Pause halts the autonomy system until a Resume arrives: it pushes a Stop
// above itself, then waits.
type Pause struct {
	stopIssued bool
}

// NewPause creates a Pause state.
func NewPause() *Pause { return &Pause{} }

// Name implements State.
func (p *Pause) Name() string { return "Pause" }

// Step implements State.
func (p *Pause) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if cmd != nil {
		switch cmd.Type {
		case tc.AutoCmdAbort:
			return StepOutput{Action: ActionAbort()}, nil
		case tc.AutoCmdResume:
			return StepOutput{Action: ActionPop()}, nil
		default:
			ctx.Logger.Warnf("only ABORT and RESUME are accepted in Pause, %s ignored", cmd.Type)
		}
	}

	if !p.stopIssued {
		p.stopIssued = true
		return StepOutput{Action: ActionPushAbove(NewStop())}, nil
	}
	return StepNone(), nil
}
