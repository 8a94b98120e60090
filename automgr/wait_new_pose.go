package automgr

import (
	"time"

	"github.com/deimos-rover/deimos/comms/tc"
)

// WaitNewPose busy-waits until localisation yields a pose, up to a bounded
// time. It is pushed by any state which finds the pose missing.
type WaitNewPose struct {
	startTime time.Time
}

// NewWaitNewPose creates a WaitNewPose state, starting its timeout now.
func NewWaitNewPose(ctx *Context) *WaitNewPose {
	return &WaitNewPose{startTime: ctx.Clock.Now()}
}

// Name implements State.
func (w *WaitNewPose) Name() string { return "WaitNewPose" }

// Step implements State.
func (w *WaitNewPose) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if cmd != nil {
		switch cmd.Type {
		case tc.AutoCmdPause:
			return StepOutput{Action: ActionPushAbove(NewPause())}, nil
		case tc.AutoCmdAbort:
			return StepOutput{Action: ActionReplace(NewStop())}, nil
		default:
			ctx.Logger.Warnf("only PAUSE and ABORT are accepted in WaitNewPose, %s ignored", cmd.Type)
		}
	}

	waited := ctx.Clock.Now().Sub(w.startTime).Seconds()

	if _, ok := ctx.LocMgr.GetPose(); ok {
		ctx.Logger.Debugf("pose lock obtained, took %0.2f s", waited)
		return StepOutput{Action: ActionPop()}, nil
	}

	if waited > ctx.Params.WaitNewPose.MaxWaitTimeS {
		ctx.Logger.Errorf(
			"couldn't get pose lock within %0.2f s, aborting",
			ctx.Params.WaitNewPose.MaxWaitTimeS,
		)
		// Abort rather than a bare clear, so the rover ends up commanded to
		// a stop with no pose-dependent states above.
		return StepOutput{Action: ActionAbort()}, nil
	}
	return StepNone(), nil
}
