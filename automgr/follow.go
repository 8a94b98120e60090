package automgr

import (
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/trajctrl"
)

// Follow drives an uploaded path with trajectory control and no obstacle
// avoidance.
type Follow struct {
	pathSpec tc.PathSpec
	trajCtrl *trajctrl.TrajCtrl
	path     *nav.Path
}

// NewFollow creates a Follow state for the given path spec.
func NewFollow(pathSpec tc.PathSpec) *Follow {
	return &Follow{pathSpec: pathSpec}
}

// Name implements State.
func (f *Follow) Name() string { return "Follow" }

// Step implements State.
func (f *Follow) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if cmd != nil {
		switch cmd.Type {
		case tc.AutoCmdPause:
			return StepOutput{Action: ActionPushAbove(NewPause())}, nil
		case tc.AutoCmdAbort:
			return StepOutput{Action: ActionAbort()}, nil
		default:
			ctx.Logger.Warnf("only PAUSE and ABORT are accepted in Follow, %s ignored", cmd.Type)
		}
	}

	currentPose, ok := ctx.LocMgr.GetPose()
	if !ok {
		return StepOutput{Action: ActionPushAbove(NewWaitNewPose(ctx))}, nil
	}
	ctx.Telemetry.Pose = &currentPose

	// Build the path from the current pose on the first step and load it
	// as a single-path sequence.
	if f.path == nil {
		path, err := nav.FromPathSpec(f.pathSpec, currentPose)
		if err != nil {
			return StepNone(), err
		}
		f.trajCtrl = trajctrl.New(ctx.Params.TrajCtrl, ctx.Clock, ctx.Logger.Sublogger("traj_ctrl"))
		if err := f.trajCtrl.BeginPathSequence([]*nav.Path{path}); err != nil {
			return StepNone(), err
		}
		f.path = path
		ctx.Telemetry.Path = path
	}

	locoCmd, status := f.trajCtrl.Proc(currentPose)
	ctx.Telemetry.TrajCtrlStatus = &status

	if status.SequenceFinished {
		if status.SequenceAborted {
			ctx.Logger.Error("trajectory control aborted the path sequence")
		}
		ctx.Logger.Info("trajectory control sequence finished, exiting Follow")
		ctx.IsStopped = false
		return StepOutput{Action: ActionReplace(NewStop())}, nil
	}

	if locoCmd != nil {
		ctx.IsStopped = false
	}
	return StepOutput{Data: OutputData{LocoCmd: locoCmd}}, nil
}
