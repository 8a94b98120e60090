package automgr

import (
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/spatialmath"
)

// Check follows an uploaded ground path while avoiding locally observed
// obstacles, by running the traverse manager in check mode.
type Check struct {
	groundPathSpec tc.PathSpec
	groundPath     *nav.Path
}

// NewCheck creates a Check state for the given ground path spec.
func NewCheck(groundPathSpec tc.PathSpec) *Check {
	return &Check{groundPathSpec: groundPathSpec}
}

// Name implements State.
func (c *Check) Name() string { return "Check" }

// Step implements State.
func (c *Check) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if out, handled := handleTraverseCmd(ctx, cmd, "Check"); handled {
		return out, nil
	}

	currentPose, ok := ctx.LocMgr.GetPose()
	if !ok {
		return StepOutput{Action: ActionPushAbove(NewWaitNewPose(ctx))}, nil
	}
	ctx.Telemetry.Pose = &currentPose

	// Start the traverse on the first step with a pose.
	if ctx.TravMgr.IsOff() && c.groundPath == nil {
		path, err := nav.FromPathSpec(c.groundPathSpec, currentPose)
		if err != nil {
			return StepNone(), err
		}
		if err := ctx.TravMgr.StartCheck(path); err != nil {
			return StepNone(), err
		}
		c.groundPath = path
		ctx.Logger.Info("autonomous traverse started in Check mode")
	}

	return stepTraverse(ctx, currentPose, func() (StepOutput, bool) {
		if ctx.TravMgr.IsOff() {
			ctx.Logger.Info("check traverse complete")
			return StepOutput{Action: ActionReplace(NewStop())}, true
		}
		return StepNone(), false
	})
}

// handleTraverseCmd implements the shared Pause/Abort handling of the
// traverse-driving states.
func handleTraverseCmd(ctx *Context, cmd *tc.AutoCmd, stateName string) (StepOutput, bool) {
	if cmd == nil {
		return StepNone(), false
	}
	switch cmd.Type {
	case tc.AutoCmdPause:
		return StepOutput{Action: ActionPushAbove(NewPause())}, true
	case tc.AutoCmdAbort:
		ctx.TravMgr.Stop()
		return StepOutput{Action: ActionAbort()}, true
	default:
		ctx.Logger.Warnf("only PAUSE and ABORT are accepted in %s, %s ignored", stateName, cmd.Type)
		return StepNone(), false
	}
}

// stepTraverse steps the traverse manager and translates its output into a
// stack step, deferring to done() once the manager switches off.
func stepTraverse(
	ctx *Context,
	currentPose spatialmath.Pose,
	done func() (StepOutput, bool),
) (StepOutput, error) {
	travOut, err := ctx.TravMgr.Step(ctx.DepthImg, currentPose)
	if err != nil {
		return StepNone(), err
	}

	// Fold traverse products into telemetry.
	if travOut.TrajCtrlStatus != nil {
		ctx.Telemetry.TrajCtrlStatus = travOut.TrajCtrlStatus
	}
	if travOut.NewGlobalCostMap != nil {
		ctx.Telemetry.GlobalCostMap = travOut.NewGlobalCostMap
	}
	if travOut.PrimaryPath != nil {
		ctx.Telemetry.Path = travOut.PrimaryPath
	}
	if travOut.SecondaryPath != nil {
		ctx.Telemetry.SecondaryPath = travOut.SecondaryPath
	}

	if travOut.Abort {
		return StepOutput{Action: ActionAbort()}, nil
	}

	if out, isDone := done(); isDone {
		return out, nil
	}

	output := StepNone()
	if travOut.RequestImgStop {
		output.Action = ActionPushAbove(NewImgStop())
	}
	if travOut.LocoCmd != nil {
		ctx.IsStopped = false
		output.Data.LocoCmd = travOut.LocoCmd
	}
	return output, nil
}
