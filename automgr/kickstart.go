package automgr

import "github.com/deimos-rover/deimos/comms/tc"

// KickStart populates the global terrain and cost maps from a single depth
// image without planning a path or moving.
type KickStart struct {
	started bool
}

// NewKickStart creates a KickStart state.
func NewKickStart() *KickStart { return &KickStart{} }

// Name implements State.
func (k *KickStart) Name() string { return "KickStart" }

// Step implements State.
func (k *KickStart) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if out, handled := handleTraverseCmd(ctx, cmd, "KickStart"); handled {
		return out, nil
	}

	currentPose, ok := ctx.LocMgr.GetPose()
	if !ok {
		return StepOutput{Action: ActionPushAbove(NewWaitNewPose(ctx))}, nil
	}
	ctx.Telemetry.Pose = &currentPose

	if ctx.TravMgr.IsOff() && !k.started {
		ctx.Logger.Info("performing kickstart")
		if err := ctx.TravMgr.Kickstart(); err != nil {
			return StepNone(), err
		}
		k.started = true
	}

	return stepTraverse(ctx, currentPose, func() (StepOutput, bool) {
		if k.started && ctx.TravMgr.IsOff() {
			ctx.Logger.Info("kickstart complete")
			return StepOutput{Action: ActionPop()}, true
		}
		return StepNone(), false
	})
}
