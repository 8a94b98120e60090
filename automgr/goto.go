package automgr

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/nav"
)

// Goto navigates the rover to a coordinate in the local map frame, running
// the traverse manager in goto mode.
type Goto struct {
	targetM r2.Point
	started bool
}

// NewGoto creates a Goto state for the given LM-frame coordinates.
func NewGoto(xMLm, yMLm float64) *Goto {
	return &Goto{targetM: r2.Point{X: xMLm, Y: yMLm}}
}

// Name implements State.
func (g *Goto) Name() string { return "Goto" }

// Step implements State.
func (g *Goto) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if out, handled := handleTraverseCmd(ctx, cmd, "Goto"); handled {
		return out, nil
	}

	currentPose, ok := ctx.LocMgr.GetPose()
	if !ok {
		return StepOutput{Action: ActionPushAbove(NewWaitNewPose(ctx))}, nil
	}
	ctx.Telemetry.Pose = &currentPose

	if ctx.TravMgr.IsOff() && !g.started {
		// The target heading faces along the approach from the current
		// position.
		approach := g.targetM.Sub(currentPose.Position2())
		target := nav.NavPoseFromParts(g.targetM, math.Atan2(approach.Y, approach.X))

		if err := ctx.TravMgr.StartGoto(target); err != nil {
			return StepNone(), err
		}
		g.started = true
		ctx.Logger.Infof("autonomous traverse started in Goto mode towards (%0.2f, %0.2f)",
			g.targetM.X, g.targetM.Y)
	}

	return stepTraverse(ctx, currentPose, func() (StepOutput, bool) {
		if g.started && ctx.TravMgr.IsOff() {
			ctx.Logger.Info("goto traverse complete")
			return StepOutput{Action: ActionReplace(NewStop())}, true
		}
		return StepNone(), false
	})
}
