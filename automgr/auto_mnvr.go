package automgr

import (
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/spatialmath"
)

// AutoMnvr executes one locomotion manoeuvre of known extent: an ackermann
// of known arc length or a point turn of known angular distance, stopping
// within tolerance of the requested distance.
type AutoMnvr struct {
	cmd tc.AutoMnvrCmd

	startPose *spatialmath.Pose
	lastPose  *spatialmath.Pose

	// linearDistanceM accumulates distance along the arc rather than
	// displacement from the start, since an ackermann's circumference is
	// what was commanded.
	linearDistanceM float64

	locoCmdIssued bool
}

// NewAutoMnvr creates an AutoMnvr state for the given manoeuvre.
func NewAutoMnvr(cmd tc.AutoMnvrCmd) *AutoMnvr {
	return &AutoMnvr{cmd: cmd}
}

// Name implements State.
func (m *AutoMnvr) Name() string { return "AutoMnvr" }

// Step implements State.
func (m *AutoMnvr) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if cmd != nil {
		switch cmd.Type {
		case tc.AutoCmdPause:
			// Resend the locomotion command after the resume.
			m.locoCmdIssued = false
			return StepOutput{Action: ActionPushAbove(NewPause())}, nil
		case tc.AutoCmdAbort:
			return StepOutput{Action: ActionAbort()}, nil
		default:
			ctx.Logger.Warnf("only PAUSE and ABORT are accepted in AutoMnvr, %s ignored", cmd.Type)
		}
	}

	currentPose, ok := ctx.LocMgr.GetPose()
	if !ok {
		return StepOutput{Action: ActionPushAbove(NewWaitNewPose(ctx))}, nil
	}
	ctx.Telemetry.Pose = &currentPose

	if m.lastPose != nil {
		m.linearDistanceM += currentPose.PositionM.Sub(m.lastPose.PositionM).Norm()
	}
	if m.startPose == nil {
		m.startPose = &currentPose
	}
	angularDistanceRad := m.startPose.AngleTo(currentPose)
	m.lastPose = &currentPose

	output := StepNone()
	switch m.cmd.Type {
	case tc.MnvrAckerman:
		if m.cmd.DistM-m.linearDistanceM < ctx.Params.AutoMnvr.LinearDistanceThresholdM {
			ctx.Logger.Info("manoeuvre complete")
			ctx.IsStopped = false
			output.Action = ActionReplace(NewStop())
		} else if !m.locoCmdIssued {
			loco := tc.NewAckermanCmd(m.cmd.SpeedMs, m.cmd.CurvM, m.cmd.CrabRad)
			output.Data.LocoCmd = &loco
			ctx.IsStopped = false
			m.locoCmdIssued = true
		}
	case tc.MnvrPointTurn:
		if m.cmd.DistRad-angularDistanceRad < ctx.Params.AutoMnvr.AngularDistanceThresholdRad {
			ctx.Logger.Info("manoeuvre complete")
			ctx.IsStopped = false
			output.Action = ActionReplace(NewStop())
		} else if !m.locoCmdIssued {
			loco := tc.NewPointTurnCmd(m.cmd.RateRads)
			output.Data.LocoCmd = &loco
			ctx.IsStopped = false
			m.locoCmdIssued = true
		}
	}

	return output, nil
}
