package automgr

import (
	"time"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/spatialmath"
)

// Stop brings the rover to rest: it issues a zero-motion command and pops
// once the pose has been stationary for the configured time.
type Stop struct {
	stopIssued      bool
	stationaryStart time.Time
	lastPose        *spatialmath.Pose
}

// NewStop creates a Stop state.
func NewStop() *Stop { return &Stop{} }

// Name implements State.
func (s *Stop) Name() string { return "Stop" }

// Step implements State.
func (s *Stop) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	// The only command accepted in Stop is Abort, which clears the stack.
	if cmd != nil {
		if cmd.Type == tc.AutoCmdAbort {
			return StepOutput{Action: ActionClear()}, nil
		}
		ctx.Logger.Warnf("only ABORT is accepted in Stop, %s ignored", cmd.Type)
	}

	output := StepNone()
	if !s.stopIssued {
		stop := tc.NewStopCmd()
		output.Data.LocoCmd = &stop
		s.stopIssued = true
	}

	currentPose, ok := ctx.LocMgr.GetPose()
	if !ok {
		output.Action = ActionPushAbove(NewWaitNewPose(ctx))
		return output, nil
	}

	now := ctx.Clock.Now()

	// With no previous pose we can't judge motion yet; start the clock.
	if s.lastPose == nil {
		s.lastPose = &currentPose
		s.stationaryStart = now
		return output, nil
	}

	// Any position or attitude change above threshold restarts the
	// stationary timer.
	posDelta := currentPose.PositionM.Sub(s.lastPose.PositionM).Norm()
	if posDelta > ctx.Params.Stop.PositionDeltaMaxMagnM {
		s.stationaryStart = now
	}
	attDelta := s.lastPose.AngleTo(currentPose)
	if attDelta > ctx.Params.Stop.AttitudeDeltaMaxMagnRad {
		s.stationaryStart = now
	}

	s.lastPose = &currentPose

	stationaryFor := now.Sub(s.stationaryStart).Seconds()
	if stationaryFor > ctx.Params.Stop.MinStationaryTimeS {
		ctx.Logger.Infof("rover stationary for %0.2f s, stop complete", stationaryFor)
		ctx.IsStopped = true
		output.Action = ActionPop()
	}
	return output, nil
}
