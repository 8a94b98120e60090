package trajctrl

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/spatialmath"
)

// trajControllers hold the two PID controllers which turn path errors into
// manoeuvre demands.
type trajControllers struct {
	latCtrl  *PidController
	headCtrl *PidController
}

func newTrajControllers(params Params, clk clock.Clock) trajControllers {
	return trajControllers{
		latCtrl:  NewPidController(params.LatKP, params.LatKI, params.LatKD, clk),
		headCtrl: NewPidController(params.HeadKP, params.HeadKI, params.HeadKD, clk),
	}
}

func (c *trajControllers) reset() {
	c.latCtrl.Reset()
	c.headCtrl.Reset()
}

// ackermanCmd produces the ackermann demand for the current segment and
// pose: the lateral error drives the crab demand, the heading error the
// curvature demand, and the speed demand follows the curvature polynomial.
func (c *trajControllers) ackermanCmd(
	segment nav.PathSegment,
	pose spatialmath.Pose,
	report *StatusReport,
	params Params,
) tc.MnvrCmd {
	latErrM := calcLatError(segment, pose)
	report.LatErrorM = latErrM

	headErrRad := calcHeadError(segment, pose)
	report.HeadErrorRad = headErrRad

	if math.Abs(latErrM) > params.LatErrorLimitM {
		report.LatErrorLimitExceeded = true
	}
	if math.Abs(headErrRad) > params.HeadErrorLimitRad {
		report.HeadErrorLimitExceeded = true
	}

	// The demands oppose the signed errors.
	crabDemRad := c.latCtrl.Get(-latErrM)
	curvDemM := c.headCtrl.Get(-headErrRad)

	crabDemRad = clamp(crabDemRad, params.MinCrabDemRad, params.MaxCrabDemRad)
	curvDemM = clamp(curvDemM, params.MinCurvDemM, params.MaxCurvDemM)

	speedDemMs := 0.0
	for i, coeff := range params.CurvSpeedMapCoeffs {
		power := len(params.CurvSpeedMapCoeffs) - 1 - i
		speedDemMs += coeff * math.Pow(curvDemM, float64(power))
	}
	speedDemMs = clamp(speedDemMs, params.MinSpeedDemMs, params.MaxSpeedDemMs)

	return tc.NewAckermanCmd(speedDemMs, curvDemM, crabDemRad)
}

// calcLatError returns the signed lateral distance from the rover to the
// segment, positive when the rover is to the left of it.
func calcLatError(segment nav.PathSegment, pose spatialmath.Pose) float64 {
	position := pose.Position2()

	// Triangular point-to-line distance formula.
	err := math.Abs(
		(segment.TargetM.X-segment.StartM.X)*(segment.StartM.Y-position.Y)-
			(segment.StartM.X-position.X)*(segment.TargetM.Y-segment.StartM.Y),
	) / segment.LengthM

	// Which side we are on comes from the cross of the segment direction
	// with the start->rover vector: positive Z means left.
	cross := r3.Vector{X: segment.Direction.X, Y: segment.Direction.Y}.
		Cross(r3.Vector{X: position.X - segment.StartM.X, Y: position.Y - segment.StartM.Y})

	return err * sign(cross.Z)
}

// calcHeadError returns the signed angle from the segment direction to the
// rover's forward vector, positive when the rover points left of the
// segment.
func calcHeadError(segment nav.PathSegment, pose spatialmath.Pose) float64 {
	forward := pose.Forward2()

	dot := clamp(forward.Dot(segment.Direction), -1, 1)
	errRad := math.Acos(dot)

	cross := r3.Vector{X: segment.Direction.X, Y: segment.Direction.Y}.
		Cross(r3.Vector{X: forward.X, Y: forward.Y})

	return errRad * sign(cross.Z)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
