// Package spatialmath provides the pose and quaternion primitives used by the
// rover's localisation, perception and navigation systems.
//
// The local map (LM) frame is fixed to the world at executive start-up; the
// rover body (RB) frame moves with the rover. Headings follow the right hand
// rule about +Z, with zero along +X.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is the rover body frame expressed in a parent frame: a 3D position and
// a unit quaternion attitude. A Pose is immutable once constructed.
type Pose struct {
	// PositionM is the position in the parent frame, in meters.
	PositionM r3.Vector `json:"position_m"`

	// AttitudeQ rotates vectors from this pose's frame into the parent frame.
	AttitudeQ quat.Number `json:"attitude_q"`
}

// NewPose creates a pose from a position and attitude.
func NewPose(position r3.Vector, attitude quat.Number) Pose {
	return Pose{PositionM: position, AttitudeQ: Normalize(attitude)}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{AttitudeQ: quat.Number{Real: 1}}
}

// NewPoseFromPoint returns a pose at the given point with identity attitude.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{PositionM: point, AttitudeQ: quat.Number{Real: 1}}
}

// NewPose2D returns a pose on the Z=0 plane with the given heading.
func NewPose2D(point r2.Point, headingRad float64) Pose {
	return Pose{
		PositionM: r3.Vector{X: point.X, Y: point.Y},
		AttitudeQ: RotationAboutZ(headingRad),
	}
}

// Forward3 returns the 3D unit vector in the pose's forward (+X) direction.
func (p Pose) Forward3() r3.Vector {
	return Rotate(p.AttitudeQ, r3.Vector{X: 1})
}

// Forward2 returns the 2D unit vector in the pose's forward direction,
// projected onto the parent XY plane.
func (p Pose) Forward2() r2.Point {
	f3 := p.Forward3()
	f2 := r2.Point{X: f3.X, Y: f3.Y}
	return f2.Mul(1 / f2.Norm())
}

// Heading returns the angle of the forward vector to the parent +X axis, in
// radians, wrapped to (-pi, pi].
func (p Pose) Heading() float64 {
	f2 := p.Forward2()
	return math.Atan2(f2.Y, f2.X)
}

// Position2 returns the planar projection of the pose's position.
func (p Pose) Position2() r2.Point {
	return r2.Point{X: p.PositionM.X, Y: p.PositionM.Y}
}

// Compose returns the pose of q expressed through p, i.e. p then q.
func (p Pose) Compose(q Pose) Pose {
	return Pose{
		PositionM: p.PositionM.Add(Rotate(p.AttitudeQ, q.PositionM)),
		AttitudeQ: Normalize(quat.Mul(p.AttitudeQ, q.AttitudeQ)),
	}
}

// TransformPoint expresses a point of this pose's frame in the parent frame.
func (p Pose) TransformPoint(point r3.Vector) r3.Vector {
	return p.PositionM.Add(Rotate(p.AttitudeQ, point))
}

// AngleTo returns the magnitude of the rotation between the two attitudes, in
// radians.
func (p Pose) AngleTo(other Pose) float64 {
	return AngleBetween(p.AttitudeQ, other.AttitudeQ)
}
