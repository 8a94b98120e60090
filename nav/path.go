// Package nav provides the navigation types of the autonomy system: planar
// navigation poses, the paths the rover drives, and the A* path planner that
// produces minimum-cost paths over a cost map.
package nav

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/spatialmath"
)

// ErrTooFewPoints is returned for paths with fewer than two points.
var ErrTooFewPoints = errors.New("a path must have at least two points")

// Path is an ordered sequence of 2D points in the local map frame. Paths are
// immutable after construction.
type Path struct {
	pointsM []r2.Point
}

// PathSegment joins two consecutive path points.
type PathSegment struct {
	// StartM is the first point of the segment.
	StartM r2.Point

	// TargetM is the point the segment leads to.
	TargetM r2.Point

	// LengthM is the segment length.
	LengthM float64

	// Direction is the unit vector from start to target.
	Direction r2.Point

	// HeadingRad is the angle of Direction to the +X axis.
	HeadingRad float64
}

// NewPath builds a path from explicit points.
func NewPath(pointsM []r2.Point) (*Path, error) {
	if len(pointsM) < 2 {
		return nil, ErrTooFewPoints
	}
	return &Path{pointsM: append([]r2.Point{}, pointsM...)}, nil
}

// FromPathSpec builds a path from a spec and the pose the path starts from.
// Ackermann sequences are integrated from the start pose; explicit waypoints
// are taken as local-map-frame points directly.
func FromPathSpec(spec tc.PathSpec, startPose spatialmath.Pose) (*Path, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if spec.WaypointsM != nil {
		return NewPath(spec.WaypointsM)
	}

	sep := spec.AckSeq.SeparationM
	position := startPose.Position2()
	heading := startPose.Heading()

	points := []r2.Point{position}
	for i := 0; i < len(spec.AckSeq.Seq); i += 2 {
		curv := spec.AckSeq.Seq[i]
		length := spec.AckSeq.Seq[i+1]

		for travelled := 0.0; travelled < length; {
			step := math.Min(sep, length-travelled)
			position, heading = stepArc(position, heading, curv, step)
			points = append(points, position)
			travelled += step
		}
	}

	return NewPath(points)
}

// stepArc advances a pose along an arc of the given curvature by the given
// arc length, exactly.
func stepArc(position r2.Point, headingRad, curvM, stepM float64) (r2.Point, float64) {
	const minCurv = 1e-9
	if math.Abs(curvM) < minCurv {
		sin, cos := math.Sincos(headingRad)
		return r2.Point{X: position.X + cos*stepM, Y: position.Y + sin*stepM}, headingRad
	}

	newHeading := headingRad + curvM*stepM
	return r2.Point{
		X: position.X + (math.Sin(newHeading)-math.Sin(headingRad))/curvM,
		Y: position.Y - (math.Cos(newHeading)-math.Cos(headingRad))/curvM,
	}, newHeading
}

// PointsM returns the path's points. The returned slice must not be
// modified.
func (p *Path) PointsM() []r2.Point { return p.pointsM }

// NumPoints returns the number of points in the path.
func (p *Path) NumPoints() int { return len(p.pointsM) }

// SegmentToTarget returns the segment connecting the target point at the
// given index to the point before it. There is no segment to the first
// point.
func (p *Path) SegmentToTarget(targetIndex int) (PathSegment, bool) {
	if targetIndex < 1 || targetIndex >= len(p.pointsM) {
		return PathSegment{}, false
	}

	start := p.pointsM[targetIndex-1]
	target := p.pointsM[targetIndex]
	diff := target.Sub(start)
	length := diff.Norm()

	seg := PathSegment{
		StartM:     start,
		TargetM:    target,
		LengthM:    length,
		HeadingRad: math.Atan2(diff.Y, diff.X),
	}
	if length > 0 {
		seg.Direction = diff.Mul(1 / length)
	}
	return seg, true
}

// LengthM returns the total length of the path.
func (p *Path) LengthM() float64 {
	length := 0.0
	for i := 1; i < len(p.pointsM); i++ {
		length += p.pointsM[i].Sub(p.pointsM[i-1]).Norm()
	}
	return length
}

// StartM returns the first point of the path.
func (p *Path) StartM() r2.Point { return p.pointsM[0] }

// EndM returns the last point of the path.
func (p *Path) EndM() r2.Point { return p.pointsM[len(p.pointsM)-1] }

type serializablePath struct {
	PointsM []r2.Point `json:"points_m"`
}

// MarshalJSON implements json.Marshaler.
func (p *Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(serializablePath{PointsM: p.pointsM})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Path) UnmarshalJSON(data []byte) error {
	var ser serializablePath
	if err := json.Unmarshal(data, &ser); err != nil {
		return err
	}
	p.pointsM = ser.PointsM
	return nil
}
