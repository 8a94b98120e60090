package nav

import (
	"github.com/golang/geo/r2"

	"github.com/deimos-rover/deimos/spatialmath"
)

// NavPose is the planar projection of a pose used for planning: a 2D
// position in a map's parent frame, a heading about +Z, and the equivalent
// full 3D pose.
type NavPose struct {
	// PositionM is the position in the map's parent frame.
	PositionM r2.Point `json:"position_m"`

	// HeadingRad is the heading in the map's parent frame, right hand rule
	// about +Z.
	HeadingRad float64 `json:"heading_rad"`

	// PoseParent is the corresponding full 3D pose.
	PoseParent spatialmath.Pose `json:"pose_parent"`
}

// NavPoseFromPose projects a full pose onto the plane.
func NavPoseFromPose(pose spatialmath.Pose) NavPose {
	return NavPose{
		PositionM:  pose.Position2(),
		HeadingRad: pose.Heading(),
		PoseParent: pose,
	}
}

// NavPoseFromParts builds a NavPose from a planar position and heading. The
// 3D pose is on the Z=0 plane.
func NavPoseFromParts(positionM r2.Point, headingRad float64) NavPose {
	return NavPose{
		PositionM:  positionM,
		HeadingRad: headingRad,
		PoseParent: spatialmath.NewPose2D(positionM, headingRad),
	}
}

// NavPoseFromPathPoint builds a NavPose at the given target point of a path,
// heading along the segment leading to it.
func NavPoseFromPathPoint(path *Path, pointIndex int) (NavPose, bool) {
	seg, ok := path.SegmentToTarget(pointIndex)
	if !ok {
		return NavPose{}, false
	}
	return NavPoseFromParts(seg.TargetM, seg.HeadingRad), true
}

// NavPoseFromPathStart builds a NavPose at the first point of a path,
// heading along the first segment.
func NavPoseFromPathStart(path *Path) NavPose {
	seg, _ := path.SegmentToTarget(1)
	return NavPoseFromParts(seg.StartM, seg.HeadingRad)
}

// NavPoseFromPathEnd builds a NavPose at the last point of a path, heading
// along the final segment.
func NavPoseFromPathEnd(path *Path) NavPose {
	seg, _ := path.SegmentToTarget(path.NumPoints() - 1)
	return NavPoseFromParts(seg.TargetM, seg.HeadingRad)
}
