package travmgr

import (
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
)

// LocalTarget finds the current planning target along an uploaded ground
// path: the furthest path point whose cell is populated in the global cost
// map, pulled back by an exclusion distance so the target sits safely inside
// known terrain.
//
// The locator is stateful: it remembers the furthest segment end found so
// far, so the target never walks backwards along the path.
type LocalTarget struct {
	// previousSegmentEnd is the furthest populated point index found so
	// far.
	previousSegmentEnd int

	exclusionDistanceM float64
	maxDistanceM       float64
}

// NewLocalTarget creates a locator.
func NewLocalTarget(exclusionDistanceM, maxDistanceM float64) *LocalTarget {
	return &LocalTarget{
		previousSegmentEnd: 1,
		exclusionDistanceM: exclusionDistanceM,
		maxDistanceM:       maxDistanceM,
	}
}

// Next returns the next valid target along the path given the current pose
// and the global cost map.
func (lt *LocalTarget) Next(
	currentPose nav.NavPose,
	path *nav.Path,
	globalCostMap *costmap.Map,
) (nav.NavPose, error) {
	populated := func(index int) bool {
		pose, ok := nav.NavPoseFromPathPoint(path, index)
		if !ok {
			return false
		}
		value, err := globalCostMap.GetPosition(costmap.LayerTotal, pose.PositionM)
		return err == nil && !value.IsNone()
	}

	if !populated(lt.previousSegmentEnd) {
		return nav.NavPose{}, ErrNoValidTarget
	}

	// Walk the furthest point forward over populated cells, bounded by the
	// maximum distance from the rover.
	for populated(lt.previousSegmentEnd + 1) {
		next, _ := nav.NavPoseFromPathPoint(path, lt.previousSegmentEnd+1)
		if next.PositionM.Sub(currentPose.PositionM).Norm() > lt.maxDistanceM {
			break
		}
		lt.previousSegmentEnd++
	}

	extremePose, _ := nav.NavPoseFromPathPoint(path, lt.previousSegmentEnd)

	// Pull the target back until it is at least the exclusion distance
	// inside the known region.
	targetIndex := lt.previousSegmentEnd
	targetPose := extremePose
	for extremePose.PositionM.Sub(targetPose.PositionM).Norm() < lt.exclusionDistanceM {
		targetIndex--
		var ok bool
		targetPose, ok = nav.NavPoseFromPathPoint(path, targetIndex)
		if !ok {
			return nav.NavPose{}, ErrNoValidTarget
		}
	}

	return targetPose, nil
}
