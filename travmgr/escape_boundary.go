package travmgr

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
)

// Escape boundary errors.
var (
	// ErrNoEscapeBoundary is returned when no valid boundary exists in the
	// local cost map.
	ErrNoEscapeBoundary = errors.New("couldn't find escape boundary in local cost map")

	// ErrInvalidCentreline is returned when no populated cell exists along
	// the local +X axis.
	ErrInvalidCentreline = errors.New("no populated cost map cells along local x axis, no escape boundary calculated")

	// ErrNoValidTarget is returned when no traversable cell lies on the
	// boundary arc.
	ErrNoValidTarget = errors.New("couldn't get a valid target to plot path towards")
)

// EscapeBoundary is the limit of the rover's terrain knowledge ahead of it:
// an arc centred on the pose where the depth image was acquired, extending a
// uniform radius out from the centre and bounded by heading limits.
type EscapeBoundary struct {
	// CentreM is the imaging pose at the arc's centre.
	CentreM nav.NavPose `json:"centre_m"`

	// RadiusM is the boundary radius.
	RadiusM float64 `json:"radius_m"`

	// LeftHeadingRad and RightHeadingRad are the unsigned sweeps of the
	// boundary each side of the imaging heading.
	LeftHeadingRad  float64 `json:"left_heading_rad"`
	RightHeadingRad float64 `json:"right_heading_rad"`

	// Path traces the boundary arc in the local map frame.
	Path *nav.Path `json:"path"`

	// MinCostTarget is the lowest-cost point along the boundary, heading
	// outward from the imaging pose.
	MinCostTarget nav.NavPose `json:"min_cost_target"`
}

// testBoundary is one candidate (radius, sweep) pair under evaluation.
type testBoundary struct {
	radiusM         float64
	leftHeadingRad  float64
	rightHeadingRad float64
	areaM2          float64
}

func (b testBoundary) valid() bool { return b.radiusM > 0 }

func newTestBoundary(radiusM, leftRad, rightRad float64) testBoundary {
	return testBoundary{
		radiusM:         radiusM,
		leftHeadingRad:  leftRad,
		rightHeadingRad: rightRad,
		// Swept area of the circular sector.
		areaM2: 0.5 * radiusM * radiusM * (leftRad + rightRad),
	}
}

// CalculateEscapeBoundary finds the maximum-area arc in the local cost map
// that intersects only populated cells, then selects the minimum-cost point
// along it as the next planning target.
//
// The local cost map is expressed with the imaging pose at the origin; the
// result is transformed into the map's parent frame through imagingPose.
func CalculateEscapeBoundary(
	params EscapeBoundaryParams,
	localCostMap *costmap.Map,
	imagingPose nav.NavPose,
) (*EscapeBoundary, error) {
	valid := func(radiusM, angleRad float64) bool {
		value, err := localCostMap.GetPosition(costmap.LayerTotal, pointOnArc(radiusM, angleRad))
		// Both Cost and Unsafe cells count as observed; only None is
		// invalid.
		return err == nil && !value.IsNone()
	}

	startRadiusM, err := findStartRadius(params, func(r float64) bool { return valid(r, 0) })
	if err != nil {
		return nil, err
	}

	// Step inward from the start radius, finding the widest sweep at each
	// radius and keeping the largest swept area. Once areas start
	// shrinking, stop.
	var best testBoundary
	for radiusM := startRadiusM; radiusM >= params.MinRadiusM; radiusM -= params.RadiusThresholdM {
		left, okLeft := findEndpoint(params, func(a float64) bool { return valid(radiusM, a) }, +1)
		if !okLeft {
			continue
		}
		right, okRight := findEndpoint(params, func(a float64) bool { return valid(radiusM, a) }, -1)
		if !okRight {
			continue
		}

		candidate := newTestBoundary(radiusM, left, right)
		if best.valid() && candidate.areaM2 <= best.areaM2 {
			break
		}
		best = candidate
	}

	if !best.valid() {
		return nil, ErrNoEscapeBoundary
	}

	// Enumerate the winning arc from the right edge to the left edge,
	// separated by the heading threshold.
	var pointsM []r2.Point
	for angle := -best.rightHeadingRad; angle < best.leftHeadingRad; angle += params.HeadingThresholdRad {
		pointsM = append(pointsM, pointOnArc(best.radiusM, angle))
	}
	pointsM = append(pointsM, pointOnArc(best.radiusM, best.leftHeadingRad))

	boundaryPath, err := nav.NewPath(pointsM)
	if err != nil {
		return nil, ErrNoEscapeBoundary
	}

	// Find the minimum-cost traversable cell along the arc.
	minCostPos := r2.Point{}
	minCost := math.MaxFloat64
	found := false
	for i := 1; i < len(pointsM); i++ {
		cells, err := localCostMap.Cells().Line(costmap.LayerTotal, pointsM[i-1], pointsM[i])
		if err != nil {
			return nil, errors.Wrap(err, "a point on the escape boundary was outside the local cost map")
		}
		for _, cell := range cells {
			if cell.Value.IsNone() || cell.Value.IsUnsafe() {
				continue
			}
			if cost, _ := cell.Value.CostValue(); cost < minCost {
				minCost = cost
				minCostPos = cell.PositionM
				found = true
			}
		}
	}
	if !found {
		return nil, ErrNoValidTarget
	}

	// Express the target in the parent frame; its heading is the outward
	// normal, the direction from the imaging pose to the target.
	sin, cos := math.Sincos(imagingPose.HeadingRad)
	targetParent := r2.Point{
		X: cos*minCostPos.X - sin*minCostPos.Y + imagingPose.PositionM.X,
		Y: sin*minCostPos.X + cos*minCostPos.Y + imagingPose.PositionM.Y,
	}
	outward := targetParent.Sub(imagingPose.PositionM)
	targetHeading := math.Atan2(outward.Y, outward.X)

	return &EscapeBoundary{
		CentreM:         imagingPose,
		RadiusM:         best.radiusM,
		LeftHeadingRad:  best.leftHeadingRad,
		RightHeadingRad: best.rightHeadingRad,
		Path:            boundaryPath,
		MinCostTarget:   nav.NavPoseFromParts(targetParent, targetHeading),
	}, nil
}

func pointOnArc(radiusM, angleRad float64) r2.Point {
	sin, cos := math.Sincos(angleRad)
	return r2.Point{X: radiusM * cos, Y: radiusM * sin}
}

// findStartRadius binary-searches the boundary's starting radius along the
// local +X axis: the furthest point between the radius limits whose cell is
// populated.
func findStartRadius(params EscapeBoundaryParams, valid func(float64) bool) (float64, error) {
	if valid(params.MaxRadiusM) {
		return params.MaxRadiusM, nil
	}
	if !valid(params.MinRadiusM) {
		return 0, ErrInvalidCentreline
	}

	lo := params.MinRadiusM // valid
	hi := params.MaxRadiusM // invalid
	for hi-lo > params.RadiusThresholdM {
		mid := 0.5 * (lo + hi)
		if valid(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// findEndpoint finds the widest valid sweep on one side of the centreline
// (side +1 for left, -1 for right), between the minimum and maximum heading
// limits. The maximum heading is tried first; failing that, the sweep is
// binary-searched down towards the minimum.
func findEndpoint(params EscapeBoundaryParams, valid func(float64) bool, side float64) (float64, bool) {
	if valid(side * params.MaxHeadingRad) {
		return params.MaxHeadingRad, true
	}
	if params.MaxHeadingRad == params.MinHeadingRad {
		// Degenerate sweep: only the extreme heading is considered.
		return 0, false
	}
	if !valid(side * params.MinHeadingRad) {
		return 0, false
	}

	lo := params.MinHeadingRad // valid
	hi := params.MaxHeadingRad // invalid
	for hi-lo > params.HeadingThresholdRad {
		mid := 0.5 * (lo + hi)
		if valid(side * mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, true
}
