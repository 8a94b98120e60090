package travmgr

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
)

// groundLine builds a straight +X path from the origin with 0.1 m point
// separation.
func groundLine(t *testing.T, lengthM float64) *nav.Path {
	t.Helper()
	var points []r2.Point
	for x := 0.0; x <= lengthM+1e-9; x += 0.1 {
		points = append(points, r2.Point{X: x, Y: 0})
	}
	path, err := nav.NewPath(points)
	test.That(t, err, test.ShouldBeNil)
	return path
}

// observeUpToX marks cells with x below the limit as observed.
func observeUpToX(t *testing.T, m *costmap.Map, xLimitM float64) {
	t.Helper()
	err := m.Cells().Apply(costmap.LayerTotal,
		func(_ cellmap.Vec2i, posM r2.Point, old costmap.Value) costmap.Value {
			if posM.X < xLimitM {
				return costmap.Cost(0.1)
			}
			return old
		})
	test.That(t, err, test.ShouldBeNil)
}

func TestLocalTargetStopsAtUnobserved(t *testing.T) {
	m := localCostMap(t, 10)
	observeUpToX(t, m, 3.0)

	path := groundLine(t, 8)
	lt := NewLocalTarget(0.5, 10.0)

	target, err := lt.Next(nav.NavPoseFromParts(r2.Point{}, 0), path, m)
	test.That(t, err, test.ShouldBeNil)

	// The furthest populated point is just short of x=3; the target is the
	// exclusion distance inside it.
	test.That(t, target.PositionM.X, test.ShouldBeBetween, 2.0, 2.6)
}

func TestLocalTargetNeverWalksBackwards(t *testing.T) {
	m := localCostMap(t, 10)
	observeUpToX(t, m, 3.0)

	path := groundLine(t, 8)
	lt := NewLocalTarget(0.5, 10.0)

	first, err := lt.Next(nav.NavPoseFromParts(r2.Point{}, 0), path, m)
	test.That(t, err, test.ShouldBeNil)

	// More terrain observed: the target advances.
	observeUpToX(t, m, 5.0)
	second, err := lt.Next(nav.NavPoseFromParts(r2.Point{X: 2, Y: 0}, 0), path, m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.PositionM.X, test.ShouldBeGreaterThan, first.PositionM.X)

	// Asking again from the same pose, the remembered extreme holds.
	third, err := lt.Next(nav.NavPoseFromParts(r2.Point{X: 2, Y: 0}, 0), path, m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, third.PositionM.X, test.ShouldBeGreaterThanOrEqualTo, second.PositionM.X-1e-9)
}

func TestLocalTargetRespectsMaxDistance(t *testing.T) {
	m := localCostMap(t, 10)
	observeUpToX(t, m, 9.0)

	path := groundLine(t, 8)
	lt := NewLocalTarget(0.5, 2.0)

	target, err := lt.Next(nav.NavPoseFromParts(r2.Point{}, 0), path, m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, target.PositionM.X, test.ShouldBeLessThanOrEqualTo, 2.0)
}

func TestLocalTargetNoValidTarget(t *testing.T) {
	m := localCostMap(t, 10) // nothing observed

	path := groundLine(t, 8)
	lt := NewLocalTarget(0.5, 10.0)

	_, err := lt.Next(nav.NavPoseFromParts(r2.Point{}, 0), path, m)
	test.That(t, err, test.ShouldBeError, ErrNoValidTarget)
}
