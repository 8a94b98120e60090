package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestHeading(t *testing.T) {
	for _, tc := range []struct {
		name    string
		heading float64
	}{
		{"east", 0},
		{"north", math.Pi / 2},
		{"south", -math.Pi / 2},
		{"northeast", math.Pi / 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pose := NewPose2D(r2.Point{X: 1, Y: 2}, tc.heading)
			test.That(t, pose.Heading(), test.ShouldAlmostEqual, tc.heading, 1e-9)
		})
	}
}

func TestForwardVectors(t *testing.T) {
	pose := NewPose2D(r2.Point{}, math.Pi/2)
	f2 := pose.Forward2()
	test.That(t, f2.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, f2.Y, test.ShouldAlmostEqual, 1, 1e-9)

	f3 := NewZeroPose().Forward3()
	test.That(t, f3.X, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, f3.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, f3.Z, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestRotate(t *testing.T) {
	q := RotationAboutZ(math.Pi / 2)
	v := Rotate(q, r3.Vector{X: 1})
	test.That(t, v.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1, 1e-9)

	q = RotationAboutAxis(r3.Vector{Z: 2}, math.Pi/2)
	v = Rotate(q, r3.Vector{X: 1})
	test.That(t, v.Y, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestAngleBetween(t *testing.T) {
	a := RotationAboutZ(0.3)
	b := RotationAboutZ(1.1)
	test.That(t, AngleBetween(a, b), test.ShouldAlmostEqual, 0.8, 1e-9)

	pose := NewPose2D(r2.Point{}, 0.3)
	other := NewPose2D(r2.Point{}, 1.1)
	test.That(t, pose.AngleTo(other), test.ShouldAlmostEqual, 0.8, 1e-9)
}

func TestCompose(t *testing.T) {
	// A pose 1m forward of a pose facing +Y lands at (0, 1).
	base := NewPose2D(r2.Point{}, math.Pi/2)
	offset := NewPoseFromPoint(r3.Vector{X: 1})
	composed := base.Compose(offset)
	test.That(t, composed.PositionM.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, composed.PositionM.Y, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestTransformPoint(t *testing.T) {
	pose := NewPose2D(r2.Point{X: 1, Y: 1}, math.Pi)
	pt := pose.TransformPoint(r3.Vector{X: 1})
	test.That(t, pt.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 1, 1e-9)
}
