package trajctrl

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/spatialmath"
)

func straightPath(t *testing.T, fromX, toX float64) *nav.Path {
	t.Helper()
	var points []r2.Point
	for x := fromX; x <= toX+1e-9; x += 0.1 {
		points = append(points, r2.Point{X: x, Y: 0})
	}
	path, err := nav.NewPath(points)
	test.That(t, err, test.ShouldBeNil)
	return path
}

func TestPidFirstCallIsProportionalOnly(t *testing.T) {
	mock := clock.NewMock()
	pid := NewPidController(2.0, 0.5, 0.25, mock)

	// On the first invocation the output is exactly k_p * error.
	test.That(t, pid.Get(3.0), test.ShouldEqual, 6.0)

	// Later calls accumulate integral and derivative terms.
	mock.Add(100 * time.Millisecond)
	out := pid.Get(3.0)
	// integral = 3 * 0.1, derivative = 0
	test.That(t, out, test.ShouldAlmostEqual, 6.0+0.5*0.3, 1e-9)

	pid.Reset()
	test.That(t, pid.Get(3.0), test.ShouldEqual, 6.0)
}

func TestBeginPathSequenceValidation(t *testing.T) {
	tctrl := New(DefaultParams(), clock.NewMock(), logging.NewTestLogger(t))

	test.That(t, tctrl.BeginPathSequence(nil), test.ShouldBeError, ErrEmptySequence)

	badPath := &nav.Path{}
	err := tctrl.BeginPathSequence([]*nav.Path{badPath})
	test.That(t, err, test.ShouldNotBeNil)

	good := straightPath(t, 0, 1)
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{good}), test.ShouldBeNil)
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{good}), test.ShouldBeError, ErrSequenceAlreadyLoaded)
}

func TestHeadingAdjustThenFollow(t *testing.T) {
	mock := clock.NewMock()
	tctrl := New(DefaultParams(), mock, logging.NewTestLogger(t))

	path := straightPath(t, 0, 2)
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{path}), test.ShouldBeNil)
	test.That(t, tctrl.Mode(), test.ShouldEqual, ModeHeadingAdjust)

	// Facing 90 degrees off the path: point turn demanded, opposing the
	// error.
	pose := spatialmath.NewPose2D(r2.Point{X: 0, Y: 0}, math.Pi/2)
	cmd, _ := tctrl.Proc(pose)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Type, test.ShouldEqual, tc.MnvrPointTurn)
	test.That(t, cmd.RateRads, test.ShouldAlmostEqual, -DefaultParams().HeadAdjustRateRads, 1e-9)

	// Once aligned a stop is issued and follow-path begins.
	pose = spatialmath.NewPose2D(r2.Point{X: 0, Y: 0}, 0)
	cmd, _ = tctrl.Proc(pose)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Type, test.ShouldEqual, tc.MnvrStop)
	test.That(t, tctrl.Mode(), test.ShouldEqual, ModeFollowPath)

	// Following on the path: ackermann demands.
	mock.Add(10 * time.Millisecond)
	cmd, report := tctrl.Proc(pose)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Type, test.ShouldEqual, tc.MnvrAckerman)
	test.That(t, cmd.SpeedMs, test.ShouldBeGreaterThan, 0.0)
	test.That(t, report.SequenceFinished, test.ShouldBeFalse)
}

func TestLateralAndHeadingErrors(t *testing.T) {
	path := straightPath(t, 0, 2)
	seg, ok := path.SegmentToTarget(1)
	test.That(t, ok, test.ShouldBeTrue)

	// Rover left of the segment: positive lateral error.
	pose := spatialmath.NewPose2D(r2.Point{X: 0.05, Y: 0.3}, 0)
	test.That(t, calcLatError(seg, pose), test.ShouldAlmostEqual, 0.3, 1e-9)

	// Rover right of the segment: negative.
	pose = spatialmath.NewPose2D(r2.Point{X: 0.05, Y: -0.3}, 0)
	test.That(t, calcLatError(seg, pose), test.ShouldAlmostEqual, -0.3, 1e-9)

	// Rover pointing left of the segment: positive heading error.
	pose = spatialmath.NewPose2D(r2.Point{X: 0, Y: 0}, 0.4)
	test.That(t, calcHeadError(seg, pose), test.ShouldAlmostEqual, 0.4, 1e-9)

	// Pointing right: negative.
	pose = spatialmath.NewPose2D(r2.Point{X: 0, Y: 0}, -0.4)
	test.That(t, calcHeadError(seg, pose), test.ShouldAlmostEqual, -0.4, 1e-9)
}

func TestSequenceFinishesAtFinalTarget(t *testing.T) {
	mock := clock.NewMock()
	tctrl := New(DefaultParams(), mock, logging.NewTestLogger(t))

	path := straightPath(t, 0, 0.2) // three points
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{path}), test.ShouldBeNil)

	// Aligned at the start: leave heading adjust.
	start := spatialmath.NewPose2D(r2.Point{X: 0, Y: 0}, 0)
	tctrl.Proc(start)
	test.That(t, tctrl.Mode(), test.ShouldEqual, ModeFollowPath)

	// Walk the rover past each target; once past the final one the
	// sequence finishes within one cycle and issues a stop.
	mock.Add(10 * time.Millisecond)
	tctrl.Proc(spatialmath.NewPose2D(r2.Point{X: 0.11, Y: 0}, 0))
	mock.Add(10 * time.Millisecond)
	cmd, report := tctrl.Proc(spatialmath.NewPose2D(r2.Point{X: 0.21, Y: 0}, 0))

	test.That(t, report.SequenceFinished, test.ShouldBeTrue)
	test.That(t, report.SequenceAborted, test.ShouldBeFalse)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Type, test.ShouldEqual, tc.MnvrStop)
	test.That(t, tctrl.Mode(), test.ShouldEqual, ModeOff)
}

func TestErrorLimitAbortsSequence(t *testing.T) {
	mock := clock.NewMock()
	tctrl := New(DefaultParams(), mock, logging.NewTestLogger(t))

	path := straightPath(t, 0, 2)
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{path}), test.ShouldBeNil)

	// Aligned but far off to the side: the lateral limit trips and the
	// sequence aborts with a stop.
	tctrl.Proc(spatialmath.NewPose2D(r2.Point{X: 0, Y: 0}, 0))
	mock.Add(10 * time.Millisecond)
	cmd, report := tctrl.Proc(spatialmath.NewPose2D(r2.Point{X: 0, Y: 5}, 0))

	test.That(t, report.LatErrorLimitExceeded, test.ShouldBeTrue)
	test.That(t, report.SequenceFinished, test.ShouldBeTrue)
	test.That(t, report.SequenceAborted, test.ShouldBeTrue)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, cmd.Type, test.ShouldEqual, tc.MnvrStop)
}

func TestAbortPathSequence(t *testing.T) {
	tctrl := New(DefaultParams(), clock.NewMock(), logging.NewTestLogger(t))

	path := straightPath(t, 0, 2)
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{path}), test.ShouldBeNil)
	tctrl.AbortPathSequence()

	cmd, report := tctrl.Proc(spatialmath.NewPose2D(r2.Point{}, 0))
	test.That(t, cmd.Type, test.ShouldEqual, tc.MnvrStop)
	test.That(t, report.SequenceFinished, test.ShouldBeTrue)
	test.That(t, report.SequenceAborted, test.ShouldBeTrue)

	// A new sequence may now be loaded.
	test.That(t, tctrl.BeginPathSequence([]*nav.Path{path}), test.ShouldBeNil)
}
