package travmgr

import (
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/goleak"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/perception"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/terrainmap"
	"github.com/deimos-rover/deimos/trajctrl"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testPerParams puts the depth camera at the body origin so synthesized
// images observe terrain from right under the rover outwards.
func testPerParams() perception.Params {
	return perception.Params{
		DepthRangeMm:         [2]uint16{10, 10000},
		PrinciplePointPixels: r2.Point{X: 320, Y: 240},
		FocalLengthPixels:    r2.Point{X: 380, Y: 380},
		DepthImgPosMRb:       r3.Vector{},
		DepthImgAttQRb:       quat.Number{Real: 1},
		CellSizeM:            r2.Point{X: 0.1, Y: 0.1},
	}
}

// corridorImage synthesizes a depth image whose point cloud covers a gently
// sloped corridor ahead of the rover, roughly 0 to 3.2 m forward and +/-0.6
// m laterally.
func corridorImage() *eqpt.DepthImage {
	img := eqpt.NewDepthImage(640, 480, time.Unix(0, 0).UTC())
	for y := 0; y < 480; y++ {
		for x := 301; x <= 340; x++ {
			img.SetDepth(x, y, uint16(90+(x-301)*80))
		}
	}
	return img
}

func newTestMgr(t *testing.T) *TravMgr {
	t.Helper()
	mgr, err := New(Config{
		Params:        DefaultParams(),
		CostMapParams: costmap.DefaultParams(),
		PerParams:     testPerParams(),
		PlannerParams: nav.DefaultPlannerParams(),
		TrajParams:    trajctrl.DefaultParams(),
		Logger:        logging.NewTestLogger(t),
	})
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(mgr.Close)
	return mgr
}

// stepUntil drives the manager until pred holds, failing the test after the
// deadline.
func stepUntil(
	t *testing.T,
	mgr *TravMgr,
	img *eqpt.DepthImage,
	pose spatialmath.Pose,
	pred func(Output) bool,
) Output {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		out, err := mgr.Step(img, pose)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Abort, test.ShouldBeFalse)
		if pred(out) {
			return out
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
	return Output{}
}

func TestKickstartPopulatesGlobalMaps(t *testing.T) {
	mgr := newTestMgr(t)
	pose := spatialmath.NewZeroPose()

	test.That(t, mgr.Kickstart(), test.ShouldBeNil)
	test.That(t, mgr.State(), test.ShouldEqual, StateKickStart)

	// The first step asks for an imaging stop.
	out, err := mgr.Step(nil, pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.RequestImgStop, test.ShouldBeTrue)

	// Handing over the image runs the worker to completion and switches
	// off.
	img := corridorImage()
	stepUntil(t, mgr, img, pose, func(Output) bool { return mgr.IsOff() })

	gtm, gcm := mgr.GlobalMaps()
	test.That(t, gtm.NumCells().X, test.ShouldBeGreaterThan, 0)

	// Terrain ahead of the rover is now known, and costed.
	height, err := gtm.GetPosition(terrainmap.LayerHeight, r2.Point{X: 1.0, Y: 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, height.Known, test.ShouldBeTrue)

	value, err := gcm.GetPosition(costmap.LayerTotal, r2.Point{X: 1.0, Y: 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, value.IsNone(), test.ShouldBeFalse)
}

func TestStartWhileTraversingRejected(t *testing.T) {
	mgr := newTestMgr(t)
	test.That(t, mgr.Kickstart(), test.ShouldBeNil)
	test.That(t, mgr.Kickstart(), test.ShouldBeError, ErrAlreadyTraversing)
	test.That(t, mgr.StartGoto(nav.NavPoseFromParts(r2.Point{X: 1}, 0)),
		test.ShouldBeError, ErrAlreadyTraversing)

	// Stop returns the manager to off with a stop command.
	out := mgr.Stop()
	test.That(t, out.LocoCmd, test.ShouldNotBeNil)
	test.That(t, out.LocoCmd.Type, test.ShouldEqual, tc.MnvrStop)
	test.That(t, mgr.IsOff(), test.ShouldBeTrue)
}

// walkPath feeds trajectory-control poses along a path until the manager
// leaves the given state.
func walkPath(t *testing.T, mgr *TravMgr, path *nav.Path) {
	t.Helper()
	points := path.PointsM()
	deadline := time.Now().Add(10 * time.Second)
	idx := 1
	for time.Now().Before(deadline) {
		pose, ok := nav.NavPoseFromPathPoint(path, idx)
		if !ok {
			// Past the final point: nudge beyond the end to flush the last
			// targets.
			end, _ := nav.NavPoseFromPathPoint(path, len(points)-1)
			fwd := end.PoseParent.Forward2().Mul(0.05)
			pose = nav.NavPoseFromParts(end.PositionM.Add(fwd), end.HeadingRad)
		}

		out, err := mgr.Step(nil, pose.PoseParent)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Abort, test.ShouldBeFalse)

		if mgr.State() != StateTraverse {
			return
		}
		if idx < len(points)+20 {
			idx++
		}
	}
	t.Fatal("trajectory never completed the path")
}

func TestCheckTraverseProtocol(t *testing.T) {
	mgr := newTestMgr(t)
	// Force any planned secondary to count as final so the traverse
	// finishes after two paths.
	mgr.params.FinalTargetToleranceM = 10.0

	// Kickstart from half a meter back, so the terrain under the traverse
	// start is already inside the global maps when planning begins.
	kickstartPose := spatialmath.NewPose2D(r2.Point{X: -0.5, Y: 0}, 0)
	test.That(t, mgr.Kickstart(), test.ShouldBeNil)
	stepUntil(t, mgr, corridorImage(), kickstartPose, func(Output) bool { return mgr.IsOff() })

	pose := spatialmath.NewZeroPose()
	groundPath := groundLine(t, 3.0)

	test.That(t, mgr.StartCheck(groundPath), test.ShouldBeNil)
	test.That(t, mgr.State(), test.ShouldEqual, StateFirstStop)

	// First stop: imaging requested, then both paths planned.
	img := corridorImage()
	out := stepUntil(t, mgr, img, pose, func(out Output) bool {
		return mgr.State() == StateTraverse && out.PrimaryPath != nil && out.SecondaryPath != nil
	})

	primary := out.PrimaryPath
	secondary := out.SecondaryPath
	test.That(t, primary, test.ShouldNotBeNil)
	test.That(t, secondary, test.ShouldNotBeNil)

	// The primary starts at the rover and the secondary continues it.
	test.That(t, primary.StartM().Norm(), test.ShouldBeLessThan, 1e-6)
	gap := secondary.StartM().Sub(primary.EndM()).Norm()
	test.That(t, gap, test.ShouldBeLessThan, 1e-6)

	// Drive the primary to its end; the secondary is final, so it promotes
	// straight into a new traverse leg without another imaging stop.
	walkPath(t, mgr, primary)
	out = stepUntil(t, mgr, nil, nav.NavPoseFromPathStart(secondary).PoseParent,
		func(out Output) bool {
			return mgr.State() == StateTraverse && out.PrimaryPath != nil
		})
	test.That(t, out.PrimaryPath.PointsM(), test.ShouldResemble, secondary.PointsM())

	// Drive the promoted path to its end: the traverse completes.
	walkPath(t, mgr, secondary)
	stepUntil(t, mgr, nil, nav.NavPoseFromPathEnd(secondary).PoseParent,
		func(Output) bool { return mgr.IsOff() })
}
