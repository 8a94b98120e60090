package automgr

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/loc"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/perception"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/trajctrl"
	"github.com/deimos-rover/deimos/travmgr"
)

type fixture struct {
	mgr    *AutoMgr
	ctx    *Context
	clock  *clock.Mock
	locMgr *loc.LocMgr
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewTestLogger(t)
	mock := clock.NewMock()
	locMgr := loc.New()

	travMgr, err := travmgr.New(travmgr.Config{
		Params:        travmgr.DefaultParams(),
		CostMapParams: costmap.DefaultParams(),
		PerParams:     perception.DefaultParams(),
		PlannerParams: nav.DefaultPlannerParams(),
		TrajParams:    trajctrl.DefaultParams(),
		Clock:         mock,
		Logger:        logger.Sublogger("trav_mgr"),
	})
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(travMgr.Close)

	ctx := &Context{
		Params:  DefaultParams(),
		Clock:   mock,
		Logger:  logger,
		LocMgr:  locMgr,
		TravMgr: travMgr,
	}
	return &fixture{mgr: New(ctx), ctx: ctx, clock: mock, locMgr: locMgr}
}

func checkCmd() *tc.AutoCmd {
	return &tc.AutoCmd{
		Type: tc.AutoCmdCheck,
		Path: &tc.PathSpec{AckSeq: &tc.AckSeq{SeparationM: 0.05, Seq: []float64{0.0, 2.0}}},
	}
}

func TestCommandsIgnoredWhenIrrelevant(t *testing.T) {
	f := newFixture(t)

	// Pause with an empty stack is ignored with a warning.
	f.mgr.Step(&tc.AutoCmd{Type: tc.AutoCmdPause})
	test.That(t, f.mgr.IsOff(), test.ShouldBeTrue)

	f.mgr.Step(&tc.AutoCmd{Type: tc.AutoCmdResume})
	test.That(t, f.mgr.IsOff(), test.ShouldBeTrue)
}

func TestCommandsAcceptedWhenOff(t *testing.T) {
	f := newFixture(t)
	f.locMgr.SetPose(spatialmath.NewZeroPose())

	f.mgr.Step(checkCmd())
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check"})
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t)
	f.locMgr.SetPose(spatialmath.NewZeroPose())

	// Start a Check traverse.
	f.mgr.Step(checkCmd())
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check"})

	// Pause: the Check pushes a Pause, which pushes a Stop to bring the
	// rover to rest.
	f.mgr.Step(&tc.AutoCmd{Type: tc.AutoCmdPause})
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check", "Pause"})

	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check", "Pause", "Stop"})

	// Hold the pose still until the Stop pops.
	f.mgr.Step(nil)
	f.clock.Add(time.Second)
	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check", "Pause"})
	test.That(t, f.ctx.IsStopped, test.ShouldBeTrue)

	// Resume pops the Pause; the Check is stepped again next cycle.
	f.mgr.Step(&tc.AutoCmd{Type: tc.AutoCmdResume})
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check"})
}

func TestWaitNewPoseTimeout(t *testing.T) {
	f := newFixture(t)
	// No pose at all.

	f.mgr.Step(checkCmd())
	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check", "WaitNewPose"})

	// Past the wait limit the stack is cleared and a Stop appended.
	f.clock.Add(6 * time.Second)
	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Stop"})
}

func TestAutoMnvrAckermanCompletes(t *testing.T) {
	f := newFixture(t)
	f.locMgr.SetPose(spatialmath.NewZeroPose())

	cmd := &tc.AutoCmd{Type: tc.AutoCmdMnvr, Mnvr: &tc.AutoMnvrCmd{
		Type:    tc.MnvrAckerman,
		SpeedMs: 0.1,
		DistM:   1.0,
	}}
	f.mgr.Step(cmd)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"AutoMnvr"})

	// The first stepped cycle issues the locomotion command.
	out := f.mgr.Step(nil)
	test.That(t, out.LocoCmd, test.ShouldNotBeNil)
	test.That(t, out.LocoCmd.Type, test.ShouldEqual, tc.MnvrAckerman)

	// Walk the rover forward until the accumulated arc length reaches the
	// commanded distance: the state replaces itself with a Stop.
	for x := 0.1; x < 1.2; x += 0.1 {
		f.locMgr.SetPose(spatialmath.NewPose2D(r2.Point{X: x, Y: 0}, 0))
		f.mgr.Step(nil)
		if f.mgr.StackNames()[0] == "Stop" {
			break
		}
	}
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Stop"})
}

func TestImgStopAcquiresImage(t *testing.T) {
	f := newFixture(t)
	f.locMgr.SetPose(spatialmath.NewZeroPose())

	f.mgr.Step(&tc.AutoCmd{Type: tc.AutoCmdImgStop})
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"ImgStop"})

	// Not known to be stopped: a Stop is pushed and must complete first.
	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"ImgStop", "Stop"})
	f.mgr.Step(nil)
	f.clock.Add(time.Second)
	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"ImgStop"})

	// Once stopped, the image is requested from the perception equipment.
	out := f.mgr.Step(nil)
	test.That(t, out.PerlocCmd, test.ShouldNotBeNil)
	test.That(t, *out.PerlocCmd, test.ShouldEqual, eqpt.PerlocAcqDepthFrame)

	// Nothing happens until the frame arrives; once set, the state pops.
	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"ImgStop"})

	f.mgr.SetDepthImg(eqpt.NewDepthImage(4, 4, time.Unix(0, 0)))
	f.mgr.Step(nil)
	test.That(t, f.mgr.IsOff(), test.ShouldBeTrue)
}

func TestStateErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.locMgr.SetPose(spatialmath.NewZeroPose())

	// A Check whose path spec cannot be built fails its first step; the
	// stack is replaced with a Stop.
	bad := &tc.AutoCmd{Type: tc.AutoCmdCheck, Path: &tc.PathSpec{}}
	f.mgr.Step(bad)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Check"})

	f.mgr.Step(nil)
	test.That(t, f.mgr.StackNames(), test.ShouldResemble, []string{"Stop"})
}
