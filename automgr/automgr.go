// Package automgr implements the autonomy manager: a stackable state
// machine coordinating the rover's high-level autonomy modes.
//
// States are stackable so similar operations compose: Check and Goto push
// ImgStop above themselves to acquire navigation data, ImgStop pushes Stop
// to get stationary first, and a state can push Stop below itself to run
// when it pops.
package automgr

import (
	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/loc"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/session"
	"github.com/deimos-rover/deimos/travmgr"
)

// OutputData is what a step of the autonomy system asks of the executive.
type OutputData struct {
	// LocoCmd is a locomotion command to execute, nil for none.
	LocoCmd *tc.MnvrCmd

	// PerlocCmd is a perception equipment command to execute, nil for
	// none.
	PerlocCmd *eqpt.PerlocCmd
}

// StepOutput is the result of stepping the top state: an action on the
// stack plus output data for the executive.
type StepOutput struct {
	Action StackAction
	Data   OutputData
}

// StepNone is the no-op step output.
func StepNone() StepOutput { return StepOutput{} }

// State is one autonomy mode on the stack. Only the top state is stepped
// each cycle.
type State interface {
	// Name identifies the state in logs and telemetry.
	Name() string

	// Step advances the state, optionally consuming the cycle's autonomy
	// command.
	Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error)
}

// Context is the persistent data shared by all states: data which must
// survive state changes, such as the traverse manager with its global maps.
type Context struct {
	Params  Params
	Clock   clock.Clock
	Logger  logging.Logger
	Session *session.Session

	// LocMgr provides the rover pose each cycle.
	LocMgr *loc.LocMgr

	// TravMgr holds the global maps and runs traverses.
	TravMgr *travmgr.TravMgr

	// DepthImg is the latest depth image from the perception equipment.
	DepthImg *eqpt.DepthImage

	// IsStopped is whether the rover should currently be stationary: a
	// Stop state has completed and nothing has commanded motion since.
	IsStopped bool

	// Telemetry is the most recent autonomy telemetry snapshot.
	Telemetry Telemetry
}

// AutoMgr steps the state stack once per control cycle.
type AutoMgr struct {
	ctx    *Context
	stack  []State
	logger logging.Logger
}

// New creates an autonomy manager with an empty stack.
func New(ctx *Context) *AutoMgr {
	return &AutoMgr{ctx: ctx, logger: ctx.Logger}
}

// IsOff reports whether the stack is empty.
func (a *AutoMgr) IsOff() bool { return len(a.stack) == 0 }

// SetDepthImg stores a newly arrived depth image in the persistent data.
func (a *AutoMgr) SetDepthImg(img *eqpt.DepthImage) {
	a.ctx.DepthImg = img
}

// Telemetry returns the most recent autonomy telemetry snapshot.
func (a *AutoMgr) Telemetry() Telemetry {
	tm := a.ctx.Telemetry
	tm.StackStates = lo.Map(a.stack, func(s State, _ int) string { return s.Name() })
	return tm
}

// StackNames returns the names of the stacked states, bottom first.
func (a *AutoMgr) StackNames() []string {
	return lo.Map(a.stack, func(s State, _ int) string { return s.Name() })
}

// RequestKickstart pushes a kickstart: populate the global maps from one
// image without moving. Only valid when the manager is off.
func (a *AutoMgr) RequestKickstart() {
	if a.IsOff() {
		a.stack = append(a.stack, NewKickStart())
	}
}

// Step runs one cycle: step the top state (or accept a command when off),
// then apply the returned stack action.
func (a *AutoMgr) Step(cmd *tc.AutoCmd) OutputData {
	var output StepOutput
	if top := a.top(); top != nil {
		out, err := top.Step(a.ctx, cmd)
		if err != nil {
			// No recovery beyond stopping: log, and replace the stack with
			// a Stop.
			a.logger.Errorf("state %s failed: %s", top.Name(), err)
			out = StepOutput{Action: ActionAbort()}
		}
		output = out
	} else {
		output = a.acceptCommand(cmd)
	}

	acted := a.applyAction(output.Action)
	if acted && a.top() != nil {
		a.logger.Infof("autonomy state change to: %s", a.top().Name())
	}

	return output.Data
}

// acceptCommand handles commands arriving while the stack is empty.
func (a *AutoMgr) acceptCommand(cmd *tc.AutoCmd) StepOutput {
	if cmd == nil {
		return StepNone()
	}

	switch cmd.Type {
	case tc.AutoCmdMnvr:
		if cmd.Mnvr == nil {
			a.logger.Warn("rejecting MNVR autonomy command with no manoeuvre")
			return StepNone()
		}
		return StepOutput{Action: ActionPushAbove(NewAutoMnvr(*cmd.Mnvr))}
	case tc.AutoCmdFollow:
		if cmd.Path == nil {
			a.logger.Warn("rejecting FOLLOW autonomy command with no path")
			return StepNone()
		}
		return StepOutput{Action: ActionPushAbove(NewFollow(*cmd.Path))}
	case tc.AutoCmdCheck:
		if cmd.Path == nil {
			a.logger.Warn("rejecting CHECK autonomy command with no path")
			return StepNone()
		}
		return StepOutput{Action: ActionPushAbove(NewCheck(*cmd.Path))}
	case tc.AutoCmdGoto:
		return StepOutput{Action: ActionPushAbove(NewGoto(cmd.XMLm, cmd.YMLm))}
	case tc.AutoCmdImgStop:
		return StepOutput{Action: ActionPushAbove(NewImgStop())}
	default:
		a.logger.Warnf("cannot execute %s as the autonomy manager is off", cmd.Type)
		return StepNone()
	}
}

func (a *AutoMgr) top() State {
	if len(a.stack) == 0 {
		return nil
	}
	return a.stack[len(a.stack)-1]
}

// applyAction mutates the stack, reporting whether anything changed.
func (a *AutoMgr) applyAction(action StackAction) bool {
	switch action.kind {
	case actionNone:
		return false
	case actionClear:
		a.stack = a.stack[:0]
	case actionAbort:
		a.stack = append(a.stack[:0], NewStop())
	case actionPushAbove:
		a.stack = append(a.stack, action.state)
	case actionPushBelow:
		if len(a.stack) == 0 {
			a.stack = append(a.stack, action.state)
		} else {
			top := a.stack[len(a.stack)-1]
			a.stack = append(a.stack[:len(a.stack)-1], action.state, top)
		}
	case actionPop:
		if len(a.stack) > 0 {
			a.stack = a.stack[:len(a.stack)-1]
		}
	case actionReplace:
		if len(a.stack) > 0 {
			a.stack = a.stack[:len(a.stack)-1]
		}
		a.stack = append(a.stack, action.state)
	}
	return true
}
