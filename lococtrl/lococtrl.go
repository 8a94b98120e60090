// Package lococtrl converts manoeuvre commands into per-wheel steer and
// drive targets, and owns the executive's latched safe mode.
package lococtrl

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/logging"
)

// Errors raised by locomotion control.
var (
	// ErrInvalidMnvrCmd is returned for commands failing validation.
	ErrInvalidMnvrCmd = errors.New("invalid manoeuvre command")

	// ErrNotSafe is returned when leaving safe mode with a mismatched
	// cause.
	ErrNotSafe = errors.New("make-unsafe cause does not match the latched safe cause")
)

// OutputData is the per-wheel demand produced each cycle.
type OutputData struct {
	// StrAbsPosRad is the absolute steer position demand per wheel.
	StrAbsPosRad [NumWheels]float64 `json:"str_abs_pos_rad"`

	// DrvRateRads is the drive rate demand per wheel.
	DrvRateRads [NumWheels]float64 `json:"drv_rate_rads"`
}

// ToMechDems converts the output to mechanisms server demands.
func (o OutputData) ToMechDems() eqpt.MechDems {
	dems := eqpt.NewMechDems()
	for i, id := range eqpt.SteerActIds() {
		dems.PosRad[id] = o.StrAbsPosRad[i]
	}
	for i, id := range eqpt.DriveActIds() {
		dems.SpeedRads[id] = o.DrvRateRads[i]
	}
	return dems
}

// LocoCtrl computes wheel targets for manoeuvre commands.
type LocoCtrl struct {
	params Params
	logger logging.Logger

	currentCmd       *tc.MnvrCmd
	targetConfig     *OutputData
	previousOutput   *OutputData
	safeLatched      atomic.Bool
	safeCauseMu      sync.Mutex
	latchedSafeCause string
}

// New creates a locomotion controller.
func New(params Params, logger logging.Logger) *LocoCtrl {
	return &LocoCtrl{params: params, logger: logger}
}

// MakeSafe latches safe mode with the given cause. While safe, outputs are
// forced to zero rates with the last steer positions retained.
func (l *LocoCtrl) MakeSafe(cause string) {
	l.safeCauseMu.Lock()
	defer l.safeCauseMu.Unlock()
	if !l.safeLatched.Load() {
		l.latchedSafeCause = cause
		l.safeLatched.Store(true)
		l.logger.Warnf("safe mode latched: %s", cause)
	}
}

// MakeUnsafe leaves safe mode, but only when the cause matches the one that
// latched it.
func (l *LocoCtrl) MakeUnsafe(cause string) error {
	l.safeCauseMu.Lock()
	defer l.safeCauseMu.Unlock()
	if !l.safeLatched.Load() {
		return nil
	}
	if cause != l.latchedSafeCause {
		return ErrNotSafe
	}
	l.safeLatched.Store(false)
	l.latchedSafeCause = ""
	l.logger.Info("safe mode released")
	return nil
}

// IsSafe reports whether safe mode is latched.
func (l *LocoCtrl) IsSafe() bool { return l.safeLatched.Load() }

// Proc runs one cycle of locomotion control. A nil command continues the
// previous manoeuvre.
func (l *LocoCtrl) Proc(cmd *tc.MnvrCmd) (OutputData, error) {
	if cmd != nil {
		if err := cmd.Validate(); err != nil {
			return l.safeOutput(), errors.Wrap(ErrInvalidMnvrCmd, err.Error())
		}
		if cmd.Type != tc.MnvrNone {
			l.currentCmd = cmd
			if err := l.calcTargetConfig(); err != nil {
				return l.safeOutput(), err
			}
		}
	}

	var output OutputData
	switch {
	case l.safeLatched.Load():
		output = l.safeOutput()
	case l.targetConfig != nil:
		output = *l.targetConfig
	case l.previousOutput != nil:
		// No target: reissue the previous output with the rates zeroed.
		output = *l.previousOutput
		output.DrvRateRads = [NumWheels]float64{}
	default:
		output = OutputData{}
	}

	l.previousOutput = &output
	return output, nil
}

// safeOutput keeps the last steer positions with all rates zero.
func (l *LocoCtrl) safeOutput() OutputData {
	var output OutputData
	if l.previousOutput != nil {
		output.StrAbsPosRad = l.previousOutput.StrAbsPosRad
	}
	return output
}

func (l *LocoCtrl) calcTargetConfig() error {
	switch l.currentCmd.Type {
	case tc.MnvrStop:
		l.calcStop()
	case tc.MnvrAckerman:
		l.calcAckerman(l.currentCmd.SpeedMs, l.currentCmd.CurvM, l.currentCmd.CrabRad)
	case tc.MnvrPointTurn:
		l.calcPointTurn(l.currentCmd.RateRads)
	case tc.MnvrSkidSteer:
		l.calcSkidSteer(l.currentCmd.SpeedMs, l.currentCmd.CurvM)
	default:
		return errors.Wrapf(ErrInvalidMnvrCmd, "type %q", l.currentCmd.Type)
	}
	return nil
}

// calcStop zeroes all drive rates, keeping the current steer positions.
func (l *LocoCtrl) calcStop() {
	var target OutputData
	if l.previousOutput != nil {
		target.StrAbsPosRad = l.previousOutput.StrAbsPosRad
	}
	l.targetConfig = &target
}
