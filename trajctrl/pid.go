package trajctrl

import (
	"time"

	"github.com/benbjohnson/clock"
)

// PidController is a standard parallel-form PID controller with time-aware
// integration: the integration step is the wall-clock time between calls.
type PidController struct {
	kP float64
	kI float64
	kD float64

	clock     clock.Clock
	prevTime  time.Time
	prevValid bool
	prevError float64
	integral  float64
}

// NewPidController creates a controller with the given gains, using the
// given clock for integration time steps.
func NewPidController(kP, kI, kD float64, clk clock.Clock) *PidController {
	return &PidController{kP: kP, kI: kI, kD: kD, clock: clk}
}

// Get returns the controller output for the given error.
//
// On the first call there is no previous time, so the integral and
// derivative contributions are zero and the output is exactly kP * error.
func (pid *PidController) Get(errorValue float64) float64 {
	currTime := pid.clock.Now()

	var dt float64
	if pid.prevValid {
		dt = currTime.Sub(pid.prevTime).Seconds()
	}

	// With no time step there is no integral accumulation; adding the bare
	// error would spike the integral relative to normal operation.
	pid.integral += errorValue * dt

	deriv := 0.0
	if dt > 0 {
		deriv = (errorValue - pid.prevError) / dt
	}

	out := pid.kP*errorValue + pid.kI*pid.integral + pid.kD*deriv

	pid.prevError = errorValue
	pid.prevTime = currTime
	pid.prevValid = true

	return out
}

// Reset clears the controller's accumulated state.
func (pid *PidController) Reset() {
	pid.integral = 0
	pid.prevError = 0
	pid.prevValid = false
}
