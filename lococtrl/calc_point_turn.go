package lococtrl

import "math"

// calcPointTurn computes the wheel targets for a turn on the spot about the
// centre of the wheelbase: every wheel tangent to its circle about the
// centre, right-side wheels running in reverse.
func (l *LocoCtrl) calcPointTurn(rateRads float64) {
	var target OutputData

	for i, wheel := range l.params.StrAxisPosMRb {
		target.StrAbsPosRad[i] = -math.Atan(wheel.XM / wheel.YM)

		wheelRateRads := rateRads *
			math.Hypot(wheel.XM, wheel.YM) / l.params.WheelRadiusM

		// The right side runs inverted so the body rotates rather than
		// translates.
		if i >= NumWheels/2 {
			wheelRateRads = -wheelRateRads
		}
		target.DrvRateRads[i] = wheelRateRads
	}

	l.targetConfig = &target
}

// calcSkidSteer computes the wheel targets for tank-like steering: all
// wheels pointing straight ahead with differential rates between the two
// sides.
func (l *LocoCtrl) calcSkidSteer(speedMs, curvM float64) {
	var target OutputData

	curvM = clamp(curvM, -l.params.AckermanMaxCurvatureM, l.params.AckermanMaxCurvatureM)

	for i, wheel := range l.params.StrAxisPosMRb {
		// v_i = v * (1 - c * y_i): the inner side of the turn slows, the
		// outer side speeds up.
		wheelSpeedMs := speedMs * (1 - curvM*wheel.YM)
		target.DrvRateRads[i] = wheelSpeedMs / l.params.WheelRadiusM
	}

	l.targetConfig = &target
}
