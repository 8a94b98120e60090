package lococtrl

import "math"

// calcAckerman computes the wheel targets for an ackermann manoeuvre.
//
// The rover pivots about a centre of rotation located by the curvature of
// the turn (1/radius) and the crab angle; all wheel tangents intersect at
// it. Curvature parameterisation keeps "straight" away from infinity.
func (l *LocoCtrl) calcAckerman(speedMs, curvM, crabRad float64) {
	if math.Abs(curvM) < l.params.AckermanMinCurvatureM {
		l.calcAckermanStraight(speedMs, crabRad)
		return
	}
	l.calcAckermanGeneric(speedMs, curvM, crabRad)
}

// calcAckermanStraight handles near-zero curvature: all steer angles zero,
// all wheels at the same rate.
func (l *LocoCtrl) calcAckermanStraight(speedMs, _ float64) {
	var target OutputData
	wheelRateRads := speedMs / l.params.WheelRadiusM
	for i := range target.DrvRateRads {
		target.DrvRateRads[i] = wheelRateRads
	}
	l.targetConfig = &target
}

func (l *LocoCtrl) calcAckermanGeneric(speedMs, curvM, crabRad float64) {
	var target OutputData

	curvRadiusM := 1 / clamp(curvM, -l.params.AckermanMaxCurvatureM, l.params.AckermanMaxCurvatureM)

	// The crab angle is limited so the centre of rotation stays outside
	// the wheelbase.
	crabLimitArg := math.Abs(l.params.StrAxisPosMRb[0].YM / curvRadiusM)
	limitedCrabRad := crabRad
	if crabLimitArg <= 1 {
		crabLimitMarginRad := math.Acos(crabLimitArg) * 0.99
		limitedCrabRad = clamp(crabRad, -crabLimitMarginRad, crabLimitMarginRad)
	}

	sinCrab, cosCrab := math.Sincos(limitedCrabRad)

	// The speed is limited so no wheel exceeds its maximum rate: the
	// fastest wheel moves on the largest radius about the centre of
	// rotation.
	speedLimitMs := math.Abs(l.params.DrvMaxAbsRateRads*l.params.WheelRadiusM*curvRadiusM) /
		math.Sqrt(
			math.Pow(math.Abs(curvRadiusM*cosCrab)+math.Abs(l.params.StrAxisPosMRb[0].YM), 2)+
				math.Pow(math.Abs(curvRadiusM*sinCrab)+math.Abs(l.params.StrAxisPosMRb[0].XM), 2),
		) * 0.99
	limitedSpeedMs := clamp(speedMs, -speedLimitMs, speedLimitMs)

	// Steer angles from the wheel positions and the centre of rotation,
	// atan respecting the right hand grip rule about body Z.
	for i, wheel := range l.params.StrAxisPosMRb {
		target.StrAbsPosRad[i] = math.Atan(
			(wheel.XM + curvRadiusM*sinCrab) / (curvRadiusM*cosCrab - wheel.YM),
		)
	}

	// Wheel rates: all wheels trace concentric circles about the centre of
	// rotation; v = r * omega per wheel.
	for i, wheel := range l.params.StrAxisPosMRb {
		wheelSpeedMs := (limitedSpeedMs / math.Abs(curvRadiusM)) * math.Sqrt(
			math.Pow(curvRadiusM*cosCrab-wheel.YM, 2)+
				math.Pow(wheel.XM+curvRadiusM*sinCrab, 2),
		)
		target.DrvRateRads[i] = wheelSpeedMs / l.params.WheelRadiusM
	}

	l.targetConfig = &target
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
