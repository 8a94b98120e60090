package lococtrl

// NumWheels is the number of drive/steer wheel pairs.
const NumWheels = 6

// WheelPos is a wheel axis position in the rover body frame.
type WheelPos struct {
	XM float64 `json:"x_m"`
	YM float64 `json:"y_m"`
}

// Params configure locomotion control.
type Params struct {
	// WheelRadiusM is the radius of the rover's wheels.
	WheelRadiusM float64 `json:"wheel_radius_m"`

	// StrAxisPosMRb are the steer axis positions in the rover body frame,
	// ordered left side front to rear then right side front to rear.
	StrAxisPosMRb [NumWheels]WheelPos `json:"str_axis_pos_m_rb"`

	// DrvMaxAbsRateRads is the largest drive axis rate.
	DrvMaxAbsRateRads float64 `json:"drv_max_abs_rate_rads"`

	// AckermanMinCurvatureM: below this magnitude an ackermann is driven
	// straight.
	AckermanMinCurvatureM float64 `json:"ackerman_min_curvature_m"`

	// AckermanMaxCurvatureM clamps ackermann curvature demands.
	AckermanMaxCurvatureM float64 `json:"ackerman_max_curvature_m"`
}

// DefaultParams returns the geometry of the six-wheel breadboard rover.
func DefaultParams() Params {
	return Params{
		WheelRadiusM: 0.065,
		StrAxisPosMRb: [NumWheels]WheelPos{
			{XM: 0.25, YM: 0.3},   // front left
			{XM: 0.0, YM: 0.3},    // middle left
			{XM: -0.25, YM: 0.3},  // rear left
			{XM: 0.25, YM: -0.3},  // front right
			{XM: 0.0, YM: -0.3},   // middle right
			{XM: -0.25, YM: -0.3}, // rear right
		},
		DrvMaxAbsRateRads:     6.0,
		AckermanMinCurvatureM: 1e-3,
		AckermanMaxCurvatureM: 2.5,
	}
}
