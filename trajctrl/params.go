package trajctrl

// Params tune trajectory control.
type Params struct {
	// Lateral controller gains.
	LatKP float64 `json:"lat_k_p"`
	LatKI float64 `json:"lat_k_i"`
	LatKD float64 `json:"lat_k_d"`

	// Heading controller gains.
	HeadKP float64 `json:"head_k_p"`
	HeadKI float64 `json:"head_k_i"`
	HeadKD float64 `json:"head_k_d"`

	// Curvature demand limits, 1/meters.
	MinCurvDemM float64 `json:"min_curv_dem_m"`
	MaxCurvDemM float64 `json:"max_curv_dem_m"`

	// Crab demand limits, radians.
	MinCrabDemRad float64 `json:"min_crab_dem_rad"`
	MaxCrabDemRad float64 `json:"max_crab_dem_rad"`

	// CurvSpeedMapCoeffs map curvature demand to speed demand as a
	// polynomial, highest power first.
	CurvSpeedMapCoeffs []float64 `json:"curv_speed_map_coeffs"`

	// Speed demand limits, meters/second.
	MinSpeedDemMs float64 `json:"min_speed_dem_ms"`
	MaxSpeedDemMs float64 `json:"max_speed_dem_ms"`

	// Error limits beyond which the path sequence is aborted.
	LatErrorLimitM    float64 `json:"lat_error_limit_m"`
	HeadErrorLimitRad float64 `json:"head_error_limit_rad"`

	// Heading adjust point-turn rate and completion threshold.
	HeadAdjustRateRads     float64 `json:"head_adjust_rate_rads"`
	HeadAdjustThresholdRad float64 `json:"head_adjust_threshold_rad"`
}

// DefaultParams returns the field-trial trajectory control tuning.
func DefaultParams() Params {
	return Params{
		LatKP: 1.0, LatKI: 0.0, LatKD: 0.1,
		HeadKP: 1.5, HeadKI: 0.0, HeadKD: 0.1,
		MinCurvDemM: -2.0, MaxCurvDemM: 2.0,
		MinCrabDemRad: -0.5, MaxCrabDemRad: 0.5,
		// Slow down in tight turns: 0.1 m/s straight, less with curvature.
		CurvSpeedMapCoeffs: []float64{-0.01, 0.0, 0.1},
		MinSpeedDemMs:      0.02, MaxSpeedDemMs: 0.1,
		LatErrorLimitM: 1.0, HeadErrorLimitRad: 1.2,
		HeadAdjustRateRads: 0.2, HeadAdjustThresholdRad: 0.1,
	}
}
