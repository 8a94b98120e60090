package travmgr

import (
	"github.com/golang/geo/r2"
)

// EscapeBoundaryParams configure the escape boundary search.
type EscapeBoundaryParams struct {
	// MaxRadiusM and MinRadiusM bound the boundary radius.
	MaxRadiusM float64 `json:"max_radius_m"`
	MinRadiusM float64 `json:"min_radius_m"`

	// RadiusThresholdM is the convergence tolerance of the radius search
	// and the inward step between candidate radii.
	RadiusThresholdM float64 `json:"radius_threshold_m"`

	// MaxHeadingRad and MinHeadingRad bound the boundary edge headings.
	MaxHeadingRad float64 `json:"max_heading_rad"`
	MinHeadingRad float64 `json:"min_heading_rad"`

	// HeadingThresholdRad is the convergence tolerance of the heading
	// searches and the separation of points along the boundary arc.
	HeadingThresholdRad float64 `json:"heading_threshold_rad"`
}

// Params configure the traverse manager.
type Params struct {
	// MapCellSizeM is the cell size of all maps.
	MapCellSizeM r2.Point `json:"map_cell_size_m"`

	// EscapeBoundary are the escape boundary search parameters.
	EscapeBoundary EscapeBoundaryParams `json:"escape_boundary"`

	// LocalTargetExclusionDistanceM keeps the local target this far inside
	// known terrain.
	LocalTargetExclusionDistanceM float64 `json:"local_target_exclusion_distance_m"`

	// LocalTargetMaxDistanceM bounds how far ahead of the rover the local
	// target may be.
	LocalTargetMaxDistanceM float64 `json:"local_target_max_distance_m"`

	// FinalTargetToleranceM is the distance from the overall goal within
	// which a planned secondary path ends the traverse.
	FinalTargetToleranceM float64 `json:"final_target_tolerance_m"`
}

// DefaultParams returns the field-trial traverse tuning.
func DefaultParams() Params {
	return Params{
		MapCellSizeM: r2.Point{X: 0.1, Y: 0.1},
		EscapeBoundary: EscapeBoundaryParams{
			MaxRadiusM:          3.0,
			MinRadiusM:          0.5,
			RadiusThresholdM:    0.1,
			MaxHeadingRad:       1.0,
			MinHeadingRad:       0.0,
			HeadingThresholdRad: 0.05,
		},
		LocalTargetExclusionDistanceM: 0.5,
		LocalTargetMaxDistanceM:       5.0,
		FinalTargetToleranceM:         0.6,
	}
}
