// Package perception converts depth images into local terrain maps.
package perception

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/terrainmap"
)

// mmToM converts millimeter depths to meters.
const mmToM = 1e-3

// ErrDepthImgEmpty is returned when no pixel of the depth image is within the
// accepted depth range.
var ErrDepthImgEmpty = errors.New("the provided depth image produced no points")

// Params configure the perception pipeline.
type Params struct {
	// DepthRangeMm is the accepted depth range in millimeters, semi-open:
	// min < depth <= max.
	DepthRangeMm [2]uint16 `json:"depth_range_mm"`

	// PrinciplePointPixels is the principal point of the depth image.
	PrinciplePointPixels r2.Point `json:"principle_point_pixels"`

	// FocalLengthPixels is the focal length of the depth image in pixels.
	FocalLengthPixels r2.Point `json:"focal_length_pixels"`

	// DepthImgPosMRb is the position of the depth image optical centre in
	// the rover body frame.
	DepthImgPosMRb r3.Vector `json:"depth_img_pos_m_rb"`

	// DepthImgAttQRb is the attitude of the depth image optical centre in
	// the rover body frame.
	DepthImgAttQRb quat.Number `json:"depth_img_att_q_rb"`

	// CellSizeM is the grid size of produced terrain maps.
	CellSizeM r2.Point `json:"cell_size_m"`
}

// DefaultParams returns the calibration of the rover's front depth camera.
func DefaultParams() Params {
	return Params{
		DepthRangeMm:         [2]uint16{100, 10000},
		PrinciplePointPixels: r2.Point{X: 320, Y: 240},
		FocalLengthPixels:    r2.Point{X: 380, Y: 380},
		DepthImgPosMRb:       r3.Vector{X: 0.3, Z: 0.4},
		DepthImgAttQRb:       quat.Number{Real: 1},
		CellSizeM:            r2.Point{X: 0.1, Y: 0.1},
	}
}

// PerMgr runs the perception pipeline: back-project each valid depth pixel
// into a point cloud, then bin the points into a terrain map grid.
type PerMgr struct {
	params Params
	diToRb spatialmath.Pose
	logger logging.Logger
}

// New creates a perception manager.
func New(params Params, logger logging.Logger) *PerMgr {
	return &PerMgr{
		params: params,
		diToRb: spatialmath.NewPose(params.DepthImgPosMRb, params.DepthImgAttQRb),
		logger: logger,
	}
}

// Calculate builds the local terrain map for a depth image taken at the
// given rover pose. The map is expressed with the rover body at the origin;
// cell heights are absolute elevations, offset by the pose's height.
func (p *PerMgr) Calculate(img *eqpt.DepthImage, pose spatialmath.Pose) (*terrainmap.Map, error) {
	points := p.pointCloud(img)
	if len(points) == 0 {
		return nil, ErrDepthImgEmpty
	}

	// Running AABB of the cloud, for sizing the map.
	minPt := points[0]
	maxPt := points[0]
	for _, pt := range points[1:] {
		minPt.X = math.Min(minPt.X, pt.X)
		minPt.Y = math.Min(minPt.Y, pt.Y)
		minPt.Z = math.Min(minPt.Z, pt.Z)
		maxPt.X = math.Max(maxPt.X, pt.X)
		maxPt.Y = math.Max(maxPt.Y, pt.Y)
		maxPt.Z = math.Max(maxPt.Z, pt.Z)
	}

	cs := p.params.CellSizeM
	bounds := cellmap.NewBounds(
		int(math.Floor(minPt.X/cs.X)), int(math.Ceil(maxPt.X/cs.X))+1,
		int(math.Floor(minPt.Y/cs.Y)), int(math.Ceil(maxPt.Y/cs.Y))+1,
	)

	terrain, err := terrainmap.New(cellmap.Params{CellSizeM: cs, CellBounds: bounds})
	if err != nil {
		return nil, err
	}

	// Bin points into cells.
	binned := map[cellmap.Vec2i][]float64{}
	for _, pt := range points {
		cell, ok := terrain.Index(r2.Point{X: pt.X, Y: pt.Y})
		if !ok {
			continue
		}
		binned[cell] = append(binned[cell], pt.Z+pose.PositionM.Z)
	}

	for cell, heights := range binned {
		if err := terrain.SetHeight(cell, cellHeight(heights)); err != nil {
			return nil, err
		}
	}

	p.logger.Debugf("terrain map of %d populated cells from %d points", len(binned), len(points))
	return terrain, nil
}

// pointCloud back-projects every in-range pixel to a right-handed rover body
// frame point.
func (p *PerMgr) pointCloud(img *eqpt.DepthImage) []r3.Vector {
	points := make([]r3.Vector, 0, len(img.PixelsMm))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			depth := img.GetDepth(x, y)
			if depth <= p.params.DepthRangeMm[0] || depth > p.params.DepthRangeMm[1] {
				continue
			}

			pointDi := r3.Vector{
				X: (float64(x) - p.params.PrinciplePointPixels.X) / p.params.FocalLengthPixels.X,
				Y: (float64(y) - p.params.PrinciplePointPixels.Y) / p.params.FocalLengthPixels.Y,
				Z: float64(depth) * mmToM,
			}

			// Into the left-handed rover body frame, then re-axes to the
			// right-handed one.
			pointRbl := p.diToRb.TransformPoint(pointDi)
			points = append(points, r3.Vector{X: pointRbl.Z, Y: pointRbl.Y, Z: -pointRbl.X})
		}
	}
	return points
}

// cellHeight estimates a cell's elevation from its contributing points: the
// median after dropping points more than two standard deviations from the
// mean.
func cellHeight(heights []float64) float64 {
	if len(heights) == 1 {
		return heights[0]
	}

	mean, err := stats.Mean(heights)
	if err != nil {
		return heights[0]
	}
	sigma, err := stats.StandardDeviation(heights)
	if err != nil || sigma == 0 {
		return mean
	}

	inliers := make([]float64, 0, len(heights))
	for _, h := range heights {
		if math.Abs(h-mean) <= 2*sigma {
			inliers = append(inliers, h)
		}
	}
	if len(inliers) == 0 {
		inliers = heights
	}

	median, err := stats.Median(inliers)
	if err != nil {
		return mean
	}
	return median
}
