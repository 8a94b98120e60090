// Package quadtree implements a point quadtree used for nearest-neighbour
// queries over path points.
package quadtree

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Capacity is the number of points a node holds before subdividing.
const Capacity = 4

// ErrPointNotInBounds is returned when inserting a point outside the tree's
// boundary.
var ErrPointNotInBounds = errors.New("point not in the bounds of the quadtree")

// Quad is an axis-aligned square region with a centre and half-width.
type Quad struct {
	CentreM    r2.Point `json:"centre_m"`
	HalfWidthM float64  `json:"half_width_m"`
}

// NewQuad creates a quad with the given centre and half-width.
func NewQuad(centre r2.Point, halfWidth float64) Quad {
	return Quad{CentreM: centre, HalfWidthM: halfWidth}
}

// Contains reports whether the point is inside the quad. The lower edges are
// inclusive, the upper edges exclusive.
func (q Quad) Contains(point r2.Point) bool {
	return q.CentreM.X-q.HalfWidthM <= point.X &&
		q.CentreM.X+q.HalfWidthM > point.X &&
		q.CentreM.Y-q.HalfWidthM <= point.Y &&
		q.CentreM.Y+q.HalfWidthM > point.Y
}

// Intersects reports whether the two quads overlap.
func (q Quad) Intersects(other Quad) bool {
	return !(other.CentreM.X-other.HalfWidthM >= q.CentreM.X+q.HalfWidthM ||
		other.CentreM.X+other.HalfWidthM <= q.CentreM.X-q.HalfWidthM ||
		other.CentreM.Y-other.HalfWidthM >= q.CentreM.Y+q.HalfWidthM ||
		other.CentreM.Y+other.HalfWidthM <= q.CentreM.Y-q.HalfWidthM)
}

// Tree is a quadtree over 2D points.
type Tree struct {
	boundary Quad
	points   []r2.Point

	northWest *Tree
	northEast *Tree
	southWest *Tree
	southEast *Tree
}

// New creates an empty tree covering the given boundary.
func New(boundary Quad) *Tree {
	return &Tree{boundary: boundary}
}

// FromPoints builds a tree sized to cover all the given points.
func FromPoints(points []r2.Point) *Tree {
	if len(points) == 0 {
		return New(NewQuad(r2.Point{}, 1))
	}

	minPt := points[0]
	maxPt := points[0]
	for _, p := range points[1:] {
		minPt.X = math.Min(minPt.X, p.X)
		minPt.Y = math.Min(minPt.Y, p.Y)
		maxPt.X = math.Max(maxPt.X, p.X)
		maxPt.Y = math.Max(maxPt.Y, p.Y)
	}
	centre := r2.Point{X: (minPt.X + maxPt.X) / 2, Y: (minPt.Y + maxPt.Y) / 2}
	halfWidth := math.Max(maxPt.X-minPt.X, maxPt.Y-minPt.Y)/2 + 1e-6

	tree := New(NewQuad(centre, halfWidth))
	for _, p := range points {
		//nolint:errcheck // every point is inside the computed boundary
		tree.Insert(p)
	}
	return tree
}

// Insert adds a point to the tree.
func (t *Tree) Insert(point r2.Point) error {
	if !t.boundary.Contains(point) {
		return ErrPointNotInBounds
	}

	if len(t.points) < Capacity && t.northWest == nil {
		t.points = append(t.points, point)
		return nil
	}

	if t.northWest == nil {
		t.subdivide()
		held := t.points
		t.points = nil
		for _, p := range held {
			//nolint:errcheck
			t.Insert(p)
		}
	}

	for _, child := range []*Tree{t.northWest, t.northEast, t.southWest, t.southEast} {
		if child.Insert(point) == nil {
			return nil
		}
	}
	return ErrPointNotInBounds
}

func (t *Tree) subdivide() {
	half := t.boundary.HalfWidthM / 2
	c := t.boundary.CentreM
	t.northWest = New(NewQuad(r2.Point{X: c.X - half, Y: c.Y + half}, half))
	t.northEast = New(NewQuad(r2.Point{X: c.X + half, Y: c.Y + half}, half))
	t.southWest = New(NewQuad(r2.Point{X: c.X - half, Y: c.Y - half}, half))
	t.southEast = New(NewQuad(r2.Point{X: c.X + half, Y: c.Y - half}, half))
}

// QueryQuad returns all points inside the given query quad.
func (t *Tree) QueryQuad(query Quad) []r2.Point {
	if !t.boundary.Intersects(query) {
		return nil
	}

	var found []r2.Point
	for _, p := range t.points {
		if query.Contains(p) {
			found = append(found, p)
		}
	}
	if t.northWest != nil {
		found = append(found, t.northWest.QueryQuad(query)...)
		found = append(found, t.northEast.QueryQuad(query)...)
		found = append(found, t.southWest.QueryQuad(query)...)
		found = append(found, t.southEast.QueryQuad(query)...)
	}
	return found
}

// Nearest returns the closest point to the query within maxDist, searching a
// quad of half-width maxDist around the query point.
func (t *Tree) Nearest(query r2.Point, maxDist float64) (r2.Point, float64, bool) {
	candidates := t.QueryQuad(NewQuad(query, maxDist))
	if len(candidates) == 0 {
		return r2.Point{}, 0, false
	}

	best := candidates[0]
	bestDist := best.Sub(query).Norm()
	for _, p := range candidates[1:] {
		if d := p.Sub(query).Norm(); d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best, bestDist, true
}
