package nav

import (
	"container/heap"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/spatialmath"
)

// Planner errors.
var (
	// ErrPointOutsideMap is returned when the start or target pose is not in
	// the cost map.
	ErrPointOutsideMap = errors.New("point outside of the map")

	// ErrBestPathNotAtTarget is returned when no chain reaches the target;
	// the best partial chain is still returned alongside it.
	ErrBestPathNotAtTarget = errors.New("could not find an optimal path that reaches the target, returning best fit instead")

	// ErrNoPathToTarget is returned when not a single traversable fan path
	// exists from the start.
	ErrNoPathToTarget = errors.New("couldn't find a traversable path to the target")
)

// PlannerParams tune the A* search.
type PlannerParams struct {
	// TestCurvsM are the curvature choices of each fan, in 1/meters.
	TestCurvsM []float64 `json:"test_curvs_m"`

	// TestHeadsRad are the delta-heading choices of each fan.
	TestHeadsRad []float64 `json:"test_heads_rad"`

	// PathPointSeparationM is the separation of points within a planned
	// path.
	PathPointSeparationM float64 `json:"path_point_separation_m"`

	// HeuristicRemainingCostWeight weighs the straight-line remaining cost
	// in the heuristic.
	HeuristicRemainingCostWeight float64 `json:"heuristic_remaining_cost_weight"`

	// HeuristicAlignmentCostWeight weighs the target alignment in the
	// heuristic.
	HeuristicAlignmentCostWeight float64 `json:"heuristic_alignment_cost_weight"`

	// TargetToleranceM is the radius around the target within which a path
	// end counts as arrived.
	TargetToleranceM float64 `json:"target_tolerance_m"`

	// MaxPathLengthM and MinPathLengthM clamp individual path lengths.
	MaxPathLengthM float64 `json:"max_path_length_m"`
	MinPathLengthM float64 `json:"min_path_length_m"`
}

// DefaultPlannerParams returns the tuning used in rover field trials.
func DefaultPlannerParams() PlannerParams {
	return PlannerParams{
		TestCurvsM:                   []float64{-1.0, -0.5, -0.25, 0.0, 0.25, 0.5, 1.0},
		TestHeadsRad:                 []float64{-0.5, -0.25, 0.0, 0.25, 0.5},
		PathPointSeparationM:         0.05,
		HeuristicRemainingCostWeight: 1.0,
		HeuristicAlignmentCostWeight: 1.0,
		TargetToleranceM:             0.3,
		MaxPathLengthM:               3.0,
		MinPathLengthM:               0.5,
	}
}

// PathPlanner plans minimum-cost paths through a cost map with an A* search
// over a tree of path fans.
type PathPlanner struct {
	params PlannerParams
	logger logging.Logger
}

// NewPathPlanner creates a planner with the given tuning.
func NewPathPlanner(params PlannerParams, logger logging.Logger) *PathPlanner {
	return &PathPlanner{params: params, logger: logger}
}

// PathCost is the cost of a planner node.
type PathCost struct {
	// RawCost is the accumulated cost-map cost along all paths from the
	// root.
	RawCost float64 `json:"raw_cost"`

	// Heuristic estimates the remaining cost to the target.
	Heuristic float64 `json:"heuristic"`
}

// Total is the heap ordering key.
func (c PathCost) Total() float64 { return c.RawCost + c.Heuristic }

// Node is one explored path in the search tree. The root (the start pose)
// has id 0 and no path; it is never stored.
type Node struct {
	ID       int      `json:"id"`
	ParentID int      `json:"parent_id"`
	Depth    int      `json:"depth"`
	Path     *Path    `json:"path"`
	Cost     PathCost `json:"cost"`
}

// PlanDirect plans towards the target with at most numPaths concatenated
// paths, deriving each path's length from the straight-line distance. The
// search stops early, with fewer paths, once a path ends within tolerance of
// the target.
//
// On ErrBestPathNotAtTarget the returned chain is the best partial one and is
// still usable by the caller.
func (p *PathPlanner) PlanDirect(
	cm *costmap.Map,
	startPose, targetPose NavPose,
	numPaths int,
) ([]*Path, *Report, error) {
	totalDistM := targetPose.PositionM.Sub(startPose.PositionM).Norm()
	return p.plan(cm, startPose, targetPose, totalDistM/float64(numPaths), numPaths)
}

// PlanIndirect plans towards the target with paths of the given length,
// without limiting how many are chained.
func (p *PathPlanner) PlanIndirect(
	cm *costmap.Map,
	startPose, targetPose NavPose,
	pathLengthM float64,
) ([]*Path, *Report, error) {
	return p.plan(cm, startPose, targetPose, pathLengthM, 0)
}

// nodeHeap is a min-heap of nodes by total cost.
type nodeHeap []*Node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].Cost.Total() < h[j].Cost.Total() }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*Node)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (p *PathPlanner) plan(
	cm *costmap.Map,
	startPose, targetPose NavPose,
	pathLengthM float64,
	numPaths int,
) ([]*Path, *Report, error) {
	if _, ok := cm.Index(startPose.PositionM); !ok {
		return nil, nil, errors.Wrapf(ErrPointOutsideMap, "start pose %v", startPose.PositionM)
	}
	if _, ok := cm.Index(targetPose.PositionM); !ok {
		return nil, nil, errors.Wrapf(ErrPointOutsideMap, "target pose %v", targetPose.PositionM)
	}

	pathLengthM = clamp(pathLengthM, p.params.MinPathLengthM, p.params.MaxPathLengthM)

	report := newReport(targetPose)
	openSet := &nodeHeap{}
	heap.Init(openSet)
	visited := map[int]*Node{}
	numNodes := 1

	push := func(parent *Node, path *Path) {
		cost, ok := p.pathCost(cm, path, targetPose, parent)
		if !ok {
			// Untraversable fan paths are silently discarded.
			return
		}
		node := &Node{ID: numNodes, Path: path, Cost: cost}
		if parent != nil {
			node.ParentID = parent.ID
			node.Depth = parent.Depth + 1
		}
		heap.Push(openSet, node)
		report.addNode(node)
		numNodes++
	}

	// Seed the search with the fan from the start pose.
	for _, path := range p.pathFan(startPose, pathLengthM) {
		push(nil, path)
	}

	var goalNode *Node
	for openSet.Len() > 0 {
		minNode := heap.Pop(openSet).(*Node)
		visited[minNode.ID] = minNode

		if targetPose.PositionM.Sub(minNode.Path.EndM()).Norm() <= p.params.TargetToleranceM {
			goalNode = minNode
			break
		}

		// Don't extend past the requested chain length on direct plans.
		if numPaths > 0 && minNode.Depth >= numPaths-1 {
			continue
		}

		endPose := NavPoseFromPathEnd(minNode.Path)
		for _, path := range p.pathFan(endPose, pathLengthM) {
			push(minNode, path)
		}
	}

	// Pick the node to trace back from: the goal if reached, otherwise the
	// lowest-total visited node.
	targetReached := goalNode != nil
	if goalNode == nil {
		for _, node := range visited {
			if goalNode == nil || node.Cost.Total() < goalNode.Cost.Total() {
				goalNode = node
			}
		}
		if goalNode == nil {
			return nil, report, ErrNoPathToTarget
		}
	}

	paths := p.traceBack(goalNode, visited)
	report.finish(paths)

	if !targetReached {
		p.logger.Warnf("couldn't get within %0.2f m of target, choosing best fit instead", p.params.TargetToleranceM)
		return paths, report, ErrBestPathNotAtTarget
	}
	p.logger.Debugf("target reached after testing %d paths", report.NumTestedPaths)
	return paths, report, nil
}

// traceBack follows parent links from the given node to the root and returns
// the chain in driving order. The back-traced list, which starts at the given
// node, is first cut to begin at the child of the lowest-total ancestor: the
// paths traced before that child, nearest the given node, are dropped, since
// the search sometimes overestimates early.
func (p *PathPlanner) traceBack(node *Node, visited map[int]*Node) []*Path {
	reversed := []*Path{node.Path}

	lowestCostIdx := 0
	lowestCost := math.MaxFloat64
	for node.ParentID != 0 {
		node = visited[node.ParentID]
		if node.Cost.Total() < lowestCost {
			lowestCost = node.Cost.Total()
			lowestCostIdx = len(reversed)
		}
		reversed = append(reversed, node.Path)
	}

	if lowestCostIdx != 0 {
		reversed = reversed[lowestCostIdx-1:]
	}

	paths := make([]*Path, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		paths = append(paths, reversed[i])
	}
	return paths
}

// pathFan builds the candidate continuations from a pose: the cartesian
// product of the test headings and test curvatures, each integrated for the
// path length.
func (p *PathPlanner) pathFan(startPose NavPose, pathLengthM float64) []*Path {
	fan := make([]*Path, 0, len(p.params.TestHeadsRad)*len(p.params.TestCurvsM))
	for _, headRad := range p.params.TestHeadsRad {
		pose := spatialmath.NewPose2D(startPose.PositionM, startPose.HeadingRad+headRad)
		for _, curvM := range p.params.TestCurvsM {
			spec := tc.PathSpec{AckSeq: &tc.AckSeq{
				SeparationM: p.params.PathPointSeparationM,
				Seq:         []float64{curvM, pathLengthM},
			}}
			path, err := FromPathSpec(spec, pose)
			if err != nil {
				continue
			}
			fan = append(fan, path)
		}
	}
	return fan
}

// pathCost computes the cost of a candidate path, or reports it
// untraversable.
func (p *PathPlanner) pathCost(
	cm *costmap.Map,
	path *Path,
	targetPose NavPose,
	parent *Node,
) (PathCost, bool) {
	value, err := cm.GetPathCost(path.PointsM())
	if err != nil {
		return PathCost{}, false
	}
	rawCost, ok := value.CostValue()
	if !ok || value.IsUnsafe() {
		return PathCost{}, false
	}

	endPose := NavPoseFromPathEnd(path)
	if _, ok := cm.Index(endPose.PositionM); !ok {
		return PathCost{}, false
	}

	heuristic := p.heuristic(cm, path.StartM(), endPose, targetPose, rawCost/path.LengthM())

	cost := PathCost{RawCost: rawCost, Heuristic: heuristic}
	if parent != nil {
		cost.RawCost += parent.Cost.RawCost
	}
	return cost, true
}

// heuristic estimates the cost from the end of a candidate path to the
// target:
//   - the straight-line cost-map cost to the target, falling back to the
//     candidate's own average cost per meter times the distance when the
//     straight line is untraversable;
//   - an alignment cost of 1 - cos of the angle between (target - start) and
//     (target - end), rescaled by the remaining cost so both terms share an
//     order of magnitude.
func (p *PathPlanner) heuristic(
	cm *costmap.Map,
	startPositionM r2.Point,
	endPose, targetPose NavPose,
	avgCostPerM float64,
) float64 {
	remaining := 0.0
	value, err := cm.GetCostBetweenPoints(endPose.PositionM, targetPose.PositionM)
	if cost, ok := value.CostValue(); err == nil && ok && !value.IsUnsafe() {
		remaining = cost
	} else {
		remaining = avgCostPerM * targetPose.PositionM.Sub(endPose.PositionM).Norm()
	}

	targetVec := targetPose.PositionM.Sub(startPositionM)
	lastVec := targetPose.PositionM.Sub(endPose.PositionM)
	alignment := 0.0
	if norm := targetVec.Norm() * lastVec.Norm(); norm > 0 {
		alignment = 1 - lastVec.Dot(targetVec)/norm
	}

	return remaining * (p.params.HeuristicRemainingCostWeight +
		p.params.HeuristicAlignmentCostWeight*alignment)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
