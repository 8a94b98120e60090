package nav

import "github.com/google/uuid"

// Report records a full planner search for offline inspection. Nodes encode
// the search tree through their parent ids, with 0 the implicit root at the
// start pose.
type Report struct {
	// ID uniquely names this search.
	ID string `json:"id"`

	// NumTestedPaths counts the traversable candidate paths, one per entry
	// of Nodes; candidates discarded as untraversable are not counted.
	NumTestedPaths int `json:"num_tested_paths"`

	// Target is the pose the search aimed for.
	Target NavPose `json:"target"`

	// Nodes is every traversable node explored, in creation order.
	Nodes []*Node `json:"nodes"`

	// Result is the chain of paths returned to the caller, nil if the
	// search produced nothing.
	Result []*Path `json:"result"`
}

func newReport(target NavPose) *Report {
	return &Report{
		ID:     uuid.NewString(),
		Target: target,
	}
}

func (r *Report) addNode(node *Node) {
	r.Nodes = append(r.Nodes, node)
	r.NumTestedPaths++
}

func (r *Report) finish(result []*Path) {
	r.Result = result
}

// ChildrenOf returns the ids of the nodes fanned out from the given node id,
// reconstructing one level of the search tree.
func (r *Report) ChildrenOf(id int) []int {
	var children []int
	for _, node := range r.Nodes {
		if node.ParentID == id && node.ID != id {
			children = append(children, node.ID)
		}
	}
	return children
}
