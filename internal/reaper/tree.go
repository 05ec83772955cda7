package reaper

import "github.com/milmil7/gui-reaper/internal/procinfo"

// Descendant is a transitive child of a root, with its distance from the
// root (direct children have depth 1).
type Descendant struct {
	PID   procinfo.PID
	Depth int
}

// CollectDescendants walks the parent relation of snap depth-first and
// returns every transitive child of root. The root itself is never
// included, and a root missing from the snapshot has no descendants.
//
// A PID is enqueued at most once, so a self-parented entry or a cycle in an
// inconsistent snapshot cannot make the walk run forever.
func CollectDescendants(root procinfo.PID, snap *procinfo.Snapshot) []Descendant {
	if snap == nil || !snap.Exists(root) {
		return nil
	}

	children := make(map[procinfo.PID][]procinfo.PID)
	for _, e := range snap.Entries() {
		if e.HasParent {
			children[e.Parent] = append(children[e.Parent], e.PID)
		}
	}

	visited := map[procinfo.PID]bool{root: true}
	stack := []Descendant{{PID: root, Depth: 0}}
	var out []Descendant

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range children[node.PID] {
			if visited[child] {
				continue
			}
			visited[child] = true
			d := Descendant{PID: child, Depth: node.Depth + 1}
			out = append(out, d)
			stack = append(stack, d)
		}
	}
	return out
}
