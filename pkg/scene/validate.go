package scene

import "fmt"

// ValidationSeverity indicates whether a validation finding breaks a graph
// invariant or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // invariant broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// WallCount is the number of walls in the room shell.
const WallCount = 4

// Validate runs every structural check on the graph and returns the
// findings. An empty slice means the graph is consistent. Validate never
// mutates the graph.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateAcyclic(g)...)
	errs = append(errs, validateLinks(g)...)
	errs = append(errs, validateReachable(g)...)
	errs = append(errs, validateShell(g)...)
	errs = append(errs, validateGeometry(g)...)
	return errs
}

// Errors filters findings down to SeverityError.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// validateAcyclic checks for cycles with a 3-colour DFS from Root.
func validateAcyclic(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is its own ancestor", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		n, ok := g.nodes[id]
		if !ok {
			color[id] = black
			return false
		}
		for _, cid := range n.Children {
			if visit(cid) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range g.nodes {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateLinks checks that child references exist, that every non-root
// node has exactly one owning parent, and that Parent back-references agree
// with the owners' child lists.
func validateLinks(g *Graph) []ValidationError {
	var errs []ValidationError
	owners := make(map[NodeID][]NodeID)

	for _, n := range g.nodes {
		for _, cid := range n.Children {
			if _, ok := g.nodes[cid]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", cid.Short()),
					Severity: SeverityError,
				})
				continue
			}
			owners[cid] = append(owners[cid], n.ID)
		}
	}

	for id, n := range g.nodes {
		if id == g.root {
			if !n.Parent.IsZero() {
				errs = append(errs, ValidationError{NodeID: id, Message: "root has a parent", Severity: SeverityError})
			}
			continue
		}
		own := owners[id]
		switch {
		case len(own) == 0:
			errs = append(errs, ValidationError{NodeID: id, Message: "node has no owning parent", Severity: SeverityError})
		case len(own) > 1:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node owned by %d parents", len(own)),
				Severity: SeverityError,
			})
		case own[0] != n.Parent:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("parent link %s disagrees with owner %s", n.Parent.Short(), own[0].Short()),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateReachable checks that every node in the arena hangs below Root.
func validateReachable(g *Graph) []ValidationError {
	seen := make(map[NodeID]bool, len(g.nodes))
	stack := []NodeID{g.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := g.nodes[id]
		// Shared children and cycles are reported by validateLinks and
		// validateAcyclic; each node is expanded once.
		if n == nil || seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, n.Children...)
	}

	var errs []ValidationError
	for id := range g.nodes {
		if !seen[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "node is not reachable from root",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateShell checks the fixed layout: Root owns exactly "walls" and
// "furniture", the walls group holds WallCount walls, and kinds sit in the
// right group.
func validateShell(g *Graph) []ValidationError {
	var errs []ValidationError
	root := g.Root()
	if root == nil {
		return []ValidationError{{Message: "graph has no root", Severity: SeverityError}}
	}
	if len(root.Children) != 2 || root.Children[0] != g.walls || root.Children[1] != g.furniture {
		errs = append(errs, ValidationError{
			NodeID:   root.ID,
			Message:  fmt.Sprintf("root must own exactly %q and %q, has %d children", WallsName, FurnitureName, len(root.Children)),
			Severity: SeverityError,
		})
	}

	walls := g.Walls()
	if len(walls) != WallCount {
		errs = append(errs, ValidationError{
			NodeID:   g.walls,
			Message:  fmt.Sprintf("room shell has %d walls, want %d", len(walls), WallCount),
			Severity: SeverityError,
		})
	}
	for _, w := range walls {
		if w.Kind != KindWall {
			errs = append(errs, ValidationError{
				NodeID:   w.ID,
				Message:  fmt.Sprintf("%s node %q under %q", w.Kind, w.Name, WallsName),
				Severity: SeverityError,
			})
		}
	}
	for _, f := range g.Furniture() {
		if f.Kind != KindFurniture {
			errs = append(errs, ValidationError{
				NodeID:   f.ID,
				Message:  fmt.Sprintf("%s node %q under %q", f.Kind, f.Name, FurnitureName),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateGeometry checks box dimensions (errors) and degenerate scales
// (warnings).
func validateGeometry(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.nodes {
		if box, ok := n.Geometry.(BoxGeometry); ok {
			if box.Width <= 0 || box.Height <= 0 || box.Depth <= 0 {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("box %gx%gx%g must have positive dimensions", box.Width, box.Height, box.Depth),
					Severity: SeverityError,
				})
			}
		}
		s := n.Transform.Scale
		if s.X == 0 || s.Y == 0 || s.Z == 0 {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("scale %s collapses the node", s),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
