package scene

import (
	"fmt"
	"iter"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Names of the fixed nodes under Root.
const (
	RootName      = "root"
	WallsName     = "walls"
	FurnitureName = "furniture"
)

// Graph is the scene graph arena. The zero value is not usable; call New.
type Graph struct {
	nodes     map[NodeID]*Node
	root      NodeID
	walls     NodeID
	furniture NodeID
	room      Room
	version   uint64
	disposed  bool
}

// New builds a graph holding the default room shell for the given room:
// Root, the "walls" and "furniture" groups, and four walls.
func New(room Room) *Graph {
	g := &Graph{nodes: make(map[NodeID]*Node)}

	root := NewNode(RootName, KindRoot, nil)
	g.nodes[root.ID] = root
	g.root = root.ID

	walls := NewNode(WallsName, KindGroup, nil)
	furn := NewNode(FurnitureName, KindGroup, nil)
	g.attach(root, walls)
	g.attach(root, furn)
	g.walls = walls.ID
	g.furniture = furn.ID

	g.room = room
	for _, spec := range room.wallSpecs() {
		w := NewNode(spec.name, KindWall, spec.geom)
		w.Transform = spec.transform
		w.CastShadow = true
		w.ReceiveShadow = true
		g.attach(walls, w)
	}
	return g
}

// attach links a registered-or-new node under parent without checks.
func (g *Graph) attach(parent, n *Node) {
	n.Parent = parent.ID
	parent.Children = append(parent.Children, n.ID)
	g.nodes[n.ID] = n
	g.version++
}

// Root returns the root node.
func (g *Graph) Root() *Node { return g.nodes[g.root] }

// WallsGroup returns the "walls" group node.
func (g *Graph) WallsGroup() *Node { return g.nodes[g.walls] }

// FurnitureGroup returns the "furniture" group node.
func (g *Graph) FurnitureGroup() *Node { return g.nodes[g.furniture] }

// Room returns the room dimensions the walls were last laid out with.
func (g *Graph) Room() Room { return g.room }

// Version increments on every mutation. Readers use it to invalidate caches.
func (g *Graph) Version() uint64 { return g.version }

// Get returns the node with the given ID, or nil.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// NodeCount returns the total number of nodes including Root and the groups.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Children returns the child nodes of n in order.
func (g *Graph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Walls returns the wall nodes in insertion order.
func (g *Graph) Walls() []*Node {
	return g.Children(g.WallsGroup())
}

// Furniture returns the top-level furniture nodes in insertion order.
func (g *Graph) Furniture() []*Node {
	return g.Children(g.FurnitureGroup())
}

// Lookup returns the first top-level node (walls first, then furniture)
// with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	for _, n := range append(g.Walls(), g.Furniture()...) {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// IsTopLevel reports whether id is a direct child of "walls" or "furniture".
func (g *Graph) IsTopLevel(id NodeID) bool {
	n := g.nodes[id]
	return n != nil && (n.Parent == g.walls || n.Parent == g.furniture)
}

// Dispose marks the graph as torn down. Every later mutation fails with
// ErrDisposed.
func (g *Graph) Dispose() {
	g.disposed = true
}

// Disposed reports whether Dispose was called.
func (g *Graph) Disposed() bool {
	return g.disposed
}

// AddNode appends a detached, childless node as the last child of parent.
// A node with an empty ID gets a fresh one.
func (g *Graph) AddNode(parent NodeID, n *Node) error {
	if g.disposed {
		return ErrDisposed
	}
	p := g.nodes[parent]
	if p == nil {
		return fmt.Errorf("add node: parent %s: %w", parent.Short(), ErrNodeNotFound)
	}
	if n.ID.IsZero() {
		n.ID = NewNodeID()
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("add node %s: %w", n.ID.Short(), ErrDuplicateNode)
	}
	if !n.Parent.IsZero() {
		return fmt.Errorf("add node %s: %w", n.ID.Short(), ErrAttachedNode)
	}
	if len(n.Children) > 0 {
		return fmt.Errorf("add node %s: has children, use AddSubtree: %w", n.ID.Short(), ErrInvalidSubtree)
	}
	g.attach(p, n)
	return nil
}

// AddSubtree inserts a detached subtree under parent in one step. Either
// every node is inserted or none is.
func (g *Graph) AddSubtree(parent NodeID, s *Subtree) (NodeID, error) {
	if g.disposed {
		return ZeroID, ErrDisposed
	}
	p := g.nodes[parent]
	if p == nil {
		return ZeroID, fmt.Errorf("add subtree: parent %s: %w", parent.Short(), ErrNodeNotFound)
	}
	if s == nil || s.root == nil {
		return ZeroID, fmt.Errorf("add subtree: empty: %w", ErrInvalidSubtree)
	}
	for _, n := range s.nodes {
		if _, exists := g.nodes[n.ID]; exists {
			return ZeroID, fmt.Errorf("add subtree: node %s: %w", n.ID.Short(), ErrDuplicateNode)
		}
	}

	g.attach(p, s.root)
	for _, n := range s.nodes[1:] {
		g.nodes[n.ID] = n
	}
	root := s.root.ID
	// The subtree now belongs to the graph.
	s.root, s.nodes = nil, nil
	return root, nil
}

// RemoveNode detaches a node from its parent and releases its whole subtree.
// Root, the two groups, and walls cannot be removed.
func (g *Graph) RemoveNode(id NodeID) error {
	if g.disposed {
		return ErrDisposed
	}
	n := g.nodes[id]
	if n == nil {
		return fmt.Errorf("remove node %s: %w", id.Short(), ErrNodeNotFound)
	}
	if id == g.root || id == g.walls || id == g.furniture || n.Kind == KindWall {
		return fmt.Errorf("remove %s %q: %w", n.Kind, n.Name, ErrProtectedNode)
	}
	if p := g.nodes[n.Parent]; p != nil {
		p.Children = lo.Without(p.Children, id)
	}
	g.release(n)
	g.version++
	return nil
}

// ClearFurniture removes every furniture node and returns how many
// top-level nodes were removed.
func (g *Graph) ClearFurniture() (int, error) {
	if g.disposed {
		return 0, ErrDisposed
	}
	furn := g.FurnitureGroup()
	removed := len(furn.Children)
	for _, c := range g.Children(furn) {
		g.release(c)
	}
	furn.Children = nil
	g.version++
	return removed, nil
}

// release drops n and all its descendants from the arena.
func (g *Graph) release(n *Node) {
	for _, cid := range n.Children {
		if c := g.nodes[cid]; c != nil {
			g.release(c)
		}
	}
	n.Parent = ZeroID
	delete(g.nodes, n.ID)
}

// TopLevelAncestor walks parent links from id until the parent is the
// "walls" or "furniture" group and returns that child. It fails only when
// id is not reachable from a top-level node.
func (g *Graph) TopLevelAncestor(id NodeID) (*Node, error) {
	cur := g.nodes[id]
	if cur == nil {
		return nil, fmt.Errorf("top-level ancestor of %s: %w", id.Short(), ErrNodeNotFound)
	}
	// Bound the walk by the arena size so a corrupted cycle cannot spin.
	for steps := 0; steps <= len(g.nodes); steps++ {
		if cur.Parent == g.walls || cur.Parent == g.furniture {
			return cur, nil
		}
		next := g.nodes[cur.Parent]
		if next == nil {
			break
		}
		cur = next
	}
	return nil, fmt.Errorf("top-level ancestor of %s: %w", id.Short(), ErrNotTopLevel)
}

// Traverse returns a lazy pre-order sequence over every node reachable
// from Root. Each range over the sequence starts a fresh walk.
func (g *Graph) Traverse() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		stack := []NodeID{g.root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := g.nodes[id]
			if n == nil {
				continue
			}
			if !yield(n) {
				return
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

// Descendants returns a pre-order sequence over id and everything below it.
func (g *Graph) Descendants(id NodeID) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		stack := []NodeID{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := g.nodes[cur]
			if n == nil {
				continue
			}
			if !yield(n) {
				return
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

// SetTransform replaces the local transform of a node.
func (g *Graph) SetTransform(id NodeID, t Transform) error {
	if g.disposed {
		return ErrDisposed
	}
	n := g.nodes[id]
	if n == nil {
		return fmt.Errorf("set transform %s: %w", id.Short(), ErrNodeNotFound)
	}
	n.Transform = t
	g.version++
	return nil
}

// WorldMatrix returns the product of local matrices from Root down to id.
func (g *Graph) WorldMatrix(id NodeID) mgl64.Mat4 {
	m := mgl64.Ident4()
	for n := g.nodes[id]; n != nil; n = g.nodes[n.Parent] {
		m = n.Transform.Matrix().Mul4(m)
	}
	return m
}

// SetGeometry replaces the geometry of a node.
func (g *Graph) SetGeometry(id NodeID, geom Geometry) error {
	if g.disposed {
		return ErrDisposed
	}
	n := g.nodes[id]
	if n == nil {
		return fmt.Errorf("set geometry %s: %w", id.Short(), ErrNodeNotFound)
	}
	n.Geometry = geom
	g.version++
	return nil
}
