package scene

// Subtree is a detached hierarchy built outside the graph and inserted in
// one step by Graph.AddSubtree. It is not safe for concurrent use, but it
// may be built on a goroutine other than the graph's mutator.
type Subtree struct {
	root  *Node
	nodes []*Node // root first
	index map[NodeID]*Node
}

// NewSubtree starts a subtree at root. Root's ID is assigned if empty.
func NewSubtree(root *Node) *Subtree {
	if root.ID.IsZero() {
		root.ID = NewNodeID()
	}
	root.Parent = ZeroID
	root.Children = nil
	return &Subtree{
		root:  root,
		nodes: []*Node{root},
		index: map[NodeID]*Node{root.ID: root},
	}
}

// Root returns the subtree root.
func (s *Subtree) Root() *Node { return s.root }

// Len returns the number of nodes in the subtree.
func (s *Subtree) Len() int { return len(s.nodes) }

// Nodes returns the nodes in insertion order, root first.
func (s *Subtree) Nodes() []*Node { return s.nodes }

// Add appends n under parent, which must already belong to the subtree.
func (s *Subtree) Add(parent NodeID, n *Node) (NodeID, error) {
	p := s.index[parent]
	if p == nil {
		return ZeroID, ErrNodeNotFound
	}
	if n.ID.IsZero() {
		n.ID = NewNodeID()
	}
	if _, exists := s.index[n.ID]; exists {
		return ZeroID, ErrDuplicateNode
	}
	n.Parent = p.ID
	n.Children = nil
	p.Children = append(p.Children, n.ID)
	s.nodes = append(s.nodes, n)
	s.index[n.ID] = n
	return n.ID, nil
}
