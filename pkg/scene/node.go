package scene

import "github.com/google/uuid"

// NodeID is a stable identifier for a node in the arena.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// NewNodeID returns a fresh random node ID.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 8 characters of the ID for log output.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func (id NodeID) String() string {
	return string(id)
}

// Kind enumerates the types of nodes in the scene graph.
type Kind int

const (
	KindRoot      Kind = iota // the single root
	KindGroup                 // grouping node ("walls", "furniture", asset sub-nodes)
	KindWall                  // a wall box
	KindFurniture             // top-level furniture node
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindWall:
		return "wall"
	case KindFurniture:
		return "furniture"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the scene graph. Children are owned
// exclusively by the node; Parent is a non-owning back-reference. Both are
// maintained by Graph and must not be edited directly.
type Node struct {
	ID            NodeID    `json:"id"`
	Name          string    `json:"name"`
	Kind          Kind      `json:"kind"`
	Transform     Transform `json:"transform"`
	Geometry      Geometry  `json:"-"`
	CastShadow    bool      `json:"cast_shadow,omitempty"`
	ReceiveShadow bool      `json:"receive_shadow,omitempty"`
	Parent        NodeID    `json:"parent,omitempty"`
	Children      []NodeID  `json:"children,omitempty"`
}

// NewNode returns a detached node with an identity transform and a fresh ID.
func NewNode(name string, kind Kind, geom Geometry) *Node {
	return &Node{
		ID:        NewNodeID(),
		Name:      name,
		Kind:      kind,
		Transform: Identity(),
		Geometry:  geom,
	}
}

// Geometry describes the shape carried by a node. Implementations are
// restricted to this package.
type Geometry interface {
	// Bounds returns the node-local axis-aligned bounding box.
	Bounds() (min, max Vec3)
	geometry()
}

// BoxGeometry is an axis-aligned box centered on the node origin.
// Walls and placeholder furniture use it.
type BoxGeometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

func (BoxGeometry) geometry() {}

// Bounds returns the half-extents around the origin.
func (b BoxGeometry) Bounds() (min, max Vec3) {
	half := Vec3{b.Width / 2, b.Height / 2, b.Depth / 2}
	return half.Scale(-1), half
}

// MeshGeometry references one mesh of a loaded asset. Only its bounds are
// kept; the viewport host resolves the actual triangles from Asset.
type MeshGeometry struct {
	Asset string `json:"asset"`
	Mesh  int    `json:"mesh"`
	Min   Vec3   `json:"min"`
	Max   Vec3   `json:"max"`
}

func (MeshGeometry) geometry() {}

// Bounds returns the accessor bounds of the mesh.
func (m MeshGeometry) Bounds() (min, max Vec3) {
	return m.Min, m.Max
}
