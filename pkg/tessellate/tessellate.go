// Package tessellate walks a scene graph and produces the meshes the
// viewport draws each frame. One part is produced per node that carries
// geometry; the tessellator never mutates the graph.
package tessellate

import (
	"fmt"

	"github.com/chazu/roomcraft/pkg/kernel"
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Part is one drawable node.
type Part struct {
	*kernel.Mesh
	NodeID scene.NodeID `json:"nodeId"`
	Kind   string       `json:"kind"`
	// World is the column-major node-to-world matrix.
	World [16]float32 `json:"world"`
	// Selected is set on every part under the selected top-level node.
	Selected      bool   `json:"selected"`
	CastShadow    bool   `json:"castShadow"`
	ReceiveShadow bool   `json:"receiveShadow"`
	Asset         string `json:"asset,omitempty"`
	MeshIndex     int    `json:"meshIndex,omitempty"`
}

// boxKey identifies a cached box mesh. Mesh proxies are keyed by their
// bounds so two parts with the same extent but a different center do not
// share a mesh.
type boxKey struct {
	size, center scene.Vec3
}

// Tessellator caches kernel meshes across frames.
type Tessellator struct {
	k   kernel.Kernel
	log *zap.Logger

	boxes map[boxKey]*kernel.Mesh

	version  uint64
	selected scene.NodeID
	frame    []Part
	valid    bool
}

// New returns a tessellator using k.
func New(k kernel.Kernel, logger *zap.Logger) *Tessellator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tessellator{k: k, log: logger, boxes: make(map[boxKey]*kernel.Mesh)}
}

// CachedMeshes returns the number of distinct box meshes built so far.
func (t *Tessellator) CachedMeshes() int { return len(t.boxes) }

// Frame returns the parts to draw. The previous frame is returned as-is
// when neither the graph version nor the selection changed.
func (t *Tessellator) Frame(g *scene.Graph, selected scene.NodeID) ([]Part, error) {
	if g == nil || g.Disposed() {
		return nil, nil
	}
	if t.valid && t.version == g.Version() && t.selected == selected {
		return t.frame, nil
	}
	parts, err := t.build(g, selected)
	if err != nil {
		t.valid = false
		return nil, err
	}
	t.frame, t.version, t.selected, t.valid = parts, g.Version(), selected, true
	return parts, nil
}

// Invalidate forces the next Frame to rebuild.
func (t *Tessellator) Invalidate() { t.valid = false }

func (t *Tessellator) build(g *scene.Graph, selected scene.NodeID) ([]Part, error) {
	var selectedSet map[scene.NodeID]bool
	if !selected.IsZero() && g.Get(selected) != nil {
		selectedSet = make(map[scene.NodeID]bool)
		for n := range g.Descendants(selected) {
			selectedSet[n.ID] = true
		}
	}

	var parts []Part
	for n := range g.Traverse() {
		if n.Geometry == nil {
			continue
		}
		mesh, err := t.meshFor(n)
		if err != nil {
			return nil, fmt.Errorf("tessellate: node %s: %w", n.ID.Short(), err)
		}
		p := Part{
			Mesh:          mesh,
			NodeID:        n.ID,
			Kind:          n.Kind.String(),
			World:         toFloat32(g.WorldMatrix(n.ID)),
			Selected:      selectedSet[n.ID],
			CastShadow:    n.CastShadow,
			ReceiveShadow: n.ReceiveShadow,
		}
		if mg, ok := n.Geometry.(scene.MeshGeometry); ok {
			p.Asset, p.MeshIndex = mg.Asset, mg.Mesh
		}
		parts = append(parts, p)
	}
	t.log.Debug("frame built",
		zap.Int("parts", len(parts)),
		zap.Int("cached_meshes", len(t.boxes)),
		zap.Uint64("version", g.Version()))
	return parts, nil
}

// meshFor returns a local-space mesh for the node. Loaded meshes are drawn
// as proxy boxes over their bounds.
func (t *Tessellator) meshFor(n *scene.Node) (*kernel.Mesh, error) {
	bmin, bmax := n.Geometry.Bounds()
	key := boxKey{size: bmax.Sub(bmin), center: bmin.Add(bmax).Scale(0.5)}
	if _, ok := n.Geometry.(scene.BoxGeometry); ok {
		key.center = scene.Vec3{}
	}
	base, ok := t.boxes[key]
	if !ok {
		solid, err := t.k.Box(key.size.X, key.size.Y, key.size.Z)
		if err != nil {
			return nil, err
		}
		if !key.center.IsZero() {
			solid = t.k.Translate(solid, key.center.X, key.center.Y, key.center.Z)
		}
		base, err = t.k.ToMesh(solid)
		if err != nil {
			return nil, err
		}
		t.boxes[key] = base
	}
	return base.Clone(partName(n)), nil
}

func partName(n *scene.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}

func toFloat32(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Shell returns the walls unioned into a single world-space mesh, for
// exporting the room outline. Scale is folded into the box size since
// walls are axis-aligned boxes in their local frame.
func Shell(g *scene.Graph, k kernel.Kernel) (*kernel.Mesh, error) {
	walls := lo.Filter(g.Walls(), func(n *scene.Node, _ int) bool {
		_, ok := n.Geometry.(scene.BoxGeometry)
		return ok
	})
	if len(walls) == 0 {
		return nil, fmt.Errorf("tessellate: room has no walls: %w", kernel.ErrDegenerate)
	}
	var shell kernel.Solid
	for _, w := range walls {
		box := w.Geometry.(scene.BoxGeometry)
		tr := w.Transform
		solid, err := k.Box(box.Width*tr.Scale.X, box.Height*tr.Scale.Y, box.Depth*tr.Scale.Z)
		if err != nil {
			return nil, fmt.Errorf("tessellate: wall %s: %w", w.Name, err)
		}
		solid = k.Rotate(solid, tr.Rotation.X, tr.Rotation.Y, tr.Rotation.Z)
		solid = k.Translate(solid, tr.Position.X, tr.Position.Y, tr.Position.Z)
		if shell == nil {
			shell = solid
		} else {
			shell = k.Union(shell, solid)
		}
	}
	mesh, err := k.ToMesh(shell)
	if err != nil {
		return nil, err
	}
	mesh.PartName = "room-shell"
	return mesh, nil
}
