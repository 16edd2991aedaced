package asset

import (
	"bytes"
	"fmt"
	"math"

	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
)

const positionAttr = "POSITION"

// Decoder parses asset bytes into a glTF document.
type Decoder interface {
	Decode(data []byte) (*gltf.Document, error)
}

// GLTFDecoder accepts both binary .glb and JSON .gltf content with
// embedded buffers.
type GLTFDecoder struct{}

// Decode parses data.
func (GLTFDecoder) Decode(data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}
	return doc, nil
}

// Build turns a decoded document into a detached furniture subtree. The
// root is named after the asset path and has an identity transform; every
// glTF node of the default scene becomes a group node carrying its local
// transform, and mesh nodes get bounds and shadow flags.
func Build(assetPath string, doc *gltf.Document) (*scene.Subtree, error) {
	roots := sceneRoots(doc)
	if len(roots) == 0 {
		return nil, ErrEmptyAsset
	}
	root := scene.NewNode(Name(assetPath), scene.KindFurniture, nil)
	sub := scene.NewSubtree(root)
	b := builder{doc: doc, path: assetPath, sub: sub, visiting: make(map[int]bool)}
	for _, idx := range roots {
		if err := b.add(root.ID, idx); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// sceneRoots returns the node indices of the default scene, the first scene
// when none is marked default, or every parentless node when the document
// has no scenes.
func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		i := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			i = *doc.Scene
		}
		return doc.Scenes[i].Nodes
	}
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

type builder struct {
	doc      *gltf.Document
	path     string
	sub      *scene.Subtree
	visiting map[int]bool
}

func (b *builder) add(parent scene.NodeID, idx int) error {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", idx)
	}
	if b.visiting[idx] {
		return fmt.Errorf("node %d is its own ancestor", idx)
	}
	b.visiting[idx] = true
	defer delete(b.visiting, idx)

	src := b.doc.Nodes[idx]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node-%d", idx)
	}
	n := scene.NewNode(name, scene.KindGroup, nil)
	n.Transform = nodeTransform(src)
	if src.Mesh != nil {
		geom, err := b.meshGeometry(*src.Mesh)
		if err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
		if geom != nil {
			n.Geometry = *geom
		}
		n.CastShadow = true
		n.ReceiveShadow = true
	}
	id, err := b.sub.Add(parent, n)
	if err != nil {
		return err
	}
	for _, c := range src.Children {
		if err := b.add(id, c); err != nil {
			return err
		}
	}
	return nil
}

// meshGeometry unions the POSITION accessor bounds of every primitive. It
// returns nil when no primitive declares bounds.
func (b *builder) meshGeometry(mesh int) (*scene.MeshGeometry, error) {
	if mesh < 0 || mesh >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", mesh)
	}
	lo := scene.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := lo.Scale(-1)
	found := false
	for _, prim := range b.doc.Meshes[mesh].Primitives {
		acc, ok := prim.Attributes[positionAttr]
		if !ok || acc < 0 || acc >= len(b.doc.Accessors) {
			continue
		}
		a := b.doc.Accessors[acc]
		if len(a.Min) < 3 || len(a.Max) < 3 {
			continue
		}
		lo = scene.Vec3{X: math.Min(lo.X, a.Min[0]), Y: math.Min(lo.Y, a.Min[1]), Z: math.Min(lo.Z, a.Min[2])}
		hi = scene.Vec3{X: math.Max(hi.X, a.Max[0]), Y: math.Max(hi.Y, a.Max[1]), Z: math.Max(hi.Z, a.Max[2])}
		found = true
	}
	if !found {
		return nil, nil
	}
	return &scene.MeshGeometry{Asset: b.path, Mesh: mesh, Min: lo, Max: hi}, nil
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeTransform converts a glTF node's TRS or matrix into a Transform.
// Zero-valued rotation and scale are treated as unset.
func nodeTransform(n *gltf.Node) scene.Transform {
	if n.Matrix != identityMatrix && n.Matrix != [16]float64{} {
		return scene.Decompose(mgl64.Mat4(n.Matrix))
	}
	t := scene.Identity()
	t.Position = scene.Vec3{X: n.Translation[0], Y: n.Translation[1], Z: n.Translation[2]}
	if q := n.Rotation; q != [4]float64{} {
		t.Rotation = scene.FromQuat(mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}})
	}
	if s := n.Scale; s != [3]float64{} {
		t.Scale = scene.Vec3{X: s[0], Y: s[1], Z: s[2]}
	}
	return t
}
