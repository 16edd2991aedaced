package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/roomcraft/pkg/kernel"
	"github.com/chazu/roomcraft/pkg/kernel/sdfx"
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/tessellate"
)

// countingKernel meshes every box as a single triangle spanning its
// bounds and counts how often it is asked to.
type countingKernel struct {
	boxes, meshes int
}

type stubSolid struct{ min, max [3]float64 }

func (s stubSolid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

func (k *countingKernel) Box(w, h, d float64) (kernel.Solid, error) {
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, kernel.ErrDegenerate
	}
	k.boxes++
	return stubSolid{[3]float64{-w / 2, -h / 2, -d / 2}, [3]float64{w / 2, h / 2, d / 2}}, nil
}

func (k *countingKernel) Union(a, _ kernel.Solid) kernel.Solid { return a }

func (k *countingKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	b := s.(stubSolid)
	off := [3]float64{x, y, z}
	for i := range off {
		b.min[i] += off[i]
		b.max[i] += off[i]
	}
	return b
}

func (k *countingKernel) Rotate(s kernel.Solid, _, _, _ float64) kernel.Solid { return s }

func (k *countingKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	k.meshes++
	b := s.(stubSolid)
	return &kernel.Mesh{
		Vertices: []float32{
			float32(b.min[0]), float32(b.min[1]), float32(b.min[2]),
			float32(b.max[0]), float32(b.min[1]), float32(b.min[2]),
			float32(b.max[0]), float32(b.max[1]), float32(b.max[2]),
		},
		Normals: []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices: []uint32{0, 1, 2},
	}, nil
}

func addChair(t *testing.T, g *scene.Graph, pos scene.Vec3) *scene.Node {
	t.Helper()
	root := scene.NewNode("chair.glb", scene.KindFurniture, nil)
	root.Transform.Position = pos
	sub := scene.NewSubtree(root)
	seat := scene.NewNode("seat", scene.KindGroup, scene.MeshGeometry{
		Asset: "/models/chair.glb",
		Min:   scene.Vec3{X: -0.25, Y: 0, Z: -0.25},
		Max:   scene.Vec3{X: 0.25, Y: 0.5, Z: 0.25},
	})
	seat.CastShadow, seat.ReceiveShadow = true, true
	if _, err := sub.Add(root.ID, seat); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddSubtree(g.FurnitureGroup().ID, sub); err != nil {
		t.Fatal(err)
	}
	return root
}

func partsByName(parts []tessellate.Part) map[string]tessellate.Part {
	out := make(map[string]tessellate.Part, len(parts))
	for _, p := range parts {
		out[p.PartName] = p
	}
	return out
}

func TestFrameWalls(t *testing.T) {
	k := &countingKernel{}
	g := scene.New(scene.DefaultRoom())

	parts, err := tessellate.New(k, nil).Frame(g, "")
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if len(parts) != 4 {
		t.Fatalf("expected 4 wall parts, got %d", len(parts))
	}
	// Back and front share a size, as do left and right.
	if k.boxes != 2 {
		t.Errorf("kernel built %d boxes, want 2", k.boxes)
	}
	for _, p := range parts {
		if p.Kind != scene.KindWall.String() {
			t.Errorf("part %s kind = %s", p.PartName, p.Kind)
		}
		if p.Selected {
			t.Errorf("part %s selected with empty selection", p.PartName)
		}
	}

	back := partsByName(parts)[scene.WallBack]
	// Column-major: translation sits in elements 12..14.
	want := [3]float32{0, 1.3, -2}
	for i := range want {
		if math.Abs(float64(back.World[12+i]-want[i])) > 1e-6 {
			t.Errorf("back wall translation[%d] = %v, want %v", i, back.World[12+i], want[i])
		}
	}
}

func TestFrameMeshProxyAndSelection(t *testing.T) {
	k := &countingKernel{}
	g := scene.New(scene.DefaultRoom())
	chair := addChair(t, g, scene.Vec3{X: 1, Y: 0, Z: 0.5})
	other := addChair(t, g, scene.Vec3{X: -1})

	parts, err := tessellate.New(k, nil).Frame(g, chair.ID)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if len(parts) != 6 {
		t.Fatalf("expected 6 parts, got %d", len(parts))
	}

	var seats []tessellate.Part
	for _, p := range parts {
		if p.PartName == "seat" {
			seats = append(seats, p)
		}
	}
	if len(seats) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(seats))
	}
	selected := 0
	for _, s := range seats {
		if s.Asset != "/models/chair.glb" || !s.CastShadow || !s.ReceiveShadow {
			t.Errorf("seat part lost mesh attributes: %+v", s)
		}
		// The proxy spans the accessor bounds, lifted off the node origin.
		min, max := s.Bounds()
		if min[1] != 0 || max[1] != 0.5 {
			t.Errorf("seat proxy Y bounds = [%v, %v], want [0, 0.5]", min[1], max[1])
		}
		if s.Selected {
			selected++
			if s.World[12] != 1 || s.World[14] != 0.5 {
				t.Errorf("selected seat world translation = %v", s.World[12:15])
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected seats = %d, want 1", selected)
	}
	_ = other
}

func TestFrameIsCachedByVersion(t *testing.T) {
	k := &countingKernel{}
	g := scene.New(scene.DefaultRoom())
	ts := tessellate.New(k, nil)

	first, err := ts.Frame(g, "")
	if err != nil {
		t.Fatal(err)
	}
	meshes := k.meshes
	again, _ := ts.Frame(g, "")
	if &first[0] != &again[0] {
		t.Error("unchanged graph rebuilt the frame")
	}

	chair := addChair(t, g, scene.Vec3{})
	parts, _ := ts.Frame(g, chair.ID)
	if len(parts) != 5 {
		t.Fatalf("expected 5 parts after insert, got %d", len(parts))
	}
	if k.meshes != meshes+1 {
		t.Errorf("kernel meshed %d new solids, want 1", k.meshes-meshes)
	}
	if ts.CachedMeshes() != 3 {
		t.Errorf("CachedMeshes() = %d, want 3", ts.CachedMeshes())
	}

	// A selection change rebuilds without new kernel work.
	parts, _ = ts.Frame(g, "")
	for _, p := range parts {
		if p.Selected {
			t.Errorf("part %s still selected", p.PartName)
		}
	}
	if k.meshes != meshes+1 {
		t.Error("selection change re-meshed")
	}
}

func TestFrameDisposedGraph(t *testing.T) {
	g := scene.New(scene.DefaultRoom())
	g.Dispose()
	parts, err := tessellate.New(&countingKernel{}, nil).Frame(g, "")
	if err != nil || parts != nil {
		t.Errorf("Frame on disposed graph = %v, %v", parts, err)
	}
}

func TestShell(t *testing.T) {
	k := sdfx.New(12)
	g := scene.New(scene.Room{Width: 2, Depth: 2, Height: 1, Thickness: 0.2})

	mesh, err := tessellate.Shell(g, k)
	if err != nil {
		t.Fatalf("Shell failed: %v", err)
	}
	if mesh.IsEmpty() || mesh.PartName != "room-shell" {
		t.Fatalf("unexpected shell mesh: %d triangles, name %q", mesh.TriangleCount(), mesh.PartName)
	}
	min, max := mesh.Bounds()
	// Side walls are 2 m long turned onto Z; end walls span X.
	const tol = 0.3
	if math.Abs(float64(max[0]-min[0])-2.2) > tol {
		t.Errorf("shell X extent = %v, want ~2.2", max[0]-min[0])
	}
	if math.Abs(float64(max[1]-min[1])-1) > tol {
		t.Errorf("shell Y extent = %v, want ~1", max[1]-min[1])
	}
}
