package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/roomcraft/pkg/kernel"
)

func mustBox(t *testing.T, k *SdfxKernel, w, h, d float64) kernel.Solid {
	t.Helper()
	s, err := k.Box(w, h, d)
	if err != nil {
		t.Fatalf("Box(%g,%g,%g): %v", w, h, d, err)
	}
	return s
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestBoxMesh(t *testing.T) {
	k := New(0)
	if k.Cells() != DefaultMeshCells {
		t.Fatalf("Cells() = %d, want %d", k.Cells(), DefaultMeshCells)
	}
	mesh, err := k.ToMesh(mustBox(t, k, 1, 1, 1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() || mesh.TriangleCount() == 0 {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3", len(mesh.Indices))
	}

	// Marching cubes rounds edges inward by at most one cell.
	tol := 1.5 / float64(DefaultMeshCells)
	min, max := mesh.Bounds()
	for i := 0; i < 3; i++ {
		if !near(float64(min[i]), -0.5, tol) || !near(float64(max[i]), 0.5, tol) {
			t.Errorf("axis %d bounds = [%f, %f], want ~[-0.5, 0.5]", i, min[i], max[i])
		}
	}
}

func TestBoxIsCentered(t *testing.T) {
	k := New(16)
	min, max := mustBox(t, k, 4, 2.5, 0.15).BoundingBox()
	want := [3]float64{2, 1.25, 0.075}
	for i := 0; i < 3; i++ {
		if !near(min[i], -want[i], 1e-9) || !near(max[i], want[i], 1e-9) {
			t.Errorf("axis %d bounds = [%f, %f], want ±%f", i, min[i], max[i], want[i])
		}
	}
}

func TestDegenerateBox(t *testing.T) {
	k := New(16)
	for _, dims := range [][3]float64{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}} {
		if _, err := k.Box(dims[0], dims[1], dims[2]); !errors.Is(err, kernel.ErrDegenerate) {
			t.Errorf("Box(%v) error = %v, want ErrDegenerate", dims, err)
		}
	}
}

func TestTranslate(t *testing.T) {
	k := New(16)
	moved := k.Translate(mustBox(t, k, 10, 10, 10), 100, 200, 300)
	min, max := moved.BoundingBox()

	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}
	for i := 0; i < 3; i++ {
		if !near(min[i], expectMin[i], tol) {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if !near(max[i], expectMax[i], tol) {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotateRadians(t *testing.T) {
	k := New(16)
	// A wall running along X turned a quarter around Y runs along Z.
	rotated := k.Rotate(mustBox(t, k, 4, 2.5, 0.15), 0, math.Pi/2, 0)
	min, max := rotated.BoundingBox()

	const tol = 0.05
	if x := max[0] - min[0]; !near(x, 0.15, tol) {
		t.Errorf("rotated X extent = %f, expected ~0.15", x)
	}
	if z := max[2] - min[2]; !near(z, 4, tol) {
		t.Errorf("rotated Z extent = %f, expected ~4", z)
	}
}

func TestUnion(t *testing.T) {
	k := New(16)
	a := mustBox(t, k, 1, 1, 1)
	b := k.Translate(mustBox(t, k, 1, 1, 1), 2, 0, 0)
	u := k.Union(a, b)
	min, max := u.BoundingBox()
	if !near(min[0], -0.5, 1e-6) || !near(max[0], 2.5, 1e-6) {
		t.Errorf("union X bounds = [%f, %f], want [-0.5, 2.5]", min[0], max[0])
	}
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestThinWallMeshes(t *testing.T) {
	k := New(0)
	wall := mustBox(t, k, 6, 2.6, 0.15)
	if got := k.MeshCells(wall); got <= DefaultMeshCells {
		t.Fatalf("MeshCells = %d, want more than %d for a 0.15 wall", got, DefaultMeshCells)
	}
	mesh, err := k.ToMesh(wall)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	tol := 6.0 / float64(k.MeshCells(wall))
	min, max := mesh.Bounds()
	if !near(float64(min[2]), -0.075, tol) || !near(float64(max[2]), 0.075, tol) {
		t.Errorf("thickness bounds = [%f, %f], want ~±0.075", min[2], max[2])
	}
}

func TestThinFeatureSurvivesUnion(t *testing.T) {
	k := New(0)
	back := k.Translate(mustBox(t, k, 6, 2.6, 0.15), 0, 1.3, -2)
	side := k.Translate(k.Rotate(mustBox(t, k, 4, 2.6, 0.15), 0, math.Pi/2, 0), 3, 1.3, 0)
	shell := k.Union(back, side)

	if got, want := k.MeshCells(shell), k.MeshCells(back); got < want {
		t.Errorf("union MeshCells = %d, want at least %d", got, want)
	}
	if _, err := k.ToMesh(shell); err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
}

func TestMeshCellsIsCapped(t *testing.T) {
	k := New(0)
	sliver := mustBox(t, k, 100, 1, 0.001)
	if got := k.MeshCells(sliver); got != MaxMeshCells {
		t.Errorf("MeshCells = %d, want %d", got, MaxMeshCells)
	}
}
