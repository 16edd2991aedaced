// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/roomcraft/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis.
const DefaultMeshCells = 24

// MaxMeshCells caps the resolution raised for thin features.
const MaxMeshCells = 256

// featureCells is the number of cells the thinnest box must span so that
// marching cubes samples its inside.
const featureCells = 3

type sdfxSolid struct {
	s sdf.SDF3
	// thinnest box dimension the solid was built from
	feature float64
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a kernel meshing at the given resolution. cells <= 0 selects
// DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Cells returns the meshing resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

func wrap(s sdf.SDF3, feature float64) kernel.Solid {
	return &sdfxSolid{s: s, feature: feature}
}

func featureOf(s kernel.Solid) float64 {
	return s.(*sdfxSolid).feature
}

// Box creates a box centered on the origin, matching scene BoxGeometry.
func (k *SdfxKernel) Box(width, height, depth float64) (kernel.Solid, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: box %gx%gx%g", kernel.ErrDegenerate, width, height, depth)
	}
	s, err := sdf.Box3D(v3.Vec{X: width, Y: height, Z: depth}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Box3D: %w", err)
	}
	return wrap(s, math.Min(width, math.Min(height, depth))), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)), math.Min(featureOf(a), featureOf(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m), featureOf(s))
}

// Rotate applies Euler XYZ radians as Rx·Ry·Rz.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateX(x).Mul(sdf.RotateY(y)).Mul(sdf.RotateZ(z))
	return wrap(sdf.Transform3D(unwrap(s), m), featureOf(s))
}

// MeshCells returns the resolution ToMesh uses for s: the kernel's cells,
// raised so the thinnest box spans featureCells cells, capped at
// MaxMeshCells.
func (k *SdfxKernel) MeshCells(s kernel.Solid) int {
	cells := k.cells
	feature := featureOf(s)
	if feature <= 0 {
		return cells
	}
	min, max := s.BoundingBox()
	longest := math.Max(max[0]-min[0], math.Max(max[1]-min[1], max[2]-min[2]))
	need := int(math.Ceil(featureCells * longest / feature))
	if need > cells {
		cells = need
	}
	if cells > MaxMeshCells {
		cells = MaxMeshCells
	}
	return cells
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	renderer := render.NewMarchingCubesUniform(k.MeshCells(s))
	triangles := render.ToTriangles(unwrap(s), renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("%w: mesh has no triangles", kernel.ErrDegenerate)
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
