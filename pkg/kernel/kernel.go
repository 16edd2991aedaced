// Package kernel defines the geometry kernel that turns box solids into
// render meshes. The sdfx subpackage is the only backend.
package kernel

import "errors"

// ErrDegenerate is returned for solids with a non-positive extent.
var ErrDegenerate = errors.New("kernel: degenerate solid")

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and meshes solids.
type Kernel interface {
	// Box returns a box of the given size centered on the origin.
	Box(width, height, depth float64) (Solid, error)

	Union(a, b Solid) Solid

	// Translate moves a solid by (x, y, z).
	Translate(s Solid, x, y, z float64) Solid
	// Rotate applies Euler XYZ angles in radians, matrix Rx·Ry·Rz, the
	// same convention scene transforms use.
	Rotate(s Solid, x, y, z float64) Solid

	ToMesh(s Solid) (*Mesh, error)
}
