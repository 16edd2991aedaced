// Package pick resolves pointer positions to scene nodes and tracks the
// current selection.
package pick

import (
	"errors"
	"math"

	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrSingularCamera is returned when the camera matrices cannot be inverted.
var ErrSingularCamera = errors.New("pick: camera view-projection is singular")

// Camera carries the viewport host's current matrices.
type Camera struct {
	View       mgl64.Mat4
	Projection mgl64.Mat4
}

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// RayFromCamera builds the pick ray through normalized device coordinates
// (x, y in [-1, 1], y up) by unprojecting the near and far plane points.
func RayFromCamera(x, y float64, cam Camera) (Ray, error) {
	vp := cam.Projection.Mul4(cam.View)
	if vp.Det() == 0 {
		return Ray{}, ErrSingularCamera
	}
	inv := vp.Inv()
	near := mgl64.TransformCoordinate(mgl64.Vec3{x, y, -1}, inv)
	far := mgl64.TransformCoordinate(mgl64.Vec3{x, y, 1}, inv)
	dir := far.Sub(near)
	if dir.Len() == 0 {
		return Ray{}, ErrSingularCamera
	}
	return Ray{Origin: near, Dir: dir.Normalize()}, nil
}

// Hit is the nearest intersection resolved to a top-level node.
type Hit struct {
	Node     *scene.Node // top-level ancestor (wall or furniture)
	Target   *scene.Node // node whose geometry was hit
	Distance float64     // along the ray, world units
	Point    mgl64.Vec3  // world-space hit point
}

// Pick intersects the ray with the bounding box of every node that carries
// geometry and returns the nearest hit resolved to its top-level ancestor.
func Pick(g *scene.Graph, ray Ray) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	found := false

	for n := range g.Traverse() {
		if n.Geometry == nil {
			continue
		}
		world := g.WorldMatrix(n.ID)
		if world.Det() == 0 {
			continue
		}
		inv := world.Inv()
		// The direction is not renormalised, so t stays in world units.
		local := Ray{
			Origin: mgl64.TransformCoordinate(ray.Origin, inv),
			Dir:    inv.Mul4x1(ray.Dir.Vec4(0)).Vec3(),
		}
		lo, hi := n.Geometry.Bounds()
		t, ok := intersectBox(local, lo.MGL(), hi.MGL())
		if !ok || t >= best.Distance {
			continue
		}
		top, err := g.TopLevelAncestor(n.ID)
		if err != nil {
			continue
		}
		best = Hit{Node: top, Target: n, Distance: t, Point: ray.At(t)}
		found = true
	}
	return best, found
}

// intersectBox is the slab test against an axis-aligned box. It returns the
// entry distance, or the exit distance when the origin is inside the box.
func intersectBox(r Ray, lo, hi mgl64.Vec3) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Dir[axis]
		if d == 0 {
			if o < lo[axis] || o > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - o) / d
		t2 := (hi[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
