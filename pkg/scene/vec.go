package scene

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a 3D vector. It serializes as a JSON array [x, y, z].
type Vec3 struct {
	X, Y, Z float64
}

// One is the unit scale vector.
var One = Vec3{1, 1, 1}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Mul returns the component-wise product.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Array returns the vector as [x, y, z].
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Slice returns the vector as a freshly allocated []float64{x, y, z}.
func (v Vec3) Slice() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// MGL converts to a mathgl vector.
func (v Vec3) MGL() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMGL converts a mathgl vector.
func FromMGL(v mgl64.Vec3) Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// Vec3FromSlice builds a Vec3 from exactly three components.
func Vec3FromSlice(s []float64) (Vec3, error) {
	if len(s) != 3 {
		return Vec3{}, fmt.Errorf("vec3 needs 3 components, got %d", len(s))
	}
	return Vec3{s[0], s[1], s[2]}, nil
}

func (v Vec3) String() string {
	return fmt.Sprintf("[%g %g %g]", v.X, v.Y, v.Z)
}

// MarshalJSON encodes the vector as [x, y, z].
func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Array())
}

// UnmarshalJSON decodes [x, y, z]. Any other length is an error.
func (v *Vec3) UnmarshalJSON(data []byte) error {
	var s []float64
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	out, err := Vec3FromSlice(s)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// Transform is a node's local transform. Rotation holds Euler angles in
// radians applied in XYZ order (matrix Rx*Ry*Rz).
type Transform struct {
	Position Vec3 `json:"pos"`
	Rotation Vec3 `json:"rot"`
	Scale    Vec3 `json:"scale"`
}

// Identity returns the transform at the origin with unit scale.
func Identity() Transform {
	return Transform{Scale: One}
}

// RotationMatrix returns Rx*Ry*Rz as a homogeneous matrix.
func (t Transform) RotationMatrix() mgl64.Mat4 {
	return mgl64.HomogRotate3DX(t.Rotation.X).
		Mul4(mgl64.HomogRotate3DY(t.Rotation.Y)).
		Mul4(mgl64.HomogRotate3DZ(t.Rotation.Z))
}

// Matrix returns the local matrix T*R*S.
func (t Transform) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position.X, t.Position.Y, t.Position.Z).
		Mul4(t.RotationMatrix()).
		Mul4(mgl64.Scale3D(t.Scale.X, t.Scale.Y, t.Scale.Z))
}
