package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerXYZ extracts Euler angles (matrix Rx*Ry*Rz) from the rotation part
// of m, which must be free of scale.
func EulerXYZ(m mgl64.Mat4) Vec3 {
	r02 := m.At(0, 2)
	y := math.Asin(math.Max(-1, math.Min(1, r02)))
	if math.Abs(r02) < 0.9999999 {
		return Vec3{
			X: unsign(math.Atan2(-m.At(1, 2), m.At(2, 2))),
			Y: unsign(y),
			Z: unsign(math.Atan2(-m.At(0, 1), m.At(0, 0))),
		}
	}
	// Gimbal lock: fold the Z rotation into X.
	return Vec3{X: unsign(math.Atan2(m.At(2, 1), m.At(1, 1))), Y: y}
}

// unsign maps -0 to 0 so identity rotations serialize as 0.
func unsign(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// Decompose splits an affine matrix without shear into T*R*S.
func Decompose(m mgl64.Mat4) Transform {
	pos := Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}

	rot := mgl64.Ident4()
	for col, s := range []float64{sx, sy, sz} {
		if s == 0 {
			continue
		}
		c := m.Col(col).Mul(1 / s)
		rot.SetCol(col, mgl64.Vec4{c[0], c[1], c[2], 0})
	}
	return Transform{Position: pos, Rotation: EulerXYZ(rot), Scale: Vec3{sx, sy, sz}}
}

// FromQuat returns the Euler XYZ angles of a unit quaternion.
func FromQuat(q mgl64.Quat) Vec3 {
	return EulerXYZ(q.Normalize().Mat4())
}
