package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func near(a, b Vec3) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestDecomposeRoundTrip(t *testing.T) {
	cases := []Transform{
		Identity(),
		{Position: Vec3{1, 2, 3}, Rotation: Vec3{0.3, -0.4, 1.2}, Scale: Vec3{2, 0.5, 1}},
		{Position: Vec3{-4, 0, 0.25}, Rotation: Vec3{0, math.Pi / 4, 0}, Scale: One},
		{Rotation: Vec3{-1, 0.2, -2.5}, Scale: Vec3{3, 3, 3}},
	}
	for _, want := range cases {
		got := Decompose(want.Matrix())
		if !near(got.Position, want.Position) || !near(got.Rotation, want.Rotation) || !near(got.Scale, want.Scale) {
			t.Errorf("Decompose(%+v) = %+v", want, got)
		}
	}
}

func TestEulerIdentityHasNoNegativeZero(t *testing.T) {
	r := EulerXYZ(mgl64.Ident4())
	for i, v := range r.Array() {
		if math.Signbit(v) {
			t.Errorf("component %d is -0", i)
		}
	}
}

func TestFromQuat(t *testing.T) {
	q := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	if got := FromQuat(q); !near(got, Vec3{0, 0, math.Pi / 2}) {
		t.Errorf("FromQuat = %v", got)
	}
}
