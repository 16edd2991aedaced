package scene

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestVec3JSON(t *testing.T) {
	v := Vec3{0.1, -2.5, 1e-9}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[0.1,-2.5,1e-9]" {
		t.Errorf("marshal = %s", data)
	}
	var back Vec3
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != v {
		t.Errorf("round trip = %v, want %v", back, v)
	}
	if err := json.Unmarshal([]byte("[1,2]"), &back); err == nil {
		t.Error("two components should fail")
	}
}

func TestVec3FromSlice(t *testing.T) {
	if _, err := Vec3FromSlice([]float64{1, 2, 3, 4}); err == nil {
		t.Error("four components should fail")
	}
	v, err := Vec3FromSlice([]float64{1, 2, 3})
	if err != nil || v != (Vec3{1, 2, 3}) {
		t.Errorf("got %v, %v", v, err)
	}
}

func TestTransformMatrixOrder(t *testing.T) {
	tr := Transform{
		Position: Vec3{1, 2, 3},
		Rotation: Vec3{0, math.Pi / 2, 0},
		Scale:    Vec3{2, 1, 1},
	}
	// Scale first, then rotate a quarter turn about Y, then translate:
	// (1,0,0) -> (2,0,0) -> (0,0,-2) -> (1,2,1).
	p := mgl64.TransformCoordinate(mgl64.Vec3{1, 0, 0}, tr.Matrix())
	want := mgl64.Vec3{1, 2, 1}
	if !p.ApproxEqualThreshold(want, 1e-12) {
		t.Errorf("transformed point = %v, want %v", p, want)
	}
}

func TestIdentity(t *testing.T) {
	id := Identity()
	if id.Scale != One || !id.Position.IsZero() || !id.Rotation.IsZero() {
		t.Errorf("identity = %+v", id)
	}
	if !id.Matrix().ApproxEqual(mgl64.Ident4()) {
		t.Error("identity matrix mismatch")
	}
}
