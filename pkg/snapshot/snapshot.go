// Package snapshot saves the room layout to a serializable value and
// restores it into an existing graph.
//
// Furniture records keep only name and transform. Restoring a snapshot
// rebuilds every furniture node as a unit placeholder box; the asset a
// node was loaded from is not recorded.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/samber/lo"
)

var errMissing = errors.New("missing")

// PlaceholderName names restored furniture whose record has no name.
const PlaceholderName = "furniture"

// Box is the wall geometry record.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// WallRecord is one wall. Vectors are kept as plain slices so a record
// with missing or short fields still decodes and can be reported alone.
type WallRecord struct {
	Name     string    `json:"name"`
	Pos      []float64 `json:"pos"`
	Rot      []float64 `json:"rot"`
	Scale    []float64 `json:"scale,omitempty"`
	Geometry *Box      `json:"geometry,omitempty"`

	invalid string
}

// FurnitureRecord is one top-level furniture node.
type FurnitureRecord struct {
	Name  string    `json:"name"`
	Pos   []float64 `json:"pos"`
	Rot   []float64 `json:"rot"`
	Scale []float64 `json:"scale,omitempty"`

	invalid string
}

// Snapshot is the persisted room layout.
type Snapshot struct {
	Walls     []WallRecord      `json:"walls"`
	Furniture []FurnitureRecord `json:"furniture"`
}

// UnmarshalJSON decodes each record on its own: a record that does not
// decode is kept and reported by Load instead of failing the snapshot.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Walls     []json.RawMessage `json:"walls"`
		Furniture []json.RawMessage `json:"furniture"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Snapshot{}
	for _, r := range raw.Walls {
		var rec WallRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			rec = WallRecord{invalid: err.Error()}
		}
		out.Walls = append(out.Walls, rec)
	}
	for _, r := range raw.Furniture {
		var rec FurnitureRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			rec = FurnitureRecord{invalid: err.Error()}
		}
		out.Furniture = append(out.Furniture, rec)
	}
	*s = out
	return nil
}

// Encode marshals s. Floats use the shortest form that parses back to the
// same float64.
func Encode(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a snapshot. Only a document that is not a JSON object of
// record lists fails; malformed records are left for Load to report.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, &FormatError{Section: "snapshot", Index: -1, Reason: err.Error()}
	}
	return s, nil
}

// Save records every wall and every top-level furniture node in order.
// It does not modify the graph.
func Save(g *scene.Graph) Snapshot {
	walls := lo.Map(g.Walls(), func(n *scene.Node, _ int) WallRecord {
		rec := WallRecord{
			Name:  n.Name,
			Pos:   n.Transform.Position.Slice(),
			Rot:   n.Transform.Rotation.Slice(),
			Scale: n.Transform.Scale.Slice(),
		}
		if box, ok := n.Geometry.(scene.BoxGeometry); ok {
			rec.Geometry = &Box{Width: box.Width, Height: box.Height, Depth: box.Depth}
		}
		return rec
	})
	furniture := lo.Map(g.Furniture(), func(n *scene.Node, _ int) FurnitureRecord {
		return FurnitureRecord{
			Name:  n.Name,
			Pos:   n.Transform.Position.Slice(),
			Rot:   n.Transform.Rotation.Slice(),
			Scale: n.Transform.Scale.Slice(),
		}
	})
	return Snapshot{Walls: walls, Furniture: furniture}
}

// Load applies s to g in place and returns one error per record that
// could not be applied in full.
//
// All furniture is removed first and each furniture record becomes a
// 1x1x1 placeholder box. A record without pos or rot is skipped; a missing
// scale defaults to [1,1,1]. Walls are matched by index over the shorter
// of the two lists, so extra records are ignored and extra walls are left
// alone. A wall record without scale keeps the wall's scale. Besides
// pos, rot and scale, a wall record with positive geometry also resizes
// the wall box; non-positive geometry is ignored.
func Load(g *scene.Graph, s Snapshot) []error {
	if _, err := g.ClearFurniture(); err != nil {
		return []error{err}
	}
	var errs []error

	for i, rec := range s.Furniture {
		t, err := transformOf("furniture", i, rec.invalid, rec.Pos, rec.Rot, rec.Scale, scene.One)
		if t == nil {
			errs = append(errs, err)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
		name := rec.Name
		if name == "" {
			name = PlaceholderName
		}
		n := scene.NewNode(name, scene.KindFurniture, scene.BoxGeometry{Width: 1, Height: 1, Depth: 1})
		n.Transform = *t
		if err := g.AddNode(g.FurnitureGroup().ID, n); err != nil {
			errs = append(errs, fmt.Errorf("furniture[%d]: %w", i, err))
		}
	}

	walls := g.Walls()
	for i := 0; i < min(len(s.Walls), len(walls)); i++ {
		rec, w := s.Walls[i], walls[i]
		t, err := transformOf("walls", i, rec.invalid, rec.Pos, rec.Rot, rec.Scale, w.Transform.Scale)
		if t == nil {
			errs = append(errs, err)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
		if err := g.SetTransform(w.ID, *t); err != nil {
			errs = append(errs, err)
			continue
		}
		if box := rec.Geometry; box != nil && box.Width > 0 && box.Height > 0 && box.Depth > 0 {
			if err := g.SetGeometry(w.ID, scene.BoxGeometry{Width: box.Width, Height: box.Height, Depth: box.Depth}); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// transformOf builds a transform from record fields. It returns a nil
// transform when the record must be skipped, and a non-nil transform with
// an error when only the scale was unusable and fell back to defScale.
func transformOf(section string, index int, invalid string, pos, rot, scale []float64, defScale scene.Vec3) (*scene.Transform, error) {
	if invalid != "" {
		return nil, &FormatError{Section: section, Index: index, Reason: invalid}
	}
	p, err := vec("pos", pos)
	if err != nil {
		return nil, &FormatError{Section: section, Index: index, Field: "pos", Reason: err.Error()}
	}
	r, err := vec("rot", rot)
	if err != nil {
		return nil, &FormatError{Section: section, Index: index, Field: "rot", Reason: err.Error()}
	}
	t := &scene.Transform{Position: p, Rotation: r, Scale: defScale}
	if scale == nil {
		return t, nil
	}
	sc, err := vec("scale", scale)
	if err != nil {
		return t, &FormatError{Section: section, Index: index, Field: "scale", Reason: err.Error() + ", using default"}
	}
	t.Scale = sc
	return t, nil
}

func vec(field string, v []float64) (scene.Vec3, error) {
	if v == nil {
		return scene.Vec3{}, errMissing
	}
	out, err := scene.Vec3FromSlice(v)
	if err != nil {
		return scene.Vec3{}, err
	}
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return scene.Vec3{}, fmt.Errorf("%s is not finite", field)
		}
	}
	return out, nil
}
