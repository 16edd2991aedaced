package scene

import (
	"fmt"
	"math"
)

// Room holds the shell dimensions in meters.
type Room struct {
	Width     float64 `json:"width" yaml:"width"`
	Depth     float64 `json:"depth" yaml:"depth"`
	Height    float64 `json:"height" yaml:"height"`
	Thickness float64 `json:"thickness" yaml:"thickness"`
}

// DefaultRoom is the 6 x 4 m room with 2.6 m walls 15 cm thick.
func DefaultRoom() Room {
	return Room{Width: 6, Depth: 4, Height: 2.6, Thickness: 0.15}
}

// Validate checks that every dimension is positive.
func (r Room) Validate() error {
	if r.Width <= 0 || r.Depth <= 0 || r.Height <= 0 || r.Thickness <= 0 {
		return fmt.Errorf("room dimensions must be positive, got %+v", r)
	}
	return nil
}

// Wall names in layout order.
const (
	WallBack  = "wall-back"
	WallFront = "wall-front"
	WallLeft  = "wall-left"
	WallRight = "wall-right"
)

type wallSpec struct {
	name      string
	geom      BoxGeometry
	transform Transform
}

// wallSpecs lays out the four walls: back and front span the width, left
// and right span the depth and are turned a quarter turn about Y.
func (r Room) wallSpecs() []wallSpec {
	h := r.Height / 2
	place := func(x, z, ry float64) Transform {
		return Transform{Position: Vec3{x, h, z}, Rotation: Vec3{0, ry, 0}, Scale: One}
	}
	return []wallSpec{
		{WallBack, BoxGeometry{r.Width, r.Height, r.Thickness}, place(0, -r.Depth/2, 0)},
		{WallFront, BoxGeometry{r.Width, r.Height, r.Thickness}, place(0, r.Depth/2, 0)},
		{WallLeft, BoxGeometry{r.Depth, r.Height, r.Thickness}, place(-r.Width/2, 0, math.Pi/2)},
		{WallRight, BoxGeometry{r.Depth, r.Height, r.Thickness}, place(r.Width/2, 0, math.Pi/2)},
	}
}

// Resize lays the existing walls out again for room. Walls are matched by
// position; no wall is created or destroyed.
func (g *Graph) Resize(room Room) error {
	if g.disposed {
		return ErrDisposed
	}
	if err := room.Validate(); err != nil {
		return err
	}
	walls := g.Walls()
	specs := room.wallSpecs()
	for i := 0; i < min(len(walls), len(specs)); i++ {
		walls[i].Geometry = specs[i].geom
		walls[i].Transform = specs[i].transform
	}
	g.room = room
	g.version++
	return nil
}
