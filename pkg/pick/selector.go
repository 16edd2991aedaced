package pick

import (
	"fmt"

	"github.com/chazu/roomcraft/pkg/scene"
	"go.uber.org/zap"
)

// State is the selection state.
type State int

const (
	StateNone     State = iota // nothing selected
	StateSelected              // exactly one top-level node selected
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Change describes a selection transition. Zero IDs mean None.
type Change struct {
	Prev scene.NodeID
	Next scene.NodeID
}

// Selector is the two-state selection machine over a graph. It holds only
// the ID of the selected node; a node that has left the graph reads as no
// selection.
type Selector struct {
	g         *scene.Graph
	selected  scene.NodeID
	observers []func(Change)
	log       *zap.Logger
}

// NewSelector returns a selector in StateNone.
func NewSelector(g *scene.Graph, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{g: g, log: logger}
}

// OnChange registers fn to run after every transition.
func (s *Selector) OnChange(fn func(Change)) {
	s.observers = append(s.observers, fn)
}

// State returns the current state.
func (s *Selector) State() State {
	if _, ok := s.Selected(); ok {
		return StateSelected
	}
	return StateNone
}

// Selected returns the selected node if it is still a top-level node.
func (s *Selector) Selected() (*scene.Node, bool) {
	if s.selected.IsZero() || !s.g.IsTopLevel(s.selected) {
		return nil, false
	}
	return s.g.Get(s.selected), true
}

func (s *Selector) set(id scene.NodeID) {
	prev := scene.ZeroID
	if cur, ok := s.Selected(); ok {
		prev = cur.ID
	}
	s.selected = id
	if prev == id {
		return
	}
	s.log.Debug("selection changed", zap.String("prev", prev.Short()), zap.String("next", id.Short()))
	for _, fn := range s.observers {
		fn(Change{Prev: prev, Next: id})
	}
}

// PointerDown picks at the given NDC position. A hit selects the hit's
// top-level node; a miss always clears the selection.
func (s *Selector) PointerDown(x, y float64, cam Camera) (Hit, bool, error) {
	ray, err := RayFromCamera(x, y, cam)
	if err != nil {
		return Hit{}, false, err
	}
	return s.PickRay(ray)
}

// PickRay applies the pointer-down transition for an already built ray.
func (s *Selector) PickRay(ray Ray) (Hit, bool, error) {
	hit, ok := Pick(s.g, ray)
	if !ok {
		s.set(scene.ZeroID)
		return Hit{}, false, nil
	}
	s.set(hit.Node.ID)
	return hit, true, nil
}

// Select selects a top-level node directly.
func (s *Selector) Select(id scene.NodeID) error {
	if !s.g.IsTopLevel(id) {
		return fmt.Errorf("select %s: %w", id.Short(), scene.ErrNotTopLevel)
	}
	s.set(id)
	return nil
}

// SelectByName selects the first top-level node with the given name.
func (s *Selector) SelectByName(name string) error {
	n := s.g.Lookup(name)
	if n == nil {
		return fmt.Errorf("select %q: %w", name, scene.ErrNodeNotFound)
	}
	s.set(n.ID)
	return nil
}

// Clear moves to StateNone.
func (s *Selector) Clear() {
	s.set(scene.ZeroID)
}

// Delete removes the selected node and moves to StateNone. With nothing
// selected it is a no-op. Walls cannot be removed; the selection is kept
// and scene.ErrProtectedNode is returned.
func (s *Selector) Delete() (scene.NodeID, error) {
	n, ok := s.Selected()
	if !ok {
		return scene.ZeroID, nil
	}
	if err := s.g.RemoveNode(n.ID); err != nil {
		return scene.ZeroID, fmt.Errorf("delete %q: %w", n.Name, err)
	}
	s.log.Info("deleted node", zap.String("node_id", n.ID.Short()), zap.String("name", n.Name))
	s.drop()
	return n.ID, nil
}

// Prune moves to StateNone when the selected node has left the graph
// behind the selector's back, as a snapshot import does. It reports
// whether a stale selection was dropped.
func (s *Selector) Prune() bool {
	if s.selected.IsZero() {
		return false
	}
	if _, ok := s.Selected(); ok {
		return false
	}
	s.drop()
	return true
}

// drop clears a selection whose node is gone. set cannot be used since
// Selected no longer reports the previous node.
func (s *Selector) drop() {
	prev := s.selected
	s.selected = scene.ZeroID
	s.log.Debug("selection dropped", zap.String("prev", prev.Short()))
	for _, fn := range s.observers {
		fn(Change{Prev: prev, Next: scene.ZeroID})
	}
}

// HandleKey applies keyboard input. Delete and Backspace delete the
// selection; it reports whether the key was consumed.
func (s *Selector) HandleKey(key string) (bool, error) {
	switch key {
	case "Delete", "Backspace":
		_, err := s.Delete()
		return true, err
	}
	return false, nil
}
