package gizmo

import (
	"fmt"
	"strings"

	"github.com/chazu/roomcraft/pkg/scene"
	"go.uber.org/zap"
)

// Mode selects which transform component a drag edits.
type Mode int

const (
	Translate Mode = iota
	Rotate
	Scale
)

func (m Mode) String() string {
	switch m {
	case Translate:
		return "translate"
	case Rotate:
		return "rotate"
	case Scale:
		return "scale"
	default:
		return "unknown"
	}
}

// ParseMode accepts "translate", "rotate" or "scale" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "translate", "move":
		return Translate, nil
	case "rotate":
		return Rotate, nil
	case "scale":
		return Scale, nil
	}
	return 0, fmt.Errorf("unknown gizmo mode %q", s)
}

// Axis is a bit mask of the axes a drag may change.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY
	AxisZ

	AxisAll = AxisX | AxisY | AxisZ
)

// mask zeroes the components of v outside a.
func (a Axis) mask(v scene.Vec3) scene.Vec3 {
	if a&AxisX == 0 {
		v.X = 0
	}
	if a&AxisY == 0 {
		v.Y = 0
	}
	if a&AxisZ == 0 {
		v.Z = 0
	}
	return v
}

// Gizmo manipulates the local transform of one bound top-level node.
// It is driven from the interaction loop and is not safe for concurrent use.
type Gizmo struct {
	g     *scene.Graph
	nav   *Navigation
	bound scene.NodeID
	mode  Mode
	axes  Axis
	drag  *Session
	log   *zap.Logger
}

// New returns an unbound gizmo in Translate mode on all axes.
func New(g *scene.Graph, nav *Navigation, logger *zap.Logger) *Gizmo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gizmo{g: g, nav: nav, axes: AxisAll, log: logger}
}

// Bind attaches the gizmo to a top-level node. A drag on another node is
// interrupted first.
func (gz *Gizmo) Bind(id scene.NodeID) error {
	if !gz.g.IsTopLevel(id) {
		return fmt.Errorf("bind %s: %w", id.Short(), scene.ErrNotTopLevel)
	}
	if gz.bound != id {
		gz.Interrupt()
	}
	gz.bound = id
	return nil
}

// Unbind detaches the gizmo, interrupting any drag.
func (gz *Gizmo) Unbind() {
	gz.Interrupt()
	gz.bound = scene.ZeroID
}

// Bound returns the bound node if it is still in the graph.
func (gz *Gizmo) Bound() (*scene.Node, bool) {
	if gz.bound.IsZero() || !gz.g.IsTopLevel(gz.bound) {
		return nil, false
	}
	return gz.g.Get(gz.bound), true
}

// Mode returns the current mode.
func (gz *Gizmo) Mode() Mode { return gz.mode }

// SetMode changes the mode used by the next drag.
func (gz *Gizmo) SetMode(m Mode) { gz.mode = m }

// Axes returns the current axis mask.
func (gz *Gizmo) Axes() Axis { return gz.axes }

// SetAxes changes the axis mask used by the next drag. Zero means all axes.
func (gz *Gizmo) SetAxes(a Axis) {
	if a == 0 {
		a = AxisAll
	}
	gz.axes = a
}

// Active returns the drag in progress, or nil.
func (gz *Gizmo) Active() *Session {
	return gz.drag
}

// Dragging reports whether a drag is in progress.
func (gz *Gizmo) Dragging() bool {
	return gz.drag != nil
}

// Begin starts a drag on the bound node and suspends navigation.
func (gz *Gizmo) Begin() (*Session, error) {
	n, ok := gz.Bound()
	if !ok {
		return nil, ErrNotBound
	}
	guard, err := gz.nav.Acquire("gizmo:" + gz.mode.String())
	if err != nil {
		return nil, err
	}
	s := &Session{
		gz:    gz,
		node:  n.ID,
		start: n.Transform,
		mode:  gz.mode,
		axes:  gz.axes,
		guard: guard,
	}
	gz.drag = s
	gz.log.Debug("drag started",
		zap.String("node_id", n.ID.Short()),
		zap.Stringer("mode", gz.mode))
	return s, nil
}

// Update applies offset to the drag in progress.
func (gz *Gizmo) Update(offset scene.Vec3) error {
	if gz.drag == nil {
		return ErrNoDrag
	}
	return gz.drag.Update(offset)
}

// End finishes the drag in progress, keeping its changes.
func (gz *Gizmo) End() error {
	if gz.drag == nil {
		return ErrNoDrag
	}
	gz.drag.End()
	return nil
}

// PointerUp ends the drag in progress wherever the pointer was released.
// The host routes it from the window, not only the canvas. Without a drag
// it does nothing.
func (gz *Gizmo) PointerUp() {
	if gz.drag != nil {
		gz.drag.End()
	}
}

// Interrupt ends the drag in progress keeping applied changes. It is used
// for focus loss, unbind, delete and teardown.
func (gz *Gizmo) Interrupt() {
	if gz.drag != nil {
		gz.log.Debug("drag interrupted", zap.String("node_id", gz.drag.node.Short()))
		gz.drag.End()
	}
}

// Cancel ends the drag in progress and restores the start transform.
func (gz *Gizmo) Cancel() error {
	if gz.drag == nil {
		return ErrNoDrag
	}
	return gz.drag.Cancel()
}

// Drag runs fn inside a drag session. Navigation is released however fn
// returns, including by panic.
func (gz *Gizmo) Drag(fn func(*Session) error) error {
	s, err := gz.Begin()
	if err != nil {
		return err
	}
	defer s.End()
	return fn(s)
}

// Session is one drag from pointer-down on a handle to release.
type Session struct {
	gz    *Gizmo
	node  scene.NodeID
	start scene.Transform
	mode  Mode
	axes  Axis
	guard *Guard
	done  bool
}

// Node returns the dragged node.
func (s *Session) Node() scene.NodeID { return s.node }

// Start returns the transform the node had when the drag began.
func (s *Session) Start() scene.Transform { return s.start }

// Done reports whether the session has ended.
func (s *Session) Done() bool { return s.done }

// Apply returns start combined with offset for the session's mode:
// translate and rotate add the offset, scale multiplies by (1 + offset).
func (s *Session) Apply(offset scene.Vec3) scene.Transform {
	offset = s.axes.mask(offset)
	t := s.start
	switch s.mode {
	case Translate:
		t.Position = t.Position.Add(offset)
	case Rotate:
		t.Rotation = t.Rotation.Add(offset)
	case Scale:
		t.Scale = t.Scale.Mul(scene.One.Add(offset))
	}
	return t
}

// Update sets the node's local transform to Apply(offset). Offsets are
// relative to the start of the drag, not to the previous update. If the
// node has left the graph the drag ends.
func (s *Session) Update(offset scene.Vec3) error {
	if s.done {
		return ErrNoDrag
	}
	if err := s.gz.g.SetTransform(s.node, s.Apply(offset)); err != nil {
		s.End()
		return fmt.Errorf("drag update: %w", err)
	}
	return nil
}

// Cancel restores the start transform and ends the drag.
func (s *Session) Cancel() error {
	if s.done {
		return ErrNoDrag
	}
	defer s.End()
	if s.gz.g.Get(s.node) == nil {
		return nil
	}
	return s.gz.g.SetTransform(s.node, s.start)
}

// End releases navigation and detaches the session from the gizmo. It is
// safe to call more than once.
func (s *Session) End() {
	if s.done {
		return
	}
	s.done = true
	s.guard.Release()
	if s.gz.drag == s {
		s.gz.drag = nil
	}
}
