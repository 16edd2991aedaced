package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/roomcraft/pkg/asset"
	"github.com/chazu/roomcraft/pkg/bus"
	"github.com/chazu/roomcraft/pkg/config"
	"github.com/chazu/roomcraft/pkg/editor"
	"github.com/chazu/roomcraft/pkg/gizmo"
	"github.com/chazu/roomcraft/pkg/pick"
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/snapshot"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Events emitted to the frontend.
const (
	EventCommandResult  = "command-result"
	EventSceneExported  = "scene-exported"
	EventCatalogChanged = "catalog-changed"
	EventSceneChanged   = "scene-changed"
)

// frontendCommands are the frontend events forwarded onto the bus.
var frontendCommands = []string{
	bus.NameInsertModel,
	bus.NameExportScene,
	bus.NameImportScene,
	bus.NameDeleteSelected,
	bus.NameResizeRoom,
}

// colorPalette assigns distinct colors to furniture parts. Walls are drawn
// in wallColor and the selection in selectedColor.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

const (
	wallColor     = "#D8D2C4"
	selectedColor = "#FFD400"
)

// ErrNotStarted is returned by bindings called before startup or after
// shutdown.
var ErrNotStarted = errors.New("app not running")

// App is the Wails backend. It exposes methods to the frontend via bindings
// and runs the session loop on its own goroutine; every binding hops onto
// that loop.
type App struct {
	session *editor.Session
	events  Events
	log     *zap.Logger

	mu      sync.RWMutex
	catalog []config.CatalogEntry
	offs    []func()

	cancel   context.CancelFunc
	loopDone chan struct{}
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices      []float32   `json:"vertices"`
	Normals       []float32   `json:"normals"`
	Indices       []uint32    `json:"indices"`
	PartName      string      `json:"partName"`
	NodeID        string      `json:"nodeId"`
	World         [16]float32 `json:"world"`
	Color         string      `json:"color"`
	Selected      bool        `json:"selected"`
	CastShadow    bool        `json:"castShadow"`
	ReceiveShadow bool        `json:"receiveShadow"`
}

// FrameData is one viewport frame.
type FrameData struct {
	Meshes   []MeshData `json:"meshes"`
	Dragging bool       `json:"dragging"`
	Gizmo    string     `json:"gizmo"`
}

// CameraData carries column-major view and projection matrices.
type CameraData struct {
	View       [16]float64 `json:"view"`
	Projection [16]float64 `json:"projection"`
}

// SelectionData answers a pointer-down.
type SelectionData struct {
	Hit      bool       `json:"hit"`
	NodeID   string     `json:"nodeId,omitempty"`
	Name     string     `json:"name,omitempty"`
	Distance float64    `json:"distance,omitempty"`
	Point    [3]float64 `json:"point,omitempty"`
}

// CommandResult is emitted for every command and load outcome.
type CommandResult struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// EvalErrorData is a JSON-serializable console error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the console result returned to the frontend.
type EvalResult struct {
	Commands []string        `json:"commands"`
	Errors   []EvalErrorData `json:"errors"`
	Value    string          `json:"value"`
}

// NewApp wraps a session. Events are attached at startup.
func NewApp(session *editor.Session, catalog []config.CatalogEntry, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{session: session, catalog: catalog, log: logger}
	session.OnResult(a.report)
	return a
}

// startup is called by Wails on app startup.
func (a *App) startup(ctx context.Context) {
	a.attach(ctx, wailsEvents{ctx: ctx})
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.detach()
}

// attach starts the loop goroutine and subscribes to frontend events.
func (a *App) attach(ctx context.Context, ev Events) {
	a.mu.Lock()
	a.events = ev
	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.loopDone = make(chan struct{})
	for _, name := range frontendCommands {
		a.offs = append(a.offs, ev.On(name, a.forward(name)))
	}
	done := a.loopDone
	a.mu.Unlock()

	go func() {
		defer close(done)
		err := a.session.Run(loopCtx)
		a.log.Debug("loop stopped", zap.Error(err))
	}()
	a.log.Info("app started", zap.Int("catalog", len(a.Catalog())))
}

// detach unsubscribes from the frontend, closes the session on its loop
// and waits for the loop goroutine.
func (a *App) detach() {
	a.mu.Lock()
	offs, cancel, done := a.offs, a.cancel, a.loopDone
	a.offs, a.cancel = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	for _, off := range offs {
		off()
	}
	if err := a.onLoop("close", func() error { return a.session.Close() }); err != nil {
		a.log.Warn("session close", zap.Error(err))
	}
	cancel()
	<-done

	a.mu.Lock()
	a.loopDone = nil
	a.mu.Unlock()
}

// forward turns a frontend event into a bus command.
func (a *App) forward(name string) func(...any) {
	return func(data ...any) {
		var payload []byte
		if len(data) > 0 && data[0] != nil {
			var err error
			if payload, err = json.Marshal(data[0]); err != nil {
				a.log.Warn("unencodable event payload", zap.String("command", name), zap.Error(err))
				return
			}
		}
		if err := a.session.PublishRaw(name, payload); err != nil {
			a.log.Debug("event not published", zap.String("command", name), zap.Error(err))
		}
	}
}

// onLoop runs fn on the session loop and waits for it.
func (a *App) onLoop(name string, fn func() error) error {
	a.mu.RLock()
	running := a.loopDone
	a.mu.RUnlock()
	if running == nil {
		return ErrNotStarted
	}
	done := make(chan error, 1)
	if err := a.session.Queue().Post(name, func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-running:
		// The task may have closed the loop itself.
		select {
		case err := <-done:
			return err
		default:
			return ErrNotStarted
		}
	}
}

// report runs on the loop for every command and load outcome.
func (a *App) report(r bus.Result) {
	a.mu.RLock()
	ev := a.events
	a.mu.RUnlock()
	if ev == nil {
		return
	}
	out := CommandResult{Command: r.Name, OK: r.OK()}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	switch v := r.Value.(type) {
	case snapshot.Snapshot:
		ev.Emit(EventSceneExported, v)
	case asset.Result:
		out.Value = map[string]any{"path": v.Path, "nodeId": v.Node.String(), "parts": v.Parts}
	case nil:
	default:
		out.Value = v
	}
	ev.Emit(EventCommandResult, out)
	if r.OK() && r.Name != bus.NameExportScene {
		ev.Emit(EventSceneChanged)
	}
}

// watch refreshes the catalog whenever the config file changes.
func (a *App) watch(w *config.Watcher) {
	w.OnChange(func(_, cur *config.Config) {
		a.mu.Lock()
		a.catalog = cur.Catalog
		ev := a.events
		a.mu.Unlock()
		if ev != nil {
			ev.Emit(EventCatalogChanged, cur.Catalog)
		}
	})
}

// ---------------------------------------------------------------------------
// Bindings
// ---------------------------------------------------------------------------

// Catalog lists the furniture the UI offers.
func (a *App) Catalog() []config.CatalogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]config.CatalogEntry(nil), a.catalog...)
}

// Dispatch publishes a named command with a JSON payload.
func (a *App) Dispatch(name, payload string) error {
	return a.session.PublishRaw(name, []byte(payload))
}

// Evaluate runs console source and publishes the commands it issued.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{Commands: []string{}, Errors: []EvalErrorData{}}
	res, err := a.session.Eval(source)
	if err != nil {
		a.log.Warn("evaluate fatal error", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if len(res.Errors) > 0 {
		return result
	}
	for _, c := range res.Commands {
		result.Commands = append(result.Commands, c.Name())
	}
	result.Value = res.Value
	return result
}

// PointerDown picks at NDC (x, y).
func (a *App) PointerDown(x, y float64, cam CameraData) (SelectionData, error) {
	var out SelectionData
	err := a.onLoop("pointer-down", func() error {
		hit, ok, err := a.session.PointerDown(x, y, pick.Camera{
			View:       mgl64.Mat4(cam.View),
			Projection: mgl64.Mat4(cam.Projection),
		})
		if err != nil || !ok {
			return err
		}
		out = SelectionData{
			Hit:      true,
			NodeID:   hit.Node.ID.String(),
			Name:     hit.Node.Name,
			Distance: hit.Distance,
			Point:    [3]float64(hit.Point),
		}
		return nil
	})
	return out, err
}

// KeyDown routes a key press and reports whether it was consumed.
func (a *App) KeyDown(key string) (bool, error) {
	var consumed bool
	err := a.onLoop("key-down", func() error {
		var err error
		consumed, err = a.session.KeyDown(key)
		return err
	})
	return consumed, err
}

// SetGizmoMode selects translate, rotate or scale.
func (a *App) SetGizmoMode(mode string) error {
	m, err := gizmo.ParseMode(mode)
	if err != nil {
		return err
	}
	return a.onLoop("gizmo-mode", func() error {
		a.session.Gizmo().SetMode(m)
		return nil
	})
}

// BeginDrag starts a gizmo drag on the selection.
func (a *App) BeginDrag() error {
	return a.onLoop("drag-begin", a.session.BeginDrag)
}

// DragTo moves the drag to an offset from its start.
func (a *App) DragTo(x, y, z float64) error {
	return a.onLoop("drag-to", func() error {
		return a.session.DragTo(scene.Vec3{X: x, Y: y, Z: z})
	})
}

// PointerUp ends any drag. The frontend calls it from the window.
func (a *App) PointerUp() error {
	return a.onLoop("pointer-up", func() error {
		a.session.PointerUp()
		return nil
	})
}

// Blur interrupts a drag when the window loses focus.
func (a *App) Blur() error {
	return a.onLoop("blur", func() error {
		a.session.Blur()
		return nil
	})
}

// Shell returns the walls joined into one mesh for export.
func (a *App) Shell() (MeshData, error) {
	var out MeshData
	err := a.onLoop("shell", func() error {
		m, err := a.session.Shell()
		if err != nil {
			return err
		}
		out = MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			World:    [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
			Color:    wallColor,
		}
		return nil
	})
	return out, err
}

// Rooms lists the saved room keys.
func (a *App) Rooms() ([]string, error) {
	var keys []string
	err := a.onLoop("rooms", func() error {
		var err error
		keys, err = a.session.Rooms()
		return err
	})
	if keys == nil {
		keys = []string{}
	}
	return keys, err
}

// DeleteRoom removes a saved room.
func (a *App) DeleteRoom(key string) error {
	return a.onLoop("delete-room", func() error { return a.session.DeleteRoom(key) })
}

// Frame returns the meshes to draw.
func (a *App) Frame() (FrameData, error) {
	out := FrameData{Meshes: []MeshData{}}
	err := a.onLoop("frame", func() error {
		parts, err := a.session.Frame()
		if err != nil {
			return fmt.Errorf("tessellation failed: %w", err)
		}
		furniture := map[scene.NodeID]int{}
		for _, p := range parts {
			color := wallColor
			if p.Kind != scene.KindWall.String() {
				top, err := a.session.Graph().TopLevelAncestor(p.NodeID)
				if err != nil {
					return err
				}
				if _, ok := furniture[top.ID]; !ok {
					furniture[top.ID] = len(furniture)
				}
				color = colorPalette[furniture[top.ID]%len(colorPalette)]
			}
			if p.Selected {
				color = selectedColor
			}
			out.Meshes = append(out.Meshes, MeshData{
				Vertices:      p.Vertices,
				Normals:       p.Normals,
				Indices:       p.Indices,
				PartName:      p.PartName,
				NodeID:        p.NodeID.String(),
				World:         p.World,
				Color:         color,
				Selected:      p.Selected,
				CastShadow:    p.CastShadow,
				ReceiveShadow: p.ReceiveShadow,
			})
		}
		out.Dragging = a.session.Gizmo().Dragging()
		out.Gizmo = a.session.Gizmo().Mode().String()
		return nil
	})
	return out, err
}
