package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chazu/roomcraft/pkg/asset"
	"github.com/chazu/roomcraft/pkg/bus"
	"github.com/chazu/roomcraft/pkg/config"
	"github.com/chazu/roomcraft/pkg/editor"
	"github.com/chazu/roomcraft/pkg/kernel/sdfx"
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/snapshot"
	"github.com/chazu/roomcraft/pkg/store"
	"github.com/go-gl/mathgl/mgl64"
)

const chairGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "frame", "translation": [0, 0.5, 0], "children": [1]},
    {"name": "seat", "mesh": 0}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"componentType": 5126, "count": 3, "type": "VEC3",
                 "min": [-0.5, -0.25, -0.5], "max": [0.5, 0.25, 0.5]}]
}`

type emitted struct {
	name string
	data []any
}

// fakeEvents stands in for the Wails runtime. Fire delivers a frontend
// event synchronously; emits are collected on a channel.
type fakeEvents struct {
	mu       sync.Mutex
	handlers map[string][]func(...any)
	emits    chan emitted
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{handlers: map[string][]func(...any){}, emits: make(chan emitted, 256)}
}

func (f *fakeEvents) On(name string, fn func(data ...any)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = append(f.handlers[name], fn)
	idx := len(f.handlers[name]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[name][idx] = nil
	}
}

func (f *fakeEvents) Emit(name string, data ...any) {
	f.emits <- emitted{name: name, data: data}
}

func (f *fakeEvents) Fire(name string, data ...any) {
	f.mu.Lock()
	hs := append([]func(...any){}, f.handlers[name]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(data...)
		}
	}
}

// waitFor returns the first emit named name that match accepts.
func (f *fakeEvents) waitFor(t *testing.T, name string, match func(emitted) bool) emitted {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-f.emits:
			if e.name == name && (match == nil || match(e)) {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event", name)
		}
	}
}

// result waits for a command-result for command.
func (f *fakeEvents) result(t *testing.T, command string, match func(CommandResult) bool) CommandResult {
	t.Helper()
	e := f.waitFor(t, EventCommandResult, func(e emitted) bool {
		r := e.data[0].(CommandResult)
		return r.Command == command && (match == nil || match(r))
	})
	return e.data[0].(CommandResult)
}

func newTestApp(t *testing.T) (*App, *fakeEvents) {
	t.Helper()
	root := t.TempDir()
	full := filepath.Join(root, "models", "chair.glb")
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(chairGLTF), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "rooms"))
	if err != nil {
		t.Fatal(err)
	}
	session, err := editor.New(editor.Options{
		Fetcher: asset.FileFetcher{Root: root},
		Store:   st,
		Kernel:  sdfx.New(8),
	})
	if err != nil {
		t.Fatalf("editor.New() error = %v", err)
	}
	app := NewApp(session, config.DefaultCatalog(), nil)
	ev := newFakeEvents()
	app.attach(context.Background(), ev)
	t.Cleanup(app.detach)
	return app, ev
}

// insertChair inserts the chair through the frontend event and waits for
// the load to land.
func insertChair(t *testing.T, app *App, ev *fakeEvents) map[string]any {
	t.Helper()
	ev.Fire(bus.NameInsertModel, map[string]any{"path": "/models/chair.glb"})
	r := ev.result(t, bus.NameInsertModel, func(r CommandResult) bool { return r.Value != nil })
	if !r.OK {
		t.Fatalf("insert failed: %s", r.Error)
	}
	return r.Value.(map[string]any)
}

func topDownCamera() CameraData {
	view := mgl64.LookAtV(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{}, mgl64.Vec3{0, 0, -1})
	proj := mgl64.Perspective(mgl64.DegToRad(60), 1, 0.1, 1000)
	return CameraData{View: [16]float64(view), Projection: [16]float64(proj)}
}

// TestE2EInsertAndFrame drives the frontend path: an insert-model event
// goes through the bus, the asset loads and the next frame draws it.
func TestE2EInsertAndFrame(t *testing.T) {
	app, ev := newTestApp(t)

	v := insertChair(t, app, ev)
	if v["path"] != "/models/chair.glb" {
		t.Errorf("path = %v", v["path"])
	}
	if v["parts"] != 3 {
		t.Errorf("parts = %v, want 3", v["parts"])
	}
	ev.waitFor(t, EventSceneChanged, nil)

	frame, err := app.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	// Four walls plus the seat proxy.
	if len(frame.Meshes) != 5 {
		t.Fatalf("expected 5 meshes, got %d", len(frame.Meshes))
	}
	var walls, furniture int
	for _, m := range frame.Meshes {
		if len(m.Vertices) == 0 {
			t.Errorf("mesh %q has no vertices", m.PartName)
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Errorf("mesh %q: %d normals for %d vertices", m.PartName, len(m.Normals), len(m.Vertices))
		}
		switch m.Color {
		case wallColor:
			walls++
		case colorPalette[0]:
			furniture++
		default:
			t.Errorf("mesh %q has color %s", m.PartName, m.Color)
		}
	}
	if walls != 4 || furniture != 1 {
		t.Errorf("walls = %d, furniture = %d", walls, furniture)
	}
	if frame.Gizmo != "translate" || frame.Dragging {
		t.Errorf("gizmo = %q dragging = %v", frame.Gizmo, frame.Dragging)
	}
}

func TestE2EExportEmitsSnapshot(t *testing.T) {
	app, ev := newTestApp(t)
	insertChair(t, app, ev)

	ev.Fire(bus.NameExportScene)
	e := ev.waitFor(t, EventSceneExported, nil)
	snap := e.data[0].(snapshot.Snapshot)
	if len(snap.Walls) != 4 {
		t.Errorf("exported %d walls, want 4", len(snap.Walls))
	}
	if len(snap.Furniture) != 1 || snap.Furniture[0].Name != "chair.glb" {
		t.Errorf("exported furniture = %+v", snap.Furniture)
	}
	if r := ev.result(t, bus.NameExportScene, nil); !r.OK {
		t.Errorf("export failed: %s", r.Error)
	}
}

func TestE2EImportAndResizeEvents(t *testing.T) {
	app, ev := newTestApp(t)

	ev.Fire(bus.NameImportScene, map[string]any{
		"walls": []any{},
		"furniture": []any{
			map[string]any{"name": "lamp", "pos": []float64{1, 0, 1}, "rot": []float64{0, 0, 0}},
		},
	})
	if r := ev.result(t, bus.NameImportScene, nil); !r.OK {
		t.Fatalf("import failed: %s", r.Error)
	}

	ev.Fire(bus.NameResizeRoom, map[string]any{"width": 5, "depth": 4, "height": 2.5})
	if r := ev.result(t, bus.NameResizeRoom, nil); !r.OK {
		t.Fatalf("resize failed: %s", r.Error)
	}

	var room scene.Room
	var lamp *scene.Node
	err := app.onLoop("inspect", func() error {
		room = app.session.Graph().Room()
		lamp = app.session.Graph().Lookup("lamp")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if room.Width != 5 || room.Depth != 4 || room.Height != 2.5 {
		t.Errorf("room = %+v", room)
	}
	if lamp == nil || lamp.Transform.Position != (scene.Vec3{X: 1, Z: 1}) {
		t.Errorf("lamp = %+v", lamp)
	}
}

func TestE2EEvaluate(t *testing.T) {
	app, ev := newTestApp(t)

	result := app.Evaluate(`(resize-room :width 5 :depth 4 :height 2.5)
(insert-model "/models/chair.glb")`)
	if len(result.Errors) > 0 {
		t.Fatalf("eval errors: %+v", result.Errors)
	}
	if len(result.Commands) != 2 || result.Commands[0] != bus.NameResizeRoom || result.Commands[1] != bus.NameInsertModel {
		t.Fatalf("commands = %v", result.Commands)
	}
	if r := ev.result(t, bus.NameResizeRoom, nil); !r.OK {
		t.Errorf("resize failed: %s", r.Error)
	}
	if r := ev.result(t, bus.NameInsertModel, func(r CommandResult) bool { return r.Value != nil }); !r.OK {
		t.Errorf("insert failed: %s", r.Error)
	}
}

func TestE2EPointerSelectAndDelete(t *testing.T) {
	app, ev := newTestApp(t)
	insertChair(t, app, ev)

	sel, err := app.PointerDown(0, 0, topDownCamera())
	if err != nil {
		t.Fatalf("PointerDown() error = %v", err)
	}
	if !sel.Hit || sel.Name != "chair.glb" {
		t.Fatalf("selection = %+v", sel)
	}

	frame, err := app.Frame()
	if err != nil {
		t.Fatal(err)
	}
	var selected int
	for _, m := range frame.Meshes {
		if m.Selected {
			selected++
			if m.Color != selectedColor {
				t.Errorf("selected mesh color = %s", m.Color)
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected meshes = %d, want 1", selected)
	}

	consumed, err := app.KeyDown("Delete")
	if err != nil || !consumed {
		t.Fatalf("KeyDown(Delete) = %v, %v", consumed, err)
	}
	frame, err = app.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Meshes) != 4 {
		t.Errorf("expected only the 4 walls after delete, got %d meshes", len(frame.Meshes))
	}
}

func TestE2EDragTranslatesSelection(t *testing.T) {
	app, ev := newTestApp(t)
	insertChair(t, app, ev)

	if _, err := app.PointerDown(0, 0, topDownCamera()); err != nil {
		t.Fatal(err)
	}
	if err := app.BeginDrag(); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if err := app.DragTo(1, 0, -0.5); err != nil {
		t.Fatalf("DragTo() error = %v", err)
	}
	frame, err := app.Frame()
	if err != nil {
		t.Fatal(err)
	}
	if !frame.Dragging {
		t.Error("frame does not report the drag")
	}
	if err := app.PointerUp(); err != nil {
		t.Fatal(err)
	}

	var pos scene.Vec3
	err = app.onLoop("inspect", func() error {
		pos = app.session.Graph().Lookup("chair.glb").Transform.Position
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if pos != (scene.Vec3{X: 1, Z: -0.5}) {
		t.Errorf("position = %v", pos)
	}
}
