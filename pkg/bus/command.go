// Package bus carries typed editor commands from the UI into the session.
// A Bus is owned by one session; there is no process-wide instance.
package bus

import (
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/snapshot"
)

// Command names as they appear on the wire.
const (
	NameInsertModel    = "insert-model"
	NameExportScene    = "export-scene"
	NameImportScene    = "import-scene"
	NameDeleteSelected = "delete-selected"
	NameResizeRoom     = "resize-room"
	NameSelectNode     = "select-node"
	NameSetTransform   = "set-transform"
	NameSaveRoom       = "save-room"
	NameLoadRoom       = "load-room"
)

// Command is one of the variants below.
type Command interface {
	Name() string
	command()
}

// InsertModel loads the asset at Path and adds it as furniture.
type InsertModel struct {
	Path string `json:"path"`
}

// ExportScene produces a snapshot of the current layout.
type ExportScene struct{}

// ImportScene restores Snapshot into the current graph.
type ImportScene struct {
	Snapshot snapshot.Snapshot `json:"snapshot"`
}

// DeleteSelected removes the selected node. Without a selection it does
// nothing.
type DeleteSelected struct{}

// ResizeRoom lays the walls out for new dimensions. A zero Thickness keeps
// the current one.
type ResizeRoom struct {
	Room scene.Room `json:"room"`
}

// SelectNode selects a top-level node by name. An empty name clears the
// selection.
type SelectNode struct {
	Target string `json:"name"`
}

// SetTransform changes the given parts of a top-level node's transform.
type SetTransform struct {
	Target   string      `json:"name"`
	Position *scene.Vec3 `json:"pos,omitempty"`
	Rotation *scene.Vec3 `json:"rot,omitempty"`
	Scale    *scene.Vec3 `json:"scale,omitempty"`
}

// SaveRoom exports the scene and writes it to the store under Key.
type SaveRoom struct {
	Key string `json:"key"`
}

// LoadRoom reads the snapshot stored under Key and imports it.
type LoadRoom struct {
	Key string `json:"key"`
}

func (InsertModel) Name() string    { return NameInsertModel }
func (ExportScene) Name() string    { return NameExportScene }
func (ImportScene) Name() string    { return NameImportScene }
func (DeleteSelected) Name() string { return NameDeleteSelected }
func (ResizeRoom) Name() string     { return NameResizeRoom }
func (SelectNode) Name() string     { return NameSelectNode }
func (SetTransform) Name() string   { return NameSetTransform }
func (SaveRoom) Name() string       { return NameSaveRoom }
func (LoadRoom) Name() string       { return NameLoadRoom }

func (InsertModel) command()    {}
func (ExportScene) command()    {}
func (ImportScene) command()    {}
func (DeleteSelected) command() {}
func (ResizeRoom) command()     {}
func (SelectNode) command()     {}
func (SetTransform) command()   {}
func (SaveRoom) command()       {}
func (LoadRoom) command()       {}

// Apply returns t with the parts set in c replaced.
func (c SetTransform) Apply(t scene.Transform) scene.Transform {
	if c.Position != nil {
		t.Position = *c.Position
	}
	if c.Rotation != nil {
		t.Rotation = *c.Rotation
	}
	if c.Scale != nil {
		t.Scale = *c.Scale
	}
	return t
}
