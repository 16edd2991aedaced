// Package editor assembles one editing session: the scene graph and the
// loop that owns it, the command bus, selection, gizmo, asset loading,
// persistence and the viewport tessellator.
//
// Unless noted otherwise, Session methods must be called on the loop
// goroutine, the one that calls Tick or Run.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/roomcraft/pkg/asset"
	"github.com/chazu/roomcraft/pkg/bus"
	"github.com/chazu/roomcraft/pkg/config"
	"github.com/chazu/roomcraft/pkg/gizmo"
	"github.com/chazu/roomcraft/pkg/kernel"
	"github.com/chazu/roomcraft/pkg/kernel/sdfx"
	"github.com/chazu/roomcraft/pkg/loop"
	"github.com/chazu/roomcraft/pkg/pick"
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/script"
	"github.com/chazu/roomcraft/pkg/snapshot"
	"github.com/chazu/roomcraft/pkg/store"
	"github.com/chazu/roomcraft/pkg/tessellate"
	"go.uber.org/zap"
)

// ErrNoStore is returned by save-room and load-room without a store.
var ErrNoStore = errors.New("editor: no room store configured")

// storeTimeout bounds one store round trip made on the loop.
const storeTimeout = 10 * time.Second

// Options configures a Session. Zero values pick the defaults noted.
type Options struct {
	Room       scene.Room    // DefaultRoom
	Fetcher    asset.Fetcher // required for insert-model
	Decoder    asset.Decoder // GLTFDecoder
	Store      store.Store   // save-room and load-room fail without one
	DefaultKey string        // "roomScene"
	Kernel     kernel.Kernel // sdfx at its default resolution
	Script     time.Duration // script.DefaultTimeout
	Logger     *zap.Logger
}

// OptionsFromConfig maps cfg onto Options. The store is opened by the
// caller, which also owns closing it on failure.
func OptionsFromConfig(cfg *config.Config, st store.Store, logger *zap.Logger) Options {
	return Options{
		Room: cfg.Room,
		Fetcher: asset.NewFetcher(asset.Options{
			Root:    cfg.Assets.Root,
			BaseURL: cfg.Assets.BaseURL,
			Timeout: cfg.Assets.Timeout,
			Retries: cfg.Assets.Retries,
		}),
		Store:      st,
		DefaultKey: cfg.Store.DefaultKey,
		Kernel:     sdfx.New(cfg.Mesh.Resolution),
		Script:     cfg.Script.Timeout,
		Logger:     logger,
	}
}

// ImportReport is the value of a successful or partial import.
type ImportReport struct {
	Walls     int `json:"walls"`
	Furniture int `json:"furniture"`
	Skipped   int `json:"skipped"`
}

// Session is one open room.
type Session struct {
	g      *scene.Graph
	q      *loop.Queue
	bus    *bus.Bus
	sel    *pick.Selector
	nav    *gizmo.Navigation
	gz     *gizmo.Gizmo
	loader *asset.Loader
	st     store.Store
	key    string
	tess   *tessellate.Tessellator
	k      kernel.Kernel
	con    *script.Console
	log    *zap.Logger

	sub    *bus.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New builds a session around a fresh graph and subscribes it to its bus.
func New(opts Options) (*Session, error) {
	if opts.Room == (scene.Room{}) {
		opts.Room = scene.DefaultRoom()
	}
	if err := opts.Room.Validate(); err != nil {
		return nil, err
	}
	if opts.DefaultKey == "" {
		opts.DefaultKey = "roomScene"
	}
	if opts.Kernel == nil {
		opts.Kernel = sdfx.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger

	s := &Session{
		g:   scene.New(opts.Room),
		q:   loop.New(log.Named("loop")),
		st:  opts.Store,
		key: opts.DefaultKey,
		k:   opts.Kernel,
		con: script.NewConsole(opts.Script, log.Named("script")),
		log: log,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.bus = bus.New(s.q, log.Named("bus"))
	s.sel = pick.NewSelector(s.g, log.Named("pick"))
	s.nav = gizmo.NewNavigation(log.Named("nav"))
	s.gz = gizmo.New(s.g, s.nav, log.Named("gizmo"))
	s.tess = tessellate.New(opts.Kernel, log.Named("tessellate"))

	fetch := opts.Fetcher
	if fetch == nil {
		fetch = asset.FileFetcher{Root: "."}
	}
	s.loader = asset.NewLoader(s.g, s.q, fetch, opts.Decoder, log.Named("asset"))
	s.loader.OnResult(s.loadFinished)
	s.sel.OnChange(s.selectionChanged)
	s.sub = s.bus.Subscribe(s.handle)

	log.Info("session started",
		zap.Float64("width", opts.Room.Width),
		zap.Float64("depth", opts.Room.Depth),
		zap.Float64("height", opts.Room.Height))
	return s, nil
}

// Graph returns the scene graph. Read it on the loop only.
func (s *Session) Graph() *scene.Graph { return s.g }

// Bus returns the session's command bus. Safe from any goroutine.
func (s *Session) Bus() *bus.Bus { return s.bus }

// Queue returns the loop queue. Safe from any goroutine.
func (s *Session) Queue() *loop.Queue { return s.q }

// Selector returns the selection machine.
func (s *Session) Selector() *pick.Selector { return s.sel }

// Gizmo returns the transform gizmo.
func (s *Session) Gizmo() *gizmo.Gizmo { return s.gz }

// Navigation returns the camera-navigation lock. Safe from any goroutine.
func (s *Session) Navigation() *gizmo.Navigation { return s.nav }

// Publish queues cmd. Safe from any goroutine.
func (s *Session) Publish(cmd bus.Command) error { return s.bus.Publish(cmd) }

// PublishRaw decodes and queues a named payload. Safe from any goroutine.
func (s *Session) PublishRaw(name string, payload []byte) error {
	return s.bus.PublishRaw(name, payload)
}

// OnResult registers r for every command and load outcome.
func (s *Session) OnResult(r bus.Reporter) { s.bus.OnResult(r) }

// Tick runs every pending task and returns how many ran.
func (s *Session) Tick() int { return s.q.Drain() }

// Run drains the loop until ctx is done or the session is closed.
func (s *Session) Run(ctx context.Context) error { return s.q.Run(ctx) }

// WaitLoads blocks until every started asset load has posted its
// completion. Safe from any goroutine; call Tick afterwards to apply them.
func (s *Session) WaitLoads() { s.loader.Wait() }

// Close tears the session down and must be called on the loop. An active
// drag is interrupted, in-flight loads are cancelled and the graph is
// disposed; completions arriving later are dropped. Idempotent.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.gz.Interrupt()
		s.sub.Unsubscribe()
		s.cancel()
		s.q.Close()
		s.g.Dispose()
		if s.st != nil {
			err = s.st.Close()
		}
		s.log.Info("session closed")
	})
	return err
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// PointerDown picks at NDC (x, y). A hit selects its top-level node, a
// miss clears the selection.
func (s *Session) PointerDown(x, y float64, cam pick.Camera) (pick.Hit, bool, error) {
	if s.gz.Dragging() {
		return pick.Hit{}, false, nil
	}
	return s.sel.PointerDown(x, y, cam)
}

// KeyDown routes keyboard input. Escape cancels a drag; Delete and
// Backspace delete the selection; w/e/r pick the gizmo mode.
func (s *Session) KeyDown(key string) (bool, error) {
	switch key {
	case "Escape":
		if s.gz.Dragging() {
			return true, s.gz.Cancel()
		}
		return false, nil
	case "w":
		s.gz.SetMode(gizmo.Translate)
		return true, nil
	case "e":
		s.gz.SetMode(gizmo.Rotate)
		return true, nil
	case "r":
		s.gz.SetMode(gizmo.Scale)
		return true, nil
	}
	if s.gz.Dragging() {
		return false, nil
	}
	return s.sel.HandleKey(key)
}

// BeginDrag starts a gizmo drag on the selection and suspends navigation.
func (s *Session) BeginDrag() error {
	_, err := s.gz.Begin()
	return err
}

// DragTo moves the drag to offset from its start.
func (s *Session) DragTo(offset scene.Vec3) error { return s.gz.Update(offset) }

// EndDrag keeps the dragged transform and resumes navigation.
func (s *Session) EndDrag() error { return s.gz.End() }

// PointerUp ends any drag, wherever the pointer was released.
func (s *Session) PointerUp() { s.gz.PointerUp() }

// Blur interrupts a drag when the window loses focus. Changes applied so
// far are kept.
func (s *Session) Blur() { s.gz.Interrupt() }

// Frame returns the meshes to draw.
func (s *Session) Frame() ([]tessellate.Part, error) {
	var selected scene.NodeID
	if n, ok := s.sel.Selected(); ok {
		selected = n.ID
	}
	return s.tess.Frame(s.g, selected)
}

// Shell returns the walls as one mesh. It is rebuilt on every call.
func (s *Session) Shell() (*kernel.Mesh, error) { return tessellate.Shell(s.g, s.k) }

// Check runs structural validation over the graph.
func (s *Session) Check() []scene.ValidationError { return scene.Validate(s.g) }

// Rooms lists the keys saved in the store.
func (s *Session) Rooms() ([]string, error) {
	if s.st == nil {
		return nil, ErrNoStore
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	return s.st.List(ctx)
}

// DeleteRoom removes a saved room. An empty key means the default key.
func (s *Session) DeleteRoom(key string) error {
	if s.st == nil {
		return ErrNoStore
	}
	key = s.keyOr(key)
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	if err := s.st.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete room %q: %w", key, err)
	}
	s.log.Info("room deleted", zap.String("key", key))
	return nil
}

// Eval runs console source off the loop and publishes the commands it
// issued, in order. A script with errors publishes nothing. Safe from any
// goroutine.
func (s *Session) Eval(source string) (*script.Result, error) {
	res, err := s.con.Evaluate(source)
	if err != nil || len(res.Errors) > 0 {
		return res, err
	}
	for _, cmd := range res.Commands {
		if err := s.bus.Publish(cmd); err != nil {
			return res, err
		}
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

func (s *Session) selectionChanged(c pick.Change) {
	if c.Next.IsZero() {
		s.gz.Unbind()
		return
	}
	if err := s.gz.Bind(c.Next); err != nil {
		s.log.Warn("gizmo bind failed", zap.String("node_id", c.Next.Short()), zap.Error(err))
	}
}

func (s *Session) loadFinished(r asset.Result) {
	res := bus.Result{Name: bus.NameInsertModel, Command: bus.InsertModel{Path: r.Path}, Value: r, Err: r.Err}
	s.bus.Report(res)
}

// handle executes one command on the loop.
func (s *Session) handle(cmd bus.Command) (any, error) {
	switch c := cmd.(type) {
	case bus.InsertModel:
		s.loader.Load(s.ctx, c.Path)
		return nil, nil

	case bus.ExportScene:
		return snapshot.Save(s.g), nil

	case bus.ImportScene:
		return s.importSnapshot(c.Snapshot)

	case bus.DeleteSelected:
		id, err := s.sel.Delete()
		if err != nil {
			return nil, err
		}
		return id, nil

	case bus.ResizeRoom:
		room := c.Room
		if room.Thickness == 0 {
			room.Thickness = s.g.Room().Thickness
		}
		if err := s.g.Resize(room); err != nil {
			return nil, fmt.Errorf("resize room: %w", err)
		}
		return room, nil

	case bus.SelectNode:
		if c.Target == "" {
			s.sel.Clear()
			return scene.ZeroID, nil
		}
		if err := s.sel.SelectByName(c.Target); err != nil {
			return nil, err
		}
		n, _ := s.sel.Selected()
		return n.ID, nil

	case bus.SetTransform:
		n := s.g.Lookup(c.Target)
		if n == nil {
			return nil, fmt.Errorf("set transform %q: %w", c.Target, scene.ErrNodeNotFound)
		}
		t := c.Apply(n.Transform)
		if err := s.g.SetTransform(n.ID, t); err != nil {
			return nil, err
		}
		return t, nil

	case bus.SaveRoom:
		if s.st == nil {
			return nil, ErrNoStore
		}
		key := s.keyOr(c.Key)
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		snap := snapshot.Save(s.g)
		if err := s.st.Save(ctx, key, snap); err != nil {
			return nil, fmt.Errorf("save room %q: %w", key, err)
		}
		s.log.Info("room saved", zap.String("key", key), zap.Int("furniture", len(snap.Furniture)))
		return key, nil

	case bus.LoadRoom:
		if s.st == nil {
			return nil, ErrNoStore
		}
		key := s.keyOr(c.Key)
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		defer cancel()
		snap, err := s.st.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load room %q: %w", key, err)
		}
		return s.importSnapshot(snap)
	}
	return nil, fmt.Errorf("unsupported command %T", cmd)
}

func (s *Session) keyOr(key string) string {
	if key == "" {
		return s.key
	}
	return key
}

// importSnapshot applies snap in place. Records that could not be applied
// are joined into the returned error next to the report of what was.
func (s *Session) importSnapshot(snap snapshot.Snapshot) (any, error) {
	if s.gz.Dragging() {
		s.gz.Interrupt()
	}
	errs := snapshot.Load(s.g, snap)
	s.sel.Prune()
	report := ImportReport{
		Walls:     min(len(snap.Walls), len(s.g.Walls())),
		Furniture: len(s.g.Furniture()),
		Skipped:   len(snap.Furniture) - len(s.g.Furniture()),
	}
	if len(errs) > 0 {
		s.log.Warn("snapshot applied partially", zap.Int("errors", len(errs)))
	}
	for _, f := range s.Check() {
		s.log.Warn("imported scene finding",
			zap.String("node_id", f.NodeID.Short()),
			zap.String("severity", f.Severity.String()),
			zap.String("message", f.Message))
	}
	return report, errors.Join(errs...)
}
