package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc is called after a successful reload.
type ChangeFunc func(old, cur *Config)

// Watcher reloads a configuration file when it changes on disk. It watches
// the containing directory so editors that replace the file by rename are
// seen too.
type Watcher struct {
	path     string
	loader   *Loader
	log      *zap.Logger
	debounce time.Duration

	mu        sync.RWMutex
	cfg       *Config
	callbacks []ChangeFunc

	fs   *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	stop sync.Once
}

// NewWatcher loads path once and prepares to watch it.
func NewWatcher(path string, loader *Loader, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load(abs)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		loader:   loader,
		log:      logger,
		debounce: 250 * time.Millisecond,
		cfg:      cfg,
		fs:       fsw,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes how long the watcher waits for writes to settle.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// OnChange registers fn. Callbacks run on the watcher goroutine.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop ends watching and waits for the watcher goroutine. Safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := w.Reload(); err != nil {
				w.log.Warn("config reload failed, keeping previous", zap.String("path", w.path), zap.Error(err))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Reload reads the file now and notifies callbacks when it is valid.
func (w *Watcher) Reload() error {
	cfg, err := w.loader.Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	old := w.cfg
	w.cfg = cfg
	callbacks := append([]ChangeFunc(nil), w.callbacks...)
	w.mu.Unlock()

	w.log.Info("config reloaded", zap.String("path", w.path))
	for _, fn := range callbacks {
		w.safeCall(fn, old, cfg)
	}
	return nil
}

func (w *Watcher) safeCall(fn ChangeFunc, old, cur *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("config change callback panicked", zap.Any("panic", r))
		}
	}()
	fn(old, cur)
}
