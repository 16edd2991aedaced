package asset

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chazu/roomcraft/pkg/loop"
	"github.com/chazu/roomcraft/pkg/scene"
	"go.uber.org/zap"
)

// Result is reported on the loop once a load has finished.
type Result struct {
	Path  string
	Node  scene.NodeID // inserted furniture root; zero on failure
	Parts int          // nodes inserted, root included
	Err   error        // *LoadError on failure
}

// Loader inserts furniture assets. Fetch and decode run on a goroutine per
// load; insertion is posted to the loop queue and never done inline.
type Loader struct {
	g       *scene.Graph
	q       *loop.Queue
	fetch   Fetcher
	dec     Decoder
	log     *zap.Logger
	wg      sync.WaitGroup
	results []func(Result)
}

// NewLoader returns a loader inserting into g through q. A nil decoder
// means GLTFDecoder.
func NewLoader(g *scene.Graph, q *loop.Queue, fetch Fetcher, dec Decoder, logger *zap.Logger) *Loader {
	if dec == nil {
		dec = GLTFDecoder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{g: g, q: q, fetch: fetch, dec: dec, log: logger}
}

// OnResult registers fn to receive every load outcome. It runs on the loop.
// Register before the first Load.
func (l *Loader) OnResult(fn func(Result)) {
	l.results = append(l.results, fn)
}

// Load starts loading assetPath and returns immediately. Loads of the same
// path are not coalesced.
func (l *Loader) Load(ctx context.Context, assetPath string) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		start := time.Now()
		sub, err := l.prepare(ctx, assetPath)
		if err != nil {
			err = &LoadError{Path: assetPath, Cause: err}
		}
		l.log.Debug("asset prepared",
			zap.String("path", assetPath),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))

		postErr := l.q.Post("insert "+assetPath, func() { l.apply(assetPath, sub, err) })
		if errors.Is(postErr, loop.ErrDisposed) {
			l.log.Debug("load finished after teardown, dropped", zap.String("path", assetPath))
		}
	}()
}

// Wait blocks until every started load has fetched, decoded and posted its
// completion.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) prepare(ctx context.Context, assetPath string) (*scene.Subtree, error) {
	data, err := l.fetch.Fetch(ctx, assetPath)
	if err != nil {
		return nil, err
	}
	doc, err := l.dec.Decode(data)
	if err != nil {
		return nil, err
	}
	return Build(assetPath, doc)
}

// apply runs on the loop.
func (l *Loader) apply(assetPath string, sub *scene.Subtree, err error) {
	if l.g.Disposed() {
		l.log.Debug("graph disposed, dropping asset", zap.String("path", assetPath))
		return
	}
	res := Result{Path: assetPath, Err: err}
	if err == nil {
		res.Parts = sub.Len()
		id, addErr := l.g.AddSubtree(l.g.FurnitureGroup().ID, sub)
		if addErr != nil {
			res.Err = &LoadError{Path: assetPath, Cause: addErr}
		} else {
			res.Node = id
		}
	}
	if res.Err != nil {
		res.Parts = 0
		l.log.Warn("asset load failed", zap.String("path", assetPath), zap.Error(res.Err))
	} else {
		l.log.Info("asset inserted",
			zap.String("path", assetPath),
			zap.String("node_id", res.Node.Short()),
			zap.Int("parts", res.Parts))
	}
	for _, fn := range l.results {
		fn(res)
	}
}
