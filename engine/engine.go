/*
Package engine drives the viewport tile cache: it reacts to viewport
changes, computes the required tile set, fetches what's missing through a
bounded pool, evicts what scrolled away, and commits merged snapshots to
the rendering collaborator.

Ownership model: one goroutine (the run loop) owns the tile cache, the
in-flight table, and the generation counter. Public methods post work
onto that loop and wait; fetch workers post their results the same way.
Nothing shared is ever mutated from two goroutines, so none of it is
locked.

Staleness: every fetch batch is stamped with the generation current at
submission. Any event that invalidates outstanding work (viewport
re-evaluation, degrade, enable, disable) bumps the generation; a result
whose stamp no longer matches is discarded wholesale when it settles.
There is no cancellation of the underlying request, and none is needed.
*/
package engine

import (
	"fmt"
	"log/slog"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/notomaps/tilengine/cache"
	"github.com/notomaps/tilengine/fetch"
	"github.com/notomaps/tilengine/metrics"
	"github.com/notomaps/tilengine/params"
	"github.com/notomaps/tilengine/tile"
)

// Renderer is the narrow contract to the rendering collaborator.
// The engine never touches rendering primitives directly.
type Renderer interface {
	// Commit replaces the rendered overlay with the given collection.
	Commit(fc *geojson.FeatureCollection)
	// Clear removes the rendered overlay.
	Clear()
	// SetOverviewVisible toggles the coarse fallback layer.
	SetOverviewVisible(visible bool)
}

// Notifier receives user-facing degraded-mode notices. The engine
// rate-limits per reason before calling.
type Notifier interface {
	Notify(reason, message string)
}

// Degraded-mode reason keys, stable for collaborators.
const (
	ReasonZoomTooCoarse = "zoom-too-coarse"
	ReasonAreaTooLarge  = "area-too-large"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeDegraded
)

func (m Mode) String() string {
	if m == ModeDegraded {
		return "degraded"
	}
	return "normal"
}

// Status is a point-in-time snapshot for debugging and the daemon's
// status endpoint.
type Status struct {
	Enabled       bool   `json:"enabled"`
	Mode          string `json:"mode"`
	Generation    uint64 `json:"generation"`
	CachedTiles   int    `json:"cachedTiles"`
	InflightTiles int    `json:"inflightTiles"`
}

type Engine struct {
	config   *params.EngineConfig
	renderer Renderer
	notices  *noticeLimiter
	logger   *slog.Logger

	cache   *cache.TileCache
	sched   *fetch.Scheduler
	commits *commitScheduler

	enabled       bool
	mode          Mode
	gen           uint64
	urlTemplate   string
	committedHash uint64
	pendingHash   uint64

	viewport     orb.Bound
	viewportZoom float64
	haveViewport bool

	calls chan func()
	quit  chan struct{}
}

func New(config *params.EngineConfig, fetcher fetch.Fetcher, renderer Renderer, notifier Notifier) *Engine {
	if config == nil {
		config = params.DefaultEngineConfig()
	}
	e := &Engine{
		config:      config,
		renderer:    renderer,
		logger:      slog.With("d", "engine"),
		cache:       cache.NewTileCache(),
		urlTemplate: config.URLTemplate,
		calls:       make(chan func(), 256),
		quit:        make(chan struct{}),
	}
	e.notices = newNoticeLimiter(notifier, config.NoticeCooldown)
	e.commits = newCommitScheduler(e, config.FrameInterval)
	e.sched = fetch.NewScheduler(config.FetchWorkers, fetcher, e.post)
	e.sched.OnResult = e.applyResult
	e.sched.OnBatchSettled = e.batchSettled
	go e.loop()
	return e
}

func (e *Engine) loop() {
	for {
		select {
		case fn := <-e.calls:
			fn()
		case <-e.quit:
			return
		}
	}
}

// post schedules fn onto the run loop without waiting.
func (e *Engine) post(fn func()) {
	select {
	case e.calls <- fn:
	case <-e.quit:
	}
}

// do schedules fn onto the run loop and waits for it.
func (e *Engine) do(fn func()) {
	done := make(chan struct{})
	e.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-e.quit:
	}
}

// Stop shuts the run loop down. The engine is unusable afterwards.
func (e *Engine) Stop() {
	close(e.quit)
}

// Enable turns the engine on, resets all state, and evaluates the
// current viewport if one is known. An empty urlTemplate keeps the
// configured one.
func (e *Engine) Enable(urlTemplate string) {
	e.do(func() {
		if urlTemplate != "" {
			e.urlTemplate = urlTemplate
		}
		e.enabled = true
		e.reset()
		if e.renderer != nil {
			e.renderer.SetOverviewVisible(false)
		}
		e.logger.Info("Engine enabled", "url", e.urlTemplate)
		if e.haveViewport {
			e.evaluate(e.viewport, e.viewportZoom)
		}
	})
}

// Disable turns the engine off: outstanding work is invalidated, state
// cleared, and the rendered overlay removed.
func (e *Engine) Disable() {
	e.do(func() {
		e.enabled = false
		e.reset()
		e.commits.commitEmpty()
		if e.renderer != nil {
			e.renderer.SetOverviewVisible(false)
		}
		e.logger.Info("Engine disabled")
	})
}

// OnViewportChanged evaluates a new viewport. Ignored while disabled.
func (e *Engine) OnViewportChanged(b orb.Bound, zoom float64) {
	e.do(func() {
		e.viewport, e.viewportZoom, e.haveViewport = b, zoom, true
		if !e.enabled {
			return
		}
		e.evaluate(b, zoom)
	})
}

// Status returns a snapshot of engine state.
func (e *Engine) Status() Status {
	var s Status
	e.do(func() {
		s = Status{
			Enabled:       e.enabled,
			Mode:          e.mode.String(),
			Generation:    e.gen,
			CachedTiles:   e.cache.Len(),
			InflightTiles: e.sched.InflightLen(),
		}
	})
	return s
}

// CachedKeys returns the currently cached tile keys, unordered.
func (e *Engine) CachedKeys() []tile.Key {
	var keys []tile.Key
	e.do(func() { keys = e.cache.Keys() })
	return keys
}

// Overlay merges the current cache into one collection, in stable key
// order. Same merge the commit path uses, on demand.
func (e *Engine) Overlay() *geojson.FeatureCollection {
	var fc *geojson.FeatureCollection
	e.do(func() { fc = e.merge() })
	return fc
}

// reset clears cache, in-flight and commit bookkeeping, and bumps the
// generation so anything still in flight lands dead.
func (e *Engine) reset() {
	e.gen++
	e.cache.Clear()
	e.sched.Clear()
	e.committedHash = 0
	e.pendingHash = 0
	e.mode = ModeNormal
}

// evaluate runs the per-viewport-change algorithm. Owner goroutine only.
func (e *Engine) evaluate(b orb.Bound, zoom float64) {
	if zoom < e.config.MinViewportZoom {
		e.degrade(ReasonZoomTooCoarse, fmt.Sprintf(
			"Zoom %.1f is too coarse for surface detail (minimum %.1f); showing overview.",
			zoom, e.config.MinViewportZoom))
		return
	}
	if count := tile.CountCovering(b, e.config.TileZoom); count > e.config.MaxTileCount {
		e.degrade(ReasonAreaTooLarge, fmt.Sprintf(
			"Viewport at zoom %.1f spans %d tiles (limit %d); showing overview.",
			zoom, count, e.config.MaxTileCount))
		return
	}

	if e.mode == ModeDegraded {
		e.mode = ModeNormal
		if e.renderer != nil {
			e.renderer.SetOverviewVisible(false)
		}
		e.logger.Info("Engine back to normal mode", "zoom", zoom)
	}

	required := tile.CoverBound(b, e.config.TileZoom)
	requiredSet := make(map[tile.Key]bool, len(required))
	for _, k := range required {
		requiredSet[k] = true
	}

	if evicted := e.cache.RetainOnly(requiredSet); evicted > 0 {
		metrics.Evictions.Inc(int64(evicted))
		e.logger.Debug("Evicted out-of-view tiles", "count", evicted)
	}

	missing := required[:0:0]
	for _, k := range required {
		if !e.cache.Has(k) {
			missing = append(missing, k)
		}
	}

	hash := requiredHash(required)
	if len(missing) == 0 && hash == e.committedHash {
		// Satisfied and already committed. Protect the render thread.
		return
	}

	e.gen++
	e.pendingHash = hash
	if len(missing) == 0 {
		// Nothing to fetch, but the required set changed (eviction or
		// first satisfied pass): commit the new shape.
		e.commits.request()
		return
	}
	e.logger.Debug("Submitting fetch batch",
		"required", len(required), "missing", len(missing), "gen", e.gen)
	e.sched.Submit(e.urlTemplate, missing, e.gen)
}

// degrade enters (or stays in) degraded mode. Owner goroutine only.
func (e *Engine) degrade(reason, message string) {
	if e.mode != ModeDegraded {
		metrics.DegradedTransitions.Inc(1)
		e.mode = ModeDegraded
		e.commits.commitEmpty()
		if e.renderer != nil {
			e.renderer.SetOverviewVisible(true)
		}
		e.logger.Info("Engine degraded", "reason", reason)
	}
	e.gen++
	e.cache.Clear()
	e.sched.Clear()
	e.committedHash = 0
	e.pendingHash = 0
	e.notices.notify(reason, message)
}

// applyResult lands one fetched tile. Owner goroutine only.
func (e *Engine) applyResult(key tile.Key, content tile.Content, gen uint64) {
	if !e.enabled || gen != e.gen {
		// Viewport moved on (or engine disabled) since submission.
		// Expected under panning; not an error.
		metrics.StaleDiscards.Inc(1)
		e.logger.Debug("Discarding stale tile result", "key", key.String(), "gen", gen, "live", e.gen)
		return
	}
	e.cache.Put(key, content)
}

// batchSettled fires when every tile of a batch has settled.
// Owner goroutine only.
func (e *Engine) batchSettled(gen uint64) {
	if !e.enabled || gen != e.gen {
		return
	}
	e.commits.request()
}

// merge flattens the cache into one collection in stable key order.
// Owner goroutine only.
func (e *Engine) merge() *geojson.FeatureCollection {
	keys := e.cache.Keys()
	sortKeys(keys)
	fc := geojson.NewFeatureCollection()
	for _, k := range keys {
		content, _ := e.cache.Get(k)
		for _, f := range content {
			fc.Append((*geojson.Feature)(f))
		}
	}
	return fc
}

func sortKeys(keys []tile.Key) {
	// Insertion sort territory for typical viewport sizes, but keep it
	// obvious.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j].Less(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// requiredHash fingerprints an ordered required set, for the
// redundant-commit skip.
func requiredHash(keys []tile.Key) uint64 {
	h, err := hashstructure.Hash(keys, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}
