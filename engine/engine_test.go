package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/notomaps/tilengine/common"
	"github.com/notomaps/tilengine/fetch"
	"github.com/notomaps/tilengine/params"
	"github.com/notomaps/tilengine/tile"
)

// wajima is the deployment-region viewport used throughout: 6 tiles at
// zoom 14 (2 columns by 3 rows).
var wajima = orb.Bound{Min: orb.Point{136.87, 37.39}, Max: orb.Point{136.90, 37.42}}

func testConfig() *params.EngineConfig {
	return &params.EngineConfig{
		TileZoom:        14,
		MinViewportZoom: 8,
		MaxTileCount:    256,
		FetchWorkers:    8,
		FrameInterval:   2 * time.Millisecond,
		NoticeCooldown:  time.Hour,
		URLTemplate:     "mem://{z}/{x}/{y}",
	}
}

type fakeRenderer struct {
	mu        sync.Mutex
	commits   []*geojson.FeatureCollection
	clears    int
	overview  bool
	committed chan *geojson.FeatureCollection
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{committed: make(chan *geojson.FeatureCollection, 32)}
}

func (r *fakeRenderer) Commit(fc *geojson.FeatureCollection) {
	r.mu.Lock()
	r.commits = append(r.commits, fc)
	r.mu.Unlock()
	r.committed <- fc
}

func (r *fakeRenderer) Clear() {
	r.mu.Lock()
	r.clears++
	r.mu.Unlock()
}

func (r *fakeRenderer) SetOverviewVisible(visible bool) {
	r.mu.Lock()
	r.overview = visible
	r.mu.Unlock()
}

func (r *fakeRenderer) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commits)
}

func (r *fakeRenderer) overviewVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overview
}

func (r *fakeRenderer) clearCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

type notice struct{ reason, message string }

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Notify(reason, message string) {
	n.mu.Lock()
	n.notices = append(n.notices, notice{reason, message})
	n.mu.Unlock()
}

func (n *fakeNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

// fakeFetcher serves synthetic one-feature tiles, optionally gated.
type fakeFetcher struct {
	calls atomic.Int64
	gate  chan struct{}
	fn    func(key tile.Key) (tile.Content, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, key tile.Key) (tile.Content, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.fn != nil {
		return f.fn(key)
	}
	return tile.Content{featureFor(key)}, nil
}

func featureFor(key tile.Key) *tile.Feature {
	f := geojson.NewFeature(key.Bound().Center())
	f.Properties["tile"] = key.String()
	return (*tile.Feature)(f)
}

func awaitCommit(t *testing.T, r *fakeRenderer) *geojson.FeatureCollection {
	t.Helper()
	select {
	case fc := <-r.committed:
		return fc
	case <-time.After(5 * time.Second):
		t.Fatal("timed out awaiting commit")
		return nil
	}
}

func quiet() func() {
	return common.SlogResetLevel(slog.Level(slog.LevelError + 1))
}

func TestFetchMergeCommit(t *testing.T) {
	defer quiet()()
	fetcher := &fakeFetcher{}
	renderer := newFakeRenderer()
	e := New(testConfig(), fetcher, renderer, nil)
	defer e.Stop()

	e.Enable("")
	e.OnViewportChanged(wajima, 12)

	required := tile.CoverBound(wajima, 14)
	fc := awaitCommit(t, renderer)

	if len(fc.Features) != len(required) {
		t.Errorf("committed %d features, want %d (one per tile)", len(fc.Features), len(required))
	}
	if n := fetcher.calls.Load(); n != int64(len(required)) {
		t.Errorf("fetches = %d, want %d", n, len(required))
	}
	if got := len(e.CachedKeys()); got != len(required) {
		t.Errorf("cached tiles = %d, want %d", got, len(required))
	}

	// Stable key order: row-major tile sequence.
	sorted := append([]tile.Key(nil), required...)
	sortKeys(sorted)
	for i, f := range fc.Features {
		if want := sorted[i].String(); f.Properties.MustString("tile", "") != want {
			t.Fatalf("feature %d from tile %q, want %q (unstable merge order)",
				i, f.Properties.MustString("tile", ""), want)
		}
	}
}

func TestViewportIdempotent(t *testing.T) {
	defer quiet()()
	fetcher := &fakeFetcher{}
	renderer := newFakeRenderer()
	e := New(testConfig(), fetcher, renderer, nil)
	defer e.Stop()

	e.Enable("")
	e.OnViewportChanged(wajima, 12)
	awaitCommit(t, renderer)
	fetched := fetcher.calls.Load()
	commits := renderer.commitCount()

	// Same viewport, already satisfied: no fetches, no commit.
	e.OnViewportChanged(wajima, 12)
	e.OnViewportChanged(wajima, 12)
	time.Sleep(20 * time.Millisecond)

	if n := fetcher.calls.Load(); n != fetched {
		t.Errorf("redundant viewport issued %d extra fetches", n-fetched)
	}
	if n := renderer.commitCount(); n != commits {
		t.Errorf("redundant viewport issued %d extra commits", n-commits)
	}
}

func TestDegradedZoomTooCoarse(t *testing.T) {
	defer quiet()()
	fetcher := &fakeFetcher{}
	renderer := newFakeRenderer()
	notifier := &fakeNotifier{}
	e := New(testConfig(), fetcher, renderer, notifier)
	defer e.Stop()

	e.Enable("")
	e.OnViewportChanged(wajima, 6)

	st := e.Status()
	if st.Mode != "degraded" {
		t.Fatalf("mode = %q, want degraded", st.Mode)
	}
	if st.CachedTiles != 0 || st.InflightTiles != 0 {
		t.Errorf("cache/inflight not empty: %+v", st)
	}
	if !renderer.overviewVisible() {
		t.Error("overview layer not shown")
	}
	if n := fetcher.calls.Load(); n != 0 {
		t.Errorf("degraded mode still fetched %d tiles", n)
	}

	notices := notifier.all()
	if len(notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(notices))
	}
	if notices[0].reason != ReasonZoomTooCoarse {
		t.Errorf("reason = %q", notices[0].reason)
	}
	if !strings.Contains(notices[0].message, "6.0") {
		t.Errorf("message %q does not interpolate the zoom", notices[0].message)
	}

	// Repeated triggers inside the cooldown stay silent.
	e.OnViewportChanged(wajima, 5)
	e.OnViewportChanged(wajima, 6.5)
	if n := len(notifier.all()); n != 1 {
		t.Errorf("cooldown violated: %d notices", n)
	}
}

func TestDegradedAreaTooLarge(t *testing.T) {
	defer quiet()()
	cfg := testConfig()
	cfg.MaxTileCount = 4 // wajima needs 6
	fetcher := &fakeFetcher{}
	renderer := newFakeRenderer()
	notifier := &fakeNotifier{}
	e := New(cfg, fetcher, renderer, notifier)
	defer e.Stop()

	e.Enable("")
	for i := 0; i < 5; i++ {
		e.OnViewportChanged(wajima, 12)
	}

	st := e.Status()
	if st.Mode != "degraded" {
		t.Fatalf("mode = %q, want degraded", st.Mode)
	}
	if st.CachedTiles != 0 || st.InflightTiles != 0 {
		t.Errorf("cache/inflight not empty: %+v", st)
	}
	notices := notifier.all()
	if len(notices) != 1 {
		t.Fatalf("got %d notices under repeated triggers, want 1", len(notices))
	}
	if notices[0].reason != ReasonAreaTooLarge {
		t.Errorf("reason = %q", notices[0].reason)
	}
}

func TestDegradedRecovery(t *testing.T) {
	defer quiet()()
	fetcher := &fakeFetcher{}
	renderer := newFakeRenderer()
	e := New(testConfig(), fetcher, renderer, &fakeNotifier{})
	defer e.Stop()

	e.Enable("")
	e.OnViewportChanged(wajima, 6)
	if st := e.Status(); st.Mode != "degraded" {
		t.Fatalf("mode = %q", st.Mode)
	}

	e.OnViewportChanged(wajima, 12)
	awaitCommit(t, renderer)
	if st := e.Status(); st.Mode != "normal" {
		t.Errorf("mode = %q after recovery", st.Mode)
	}
	if renderer.overviewVisible() {
		t.Error("overview still visible after recovery")
	}
}

func TestNotFoundTileCachedEmpty(t *testing.T) {
	defer quiet()()
	cfg := testConfig()
	cfg.TileZoom = 8
	fetcher := &fakeFetcher{fn: func(tile.Key) (tile.Content, error) {
		return nil, fetch.ErrNotFound
	}}
	renderer := newFakeRenderer()
	e := New(cfg, fetcher, renderer, nil)
	defer e.Stop()

	// A viewport entirely inside tile 8/113/51.
	target := tile.Key{Z: 8, X: 113, Y: 51}
	center := target.Bound().Center()
	view := orb.Bound{Min: center, Max: center}

	e.Enable("")
	e.OnViewportChanged(view, 10)
	fc := awaitCommit(t, renderer)

	if len(fc.Features) != 0 {
		t.Errorf("committed %d features for an absent tile", len(fc.Features))
	}
	keys := e.CachedKeys()
	if len(keys) != 1 || keys[0] != target {
		t.Fatalf("cached keys = %v, want [%v]", keys, target)
	}
}

func TestDisableDiscardsInflight(t *testing.T) {
	defer quiet()()
	fetcher := &fakeFetcher{gate: make(chan struct{})}
	renderer := newFakeRenderer()
	e := New(testConfig(), fetcher, renderer, nil)
	defer e.Stop()

	e.Enable("")
	before := e.Status().Generation
	e.OnViewportChanged(wajima, 12)

	// All 6 fetches are now blocked on the gate.
	if st := e.Status(); st.InflightTiles == 0 {
		t.Fatal("no fetches in flight")
	}

	e.Disable()
	st := e.Status()
	if st.Enabled {
		t.Fatal("still enabled")
	}
	if st.Generation <= before {
		t.Errorf("generation not bumped: %d -> %d", before, st.Generation)
	}
	if st.CachedTiles != 0 || st.InflightTiles != 0 {
		t.Errorf("cache/inflight not cleared: %+v", st)
	}
	if renderer.clearCount() == 0 {
		t.Error("rendered output not cleared on disable")
	}

	// Let the gated fetches settle; none may mutate state or commit.
	close(fetcher.gate)
	time.Sleep(20 * time.Millisecond)
	if n := renderer.commitCount(); n != 0 {
		t.Errorf("%d commits from stale results", n)
	}
	if st := e.Status(); st.CachedTiles != 0 {
		t.Errorf("stale results wrote %d cache entries", st.CachedTiles)
	}
}

func TestPanEvictsOutOfView(t *testing.T) {
	defer quiet()()
	fetcher := &fakeFetcher{}
	renderer := newFakeRenderer()
	e := New(testConfig(), fetcher, renderer, nil)
	defer e.Stop()

	e.Enable("")
	e.OnViewportChanged(wajima, 12)
	awaitCommit(t, renderer)

	// Pan east by roughly one tile width.
	shifted := orb.Bound{
		Min: orb.Point{wajima.Min[0] + 0.03, wajima.Min[1]},
		Max: orb.Point{wajima.Max[0] + 0.03, wajima.Max[1]},
	}
	e.OnViewportChanged(shifted, 12)
	awaitCommit(t, renderer)

	required := make(map[tile.Key]bool)
	for _, k := range tile.CoverBound(shifted, 14) {
		required[k] = true
	}
	for _, k := range e.CachedKeys() {
		if !required[k] {
			t.Errorf("cached key %v is outside the current required set", k)
		}
	}
}
