package fetch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/notomaps/tilengine/metrics"
	"github.com/notomaps/tilengine/tile"
)

// Scheduler runs tile fetches through a fixed-size worker pool, dedups
// concurrent requests for the same key, and hands results back to a
// single owner goroutine.
//
// Ownership model: Submit, Clear and InflightLen must be called on the
// owner goroutine (the one executing functions passed to run). Fetches
// themselves run concurrently, bounded by the pool size; each settles by
// scheduling its bookkeeping back onto the owner via run. The in-flight
// map is therefore never touched from two goroutines, and no lock guards
// it.
//
// Staleness is the owner's problem: results are delivered with the
// generation their batch was submitted under, and the owner discards
// mismatches. The scheduler never cancels an underlying fetch; a stale
// fetch settles, finds no remaining interest, and evaporates.
type Scheduler struct {
	fetcher Fetcher
	sem     chan struct{}
	run     func(func())
	logger  *slog.Logger

	// OnResult delivers one successfully fetched (or empty) tile,
	// once per batch awaiting the key. Called on the owner goroutine.
	OnResult func(key tile.Key, content tile.Content, gen uint64)

	// OnBatchSettled fires after every key of a submitted batch has
	// settled, success or failure. Called on the owner goroutine.
	OnBatchSettled func(gen uint64)

	inflight map[tile.Key][]*batch
}

type batch struct {
	gen       uint64
	remaining int
}

// NewScheduler creates a scheduler with the given pool size. run must
// execute its argument on the owner goroutine, serialized with every
// other owner-side call.
func NewScheduler(workers int, fetcher Fetcher, run func(func())) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		fetcher:  fetcher,
		sem:      make(chan struct{}, workers),
		run:      run,
		logger:   slog.With("d", "fetch"),
		inflight: make(map[tile.Key][]*batch),
	}
}

// Submit fetches the given keys as one batch stamped with gen. Keys with
// a fetch already in flight join it instead of issuing a second request.
// An empty batch settles immediately.
func (s *Scheduler) Submit(urlTemplate string, keys []tile.Key, gen uint64) {
	b := &batch{gen: gen, remaining: len(keys)}
	if b.remaining == 0 {
		if s.OnBatchSettled != nil {
			s.OnBatchSettled(gen)
		}
		return
	}
	for _, key := range keys {
		if waiters, ok := s.inflight[key]; ok {
			s.inflight[key] = append(waiters, b)
			metrics.FetchDedupHits.Inc(1)
			continue
		}
		s.inflight[key] = []*batch{b}
		go s.fetchOne(urlTemplate, key)
	}
}

// Clear empties the in-flight table. Fetches already running will still
// settle, find nobody waiting, and be dropped without effect.
func (s *Scheduler) Clear() {
	clear(s.inflight)
}

// InflightLen reports how many keys currently have a fetch in flight
// with at least one interested batch.
func (s *Scheduler) InflightLen() int {
	return len(s.inflight)
}

func (s *Scheduler) fetchOne(urlTemplate string, key tile.Key) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	metrics.FetchesIssued.Inc(1)
	metrics.FetchMeter.Mark(1)

	content, err := s.fetcher.Fetch(context.Background(), urlTemplate, key)
	s.run(func() {
		s.settle(key, content, err)
	})
}

// settle runs on the owner goroutine.
func (s *Scheduler) settle(key tile.Key, content tile.Content, err error) {
	waiters, ok := s.inflight[key]
	delete(s.inflight, key)

	if errors.Is(err, ErrNotFound) {
		// Upstream omits featureless tiles. Empty tile, not an error.
		metrics.FetchNotFound.Inc(1)
		content, err = tile.Empty(), nil
	}
	if err != nil {
		metrics.FetchErrors.Inc(1)
		s.logger.Warn("Tile fetch failed", "key", key.String(), "error", err)
	}
	if !ok {
		// Cleared while in flight. Expected under churn, nothing to do.
		s.logger.Debug("Dropping settled fetch with no waiters", "key", key.String())
		return
	}
	for _, b := range waiters {
		if err == nil && s.OnResult != nil {
			s.OnResult(key, content, b.gen)
		}
		b.remaining--
		if b.remaining == 0 && s.OnBatchSettled != nil {
			s.OnBatchSettled(b.gen)
		}
	}
}
