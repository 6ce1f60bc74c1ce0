package store

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"

	"github.com/notomaps/tilengine/fetch"
	"github.com/notomaps/tilengine/tile"
)

// PrefetchStats summarizes one prefetch run.
type PrefetchStats struct {
	Fetched int
	Empty   int
	Failed  int
	Bytes   int64
}

// Prefetch walks the tile rectangle covering b at the given zoom and
// stores every payload. Not-found tiles are stored as empty; individual
// failures are logged and skipped. Requests are spaced by delay out of
// politeness to the upstream server.
func (s *Store) Prefetch(ctx context.Context, raw fetch.RawFetcher, urlTemplate string, b orb.Bound, zoom uint32, delay time.Duration) (PrefetchStats, error) {
	keys := tile.CoverBound(b, zoom)
	s.logger.Info("Prefetching region",
		"tiles", len(keys), "zoom", zoom, "delay", delay)

	var stats PrefetchStats
	started := time.Now()
	for i, k := range keys {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}

		data, err := raw.FetchRaw(ctx, urlTemplate, k)
		switch {
		case errors.Is(err, fetch.ErrNotFound):
			stats.Empty++
			data = nil // stored as the canonical empty payload
		case err != nil:
			stats.Failed++
			s.logger.Warn("Prefetch tile failed", "key", k.String(), "error", err)
			continue
		default:
			stats.Fetched++
			stats.Bytes += int64(len(data))
		}

		if err := s.PutTile(k, data); err != nil {
			return stats, err
		}
		if (i+1)%50 == 0 {
			s.logger.Info("Prefetch progress",
				"done", i+1, "total", len(keys), "size", humanize.Bytes(uint64(stats.Bytes)))
		}
	}

	meta := Meta{
		West: b.Min[0], South: b.Min[1], East: b.Max[0], North: b.Max[1],
		Zoom: zoom, TileCount: len(keys), FetchedAt: time.Now(),
	}
	if err := s.PutMeta(meta); err != nil {
		return stats, err
	}

	s.logger.Info("Prefetch complete",
		"fetched", stats.Fetched, "empty", stats.Empty, "failed", stats.Failed,
		"size", humanize.Bytes(uint64(stats.Bytes)),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return stats, nil
}
