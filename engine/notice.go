package engine

import (
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// noticeLimiter rate-limits user-facing notices to one per cooldown
// window per distinct reason key, so panning across a degraded boundary
// doesn't spam the user.
type noticeLimiter struct {
	notifier Notifier
	recent   *ttlcache.Cache[string, time.Time]
}

func newNoticeLimiter(notifier Notifier, cooldown time.Duration) *noticeLimiter {
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &noticeLimiter{
		notifier: notifier,
		// No reaper goroutine: Get checks expiry lazily, and the key
		// space is two reason keys.
		recent: ttlcache.New[string, time.Time](
			ttlcache.WithTTL[string, time.Time](cooldown),
			ttlcache.WithDisableTouchOnHit[string, time.Time](),
		),
	}
}

func (l *noticeLimiter) notify(reason, message string) {
	if l.recent.Get(reason) != nil {
		return
	}
	l.recent.Set(reason, time.Now(), ttlcache.DefaultTTL)
	slog.Info("Degraded-mode notice", "reason", reason, "message", message)
	if l.notifier != nil {
		l.notifier.Notify(reason, message)
	}
}
