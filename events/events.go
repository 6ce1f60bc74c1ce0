package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/paulmach/orb/geojson"
)

// CommitFeed is emitted once per committed merge: the full feature
// collection the rendering side should now be showing. Subscribers get
// snapshots, never the engine's live cache.
var CommitFeed = event.FeedOf[*geojson.FeatureCollection]{}

// Notice is a rate-limited, user-facing advisory about degraded mode.
// Reason is one of the engine's stable reason keys ("zoom-too-coarse",
// "area-too-large"); Message is display text.
type Notice struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// NoticeFeed is emitted for degraded-mode notices, already rate-limited
// by the engine. Subscribers may display them verbatim.
var NoticeFeed = event.FeedOf[Notice]{}

// OverviewFeed is emitted when the coarse fallback layer should be
// shown or hidden.
var OverviewFeed = event.FeedOf[bool]{}
