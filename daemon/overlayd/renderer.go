package overlayd

import (
	"github.com/paulmach/orb/geojson"

	"github.com/notomaps/tilengine/events"
)

// FeedRenderer implements engine.Renderer by publishing onto the event
// feeds the daemon's websocket broadcasts from. Remote viewers are the
// actual renderer; this is the bridge.
type FeedRenderer struct{}

func (FeedRenderer) Commit(fc *geojson.FeatureCollection) {
	events.CommitFeed.Send(fc)
}

func (FeedRenderer) Clear() {
	events.CommitFeed.Send(geojson.NewFeatureCollection())
}

func (FeedRenderer) SetOverviewVisible(visible bool) {
	events.OverviewFeed.Send(visible)
}

// FeedNotifier implements engine.Notifier onto the notice feed.
type FeedNotifier struct{}

func (FeedNotifier) Notify(reason, message string) {
	events.NoticeFeed.Send(events.Notice{Reason: reason, Message: message})
}
