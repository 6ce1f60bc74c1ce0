package overlayd

import (
	"encoding/json"
	"log/slog"

	"github.com/olahol/melody"
	"github.com/paulmach/orb/geojson"

	"github.com/notomaps/tilengine/events"
)

type websocketAction string

const (
	websocketActionCommit   websocketAction = "commit"
	websocketActionNotice   websocketAction = "notice"
	websocketActionOverview websocketAction = "overview"
)

type broadcast struct {
	Action     websocketAction            `json:"action"`
	Collection *geojson.FeatureCollection `json:"collection,omitempty"`
	Notice     *events.Notice             `json:"notice,omitempty"`
	Visible    *bool                      `json:"visible,omitempty"`
}

// initMelody sets up the websocket handler: every connected viewer gets
// the current overlay on connect, then live commit/notice/overview
// pushes off the event feeds.
func (s *OverlayDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		s.logger.Info("Websocket connected", "remote", sess.Request.RemoteAddr)
		fc := s.engine.Overlay()
		b, err := json.Marshal(broadcast{Action: websocketActionCommit, Collection: fc})
		if err != nil {
			slog.Error("Failed to marshal overlay for new session", "error", err)
			return
		}
		_ = sess.Write(b)
	})

	// Incoming messages from viewers are logged and dropped; control
	// flows through the HTTP API.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message dropped", "remote", sess.Request.RemoteAddr, "len", len(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Info("Websocket disconnected", "remote", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, err error) {
		s.logger.Warn("Websocket error", "remote", sess.Request.RemoteAddr, "error", err)
	})

	commits := make(chan *geojson.FeatureCollection)
	commitSub := events.CommitFeed.Subscribe(commits)
	notices := make(chan events.Notice)
	noticeSub := events.NoticeFeed.Subscribe(notices)
	overviews := make(chan bool)
	overviewSub := events.OverviewFeed.Subscribe(overviews)

	go func() {
		defer commitSub.Unsubscribe()
		defer noticeSub.Unsubscribe()
		defer overviewSub.Unsubscribe()
		for {
			var msg broadcast
			select {
			case fc := <-commits:
				msg = broadcast{Action: websocketActionCommit, Collection: fc}
			case n := <-notices:
				msg = broadcast{Action: websocketActionNotice, Notice: &n}
			case v := <-overviews:
				msg = broadcast{Action: websocketActionOverview, Visible: &v}
			case err := <-commitSub.Err():
				slog.Error("Commit feed subscription failed", "error", err)
				return
			case err := <-noticeSub.Err():
				slog.Error("Notice feed subscription failed", "error", err)
				return
			case err := <-overviewSub.Err():
				slog.Error("Overview feed subscription failed", "error", err)
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				slog.Error("Failed to marshal broadcast", "error", err)
				continue
			}
			if err := s.melodyInstance.Broadcast(b); err != nil {
				slog.Warn("Failed to broadcast", "action", msg.Action, "error", err)
			}
		}
	}()
}
