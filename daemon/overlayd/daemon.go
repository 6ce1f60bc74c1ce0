// Package overlayd fronts the tile engine with an HTTP daemon for
// browser-based viewers: the UI layer posts viewport events and
// lifecycle toggles, and receives overlay commits and notices over a
// websocket. The daemon's broadcast IS the rendering collaborator for
// remote clients; in-process collaborators keep the narrow
// engine.Renderer contract.
package overlayd

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/olahol/melody"

	"github.com/notomaps/tilengine/engine"
	"github.com/notomaps/tilengine/params"
)

type OverlayDaemon struct {
	Config *params.OverlayDaemonConfig

	logger         *slog.Logger
	engine         *engine.Engine
	melodyInstance *melody.Melody
}

func NewDaemon(config *params.OverlayDaemonConfig, eng *engine.Engine) *OverlayDaemon {
	if config == nil {
		config = params.DefaultOverlayDaemonConfig()
	}
	return &OverlayDaemon{
		Config: config,
		logger: slog.With("d", "overlay"),
		engine: eng,
	}
}

// Run starts the HTTP server and blocks until it fails or the listener
// closes.
func (s *OverlayDaemon) Run() error {
	router := s.NewRouter()
	listener, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	s.logger.Info("Overlay daemon listening",
		slog.Group("listen", "network", s.Config.Network, "address", s.Config.Address))
	return http.Serve(listener, router)
}

func (s *OverlayDaemon) NewRouter() *mux.Router {
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	router.Path(s.Config.WebsocketPath).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/overlay").HandlerFunc(s.handleGetOverlay).Methods(http.MethodGet)
	apiJSONRoutes.Path("/status").HandlerFunc(s.handleGetStatus).Methods(http.MethodGet)
	apiJSONRoutes.Path("/metrics").HandlerFunc(s.handleGetMetrics).Methods(http.MethodGet)
	apiJSONRoutes.Path("/viewport").HandlerFunc(s.handleViewport).Methods(http.MethodPost)
	apiJSONRoutes.Path("/enable").HandlerFunc(s.handleEnable).Methods(http.MethodPost)
	apiJSONRoutes.Path("/disable").HandlerFunc(s.handleDisable).Methods(http.MethodPost)

	return router
}
