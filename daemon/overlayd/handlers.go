package overlayd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/paulmach/orb"

	"github.com/notomaps/tilengine/metrics"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// viewportRequest is what the UI layer posts on every pan/zoom:
// bbox is [west, south, east, north].
type viewportRequest struct {
	BBox [4]float64 `json:"bbox"`
	Zoom float64    `json:"zoom"`
}

func (v viewportRequest) bound() (orb.Bound, error) {
	if v.BBox[0] > v.BBox[2] || v.BBox[1] > v.BBox[3] {
		return orb.Bound{}, fmt.Errorf("malformed bbox %v", v.BBox)
	}
	return orb.Bound{
		Min: orb.Point{v.BBox[0], v.BBox[1]},
		Max: orb.Point{v.BBox[2], v.BBox[3]},
	}, nil
}

func (s *OverlayDaemon) handleViewport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	var req viewportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed viewport event", http.StatusBadRequest)
		return
	}
	b, err := req.bound()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.engine.OnViewportChanged(b, req.Zoom)
	s.writeStatus(w)
}

func (s *OverlayDaemon) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLTemplate string `json:"urlTemplate"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed enable request", http.StatusBadRequest)
			return
		}
	}
	s.engine.Enable(req.URLTemplate)
	s.writeStatus(w)
}

func (s *OverlayDaemon) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.engine.Disable()
	s.writeStatus(w)
}

func (s *OverlayDaemon) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

func (s *OverlayDaemon) writeStatus(w http.ResponseWriter) {
	if err := json.NewEncoder(w).Encode(s.engine.Status()); err != nil {
		slog.Warn("Failed to write status response", "error", err)
	}
}

func (s *OverlayDaemon) handleGetOverlay(w http.ResponseWriter, r *http.Request) {
	fc := s.engine.Overlay()
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		slog.Warn("Failed to write overlay response", "error", err)
	}
}

func (s *OverlayDaemon) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if err := json.NewEncoder(w).Encode(metrics.Registry.GetAll()); err != nil {
		slog.Warn("Failed to write metrics response", "error", err)
	}
}
