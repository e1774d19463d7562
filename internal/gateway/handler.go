package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Handler exposes the gateway's HTTP surface: the WebSocket endpoint,
// a one-shot state fetch, and connection stats.
type Handler struct {
	service *Service
}

// NewHandler creates a handler for service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleRoomConnection handles WebSocket upgrade requests.
func (h *Handler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	h.service.HandleConnection(w, r)
}

// HandleGetState handles GET /api/room/state, for clients that want a
// snapshot without holding a socket open.
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := BuildSnapshotView(h.service.state.Snapshot())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		log.Error().Err(err).Msg("failed to encode state response")
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"total_connections":` + strconv.Itoa(h.service.manager.ConnectionCount()) + `}`))
}

// RegisterRoutes registers the gateway routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("/api/room/state", h.HandleGetState)
}
