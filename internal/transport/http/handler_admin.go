package httptransport

import (
	"context"
	"net/http"

	"puzzle-party/internal/lobby"
)

type AdminHandlers struct {
	registry *lobby.Registry
	ping     func(ctx context.Context) error
}

func NewAdminHandlers(registry *lobby.Registry, ping func(ctx context.Context) error) *AdminHandlers {
	return &AdminHandlers{registry: registry, ping: ping}
}

type healthResponse struct {
	OK      bool   `json:"ok"`
	Rooms   int    `json:"rooms"`
	Archive string `json:"archive"`
}

// Health reports ok while the process is serving. A failing archive database
// degrades the report but does not fail it; rooms keep running without it.
func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{OK: true, Rooms: h.registry.Count(), Archive: "disabled"}
		if h.ping != nil {
			resp.Archive = "ok"
			if err := h.ping(r.Context()); err != nil {
				resp.Archive = "unavailable"
			}
		}
		writeJSON(w, resp)
	}
}

func (h *AdminHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, roomsResponse{Items: h.registry.AllRooms()})
	}
}
