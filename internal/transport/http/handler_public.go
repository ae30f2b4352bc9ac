package httptransport

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"puzzle-party/internal/lobby"
	"puzzle-party/internal/store"
	"puzzle-party/internal/variants"
)

// ResultReader is the read side of the finished-game archive.
type ResultReader interface {
	ListRecentResults(ctx context.Context, variant string, limit int) ([]store.GameResult, error)
	GetResult(ctx context.Context, id string) (store.GameResult, error)
}

type PublicHandlers struct {
	registry *lobby.Registry
	results  ResultReader
}

func NewPublicHandlers(registry *lobby.Registry, results ResultReader) *PublicHandlers {
	return &PublicHandlers{registry: registry, results: results}
}

type variantsResponse struct {
	Items []string `json:"items"`
}

type roomsResponse struct {
	Items []lobby.RoomSummary `json:"items"`
}

type resultsResponse struct {
	Items []store.GameResult `json:"items"`
}

func (h *PublicHandlers) Variants() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, variantsResponse{Items: variants.Kinds})
	}
}

// Rooms lists joinable rooms, optionally for one ?variant=.
func (h *PublicHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variant, ok := variantParam(r)
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_variant")
			return
		}
		roomListTotal.Add(1)
		writeJSON(w, roomsResponse{Items: h.registry.OpenRooms(variant)})
	}
}

func (h *PublicHandlers) Results() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.results == nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "archive_disabled")
			return
		}
		variant, ok := variantParam(r)
		if !ok {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_variant")
			return
		}
		resultsQueryTotal.Add(1)
		items, err := h.results.ListRecentResults(r.Context(), variant, ParseLimit(r, 50, 200))
		if err != nil {
			resultsQueryErrorsTotal.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if items == nil {
			items = []store.GameResult{}
		}
		writeJSON(w, resultsResponse{Items: items})
	}
}

func (h *PublicHandlers) Result() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.results == nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "archive_disabled")
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "result_id"))
		if id == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		resultsQueryTotal.Add(1)
		res, err := h.results.GetResult(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "not_found")
				return
			}
			resultsQueryErrorsTotal.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, res)
	}
}

// variantParam returns the lower-cased ?variant= value; empty means all.
func variantParam(r *http.Request) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("variant")))
	if v == "" {
		return "", true
	}
	return v, slices.Contains(variants.Kinds, v)
}
