package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"puzzle-party/internal/broadcast"
	"puzzle-party/internal/lobby"
	"puzzle-party/internal/spectate"
)

// Deps is everything the HTTP surface reads from. Results and Ping may be nil
// when no archive database is configured.
type Deps struct {
	Registry *lobby.Registry
	Hub      *broadcast.Hub
	Results  ResultReader
	Ping     func(ctx context.Context) error
	WS       http.Handler
	AdminKey string
}

func NewRouter(d Deps) *chi.Mux {
	publicHandlers := NewPublicHandlers(d.Registry, d.Results)
	adminHandlers := NewAdminHandlers(d.Registry, d.Ping)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/public/variants", publicHandlers.Variants())
		r.Get("/public/rooms", publicHandlers.Rooms())
		r.Get("/public/rooms/{code}", spectate.SnapshotHandler(d.Registry))
		r.Get("/public/rooms/{code}/events", spectate.EventsHandler(d.Registry, d.Hub))
		r.Get("/public/results", publicHandlers.Results())
		r.Get("/public/results/{result_id}", publicHandlers.Result())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminKey))
			r.Get("/admin/rooms", adminHandlers.Rooms())

			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
