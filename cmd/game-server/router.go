package main

import (
	httptransport "puzzle-party/internal/transport/http"

	"github.com/go-chi/chi/v5"
)

func newRouter(d httptransport.Deps) *chi.Mux {
	return httptransport.NewRouter(d)
}

func logRoutes(r chi.Router) {
	httptransport.LogRoutes(r)
}
