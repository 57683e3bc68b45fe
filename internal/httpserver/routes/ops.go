package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/handlers"
)

func init() { Register(Ops, registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))
	r.Get("/infra", handlers.Infra(d))
	r.Post("/reload", handlers.Reload(d))
	r.Handle("/metrics", d.Metrics.Handler())
}
