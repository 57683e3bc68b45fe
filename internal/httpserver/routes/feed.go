package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/handlers"
)

func init() { Register(Public, registerFeed) }

func registerFeed(r chi.Router, d deps.Deps) {
	r.Route("/api/comments/{belong}/{belongID}", func(r chi.Router) {
		r.Get("/", handlers.FeedSnapshot(d))
		r.Post("/more", handlers.FeedMore(d))
		r.Post("/sort", handlers.FeedSort(d))
		r.Post("/vote/{cid}", handlers.FeedVote(d))
	})
}
