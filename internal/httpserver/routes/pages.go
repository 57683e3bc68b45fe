package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/handlers"
)

func init() { Register(Public, registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Home(d))
	r.Get("/tags/{tid}", handlers.Tag(d))
	r.Get("/license/{lid}", handlers.License(d))
	r.Get("/repository/{rid}/comments", handlers.CommentsPage(d))
}
