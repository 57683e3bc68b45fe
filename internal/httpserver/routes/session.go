package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/handlers"
)

func init() { Register(Public, registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	r.Post("/login", handlers.Login(d))
	r.Post("/logout", handlers.Logout(d))
	r.Post("/ui/click", handlers.UIClick(d))
	r.Get("/ui/menu", handlers.UIMenu(d))
}
