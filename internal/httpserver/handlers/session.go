package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
)

// Login exchanges an API token for a session. The anonymous state of the
// previous session id is dropped.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prev := session.FromContext(r.Context())

		v, err := d.Sessions.Login(r.Context(), w, r.PostFormValue("token"))
		if err != nil {
			d.Logger.Warn("login failed", logger.Error(err))
			renderError(d, w, r, http.StatusUnauthorized, "Login failed", "The token was not accepted.")
			return
		}
		forget(d, prev.SID)

		d.Logger.Debug("session started", logger.String("uid", v.User.UID))
		http.Redirect(w, r, safeNext(r, "/"), http.StatusSeeOther)
	}
}

// Logout runs as the avatar menu's explicit action, so the menu closes
// whatever the outcome.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := session.FromContext(r.Context())

		menu := d.UI.Get(v.SID).Avatar
		err := menu.Action(func() error {
			return d.Sessions.Logout(r.Context(), w, r)
		})
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			d.Logger.Warn("logout failed", logger.Error(err))
		}
		forget(d, v.SID)

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// forget releases the in-memory state held for a session id.
func forget(d deps.Deps, sid string) {
	if sid == "" {
		return
	}
	d.Feeds.DropViewer(sid)
	d.UI.Drop(sid)
}
