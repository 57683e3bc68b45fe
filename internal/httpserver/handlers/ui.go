package handlers

import (
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
	"github.com/MrSnakeDoc/hubfeed/internal/ui"
)

type menuResponse struct {
	Open     bool   `json:"open"`
	LoggedIn bool   `json:"logged_in"`
	Avatar   string `json:"avatar,omitempty"`
	UID      string `json:"uid,omitempty"`
}

func menuState(d deps.Deps, v session.Viewer) menuResponse {
	resp := menuResponse{
		Open:     d.UI.Get(v.SID).Avatar.IsOpen(),
		LoggedIn: v.LoggedIn(),
	}
	if v.LoggedIn() {
		resp.Avatar = v.User.AvatarURL()
		resp.UID = v.User.UID
	}
	return resp
}

// keepMenu marks next so rendering it does not count as a click outside
// the menu the avatar just toggled.
func keepMenu(next string) string {
	u, err := url.Parse(next)
	if err != nil {
		return next
	}
	q := u.Query()
	q.Set(menuParam, menuKeep)
	u.RawQuery = q.Encode()
	return u.String()
}

// UIClick feeds a page click into the viewer's ui session: target=avatar
// toggles the menu, any other target is an outside click.
func UIClick(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.PostFormValue("target")
		if target == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing target"})
			return
		}
		v := session.FromContext(r.Context())
		d.UI.Get(v.SID).Click(target)

		if r.PostFormValue("next") != "" {
			next := safeNext(r, "/")
			if target == ui.TargetAvatar {
				next = keepMenu(next)
			}
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, menuState(d, v))
	}
}

func UIMenu(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, menuState(d, session.FromContext(r.Context())))
	}
}
