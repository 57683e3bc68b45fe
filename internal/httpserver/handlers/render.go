package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var views = parseViews("home", "tag", "license", "comments", "error")

func parseViews(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
	return out
}

const (
	themeCookie = "theme"

	menuParam = "menu"
	menuKeep  = "keep"
)

// page is the data every view renders with.
type page struct {
	Title    string
	Site     domain.Site
	Viewer   session.Viewer
	MenuOpen bool
	Theme    string
	Path     string
	Data     interface{}
}

func newPage(d deps.Deps, w http.ResponseWriter, r *http.Request, title string, data interface{}) page {
	v := session.FromContext(r.Context())
	p := page{
		Title:  title,
		Site:   d.Site.Get(),
		Viewer: v,
		Theme:  theme(w, r),
		Path:   r.URL.Path,
		Data:   data,
	}
	if v.SID != "" {
		ui := d.UI.Get(v.SID)
		// Any page load closes the menu, except the one that follows
		// the avatar's own click.
		if r.URL.Query().Get(menuParam) != menuKeep {
			ui.Navigate()
		}
		p.MenuOpen = v.LoggedIn() && ui.Avatar.IsOpen()
	}
	return p
}

// theme applies ?theme= and remembers it in a cookie.
func theme(w http.ResponseWriter, r *http.Request) string {
	if t := r.URL.Query().Get("theme"); t == "dark" || t == "light" {
		http.SetCookie(w, &http.Cookie{Name: themeCookie, Value: t, Path: "/", MaxAge: 365 * 24 * 3600, SameSite: http.SameSiteLaxMode})
		return t
	}
	if c, err := r.Cookie(themeCookie); err == nil && (c.Value == "dark" || c.Value == "light") {
		return c.Value
	}
	return "light"
}

// render executes the view into a buffer so a template error never leaves a
// half-written page behind.
func render(d deps.Deps, w http.ResponseWriter, status int, view string, p page) {
	var buf bytes.Buffer
	if err := views[view].ExecuteTemplate(&buf, "layout", p); err != nil {
		d.Logger.Error("failed to render view", logger.String("view", view), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func renderError(d deps.Deps, w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	render(d, w, status, "error", newPage(d, w, r, title, msg))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// safeNext returns the form's "next" path when it stays on this site.
func safeNext(r *http.Request, fallback string) string {
	next := r.PostFormValue("next")
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, `\`) {
		return next
	}
	return fallback
}
