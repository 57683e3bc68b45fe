package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Count  *int   `json:"count,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		feeds := d.Feeds.Count()
		sessions := d.UI.Count()
		nav := len(d.Site.Get().Nav)

		components := map[string]componentStatus{
			"redis":    checkRedis(ctx, d),
			"api":      checkAPI(ctx, d),
			"site":     {OK: nav > 0, Count: &nav},
			"feeds":    {OK: true, Count: &feeds},
			"sessions": {OK: true, Count: &sessions},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

// determineMode is "critical" without the API, "degraded" without redis or
// site navigation, "optimal" otherwise.
func determineMode(components map[string]componentStatus) string {
	if c, ok := components["api"]; ok && !c.OK {
		return "critical"
	}
	for _, name := range []string{"redis", "site"} {
		if c, ok := components[name]; ok && !c.OK {
			return "degraded"
		}
	}
	return "optimal"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{Impact: "no-cache-no-login", Error: "client not initialized"}
	}
	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{Impact: "no-cache-no-login", Error: err.Error()}
	}
	return componentStatus{OK: true}
}

func checkAPI(ctx context.Context, d deps.Deps) componentStatus {
	if d.API == nil {
		return componentStatus{Impact: "no-content", Error: "client not initialized"}
	}
	if err := d.API.Ping(ctx); err != nil {
		return componentStatus{Impact: "no-content", Error: err.Error()}
	}
	return componentStatus{OK: true}
}
