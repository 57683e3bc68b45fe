package handlers

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
)

// Reload triggers a site.yaml reload. With ?flush=cache the API response
// cache is emptied as well.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flushed := -1
		if r.URL.Query().Get("flush") == "cache" && d.Store != nil {
			n, err := d.Store.FlushCache(r.Context())
			if err != nil {
				d.Logger.Warn("cache flush failed", logger.Error(err))
			} else {
				flushed = n
				d.Logger.Info("response cache flushed", logger.Int("keys", n))
			}
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual site reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
		default:
			d.Logger.Warn("site reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("⏳ Reload already in progress, please wait\n"))
			return
		}

		w.WriteHeader(http.StatusAccepted)
		msg := "✅ Reload triggered successfully\n"
		if flushed >= 0 {
			msg += fmt.Sprintf("🧹 %d cached responses flushed\n", flushed)
		}
		if _, err := w.Write([]byte(msg)); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}
