package deps

import (
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/api"
	"github.com/MrSnakeDoc/hubfeed/internal/feed"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/metrics"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
	"github.com/MrSnakeDoc/hubfeed/internal/sources/site"
	redisstore "github.com/MrSnakeDoc/hubfeed/internal/store/redis"
	"github.com/MrSnakeDoc/hubfeed/internal/ui"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts    []string // Host headers allowed on ops endpoints
	AllowedCIDRS    []string // IPs allowed on ops endpoints
	TrustProxy      bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitBurst  int      // public routes, per client IP
	RateLimitPerMin int

	Store    *redisstore.Store // response cache and sessions, nil in tests
	API      *api.CachedClient
	Feeds    *feed.Registry
	UI       *ui.Sessions
	Sessions *session.Manager
	Site     *site.Holder
	Metrics  *metrics.Metrics

	ReloadTrigger chan struct{} // Channel to trigger a manual site reload
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
