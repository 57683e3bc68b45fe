package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/hubfeed/internal/api"
	"github.com/MrSnakeDoc/hubfeed/internal/config"
	"github.com/MrSnakeDoc/hubfeed/internal/feed"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/metrics"
	"github.com/MrSnakeDoc/hubfeed/internal/redis"
	"github.com/MrSnakeDoc/hubfeed/internal/scheduler"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
	"github.com/MrSnakeDoc/hubfeed/internal/sources/site"
	redisstore "github.com/MrSnakeDoc/hubfeed/internal/store/redis"
	"github.com/MrSnakeDoc/hubfeed/internal/ui"
	"github.com/MrSnakeDoc/hubfeed/internal/utils"
	"github.com/MrSnakeDoc/hubfeed/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	feeds       *feed.Registry
	reloader    *scheduler.SiteReloader
	sweeper     *scheduler.Sweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis holds sessions and the response cache: fail fast if unavailable.
	redisClient, err := redis.Connect(context.Background(), redis.OptionsFromConfig(cfg), loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	store := redisstore.NewStore(redisClient)

	m := metrics.New()

	apiClient := api.New(api.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		RateLimit:  cfg.APIRateLimit,
		Burst:      cfg.APIBurst,
		MaxRetries: cfg.APIMaxRetries,
		UserAgent:  cfg.UserAgent,
		Metrics:    m,
	}, loggerClient)
	cached := api.NewCached(apiClient, store, cfg.TagCacheTTL, cfg.LicenseCacheTTL)

	sessions := session.NewManager(store, apiClient, session.Options{
		Cookie: cfg.SessionCookie,
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookie,
	}, loggerClient)

	feeds := feed.NewRegistry(m, feed.WithLogger(loggerClient))
	uiSessions := ui.NewSessions(time.Now)

	siteHolder := site.NewHolder()
	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewSiteReloader(
		cfg.SiteFile,
		siteHolder,
		loggerClient,
		cfg.SiteReloadInterval,
		reloadTrigger,
	)

	sweeper := scheduler.NewSweeper(
		map[string]scheduler.Sweepable{"feeds": feeds, "ui": uiSessions},
		loggerClient,
		cfg.SweepInterval,
		cfg.FeedIdleTTL,
	)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.OpsHosts,
		AllowedCIDRS:    cfg.OpsCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Store:           store,
		API:             cached,
		Feeds:           feeds,
		UI:              uiSessions,
		Sessions:        sessions,
		Site:            siteHolder,
		Metrics:         m,
		ReloadTrigger:   reloadTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		feeds:       feeds,
		reloader:    reloader,
		sweeper:     sweeper,
	}
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting hubfeed %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing site file is not fatal: pages render without navigation
	// until a reload succeeds.
	if err := a.reloader.Start(ctx); err != nil {
		a.logger.Warn("site not loaded, serving without navigation", logger.Error(err))
	}
	a.logger.Info("site reloader started",
		logger.String("file", a.cfg.SiteFile),
		logger.Duration("interval", a.cfg.SiteReloadInterval))

	a.sweeper.Start(ctx)
	a.logger.Info("sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval),
		logger.Duration("idle_ttl", a.cfg.FeedIdleTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.feeds.CloseAll()
	utils.CloseLogged(a.redisClient, a.logger, "redis")

	a.logger.Info("✅ hubfeed stopped cleanly")
	return nil
}
