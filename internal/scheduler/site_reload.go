package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/sources/site"
)

// SiteReloader keeps the site chrome in sync with site.yaml.
type SiteReloader struct {
	loader        *site.Loader
	holder        *site.Holder
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewSiteReloader creates a reloader. A send on manualTrigger forces a reload.
func NewSiteReloader(
	siteFile string,
	holder *site.Holder,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SiteReloader {
	return &SiteReloader{
		loader:        site.NewLoader(siteFile),
		holder:        holder,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the file once, then reloads it periodically and on demand.
// The loop runs even when the first load fails; the error is returned so the
// caller can report it.
func (sr *SiteReloader) Start(ctx context.Context) error {
	initErr := sr.Reload(ctx)

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Error("failed to reload site", logger.Error(err))
				}
			case <-sr.manualTrigger:
				sr.logger.Info("manual reload triggered")
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Error("failed to reload site", logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	if initErr != nil {
		return fmt.Errorf("initial reload failed: %w", initErr)
	}
	return nil
}

func (sr *SiteReloader) Stop() {
	sr.stopOnce.Do(func() { close(sr.stopCh) })
}

// Reload reads site.yaml and publishes it. On failure the previous site
// stays in place.
func (sr *SiteReloader) Reload(_ context.Context) error {
	cfg, err := sr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load site: %w", err)
	}
	s, err := site.Map(cfg)
	if err != nil {
		return fmt.Errorf("failed to map site: %w", err)
	}
	sr.holder.Set(s)

	sr.logger.Info("site reloaded",
		logger.String("file", sr.loader.Path()),
		logger.Int("nav", len(s.Nav)),
		logger.Int("footer", len(s.Footer)))
	return nil
}
