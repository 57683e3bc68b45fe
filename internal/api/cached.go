package api

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	redisstore "github.com/MrSnakeDoc/hubfeed/internal/store/redis"
)

const sharedFetchTimeout = 30 * time.Second

// Cache is the JSON cache used by CachedClient. *redisstore.Store implements it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// CachedClient serves tag pages and license details from a cache in front of
// the API. Concurrent misses on the same key share one upstream call. Cache
// failures degrade to a direct fetch.
type CachedClient struct {
	*Client

	cache      Cache
	group      singleflight.Group
	tagTTL     time.Duration
	licenseTTL time.Duration
}

// NewCached wraps c. A nil cache disables caching but keeps request coalescing.
func NewCached(c *Client, cache Cache, tagTTL, licenseTTL time.Duration) *CachedClient {
	return &CachedClient{
		Client:     c,
		cache:      cache,
		tagTTL:     tagTTL,
		licenseTTL: licenseTTL,
	}
}

// FetchTagItems returns a tag page, from cache when possible.
func (cc *CachedClient) FetchTagItems(ctx context.Context, tagID string) (domain.TagPage, error) {
	key := redisstore.TagKey(tagID)

	var page domain.TagPage
	if cc.lookup(ctx, "tag", key, &page) {
		return page, nil
	}

	v, err := cc.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		fresh, err := cc.Client.FetchTagItems(ctx, tagID)
		if err != nil {
			return nil, err
		}
		cc.store(ctx, key, fresh, cc.tagTTL)
		return fresh, nil
	})
	if err != nil {
		return domain.TagPage{}, err
	}
	return v.(domain.TagPage), nil
}

// FetchLicenseDetail keeps the never-fail contract of Client.FetchLicenseDetail.
// Answers are cached per caller IP since the API may tailor them to the
// visitor. Fallback answers are not cached.
func (cc *CachedClient) FetchLicenseDetail(ctx context.Context, licenseID, callerIP string) domain.LicenseDetail {
	key := redisstore.LicenseKey(licenseID, callerIP)

	var detail domain.LicenseDetail
	if cc.lookup(ctx, "license", key, &detail) {
		return detail
	}

	v, err := cc.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		fresh, err := cc.Client.fetchLicense(ctx, licenseID, callerIP)
		if err != nil {
			return nil, err
		}
		if !fresh.IsEmpty() {
			cc.store(ctx, key, fresh, cc.licenseTTL)
		}
		return fresh, nil
	})
	if err != nil {
		cc.logger.Warn("license lookup failed, rendering fallback",
			logger.String("license_id", licenseID),
			logger.Error(err))
		return domain.LicenseDetail{}
	}
	return v.(domain.LicenseDetail)
}

// shared runs fn once for every concurrent caller of key. fn gets a context
// that outlives any single caller, bounded by sharedFetchTimeout; each caller
// still stops waiting when its own ctx is done.
func (cc *CachedClient) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := cc.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cc *CachedClient) lookup(ctx context.Context, kind, key string, dst interface{}) bool {
	if cc.cache == nil {
		return false
	}
	ok, err := cc.cache.GetJSON(ctx, key, dst)
	switch {
	case err != nil:
		cc.metrics.CacheLookup(kind, "error")
		cc.logger.Warn("cache read failed, fetching from api",
			logger.String("key", key),
			logger.Error(err))
		return false
	case ok:
		cc.metrics.CacheLookup(kind, "hit")
		return true
	default:
		cc.metrics.CacheLookup(kind, "miss")
		return false
	}
}

func (cc *CachedClient) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if cc.cache == nil || ttl <= 0 {
		return
	}
	if err := cc.cache.SetJSON(ctx, key, v, ttl); err != nil {
		cc.logger.Warn("cache write failed",
			logger.String("key", key),
			logger.Error(err))
	}
}
