package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-memory Cache used to observe CachedClient.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	sets    int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return false, errors.New("redis down")
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	m.sets++
	return nil
}

func TestCachedTagItems(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"tag_name": "Go",
			"data":     []map[string]interface{}{{"item_id": "i1", "name": "chi"}},
		})
	}))
	cache := newMemCache()
	cc := NewCached(c, cache, time.Minute, time.Minute)

	first, err := cc.FetchTagItems(context.Background(), "go")
	require.NoError(t, err)
	second, err := cc.FetchTagItems(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "chi", second.Items[0].Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedTagItemsDegradesOnCacheFailure(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tag_name": "Go", "data": []interface{}{}})
	}))
	cache := newMemCache()
	cache.failGet = true
	cc := NewCached(c, cache, time.Minute, time.Minute)

	for i := 0; i < 2; i++ {
		page, err := cc.FetchTagItems(context.Background(), "go")
		require.NoError(t, err)
		assert.Equal(t, "Go", page.TagName)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachedLicenseFallbackIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"lid": "7", "key": "apache-2.0", "name": "Apache License 2.0"},
		})
	}))
	cache := newMemCache()
	cc := NewCached(c, cache, time.Minute, time.Minute)

	detail := cc.FetchLicenseDetail(context.Background(), "7", "198.51.100.1")
	assert.True(t, detail.IsEmpty())
	assert.Equal(t, 0, cache.sets)

	fail.Store(false)
	detail = cc.FetchLicenseDetail(context.Background(), "7", "198.51.100.1")
	assert.Equal(t, "apache-2.0", detail.Key)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedCoalescesConcurrentMisses(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tag_name": "Go", "data": []interface{}{}})
	}))
	cc := NewCached(c, nil, time.Minute, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cc.FetchTagItems(context.Background(), "go")
			assert.NoError(t, err)
		}()
	}

	// Let every goroutine reach the singleflight group before answering.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedLicensePerCallerIP(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Real-IP")
		mu.Lock()
		seen = append(seen, ip)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"lid": "1", "key": "mit", "name": "MIT for " + ip},
		})
	}))
	cc := NewCached(c, newMemCache(), time.Minute, time.Minute)

	first := cc.FetchLicenseDetail(context.Background(), "1", "198.51.100.1")
	second := cc.FetchLicenseDetail(context.Background(), "1", "198.51.100.2")
	again := cc.FetchLicenseDetail(context.Background(), "1", "198.51.100.1")

	assert.Equal(t, "MIT for 198.51.100.1", first.Name)
	assert.Equal(t, "MIT for 198.51.100.2", second.Name)
	assert.Equal(t, first, again)
	mu.Lock()
	assert.Equal(t, []string{"198.51.100.1", "198.51.100.2"}, seen)
	mu.Unlock()
}

func TestCachedSharedFetchSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tag_name": "Go", "data": []interface{}{}})
	}))
	cc := NewCached(c, nil, time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cc.FetchTagItems(ctx, "go")
		firstErr <- err
	}()
	<-started

	type result struct {
		name string
		err  error
	}
	second := make(chan result, 1)
	go func() {
		page, err := cc.FetchTagItems(context.Background(), "go")
		second <- result{name: page.TagName, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting on the shared fetch")
	}

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "Go", res.name)
}
