package feed

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/metrics"
)

// Key identifies one feed: a subject as seen by one viewer.
type Key struct {
	Viewer  string
	Subject domain.Subject
}

// Registry keeps the live controllers of every viewer in memory.
type Registry struct {
	mu      sync.Mutex
	feeds   map[Key]*Controller
	opts    []Option
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry. opts are applied to every
// controller it creates.
func NewRegistry(m *metrics.Metrics, opts ...Option) *Registry {
	return &Registry{
		feeds:   make(map[Key]*Controller),
		opts:    append(opts, WithMetrics(m)),
		metrics: m,
	}
}

// Get returns the controller for key, creating it with fetcher when there is
// none or the previous one was closed.
func (r *Registry) Get(key Key, fetcher Fetcher) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.feeds[key]; ok && !c.Closed() {
		return c
	}
	c := New(fetcher, key.Subject, r.opts...)
	r.feeds[key] = c
	r.metrics.SetActiveFeeds(len(r.feeds))
	return c
}

// Lookup returns the controller for key without creating one.
func (r *Registry) Lookup(key Key) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.feeds[key]
	if !ok || c.Closed() {
		return nil, false
	}
	return c, true
}

// DropViewer closes and removes every feed of viewer.
func (r *Registry) DropViewer(viewer string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, c := range r.feeds {
		if key.Viewer == viewer {
			c.Close()
			delete(r.feeds, key)
			n++
		}
	}
	r.metrics.SetActiveFeeds(len(r.feeds))
	return n
}

// Sweep closes and removes feeds not accessed since now-idle.
func (r *Registry) Sweep(idle time.Duration, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, c := range r.feeds {
		if c.Closed() || now.Sub(c.LastAccess()) > idle {
			c.Close()
			delete(r.feeds, key)
			n++
		}
	}
	r.metrics.SetActiveFeeds(len(r.feeds))
	return n
}

// CloseAll closes every feed, at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, c := range r.feeds {
		c.Close()
		delete(r.feeds, key)
	}
	r.metrics.SetActiveFeeds(0)
}

// Count returns the number of feeds held.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}
