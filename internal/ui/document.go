package ui

import "sync"

// Event is a click delivered to a Document.
type Event struct {
	Target  string
	stopped bool
}

// StopPropagation keeps the event away from document listeners.
func (e *Event) StopPropagation() { e.stopped = true }

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool { return e.stopped }

// Document is the page-wide event source outside-click handlers listen on.
type Document struct {
	mu        sync.Mutex
	listeners map[uint64]func(*Event)
	next      uint64
}

func NewDocument() *Document {
	return &Document{listeners: make(map[uint64]func(*Event))}
}

// AddListener registers fn and returns the function that removes it.
// The release function is safe to call more than once.
func (d *Document) AddListener(fn func(*Event)) (release func()) {
	d.mu.Lock()
	id := d.next
	d.next++
	d.listeners[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every listener unless propagation was stopped.
// Listeners run without the document lock held, so they may release
// themselves.
func (d *Document) Dispatch(ev *Event) {
	if ev == nil || ev.Stopped() {
		return
	}
	d.mu.Lock()
	fns := make([]func(*Event), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners returns the number of registered listeners.
func (d *Document) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}
