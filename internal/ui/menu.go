package ui

import "sync"

// Menu is a dropdown that closes on any click outside of it.
type Menu struct {
	mu      sync.Mutex
	open    bool
	release func()
	mounts  uint64
}

func NewMenu() *Menu { return &Menu{} }

// Mount starts listening for outside clicks on doc. The returned function
// unmounts the menu; it is safe to call more than once. Mounting an already
// mounted menu moves it to doc.
func (m *Menu) Mount(doc *Document) (unmount func()) {
	m.mu.Lock()
	if m.release != nil {
		m.release()
	}
	release := doc.AddListener(func(*Event) { m.Close() })
	m.release = release
	m.mounts++
	id := m.mounts
	m.mu.Unlock()

	return func() {
		release()
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.mounts == id && m.release != nil {
			m.release = nil
			m.open = false
		}
	}
}

// Mounted reports whether the menu currently listens on a document.
func (m *Menu) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.release != nil
}

// TriggerClick handles a click on the menu's anchor: the event does not
// reach the document and the menu toggles.
func (m *Menu) TriggerClick(ev *Event) {
	if ev != nil {
		ev.StopPropagation()
	}
	m.Toggle()
}

func (m *Menu) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = !m.open
}

// Close is idempotent.
func (m *Menu) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
}

func (m *Menu) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Action runs an explicit menu entry such as logout, then closes the menu
// whatever fn returned.
func (m *Menu) Action(fn func() error) error {
	defer m.Close()
	if fn == nil {
		return nil
	}
	return fn()
}
