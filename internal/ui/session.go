package ui

import (
	"sync"
	"time"
)

const (
	// TargetAvatar is the click target of the avatar menu's anchor.
	TargetAvatar = "avatar"
	// TargetPage is the click that loaded a new page.
	TargetPage = "page"
)

// Session is the ui state of one viewer: the page document and the header's
// avatar menu mounted on it.
type Session struct {
	Doc    *Document
	Avatar *Menu

	unmount func()

	mu         sync.Mutex
	lastAccess time.Time
}

func newSession(now time.Time) *Session {
	s := &Session{
		Doc:        NewDocument(),
		Avatar:     NewMenu(),
		lastAccess: now,
	}
	s.unmount = s.Avatar.Mount(s.Doc)
	return s
}

// Click routes a click: the avatar anchor toggles the menu, anything else
// counts as a click outside of it.
func (s *Session) Click(target string) {
	ev := &Event{Target: target}
	if target == TargetAvatar {
		s.Avatar.TriggerClick(ev)
	} else {
		s.Doc.Dispatch(ev)
	}
}

// Navigate records a page load, which is a click somewhere outside the menu.
func (s *Session) Navigate() { s.Click(TargetPage) }

// Unmount releases the menu's document listener.
func (s *Session) Unmount() { s.unmount() }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Sessions holds the ui session of every active viewer.
type Sessions struct {
	mu       sync.Mutex
	byViewer map[string]*Session
	now      func() time.Time
}

// NewSessions creates an empty set. now defaults to time.Now.
func NewSessions(now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{byViewer: make(map[string]*Session), now: now}
}

// Get returns the viewer's session, creating and mounting it on first use.
func (ss *Sessions) Get(viewer string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	s, ok := ss.byViewer[viewer]
	if !ok {
		s = newSession(now)
		ss.byViewer[viewer] = s
		return s
	}
	s.touch(now)
	return s
}

// Drop unmounts and forgets the viewer's session.
func (ss *Sessions) Drop(viewer string) bool {
	ss.mu.Lock()
	s, ok := ss.byViewer[viewer]
	delete(ss.byViewer, viewer)
	ss.mu.Unlock()

	if ok {
		s.Unmount()
	}
	return ok
}

// Sweep drops sessions idle for longer than idle.
func (ss *Sessions) Sweep(idle time.Duration, now time.Time) int {
	ss.mu.Lock()
	var stale []*Session
	for viewer, s := range ss.byViewer {
		if now.Sub(s.idleSince()) > idle {
			stale = append(stale, s)
			delete(ss.byViewer, viewer)
		}
	}
	ss.mu.Unlock()

	for _, s := range stale {
		s.Unmount()
	}
	return len(stale)
}

func (ss *Sessions) Count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byViewer)
}
