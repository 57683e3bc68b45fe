package site

import (
	"sync/atomic"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

// Holder publishes the current site to concurrent readers.
type Holder struct {
	v atomic.Pointer[domain.Site]
}

// NewHolder starts with a site that only has the default title.
func NewHolder() *Holder {
	h := &Holder{}
	h.v.Store(&domain.Site{Title: DefaultTitle})
	return h
}

func (h *Holder) Get() domain.Site { return *h.v.Load() }

func (h *Holder) Set(s domain.Site) { h.v.Store(&s) }
