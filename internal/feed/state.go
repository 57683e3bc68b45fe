package feed

import (
	"errors"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

// Status is the coarse state of a feed.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	// StatusError is only reached when no page was ever loaded. Later
	// failures fall back to StatusReady with Snapshot.Err set.
	StatusError Status = "error"
)

// LoadKind tells which request a loading feed is waiting for.
type LoadKind string

const (
	LoadNone    LoadKind = ""
	LoadInitial LoadKind = "initial"
	LoadMore    LoadKind = "more"
	LoadResort  LoadKind = "resort"
)

var (
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("feed: controller closed")
	// ErrUnknownComment is returned when a vote targets a cid that is not in
	// the current sequence.
	ErrUnknownComment = errors.New("feed: comment not in feed")
	// ErrInvalidSort is returned by SortBy for modes other than last and hot.
	ErrInvalidSort = errors.New("feed: invalid sort mode")
)

// Snapshot is a point-in-time copy of a feed, safe to hand to templates
// and encoders.
type Snapshot struct {
	Subject domain.Subject   `json:"-"`
	Status  Status           `json:"status"`
	Loading LoadKind         `json:"loading,omitempty"`
	Items   []domain.Comment `json:"items"`
	Total   int              `json:"total"`
	Sort    domain.SortMode  `json:"sort"`
	HasMore bool             `json:"has_more"`
	Cursor  int              `json:"cursor"`
	Err     string           `json:"error,omitempty"`
}

// Empty reports whether there is nothing to list.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}
