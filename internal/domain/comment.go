package domain

import (
	"fmt"
	"time"
)

// SortMode is the ordering criterion of a comment feed.
type SortMode string

const (
	// SortLast orders comments newest first.
	SortLast SortMode = "last"
	// SortHot orders comments by popularity, as ranked by the remote API.
	SortHot SortMode = "hot"
)

// DefaultSort is the sort mode a feed starts with.
const DefaultSort = SortLast

// Valid reports whether m is one of the known sort modes.
func (m SortMode) Valid() bool {
	return m == SortLast || m == SortHot
}

// ParseSortMode converts a raw query value into a SortMode.
// An empty string yields DefaultSort.
func ParseSortMode(raw string) (SortMode, error) {
	if raw == "" {
		return DefaultSort, nil
	}
	m := SortMode(raw)
	if !m.Valid() {
		return "", fmt.Errorf("unknown sort mode %q", raw)
	}
	return m, nil
}

// Comment is one user comment attached to a subject.
//
// IsVoted is viewer-local: it reflects whether the current viewer voted,
// and is only reconciled with the server when the feed fetches a page.
type Comment struct {
	CID       string    `json:"cid"`
	Author    Author    `json:"user"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	Votes     int       `json:"votes"`
	IsVoted   bool      `json:"is_voted"`
}

// Author is the public profile attached to a comment.
type Author struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// AvatarURL returns the author's avatar or DefaultAvatar.
func (a Author) AvatarURL() string {
	if a.Avatar == "" {
		return DefaultAvatar
	}
	return a.Avatar
}

// Subject identifies the entity a comment thread belongs to.
type Subject struct {
	Belong   string // e.g. "repository", "article"
	BelongID string
}

func (s Subject) String() string {
	return s.Belong + "/" + s.BelongID
}

// CommentPage is one page of comments as returned by the remote API.
// Cursor values are 1-based page numbers.
type CommentPage struct {
	Items      []Comment
	Total      int
	HasMore    bool
	Cursor     int
	NextCursor int
}
