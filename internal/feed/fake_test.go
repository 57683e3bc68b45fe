package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

type fetchCall struct {
	Sort   domain.SortMode
	Cursor int
}

// fakeFetcher serves pre-built pages per sort mode. When gate is set every
// fetch signals started and then waits for gate to be closed.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[domain.SortMode][]domain.CommentPage
	calls   []fetchCall
	err     error
	gate    chan struct{}
	started chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[domain.SortMode][]domain.CommentPage)}
}

func (f *fakeFetcher) FetchComments(ctx context.Context, _, _ string, sort domain.SortMode, cursor int) (domain.CommentPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{Sort: sort, Cursor: cursor})
	gate, started, err := f.gate, f.started, f.err
	pages := f.pages[sort]
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.CommentPage{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.CommentPage{}, err
	}
	if cursor < 1 || cursor > len(pages) {
		return domain.CommentPage{Cursor: cursor, NextCursor: cursor + 1}, nil
	}
	return pages[cursor-1], nil
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 16)
}

func (f *fakeFetcher) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gate)
	f.gate = nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// addPages splits total comments named prefix-N into pages of size per.
func (f *fakeFetcher) addPages(sort domain.SortMode, prefix string, total, per int) {
	var pages []domain.CommentPage
	for start, n := 0, 1; start < total; start, n = start+per, n+1 {
		end := min(start+per, total)
		pages = append(pages, domain.CommentPage{
			Items:      comments(prefix, start, end),
			Total:      total,
			HasMore:    end < total,
			Cursor:     n,
			NextCursor: n + 1,
		})
	}
	f.pages[sort] = pages
}

func comments(prefix string, from, to int) []domain.Comment {
	out := make([]domain.Comment, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, domain.Comment{
			CID:    fmt.Sprintf("%s-%d", prefix, i),
			Author: domain.Author{UID: fmt.Sprintf("u%d", i), Nickname: fmt.Sprintf("user %d", i)},
			Body:   fmt.Sprintf("comment %d", i),
			Votes:  i,
		})
	}
	return out
}

type fakeConfirmer struct {
	mu    sync.Mutex
	err   error
	votes map[string]bool
}

func (f *fakeConfirmer) VoteComment(_ context.Context, cid string, voted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.votes == nil {
		f.votes = make(map[string]bool)
	}
	f.votes[cid] = voted
	return nil
}

func cids(items []domain.Comment) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.CID
	}
	return out
}
