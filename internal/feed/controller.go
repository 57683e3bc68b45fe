package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/metrics"
)

// Fetcher loads one page of comments. cursor is the 1-based page to load.
type Fetcher interface {
	FetchComments(ctx context.Context, belong, belongID string, sort domain.SortMode, cursor int) (domain.CommentPage, error)
}

// Confirmer sends a viewer's vote to the server.
type Confirmer interface {
	VoteComment(ctx context.Context, cid string, voted bool) error
}

const firstCursor = 1

// Controller owns the comment feed of one subject for one viewer.
//
// At most one fetch is outstanding at any time: LoadMore and SortBy called
// while a fetch is in flight return immediately without doing anything.
// The network call runs without holding the lock, and its result is only
// applied if the controller was not closed in the meantime.
type Controller struct {
	fetcher Fetcher
	subject domain.Subject
	logger  logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.Mutex
	status     Status
	loading    LoadKind
	items      []domain.Comment
	index      map[string]int // cid -> position in items
	total      int
	sort       domain.SortMode
	hasMore    bool
	cursor     int
	lastErr    error
	loaded     bool   // a page was applied at least once
	gen        uint64 // bumped on every request and on Close
	closed     bool
	lastAccess time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

func WithLogger(l logger.Logger) Option { return func(c *Controller) { c.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Controller) { c.metrics = m } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// New creates an idle controller. Call Start to issue the first fetch.
func New(fetcher Fetcher, subject domain.Subject, opts ...Option) *Controller {
	c := &Controller{
		fetcher: fetcher,
		subject: subject,
		logger:  logger.NewNop(),
		now:     time.Now,
		status:  StatusIdle,
		sort:    domain.DefaultSort,
		cursor:  firstCursor,
		index:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(
		logger.String("belong", subject.Belong),
		logger.String("belong_id", subject.BelongID))
	c.lastAccess = c.now()
	return c
}

// Subject returns the subject this feed lists comments for.
func (c *Controller) Subject() domain.Subject { return c.subject }

// Start performs the initial fetch with the default sort mode.
// It is a no-op once a page has been loaded or while a fetch is in flight;
// after a failed first fetch it retries.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.touchLocked()
	if c.status == StatusLoading || c.loaded {
		c.mu.Unlock()
		c.metrics.FeedOp("start", "noop")
		return nil
	}
	sort := c.sort
	gen := c.beginLocked(LoadInitial)
	c.mu.Unlock()

	page, err := c.fetcher.FetchComments(ctx, c.subject.Belong, c.subject.BelongID, sort, firstCursor)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		c.metrics.FeedOp("start", "discarded")
		return ErrClosed
	}
	if err != nil {
		return c.failLocked("start", sort, err)
	}
	c.replaceLocked(sort, page)
	c.metrics.FeedOp("start", "ok")
	return nil
}

// LoadMore fetches the next page and appends it. It does nothing unless the
// feed is ready and the server reported more pages.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.touchLocked()
	if c.status != StatusReady || !c.hasMore {
		c.mu.Unlock()
		c.metrics.FeedOp("load_more", "noop")
		return nil
	}
	sort, cursor := c.sort, c.cursor
	gen := c.beginLocked(LoadMore)
	c.mu.Unlock()

	page, err := c.fetcher.FetchComments(ctx, c.subject.Belong, c.subject.BelongID, sort, cursor)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		c.metrics.FeedOp("load_more", "discarded")
		return ErrClosed
	}
	if err != nil {
		return c.failLocked("load_more", sort, err)
	}
	c.appendLocked(page)
	c.metrics.FeedOp("load_more", "ok")
	return nil
}

// SortBy switches the sort mode. Selecting the active mode is a no-op, as is
// any call while a fetch is in flight. Otherwise the first page of the new
// mode is fetched and replaces the whole sequence on success; on failure the
// previous sequence and mode are kept.
func (c *Controller) SortBy(ctx context.Context, mode domain.SortMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSort, mode)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.touchLocked()
	if c.status == StatusLoading || (mode == c.sort && c.status != StatusIdle && c.status != StatusError) {
		c.mu.Unlock()
		c.metrics.FeedOp("sort_by", "noop")
		return nil
	}
	gen := c.beginLocked(LoadResort)
	c.mu.Unlock()

	page, err := c.fetcher.FetchComments(ctx, c.subject.Belong, c.subject.BelongID, mode, firstCursor)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		c.metrics.FeedOp("sort_by", "discarded")
		return ErrClosed
	}
	if err != nil {
		return c.failLocked("sort_by", mode, err)
	}
	c.replaceLocked(mode, page)
	c.metrics.FeedOp("sort_by", "ok")
	return nil
}

// SetVote sets the viewer's vote flag on the comment identified by cid.
// Nothing else changes: neither the vote count nor the total.
func (c *Controller) SetVote(cid string, voted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()
	_, err := c.setVoteLocked(cid, voted)
	return err
}

// Vote applies the vote locally, then confirms it with the server. When the
// confirmation fails the local flag is restored, unless the entry changed or
// disappeared in the meantime.
func (c *Controller) Vote(ctx context.Context, confirmer Confirmer, cid string, voted bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.touchLocked()
	prev, err := c.setVoteLocked(cid, voted)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if prev == voted {
		c.metrics.FeedOp("vote", "noop")
		return nil
	}

	if err := confirmer.VoteComment(ctx, cid, voted); err != nil {
		c.mu.Lock()
		if !c.closed {
			if i, ok := c.index[cid]; ok && c.items[i].IsVoted == voted {
				c.items[i].IsVoted = prev
			}
		}
		c.mu.Unlock()

		c.metrics.FeedOp("vote", "error")
		c.logger.Warn("vote confirmation failed, local vote reverted",
			logger.String("cid", cid),
			logger.Bool("voted", voted),
			logger.Error(err))
		return fmt.Errorf("confirm vote on %s: %w", cid, err)
	}
	c.metrics.FeedOp("vote", "ok")
	return nil
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	items := make([]domain.Comment, len(c.items))
	copy(items, c.items)

	s := Snapshot{
		Subject: c.subject,
		Status:  c.status,
		Items:   items,
		Total:   c.total,
		Sort:    c.sort,
		HasMore: c.hasMore,
		Cursor:  c.cursor,
	}
	if c.status == StatusLoading {
		s.Loading = c.loading
	}
	if c.lastErr != nil {
		s.Err = c.lastErr.Error()
	}
	return s
}

// Close tears the controller down. Fetches still in flight complete but
// their results are dropped. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.items = nil
	c.index = nil
}

// Status returns the current status without copying the items.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastAccess is the time of the last operation or snapshot.
func (c *Controller) LastAccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccess
}

func (c *Controller) touchLocked() {
	c.lastAccess = c.now()
}

func (c *Controller) beginLocked(kind LoadKind) uint64 {
	c.gen++
	c.status = StatusLoading
	c.loading = kind
	return c.gen
}

func (c *Controller) currentLocked(gen uint64) bool {
	return !c.closed && c.gen == gen
}

// failLocked records a failed fetch and returns to the last good state.
func (c *Controller) failLocked(op string, sort domain.SortMode, err error) error {
	c.loading = LoadNone
	c.lastErr = err
	if c.loaded {
		c.status = StatusReady
	} else {
		c.status = StatusError
	}

	c.metrics.FeedOp(op, "error")
	fields := []logger.Field{
		logger.String("op", op),
		logger.String("sort", string(sort)),
		logger.Error(err),
	}
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("comment fetch canceled", fields...)
	} else {
		c.logger.Warn("comment fetch failed, keeping previous state", fields...)
	}
	return err
}

func (c *Controller) replaceLocked(sort domain.SortMode, page domain.CommentPage) {
	c.items = make([]domain.Comment, 0, len(page.Items))
	c.index = make(map[string]int, len(page.Items))
	c.sort = sort
	c.appendLocked(page)
}

// appendLocked adds the page after the current items. Comments already
// present are skipped: new comments can shift server pages between two
// requests.
func (c *Controller) appendLocked(page domain.CommentPage) {
	for _, item := range page.Items {
		if _, dup := c.index[item.CID]; dup {
			continue
		}
		c.index[item.CID] = len(c.items)
		c.items = append(c.items, item)
	}
	c.total = page.Total
	c.hasMore = page.HasMore
	c.cursor = page.NextCursor
	if c.cursor < firstCursor {
		c.cursor = firstCursor
	}
	c.status = StatusReady
	c.loading = LoadNone
	c.lastErr = nil
	c.loaded = true
}

func (c *Controller) setVoteLocked(cid string, voted bool) (bool, error) {
	i, ok := c.index[cid]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownComment, cid)
	}
	prev := c.items[i].IsVoted
	c.items[i].IsVoted = voted
	return prev, nil
}
