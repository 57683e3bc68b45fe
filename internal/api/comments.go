package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

type commentsResponse struct {
	Data    []domain.Comment `json:"data"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
	Page    int              `json:"page"`
}

// FetchComments returns one page of comments of a subject.
// cursor is the 1-based page number; values below 1 request the first page.
// token identifies the viewer so is_voted is computed for them; it may be empty.
func (c *Client) FetchComments(ctx context.Context, token, belong, belongID string, sort domain.SortMode, cursor int) (domain.CommentPage, error) {
	if cursor < 1 {
		cursor = 1
	}

	q := url.Values{}
	q.Set("sort_type", string(sort))
	q.Set("page", strconv.Itoa(cursor))

	var resp commentsResponse
	err := c.do(ctx, call{
		endpoint: "comments",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/comment/%s/%s", url.PathEscape(belong), url.PathEscape(belongID)),
		query:    q,
		token:    token,
	}, &resp)
	if err != nil {
		return domain.CommentPage{}, fmt.Errorf("fetch comments %s/%s: %w", belong, belongID, err)
	}

	page := resp.Page
	if page < 1 {
		page = cursor
	}
	return domain.CommentPage{
		Items:      resp.Data,
		Total:      resp.Total,
		HasMore:    resp.HasMore,
		Cursor:     page,
		NextCursor: page + 1,
	}, nil
}

// VoteComment records (voted=true) or withdraws (voted=false) the viewer's
// vote on a comment.
func (c *Client) VoteComment(ctx context.Context, token, cid string, voted bool) error {
	method := http.MethodPost
	if !voted {
		method = http.MethodDelete
	}
	err := c.do(ctx, call{
		endpoint: "vote",
		method:   method,
		path:     "/vote/comment/" + url.PathEscape(cid),
		token:    token,
	}, nil)
	if err != nil {
		return fmt.Errorf("vote comment %s: %w", cid, err)
	}
	return nil
}

// Viewer binds the client to one viewer's token. It satisfies the feed
// package's Fetcher and Confirmer interfaces.
type Viewer struct {
	client *Client
	token  string
}

// ForViewer returns a Viewer. An empty token is an anonymous viewer.
func (c *Client) ForViewer(token string) *Viewer {
	return &Viewer{client: c, token: token}
}

func (v *Viewer) FetchComments(ctx context.Context, belong, belongID string, sort domain.SortMode, cursor int) (domain.CommentPage, error) {
	return v.client.FetchComments(ctx, v.token, belong, belongID, sort, cursor)
}

func (v *Viewer) VoteComment(ctx context.Context, cid string, voted bool) error {
	if v.token == "" {
		return ErrUnauthenticated
	}
	return v.client.VoteComment(ctx, v.token, cid, voted)
}
