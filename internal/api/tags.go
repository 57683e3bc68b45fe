package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

// FetchTagItems returns the items listed under a tag.
func (c *Client) FetchTagItems(ctx context.Context, tagID string) (domain.TagPage, error) {
	var page domain.TagPage
	err := c.do(ctx, call{
		endpoint: "tag",
		method:   http.MethodGet,
		path:     "/tag/" + url.PathEscape(tagID),
	}, &page)
	if err != nil {
		return domain.TagPage{}, fmt.Errorf("fetch tag %s: %w", tagID, err)
	}
	if page.Items == nil {
		page.Items = []domain.HomeItem{}
	}
	return page, nil
}
