package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

// ErrUnauthenticated is returned for calls that need a viewer token.
var ErrUnauthenticated = errors.New("api: viewer is not logged in")

type userResponse struct {
	Data domain.UserInfo `json:"data"`
}

// FetchCurrentUser resolves the user owning token.
func (c *Client) FetchCurrentUser(ctx context.Context, token string) (domain.UserInfo, error) {
	if token == "" {
		return domain.UserInfo{}, ErrUnauthenticated
	}
	var resp userResponse
	err := c.do(ctx, call{
		endpoint: "user",
		method:   http.MethodGet,
		path:     "/user/me",
		token:    token,
	}, &resp)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("fetch current user: %w", err)
	}
	if resp.Data.UID == "" {
		return domain.UserInfo{}, ErrUnauthenticated
	}
	return resp.Data, nil
}
