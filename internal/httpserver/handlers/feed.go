package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/feed"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
)

var (
	belongPattern = regexp.MustCompile(`^[a-z]{1,32}$`)
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

func validID(id string) bool { return idPattern.MatchString(id) }

// feedResponse is a snapshot plus the outcome of the requested action.
// Fetch failures are part of the snapshot; ActionError reports a vote that
// could not be confirmed.
type feedResponse struct {
	feed.Snapshot
	ActionError string `json:"action_error,omitempty"`
}

func subjectFrom(r *http.Request) (domain.Subject, bool) {
	s := domain.Subject{
		Belong:   chi.URLParam(r, "belong"),
		BelongID: chi.URLParam(r, "belongID"),
	}
	return s, belongPattern.MatchString(s.Belong) && validID(s.BelongID)
}

// openFeed returns the viewer's controller for subject. Requests are made
// with the viewer's token so is_voted is per viewer.
func openFeed(d deps.Deps, r *http.Request, subject domain.Subject) *feed.Controller {
	v := session.FromContext(r.Context())
	return d.Feeds.Get(feed.Key{Viewer: v.SID, Subject: subject}, d.API.ForViewer(v.Token))
}

func withFeed(d deps.Deps, fn func(w http.ResponseWriter, r *http.Request, c *feed.Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := subjectFrom(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown subject"})
			return
		}
		fn(w, r, openFeed(d, r, subject))
	}
}

// FeedSnapshot starts the feed on first access and returns its state.
func FeedSnapshot(d deps.Deps) http.HandlerFunc {
	return withFeed(d, func(w http.ResponseWriter, r *http.Request, c *feed.Controller) {
		_ = c.Start(r.Context())
		writeJSON(w, http.StatusOK, feedResponse{Snapshot: c.Snapshot()})
	})
}

func FeedMore(d deps.Deps) http.HandlerFunc {
	return withFeed(d, func(w http.ResponseWriter, r *http.Request, c *feed.Controller) {
		if c.Status() == feed.StatusIdle {
			_ = c.Start(r.Context())
		} else {
			_ = c.LoadMore(r.Context())
		}
		writeJSON(w, http.StatusOK, feedResponse{Snapshot: c.Snapshot()})
	})
}

func FeedSort(d deps.Deps) http.HandlerFunc {
	return withFeed(d, func(w http.ResponseWriter, r *http.Request, c *feed.Controller) {
		mode, err := domain.ParseSortMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		_ = c.SortBy(r.Context(), mode)
		writeJSON(w, http.StatusOK, feedResponse{Snapshot: c.Snapshot()})
	})
}

// FeedVote toggles the viewer's vote optimistically; the snapshot reflects
// the reverted flag when the API refused it.
func FeedVote(d deps.Deps) http.HandlerFunc {
	return withFeed(d, func(w http.ResponseWriter, r *http.Request, c *feed.Controller) {
		voted, err := strconv.ParseBool(r.URL.Query().Get("voted"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "voted must be true or false"})
			return
		}
		v := session.FromContext(r.Context())
		if !v.LoggedIn() {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "log in to vote"})
			return
		}

		resp := feedResponse{}
		status := http.StatusOK
		if err := c.Vote(r.Context(), d.API.ForViewer(v.Token), chi.URLParam(r, "cid"), voted); err != nil {
			resp.ActionError = err.Error()
			if errors.Is(err, feed.ErrUnknownComment) {
				status = http.StatusNotFound
			}
		}
		resp.Snapshot = c.Snapshot()
		writeJSON(w, status, resp)
	})
}
