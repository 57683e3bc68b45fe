package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/api"
	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/feed"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/utils"
)

func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(d, w, http.StatusOK, "home", newPage(d, w, r, "", nil))
	}
}

func Tag(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid := chi.URLParam(r, "tid")
		if !validID(tid) {
			renderError(d, w, r, http.StatusNotFound, "Tag not found", "There is no such tag.")
			return
		}

		tp, err := d.API.FetchTagItems(r.Context(), tid)
		switch {
		case errors.Is(err, api.ErrNotFound):
			renderError(d, w, r, http.StatusNotFound, "Tag not found", "There is no such tag.")
			return
		case err != nil:
			d.Logger.Warn("tag page unavailable", logger.String("tid", tid), logger.Error(err))
			renderError(d, w, r, http.StatusBadGateway, "Tags unavailable", "Please try again in a moment.")
			return
		}

		title := "Tag"
		if tp.TagName != "" {
			title = "Tag " + tp.TagName
		}
		render(d, w, http.StatusOK, "tag", newPage(d, w, r, title, tp))
	}
}

// License always renders: a failed lookup shows the empty fallback.
func License(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lid := chi.URLParam(r, "lid")
		var detail domain.LicenseDetail
		if validID(lid) {
			detail = d.API.FetchLicenseDetail(r.Context(), lid, utils.ClientIP(r, d.TrustProxy))
		}

		title := "License"
		if detail.Name != "" {
			title = detail.Name
		}
		render(d, w, http.StatusOK, "license", newPage(d, w, r, title, detail))
	}
}

// CommentsPage renders a repository's comment feed. ?sort= switches the
// sort mode before rendering.
func CommentsPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := chi.URLParam(r, "rid")
		if !validID(rid) {
			renderError(d, w, r, http.StatusNotFound, "Not found", "There is no such repository.")
			return
		}
		mode, err := domain.ParseSortMode(r.URL.Query().Get("sort"))
		if err != nil {
			renderError(d, w, r, http.StatusBadRequest, "Bad request", err.Error())
			return
		}

		c := openFeed(d, r, domain.Subject{Belong: "repository", BelongID: rid})
		if c.Status() == feed.StatusIdle && mode != domain.DefaultSort {
			_ = c.SortBy(r.Context(), mode)
		} else if err := c.Start(r.Context()); err == nil && mode != c.Snapshot().Sort {
			_ = c.SortBy(r.Context(), mode)
		}

		render(d, w, http.StatusOK, "comments", newPage(d, w, r, "Comments", c.Snapshot()))
	}
}
