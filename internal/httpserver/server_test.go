package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/hubfeed/internal/api"
	"github.com/MrSnakeDoc/hubfeed/internal/config"
	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/feed"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/metrics"
	"github.com/MrSnakeDoc/hubfeed/internal/session"
	"github.com/MrSnakeDoc/hubfeed/internal/sources/site"
	store "github.com/MrSnakeDoc/hubfeed/internal/store/redis"
	"github.com/MrSnakeDoc/hubfeed/internal/ui"
)

// upstream fakes the remote API.
type upstream struct {
	mu       sync.Mutex
	votes    []string
	realIP   string
	comments map[string]int // requests per subject path
}

func (u *upstream) commentHits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.comments[path]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (u *upstream) handler() http.Handler {
	const total = 37
	r := chi.NewRouter()
	r.Head("/", func(w http.ResponseWriter, _ *http.Request) {})
	r.Get("/comment/{belong}/{id}", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.comments[r.URL.Path]++
		u.mu.Unlock()
		if chi.URLParam(r, "belong") == "article" || chi.URLParam(r, "id") == "500" {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "boom"})
			return
		}
		sort := r.URL.Query().Get("sort_type")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var items []map[string]interface{}
		for i := (page - 1) * 10; i < page*10 && i < total; i++ {
			items = append(items, map[string]interface{}{
				"cid":     fmt.Sprintf("%s-%d", sort, i),
				"comment": fmt.Sprintf("comment %d", i),
				"user":    map[string]string{"uid": "u", "nickname": "nick"},
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "data": items, "total": total, "has_more": page*10 < total, "page": page,
		})
	})
	vote := func(w http.ResponseWriter, r *http.Request) {
		cid := chi.URLParam(r, "cid")
		u.mu.Lock()
		u.votes = append(u.votes, r.Method+" "+cid+" "+r.Header.Get("Authorization"))
		u.mu.Unlock()
		if cid == "last-3" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "nope"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
	r.Post("/vote/comment/{cid}", vote)
	r.Delete("/vote/comment/{cid}", vote)
	r.Get("/tag/{tid}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "tid") != "python" {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "no such tag"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "tag_name": "Python",
			"data": []map[string]interface{}{{"item_id": "42", "name": "httpie", "title": "HTTPie"}},
		})
	})
	r.Get("/license/{lid}", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.realIP = r.Header.Get("X-Real-IP")
		u.mu.Unlock()
		if chi.URLParam(r, "lid") != "mit" {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "data": map[string]interface{}{"lid": "1", "key": "mit", "name": "MIT License"},
		})
	})
	r.Get("/user/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true, "data": map[string]string{"uid": "u1", "nickname": "alice"},
		})
	})
	return r
}

type memSessions struct {
	mu   sync.Mutex
	recs map[string]store.SessionRecord
}

func (m *memSessions) SaveSession(_ context.Context, sid string, rec store.SessionRecord, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[sid] = rec
	return nil
}

func (m *memSessions) GetSession(_ context.Context, sid string) (store.SessionRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[sid]
	return rec, ok, nil
}

func (m *memSessions) DeleteSession(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, sid)
	return nil
}

type testEnv struct {
	up     *upstream
	deps   deps.Deps
	url    string
	client *http.Client
}

func newTestEnv(t *testing.T, mutate func(*deps.Deps)) *testEnv {
	t.Helper()
	up := &upstream{comments: map[string]int{}}
	upSrv := httptest.NewServer(up.handler())
	t.Cleanup(upSrv.Close)

	log := logger.NewNop()
	client := api.New(api.Options{BaseURL: upSrv.URL, Timeout: time.Second}, log)

	holder := site.NewHolder()
	holder.Set(domain.Site{Title: "HelloGitHub", Nav: []domain.Link{{Label: "Articles", Href: "/article"}}})

	m := metrics.New()
	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         "test",
		RateLimitBurst:  1000,
		RateLimitPerMin: 1000,
		API:             api.NewCached(client, nil, time.Minute, time.Minute),
		Feeds:           feed.NewRegistry(m, feed.WithLogger(log)),
		UI:              ui.NewSessions(nil),
		Sessions: session.NewManager(&memSessions{recs: map[string]store.SessionRecord{}}, client,
			session.Options{Cookie: "sid", TTL: time.Hour}, log),
		Site:          holder,
		Metrics:       m,
		ReloadTrigger: make(chan struct{}, 1),
	}
	if mutate != nil {
		mutate(&d)
	}

	srv := httptest.NewServer(NewRouter(&config.Config{RequestTimeout: 5 * time.Second}, d))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		up:   up,
		deps: d,
		url:  srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values) (int, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, e.url+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

// redirect posts form to path and returns where the answer points to.
func (e *testEnv) redirect(t *testing.T, path string, form url.Values) string {
	t.Helper()
	resp, err := e.client.PostForm(e.url+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return resp.Header.Get("Location")
}

type feedBody struct {
	Status      string           `json:"status"`
	Items       []domain.Comment `json:"items"`
	Total       int              `json:"total"`
	Sort        string           `json:"sort"`
	HasMore     bool             `json:"has_more"`
	Cursor      int              `json:"cursor"`
	Error       string           `json:"error"`
	ActionError string           `json:"action_error"`
}

func (e *testEnv) feed(t *testing.T, method, path string) (int, feedBody) {
	t.Helper()
	status, raw := e.do(t, method, path, nil)
	var fb feedBody
	require.NoError(t, json.Unmarshal([]byte(raw), &fb), raw)
	return status, fb
}

func TestFeedEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)
	base := "/api/comments/repository/42"

	status, fb := e.feed(t, http.MethodGet, base)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", fb.Status)
	assert.Len(t, fb.Items, 10)
	assert.Equal(t, 37, fb.Total)
	assert.Equal(t, "last", fb.Sort)
	assert.True(t, fb.HasMore)

	_, fb = e.feed(t, http.MethodPost, base+"/more")
	assert.Len(t, fb.Items, 20)
	assert.Equal(t, 37, fb.Total)
	assert.Equal(t, "last-19", fb.Items[19].CID)

	_, fb = e.feed(t, http.MethodPost, base+"/sort?mode=hot")
	assert.Equal(t, "hot", fb.Sort)
	assert.Len(t, fb.Items, 10)
	assert.Equal(t, "hot-0", fb.Items[0].CID)

	status, _ = e.do(t, http.MethodPost, base+"/sort?mode=oldest", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodGet, "/api/comments/Bad!/42", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFeedFailureIsASnapshot(t *testing.T) {
	e := newTestEnv(t, nil)

	status, fb := e.feed(t, http.MethodGet, "/api/comments/article/9")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "error", fb.Status)
	assert.Empty(t, fb.Items)
	assert.NotEmpty(t, fb.Error)
}

func TestVoteNeedsLogin(t *testing.T) {
	e := newTestEnv(t, nil)
	e.feed(t, http.MethodGet, "/api/comments/repository/42")

	status, _ := e.do(t, http.MethodPost, "/api/comments/repository/42/vote/last-1?voted=true", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginVoteMenuLogout(t *testing.T) {
	e := newTestEnv(t, nil)

	status, _ := e.do(t, http.MethodPost, "/login", url.Values{"token": {"bad"}})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.do(t, http.MethodPost, "/login", url.Values{"token": {"tok"}})
	require.Equal(t, http.StatusSeeOther, status)

	base := "/api/comments/repository/42"
	e.feed(t, http.MethodGet, base)

	status, fb := e.feed(t, http.MethodPost, base+"/vote/last-1?voted=true")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, fb.Items[1].IsVoted)
	assert.Empty(t, fb.ActionError)

	status, fb = e.feed(t, http.MethodPost, base+"/vote/last-3?voted=true")
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, fb.Items[3].IsVoted, "refused vote is reverted")
	assert.NotEmpty(t, fb.ActionError)

	status, _ = e.feed(t, http.MethodPost, base+"/vote/nope?voted=true")
	assert.Equal(t, http.StatusNotFound, status)

	e.up.mu.Lock()
	assert.Equal(t, []string{"POST last-1 Bearer tok", "POST last-3 Bearer tok"}, e.up.votes)
	e.up.mu.Unlock()

	menu := func() map[string]interface{} {
		_, raw := e.do(t, http.MethodGet, "/ui/menu", nil)
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		return m
	}
	assert.Equal(t, true, menu()["logged_in"])
	assert.Equal(t, false, menu()["open"])

	e.do(t, http.MethodPost, "/ui/click", url.Values{"target": {"avatar"}})
	assert.Equal(t, true, menu()["open"])
	_, page := e.do(t, http.MethodGet, "/?menu=keep", nil)
	assert.Contains(t, page, "My profile")

	e.do(t, http.MethodPost, "/ui/click", url.Values{"target": {"body"}})
	assert.Equal(t, false, menu()["open"])

	e.do(t, http.MethodPost, "/ui/click", url.Values{"target": {"avatar"}})
	status, _ = e.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, status)

	m := menu()
	assert.Equal(t, false, m["logged_in"])
	assert.Equal(t, false, m["open"])
}

func TestPages(t *testing.T) {
	e := newTestEnv(t, nil)

	status, body := e.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `href="/article"`)
	assert.Contains(t, body, "Log in")

	status, body = e.do(t, http.MethodGet, "/tags/python", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Tag Python")
	assert.Contains(t, body, "HTTPie")

	status, _ = e.do(t, http.MethodGet, "/tags/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = e.do(t, http.MethodGet, "/license/mit", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "MIT License")
	e.up.mu.Lock()
	assert.Equal(t, "127.0.0.1", e.up.realIP)
	e.up.mu.Unlock()

	status, body = e.do(t, http.MethodGet, "/license/gpl", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "could not be loaded")

	status, body = e.do(t, http.MethodGet, "/repository/42/comments", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Comments (37)")
	assert.Contains(t, body, "Load more")

	status, _ = e.do(t, http.MethodGet, "/repository/42/comments?sort=oldest", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOpsEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)

	status, body := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, _ = e.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status, "no redis store configured")

	status, body = e.do(t, http.MethodGet, "/infra", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"mode":"degraded"`)

	status, body = e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")

	status, _ = e.do(t, http.MethodPost, "/reload", nil)
	assert.Equal(t, http.StatusAccepted, status)
	status, _ = e.do(t, http.MethodPost, "/reload", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestOpsRestrictedByCIDR(t *testing.T) {
	e := newTestEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	status, _ := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status, "public pages are not restricted")
}

func TestMenuClosesOnNavigation(t *testing.T) {
	e := newTestEnv(t, nil)
	status, _ := e.do(t, http.MethodPost, "/login", url.Values{"token": {"tok"}})
	require.Equal(t, http.StatusSeeOther, status)

	menuOpen := func() bool {
		_, raw := e.do(t, http.MethodGet, "/ui/menu", nil)
		var m menuBody
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		return m.Open
	}

	// The page the avatar click lands on shows the menu open.
	next := e.redirect(t, "/ui/click", url.Values{"target": {"avatar"}, "next": {"/"}})
	assert.Equal(t, "/?menu=keep", next)
	_, body := e.do(t, http.MethodGet, next, nil)
	assert.Contains(t, body, "My profile")

	// A non-action entry inside the menu closes it.
	_, body = e.do(t, http.MethodGet, "/?theme=dark", nil)
	assert.NotContains(t, body, "My profile")
	assert.False(t, menuOpen())

	// So does following a header link.
	e.redirect(t, "/ui/click", url.Values{"target": {"avatar"}, "next": {"/"}})
	require.True(t, menuOpen())
	status, body = e.do(t, http.MethodGet, "/tags/python", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "My profile")
	assert.False(t, menuOpen())

	// Feed requests made by the page are not navigation.
	e.do(t, http.MethodPost, "/ui/click", url.Values{"target": {"avatar"}})
	e.feed(t, http.MethodGet, "/api/comments/repository/42")
	assert.True(t, menuOpen())
}

type menuBody struct {
	Open     bool `json:"open"`
	LoggedIn bool `json:"logged_in"`
}

func TestCommentsPageFailingUpstreamFetchesOnce(t *testing.T) {
	e := newTestEnv(t, nil)

	status, body := e.do(t, http.MethodGet, "/repository/500/comments", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Comments are unavailable")
	assert.Equal(t, 1, e.up.commentHits("/comment/repository/500"))

	// A later visit retries the first page once, whatever the sort asked for.
	e.do(t, http.MethodGet, "/repository/500/comments?sort=last", nil)
	assert.Equal(t, 2, e.up.commentHits("/comment/repository/500"))

	e.do(t, http.MethodGet, "/repository/42/comments?sort=hot", nil)
	assert.Equal(t, 1, e.up.commentHits("/comment/repository/42"))
}
