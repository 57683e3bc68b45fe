package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	store "github.com/MrSnakeDoc/hubfeed/internal/store/redis"
)

// ErrNoSession is returned by Logout when the request carries no session.
var ErrNoSession = errors.New("session: no active session")

// Viewer is whoever is browsing: an anonymous visitor or a logged in user.
// SID is set for both and keys the viewer's in-memory state.
type Viewer struct {
	SID   string
	Token string
	User  domain.UserInfo
}

func (v Viewer) LoggedIn() bool { return v.Token != "" }

// Provider resolves and manages viewer identities.
type Provider interface {
	Current(ctx context.Context, r *http.Request) (Viewer, bool)
	Login(ctx context.Context, w http.ResponseWriter, token string) (Viewer, error)
	Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Store persists session records.
type Store interface {
	SaveSession(ctx context.Context, sid string, rec store.SessionRecord, ttl time.Duration) error
	GetSession(ctx context.Context, sid string) (store.SessionRecord, bool, error)
	DeleteSession(ctx context.Context, sid string) error
}

// Resolver finds the user owning an API token.
type Resolver interface {
	FetchCurrentUser(ctx context.Context, token string) (domain.UserInfo, error)
}

type Options struct {
	Cookie string
	TTL    time.Duration
	Secure bool
}

// Manager is the redis backed Provider. The session id travels in a cookie;
// the token and user live server-side.
type Manager struct {
	store    Store
	resolver Resolver
	opts     Options
	logger   logger.Logger
	now      func() time.Time
}

var _ Provider = (*Manager)(nil)

func NewManager(st Store, res Resolver, opts Options, log logger.Logger) *Manager {
	if opts.Cookie == "" {
		opts.Cookie = "hubfeed_sid"
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Manager{store: st, resolver: res, opts: opts, logger: log, now: time.Now}
}

// Current returns the request's viewer. The bool is true for a logged in
// user; otherwise the viewer is anonymous and may have an empty SID.
func (m *Manager) Current(ctx context.Context, r *http.Request) (Viewer, bool) {
	sid := m.sid(r)
	if sid == "" {
		return Viewer{}, false
	}
	rec, ok, err := m.store.GetSession(ctx, sid)
	if err != nil {
		m.logger.Warn("session lookup failed, treating viewer as anonymous",
			logger.String("sid", short(sid)), logger.Error(err))
		return Viewer{SID: sid}, false
	}
	if !ok || rec.Token == "" {
		return Viewer{SID: sid}, false
	}
	return Viewer{SID: sid, Token: rec.Token, User: rec.User}, true
}

// Login checks token against the API, stores a new session and sets its
// cookie. The session id always changes on login.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, token string) (Viewer, error) {
	user, err := m.resolver.FetchCurrentUser(ctx, token)
	if err != nil {
		return Viewer{}, fmt.Errorf("login: %w", err)
	}
	sid := uuid.NewString()
	rec := store.SessionRecord{Token: token, User: user, CreatedAt: m.now().UTC()}
	if err := m.store.SaveSession(ctx, sid, rec, m.opts.TTL); err != nil {
		return Viewer{}, fmt.Errorf("login: save session: %w", err)
	}
	m.setCookie(w, sid, int(m.opts.TTL/time.Second))

	m.logger.Info("viewer logged in",
		logger.String("uid", user.UID),
		logger.String("sid", short(sid)))
	return Viewer{SID: sid, Token: token, User: user}, nil
}

// Logout deletes the session record and expires the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	sid := m.sid(r)
	m.setCookie(w, "", -1)
	if sid == "" {
		return ErrNoSession
	}
	if err := m.store.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Info("viewer logged out", logger.String("sid", short(sid)))
	return nil
}

// Ensure returns the request's session id, issuing an anonymous one when
// the request has none.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) string {
	if sid := m.sid(r); sid != "" {
		return sid
	}
	sid := uuid.NewString()
	m.setCookie(w, sid, 0)
	// make the new id visible to Current on this same request
	r.AddCookie(&http.Cookie{Name: m.opts.Cookie, Value: sid})
	return sid
}

func (m *Manager) sid(r *http.Request) string {
	c, err := r.Cookie(m.opts.Cookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.Cookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// short keeps session ids out of logs in full.
func short(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
