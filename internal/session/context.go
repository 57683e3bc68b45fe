package session

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// WithViewer stores v in ctx.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns the viewer stored by Middleware, if any.
func FromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(ctxKey{}).(Viewer)
	return v
}

// Middleware makes sure every request has a session id and exposes the
// resolved viewer through FromContext.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := m.Ensure(w, r)
		v, _ := m.Current(r.Context(), r)
		v.SID = sid
		next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), v)))
	})
}
