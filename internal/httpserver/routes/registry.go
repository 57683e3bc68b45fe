package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hubfeed/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

// Scope selects the middleware chain a registrar is mounted under.
type Scope int

const (
	// Public routes get a viewer session and the per-IP rate limit.
	Public Scope = iota
	// Ops routes are restricted to the configured CIDRs and hosts.
	Ops
)

type entry struct {
	scope Scope
	reg   Registrar
	mws   []Middleware
}

var registry []entry

// Register a registrar under scope with optional per-route middlewares.
func Register(scope Scope, reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{scope: scope, reg: reg, mws: mws})
}

// RegisterAll is called once from server.New. Every public route shares one
// rate limiter.
func RegisterAll(r chi.Router, d deps.Deps) {
	public := []Middleware{
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateLimitBurst,
			RefillPerIPPerMin: d.RateLimitPerMin,
			MaxEntries:        100_000,
			TrustProxy:        d.TrustProxy,
		}),
		d.Sessions.Middleware,
	}
	ops := []Middleware{
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	}

	for _, e := range registry {
		chain := ops
		if e.scope == Public {
			chain = public
		}
		chain = append(append([]Middleware{}, chain...), e.mws...)
		e.reg(r.With(chain...), d)
	}
}
