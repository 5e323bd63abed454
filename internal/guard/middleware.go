package guard

import (
	"context"
	"net/http"

	"github.com/arabot777/idea2product-guard/internal/httpx"
	"github.com/arabot777/idea2product-guard/internal/permit"
)

type ctxKey int

const disabledKey ctxKey = 1

// Disabled reports whether a disable-on-deny rule fired for this
// request. Handlers render the resource with interaction turned off.
func Disabled(ctx context.Context) bool {
	v, _ := ctx.Value(disabledKey).(bool)
	return v
}

// Pages returns middleware enforcing page-scope rules against the
// request path.
func (g *Guard) Pages() func(http.Handler) http.Handler {
	return g.middleware(permit.ScopePage)
}

// API returns middleware enforcing api-scope rules against the request
// method and path.
func (g *Guard) API() func(http.Handler) http.Handler {
	return g.middleware(permit.ScopeAPI)
}

// Component returns middleware gating a route group behind a
// component-scope rule, e.g. the admin surface behind
// "component@admin.rules". Exact key only, like all component checks.
func (g *Guard) Component(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := g.sessions.UserContext(r)
			if err != nil {
				g.logger.Error("session context unavailable", "path", r.URL.Path, "err", err)
				httpx.WriteError(w, http.StatusInternalServerError, "session unavailable")
				return
			}
			res, err := g.CheckComponent(r.Context(), target, user)
			if err != nil {
				g.logger.Error("permission rules unavailable", "path", r.URL.Path, "err", err)
				httpx.WriteError(w, http.StatusServiceUnavailable, "permission rules unavailable")
				return
			}
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			g.reject(w, r, next, res)
		})
	}
}

func (g *Guard) middleware(scope permit.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := g.sessions.UserContext(r)
			if err != nil {
				g.logger.Error("session context unavailable", "path", r.URL.Path, "err", err)
				httpx.WriteError(w, http.StatusInternalServerError, "session unavailable")
				return
			}

			method := ""
			if scope == permit.ScopeAPI {
				method = r.Method
			}
			res, err := g.Check(r.Context(), scope, r.URL.Path, method, user)
			if err != nil {
				// Rules could not load. Fail closed: a broken
				// permission system must not open protected routes.
				g.logger.Error("permission rules unavailable", "path", r.URL.Path, "err", err)
				httpx.WriteError(w, http.StatusServiceUnavailable, "permission rules unavailable")
				return
			}
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			g.reject(w, r, next, res)
		})
	}
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, next http.Handler, res permit.CheckResult) {
	switch res.RejectAction {
	case permit.RejectHide:
		http.NotFound(w, r)
	case permit.RejectDisable:
		ctx := context.WithValue(r.Context(), disabledKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	case permit.RejectRedirect:
		http.Redirect(w, r, g.redirectURL, http.StatusFound)
	default: // throw
		httpx.WriteError(w, http.StatusForbidden, res.Reason)
	}
}
