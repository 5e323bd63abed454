// Package guard adapts the permission engine to the four call-site
// shapes of the application: page renders, API routes, server actions,
// and UI components. Adapters fetch the user context from the session
// layer, resolve the request to a rule, evaluate it, and enforce the
// rule's reject action.
package guard

import (
	"context"
	"log/slog"

	"github.com/arabot777/idea2product-guard/internal/permit"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
)

type Guard struct {
	store       *rulestore.Store
	sessions    SessionProvider
	logger      *slog.Logger
	redirectURL string
}

type Option func(*Guard)

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithRedirectURL sets where redirect-on-deny rules send the client.
func WithRedirectURL(u string) Option {
	return func(g *Guard) { g.redirectURL = u }
}

func New(store *rulestore.Store, sessions SessionProvider, opts ...Option) *Guard {
	g := &Guard{
		store:       store,
		sessions:    sessions,
		logger:      slog.Default(),
		redirectURL: "/login",
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// CheckPage resolves a page path through the route matcher and
// evaluates the result. No configured rule means allow.
func (g *Guard) CheckPage(ctx context.Context, path string, user permit.UserContext) (permit.CheckResult, error) {
	rule, err := g.store.Resolve(ctx, permit.ScopePage, path, "")
	if err != nil {
		return permit.CheckResult{}, err
	}
	return permit.Evaluate(rule, user), nil
}

// CheckAPI resolves method+path for the api scope.
func (g *Guard) CheckAPI(ctx context.Context, method, path string, user permit.UserContext) (permit.CheckResult, error) {
	rule, err := g.store.Resolve(ctx, permit.ScopeAPI, path, method)
	if err != nil {
		return permit.CheckResult{}, err
	}
	return permit.Evaluate(rule, user), nil
}

// CheckAction evaluates a server action identifier. Actions have no
// path hierarchy, so lookup is by exact key only.
func (g *Guard) CheckAction(ctx context.Context, action string, user permit.UserContext) (permit.CheckResult, error) {
	return g.checkExact(ctx, permit.ScopeAction, action, user)
}

// CheckComponent evaluates a UI component identifier, exact key only.
func (g *Guard) CheckComponent(ctx context.Context, component string, user permit.UserContext) (permit.CheckResult, error) {
	return g.checkExact(ctx, permit.ScopeComponent, component, user)
}

func (g *Guard) checkExact(ctx context.Context, scope permit.Scope, target string, user permit.UserContext) (permit.CheckResult, error) {
	rule, ok, err := g.store.Get(ctx, permit.BuildKey(scope, "", target))
	if err != nil {
		return permit.CheckResult{}, err
	}
	if !ok {
		return permit.CheckResult{Allowed: true}, nil
	}
	return permit.Evaluate(rule, user), nil
}

// Check dispatches on scope; used by the HTTP decision endpoint and
// the CLI, which receive the scope as data.
func (g *Guard) Check(ctx context.Context, scope permit.Scope, target, method string, user permit.UserContext) (permit.CheckResult, error) {
	switch scope {
	case permit.ScopePage:
		return g.CheckPage(ctx, target, user)
	case permit.ScopeAPI:
		return g.CheckAPI(ctx, method, target, user)
	case permit.ScopeAction:
		return g.CheckAction(ctx, target, user)
	default:
		return g.CheckComponent(ctx, target, user)
	}
}
