package guard

import (
	"net/http"
	"strings"

	"github.com/arabot777/idea2product-guard/internal/permit"
)

// SessionProvider supplies the per-request user context. The real
// implementation lives with the application's session layer; the
// engine only consumes the result.
type SessionProvider interface {
	UserContext(r *http.Request) (permit.UserContext, error)
}

// HeaderSessionProvider reads the user context from trusted request
// headers, the shape an auth proxy in front of guardd would set. A
// request without X-User-Id is anonymous.
//
// This is a deployment convenience, not an authenticator: guardd must
// sit behind something that strips these headers from client traffic.
type HeaderSessionProvider struct{}

func (HeaderSessionProvider) UserContext(r *http.Request) (permit.UserContext, error) {
	id := r.Header.Get("X-User-Id")
	if id == "" {
		return permit.Anonymous(), nil
	}
	user := permit.UserContext{
		ID:            id,
		AuthStatus:    permit.AuthAuthenticated,
		ActiveStatus:  permit.ActiveNone,
		Roles:         splitList(r.Header.Get("X-User-Roles")),
		Subscriptions: splitList(r.Header.Get("X-User-Subscriptions")),
	}
	if v := r.Header.Get("X-Auth-Status"); v != "" {
		user.AuthStatus = permit.AuthStatus(v)
	}
	if v := r.Header.Get("X-Active-Status"); v != "" {
		user.ActiveStatus = permit.ActiveStatus(v)
	}
	return user, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
