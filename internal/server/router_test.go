package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arabot777/idea2product-guard/internal/guard"
	"github.com/arabot777/idea2product-guard/internal/permit"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
)

type staticSource []permit.PermissionRule

func (s staticSource) Load(ctx context.Context) ([]permit.PermissionRule, error) {
	return s, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	store := rulestore.New(staticSource{
		{
			Scope: permit.ScopeAPI, Method: "POST", Target: "/billing/charge",
			AuthStatus: permit.AuthAuthenticated, ActiveStatus: permit.Active,
			SubscriptionTypes: []string{"pro"},
			RejectAction:      permit.RejectThrow,
		},
		{
			Scope: permit.ScopeComponent, Target: "admin.rules",
			Roles:      []string{"admin"},
			AuthStatus: permit.AuthAuthenticated, ActiveStatus: permit.Active,
			RejectAction: permit.RejectThrow,
		},
	})
	return BuildRouter(Deps{Store: store, Sessions: guard.HeaderSessionProvider{}}, Options{})
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestCheckEndpoint(t *testing.T) {
	t.Parallel()

	h := testRouter(t)

	body := `{
		"scope": "api",
		"target": "/billing/charge",
		"method": "POST",
		"user": {"id": "u1", "authStatus": "authenticated", "activeStatus": "active", "subscriptions": ["free"]}
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var res permit.CheckResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Allowed || res.Reason != permit.ReasonSubscriptionDenied || res.RejectAction != permit.RejectThrow {
		t.Fatalf("got %+v, want subscription deny with throw", res)
	}
}

func TestCheckEndpoint_BadRequest(t *testing.T) {
	t.Parallel()

	h := testRouter(t)
	for _, body := range []string{`{`, `{"scope":"route","target":"/x"}`, `{"scope":"page"}`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestAdminSurfaceIsGated(t *testing.T) {
	t.Parallel()

	h := testRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/rules", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous admin: status = %d, want 403", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/rules", nil)
	req.Header.Set("X-User-Id", "op1")
	req.Header.Set("X-User-Roles", "admin")
	req.Header.Set("X-Active-Status", "active")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin listing: status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "/billing/charge") {
		t.Fatalf("rule listing missing billing rule: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/rules/reload", nil)
	req.Header.Set("X-User-Id", "op1")
	req.Header.Set("X-User-Roles", "admin")
	req.Header.Set("X-Active-Status", "active")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reload: status = %d, want 204", rec.Code)
	}
}
