package rulesource

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/arabot777/idea2product-guard/internal/permit"
)

func openTestDB(t *testing.T) *SQLiteSource {
	t.Helper()
	// sqlitex.NewPool rejects ":memory:", so use a per-test file instead.
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "rules.db"), 1)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestSQLiteSource_LoadJoinsRoles(t *testing.T) {
	t.Parallel()

	src := openTestDB(t)
	ctx := context.Background()

	err := src.AddRule(ctx, permit.PermissionRule{
		Scope: permit.ScopePage, Target: "/admin",
		Roles:      []string{"admin", "support"},
		AuthStatus: permit.AuthAuthenticated, ActiveStatus: permit.Active,
		RejectAction: permit.RejectRedirect,
	})
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	err = src.AddRule(ctx, permit.PermissionRule{
		Scope: permit.ScopeAPI, Method: "POST", Target: "/billing/charge",
		AuthStatus: permit.AuthAuthenticated, ActiveStatus: permit.Active,
		SubscriptionTypes: []string{"pro"},
		RejectAction:      permit.RejectThrow,
	})
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	rules, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}

	byKey := map[string]permit.PermissionRule{}
	for _, r := range rules {
		byKey[r.Key()] = r
	}

	admin, ok := byKey["page@/admin"]
	if !ok {
		t.Fatalf("page@/admin missing; got %v", byKey)
	}
	sort.Strings(admin.Roles)
	if len(admin.Roles) != 2 || admin.Roles[0] != "admin" || admin.Roles[1] != "support" {
		t.Fatalf("roles = %v, want [admin support]", admin.Roles)
	}

	charge, ok := byKey["api@POST@/billing/charge"]
	if !ok {
		t.Fatalf("api@POST@/billing/charge missing; got %v", byKey)
	}
	if len(charge.Roles) != 0 {
		t.Fatalf("roles = %v, want none", charge.Roles)
	}
	if len(charge.SubscriptionTypes) != 1 || charge.SubscriptionTypes[0] != "pro" {
		t.Fatalf("subscriptions = %v, want [pro]", charge.SubscriptionTypes)
	}
}

func TestSQLiteSource_AddRuleValidates(t *testing.T) {
	t.Parallel()

	src := openTestDB(t)
	err := src.AddRule(context.Background(), permit.PermissionRule{
		Scope: "route", Target: "/x",
		AuthStatus: permit.AuthAnonymous, ActiveStatus: permit.ActiveNone,
		RejectAction: permit.RejectHide,
	})
	if err == nil {
		t.Fatalf("AddRule with bad scope: want error")
	}
}
