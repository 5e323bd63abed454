package permit

import "testing"

func TestEvaluate_NilRuleAllows(t *testing.T) {
	t.Parallel()

	res := Evaluate(nil, Anonymous())
	if !res.Allowed || res.Reason != "" || res.RejectAction != "" {
		t.Fatalf("got %+v, want plain allow", res)
	}
}

func TestEvaluate_FirstFailingCheckWins(t *testing.T) {
	t.Parallel()

	rule := &PermissionRule{
		Scope:        ScopePage,
		Target:       "/admin",
		Roles:        []string{"admin"},
		AuthStatus:   AuthAuthenticated,
		ActiveStatus: Active,
		RejectAction: RejectRedirect,
	}

	// Fails authentication AND roles: the authentication reason wins.
	res := Evaluate(rule, Anonymous())
	if res.Allowed {
		t.Fatalf("got allow, want deny")
	}
	if res.Reason != ReasonAuthRequired {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonAuthRequired)
	}
	if res.RejectAction != RejectRedirect {
		t.Fatalf("rejectAction = %q, want %q", res.RejectAction, RejectRedirect)
	}

	// Authenticated but inactive: activation fires before roles.
	user := UserContext{ID: "u1", AuthStatus: AuthAuthenticated, ActiveStatus: ActiveNone}
	res = Evaluate(rule, user)
	if res.Reason != ReasonActivationRequired {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonActivationRequired)
	}

	// Active but missing role.
	user.ActiveStatus = Active
	res = Evaluate(rule, user)
	if res.Reason != ReasonRoleDenied {
		t.Fatalf("reason = %q, want %q", res.Reason, ReasonRoleDenied)
	}

	user.Roles = []string{"admin"}
	if res = Evaluate(rule, user); !res.Allowed {
		t.Fatalf("got %+v, want allow", res)
	}
}

func TestEvaluate_ActivationOrdinals(t *testing.T) {
	t.Parallel()

	rule := &PermissionRule{
		Scope: ScopePage, Target: "/x",
		AuthStatus: AuthAnonymous, ActiveStatus: Active, RejectAction: RejectHide,
	}

	cases := []struct {
		status ActiveStatus
		want   bool
	}{
		{ActiveNone, false},
		{Active, true},
		{Active2FA, true},
	}
	for _, c := range cases {
		user := UserContext{AuthStatus: AuthAnonymous, ActiveStatus: c.status}
		if got := Evaluate(rule, user).Allowed; got != c.want {
			t.Fatalf("activeStatus %q: allowed = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestEvaluate_AnyOfSemantics(t *testing.T) {
	t.Parallel()

	rule := &PermissionRule{
		Scope: ScopeComponent, Target: "export.button",
		Roles:             []string{"editor", "admin", "owner"},
		AuthStatus:        AuthAuthenticated,
		ActiveStatus:      ActiveNone,
		SubscriptionTypes: []string{"pro", "team"},
		RejectAction:      RejectDisable,
	}

	// Exactly one of three roles and one of two subscriptions passes.
	user := UserContext{
		ID: "u1", AuthStatus: AuthAuthenticated, ActiveStatus: Active2FA,
		Roles: []string{"editor"}, Subscriptions: []string{"team"},
	}
	if res := Evaluate(rule, user); !res.Allowed {
		t.Fatalf("got %+v, want allow", res)
	}

	user.Subscriptions = []string{"free"}
	res := Evaluate(rule, user)
	if res.Allowed || res.Reason != ReasonSubscriptionDenied {
		t.Fatalf("got %+v, want subscription deny", res)
	}
}

func TestEvaluate_BillingScenario(t *testing.T) {
	t.Parallel()

	rule := &PermissionRule{
		Scope:             ScopeAPI,
		Method:            "POST",
		Target:            "/billing/charge",
		AuthStatus:        AuthAuthenticated,
		ActiveStatus:      Active,
		SubscriptionTypes: []string{"pro"},
		RejectAction:      RejectThrow,
	}
	user := UserContext{
		ID: "u1", AuthStatus: AuthAuthenticated, ActiveStatus: Active,
		Subscriptions: []string{"pro"},
	}
	if res := Evaluate(rule, user); !res.Allowed {
		t.Fatalf("got %+v, want allow", res)
	}

	user.Subscriptions = []string{"free"}
	res := Evaluate(rule, user)
	if res.Allowed {
		t.Fatalf("got allow, want deny")
	}
	if res.Reason != ReasonSubscriptionDenied || res.RejectAction != RejectThrow {
		t.Fatalf("got %+v, want subscription deny with throw", res)
	}
}
