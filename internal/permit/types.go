package permit

import (
	"fmt"
	"strings"
)

// Scope is the category of protected resource a rule applies to.
type Scope string

const (
	ScopePage      Scope = "page"
	ScopeAPI       Scope = "api"
	ScopeAction    Scope = "action"
	ScopeComponent Scope = "component"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopePage, ScopeAPI, ScopeAction, ScopeComponent:
		return true
	}
	return false
}

// RejectAction tells the caller what to do with a denied request.
type RejectAction string

const (
	RejectHide     RejectAction = "hide"
	RejectDisable  RejectAction = "disable"
	RejectRedirect RejectAction = "redirect"
	RejectThrow    RejectAction = "throw"
)

func (a RejectAction) Valid() bool {
	switch a {
	case RejectHide, RejectDisable, RejectRedirect, RejectThrow:
		return true
	}
	return false
}

type AuthStatus string

const (
	AuthAnonymous     AuthStatus = "anonymous"
	AuthAuthenticated AuthStatus = "authenticated"
)

func (s AuthStatus) Valid() bool {
	return s == AuthAnonymous || s == AuthAuthenticated
}

// ActiveStatus is the account activation level, ordered
// inactive < active < active_2fa.
type ActiveStatus string

const (
	ActiveNone ActiveStatus = "inactive"
	Active     ActiveStatus = "active"
	Active2FA  ActiveStatus = "active_2fa"
)

func (s ActiveStatus) Valid() bool {
	return s == ActiveNone || s == Active || s == Active2FA
}

func (s ActiveStatus) ordinal() int {
	switch s {
	case Active:
		return 1
	case Active2FA:
		return 2
	}
	return 0
}

// AtLeast reports whether s satisfies a rule requiring min.
func (s ActiveStatus) AtLeast(min ActiveStatus) bool {
	return s.ordinal() >= min.ordinal()
}

// PermissionRule is one declarative access rule. Rules are immutable
// once loaded; the store hands out copies of a shared snapshot.
type PermissionRule struct {
	Scope  Scope  `json:"scope" yaml:"scope"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"` // api scope only
	Target string `json:"target" yaml:"target"`

	// Roles is "any of"; empty means no role restriction.
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`

	AuthStatus   AuthStatus   `json:"authStatus" yaml:"authStatus"`
	ActiveStatus ActiveStatus `json:"activeStatus" yaml:"activeStatus"`

	// SubscriptionTypes is "any of"; empty means no subscription restriction.
	SubscriptionTypes []string `json:"subscriptionTypes,omitempty" yaml:"subscriptionTypes,omitempty"`

	RejectAction RejectAction `json:"rejectAction" yaml:"rejectAction"`
}

// Key returns the canonical rule key: scope@target, or
// scope@METHOD@target for the api scope.
func (r *PermissionRule) Key() string {
	return BuildKey(r.Scope, r.Method, r.Target)
}

// BuildKey builds the canonical lookup key for a scope and target.
// Page and api targets are normalized as paths; the method only
// participates for the api scope and is upper-cased.
func BuildKey(scope Scope, method, target string) string {
	if scope == ScopeAPI {
		return string(scope) + "@" + strings.ToUpper(method) + "@" + NormalizePath(target)
	}
	if scope == ScopePage {
		return string(scope) + "@" + NormalizePath(target)
	}
	return string(scope) + "@" + target
}

// RuleError reports a malformed rule record at load time.
type RuleError struct {
	Key    string
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("permission rule %q: %s: %s", e.Key, e.Field, e.Reason)
}

// Validate rejects malformed records and normalizes path-shaped
// targets and api methods in place, so every loaded rule has a
// canonical key.
func (r *PermissionRule) Validate() error {
	if !r.Scope.Valid() {
		return &RuleError{Key: r.Key(), Field: "scope", Reason: fmt.Sprintf("unknown scope %q", r.Scope)}
	}
	if r.Target == "" {
		return &RuleError{Key: r.Key(), Field: "target", Reason: "empty target"}
	}
	if r.Scope == ScopeAPI {
		if r.Method == "" {
			return &RuleError{Key: r.Key(), Field: "method", Reason: "api rules require a method"}
		}
		r.Method = strings.ToUpper(r.Method)
	} else if r.Method != "" {
		return &RuleError{Key: r.Key(), Field: "method", Reason: fmt.Sprintf("method is not allowed for %s rules", r.Scope)}
	}
	if r.Scope == ScopePage || r.Scope == ScopeAPI {
		r.Target = NormalizePath(r.Target)
	}
	if !r.AuthStatus.Valid() {
		return &RuleError{Key: r.Key(), Field: "authStatus", Reason: fmt.Sprintf("unknown auth status %q", r.AuthStatus)}
	}
	if !r.ActiveStatus.Valid() {
		return &RuleError{Key: r.Key(), Field: "activeStatus", Reason: fmt.Sprintf("unknown active status %q", r.ActiveStatus)}
	}
	if !r.RejectAction.Valid() {
		return &RuleError{Key: r.Key(), Field: "rejectAction", Reason: fmt.Sprintf("unknown reject action %q", r.RejectAction)}
	}
	return nil
}

// UserContext is the per-request identity snapshot supplied by the
// session layer. The engine treats it as read-only.
type UserContext struct {
	ID            string       `json:"id,omitempty"` // empty for anonymous
	Roles         []string     `json:"roles,omitempty"`
	AuthStatus    AuthStatus   `json:"authStatus"`
	ActiveStatus  ActiveStatus `json:"activeStatus"`
	Subscriptions []string     `json:"subscriptions,omitempty"`
}

// Anonymous returns the context used when no session is present.
func Anonymous() UserContext {
	return UserContext{AuthStatus: AuthAnonymous, ActiveStatus: ActiveNone}
}

// CheckResult is the outcome of one policy evaluation. Reason and
// RejectAction are set only on deny.
type CheckResult struct {
	Allowed      bool         `json:"allowed"`
	Reason       string       `json:"reason,omitempty"`
	RejectAction RejectAction `json:"rejectAction,omitempty"`
}
