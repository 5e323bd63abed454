package permit

// Deny reasons, surfaced verbatim to callers and UIs.
const (
	ReasonAuthRequired       = "Authentication required"
	ReasonActivationRequired = "Account activation required"
	ReasonRoleDenied         = "Insufficient role permissions"
	ReasonSubscriptionDenied = "Required subscription not found"
)

// Evaluate decides allow/deny for a resolved rule against a user
// context. A nil rule means no rule is configured for the request and
// the result is allow.
//
// Checks run in a fixed order and the first failing check wins:
// authentication, activation level, role membership, subscription
// membership. Role and subscription sets are "any of".
func Evaluate(rule *PermissionRule, user UserContext) CheckResult {
	if rule == nil {
		return CheckResult{Allowed: true}
	}
	if rule.AuthStatus == AuthAuthenticated && user.AuthStatus != AuthAuthenticated {
		return deny(rule, ReasonAuthRequired)
	}
	if !user.ActiveStatus.AtLeast(rule.ActiveStatus) {
		return deny(rule, ReasonActivationRequired)
	}
	if len(rule.Roles) > 0 && !containsAny(user.Roles, rule.Roles) {
		return deny(rule, ReasonRoleDenied)
	}
	if len(rule.SubscriptionTypes) > 0 && !containsAny(user.Subscriptions, rule.SubscriptionTypes) {
		return deny(rule, ReasonSubscriptionDenied)
	}
	return CheckResult{Allowed: true}
}

func deny(rule *PermissionRule, reason string) CheckResult {
	return CheckResult{Allowed: false, Reason: reason, RejectAction: rule.RejectAction}
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
