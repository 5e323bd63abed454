package permit

import "strings"

// NormalizePath canonicalizes a request or configured path: lower
// case, a single leading slash, no trailing slash except for the root.
func NormalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// segments splits a normalized path into its non-empty segments; the
// root path yields an empty list.
func segments(p string) []string {
	out := make([]string, 0, 8)
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isParam(seg string) bool { return strings.HasPrefix(seg, ":") }

// MatchKey resolves a concrete request to the single best-fitting rule
// key in rules, or ok=false when nothing is configured for it.
//
// Page and api requests resolve in three tiers, most specific first:
//
//  1. Exact: the configured path equals the request path.
//  2. Parameterized: same segment count, each configured segment is
//     either a ":param" wildcard or a literal match. The candidate with
//     the most literal matches wins; equal scores break by rule key so
//     resolution is stable across reloads.
//  3. Parent: the configured path is a strict, fully-literal prefix of
//     the request path (the root path is a prefix of everything). The
//     longest prefix wins.
//
// Action and component targets have no path hierarchy, so they resolve
// by exact key only. An api request without a method is caller misuse
// and resolves to no match rather than an error.
func MatchKey(rules map[string]PermissionRule, scope Scope, path, method string) (string, bool) {
	if scope == ScopeAction || scope == ScopeComponent {
		key := BuildKey(scope, "", path)
		_, ok := rules[key]
		return key, ok
	}
	if scope == ScopeAPI && method == "" {
		return "", false
	}
	method = strings.ToUpper(method)
	reqPath := NormalizePath(path)

	// Tier 1: exact.
	key := BuildKey(scope, method, reqPath)
	if _, ok := rules[key]; ok {
		return key, true
	}

	reqSegs := segments(reqPath)

	var (
		paramKey    string
		paramScore  = -1
		parentKey   string
		parentDepth = -1
	)
	for k, r := range rules {
		if r.Scope != scope {
			continue
		}
		if scope == ScopeAPI && r.Method != method {
			continue
		}
		cfgSegs := segments(r.Target)

		// Tier 2 candidate: same segment count, wildcards allowed.
		if len(cfgSegs) == len(reqSegs) && len(reqSegs) > 0 {
			if score, ok := paramScoreFor(cfgSegs, reqSegs); ok {
				if score > paramScore || (score == paramScore && k < paramKey) {
					paramKey, paramScore = k, score
				}
			}
			continue
		}

		// Tier 3 candidate: strict literal prefix.
		if len(cfgSegs) < len(reqSegs) && literalPrefix(cfgSegs, reqSegs) {
			if len(cfgSegs) > parentDepth {
				parentKey, parentDepth = k, len(cfgSegs)
			}
		}
	}
	if paramScore >= 0 {
		return paramKey, true
	}
	if parentDepth >= 0 {
		return parentKey, true
	}
	return "", false
}

// paramScoreFor reports whether cfg matches req segment-for-segment
// and how many of the matches are literal.
func paramScoreFor(cfg, req []string) (int, bool) {
	score := 0
	for i, seg := range cfg {
		if isParam(seg) {
			continue
		}
		if seg != req[i] {
			return 0, false
		}
		score++
	}
	return score, true
}

func literalPrefix(cfg, req []string) bool {
	for i, seg := range cfg {
		if isParam(seg) || seg != req[i] {
			return false
		}
	}
	return true
}
