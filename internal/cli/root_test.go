package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arabot777/idea2product-guard/internal/permit"
)

func TestCmdRules_MetadataAndChildren(t *testing.T) {
	t.Parallel()

	c := cmdRules()
	if c.Use != "rules" {
		t.Fatalf("Use = %q, want %q", c.Use, "rules")
	}
	if !c.HasAvailableSubCommands() {
		t.Fatalf("expected subcommands to be available")
	}

	seen := map[string]bool{}
	for _, sc := range c.Commands() {
		seen[sc.Name()] = true
		if sc.Parent() != c {
			t.Fatalf("subcommand %q has wrong parent", sc.Name())
		}
	}
	for _, want := range []string{"list", "check", "import", "reload"} {
		if !seen[want] {
			t.Fatalf("missing %q subcommand; got names: %v", want, names(seen))
		}
	}
}

func TestCmdRules_HelpFlag(t *testing.T) {
	t.Parallel()

	c := cmdRules()
	c.SilenceErrors = true
	c.SilenceUsage = true

	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"-h"})

	if err := c.Execute(); err != nil {
		t.Fatalf("Execute() help error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "permission rules") || !strings.Contains(out, "Usage") {
		t.Fatalf("help output missing expected text; got:\n%s", out)
	}
}

func TestCmdRulesCheck_RequiresTarget(t *testing.T) {
	t.Parallel()

	c := cmdRulesCheck()
	c.SilenceErrors = true
	c.SilenceUsage = true

	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"--scope", "page"})

	if err := c.Execute(); err == nil {
		t.Fatalf("Execute() without --target: want error")
	}
}

func TestCmdRulesCheck_EvaluatesRuleFile(t *testing.T) {
	// Mutates package flag state, so no t.Parallel.
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "rules:\n  - scope: page\n    target: /admin\n    authStatus: authenticated\n    rejectAction: redirect\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	oldRules, oldDB := rulesFile, dbPath
	rulesFile, dbPath = path, ""
	defer func() { rulesFile, dbPath = oldRules, oldDB }()

	c := cmdRulesCheck()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"--scope", "page", "--target", "/admin"})

	if err := c.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var res permit.CheckResult
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if res.Allowed || res.Reason != permit.ReasonAuthRequired || res.RejectAction != permit.RejectRedirect {
		t.Fatalf("got %+v, want anonymous deny with redirect", res)
	}
}

// helper to show seen subcommand names in failure messages
func names(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
