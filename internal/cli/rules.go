package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arabot777/idea2product-guard/internal/guard"
	"github.com/arabot777/idea2product-guard/internal/permit"
	"github.com/arabot777/idea2product-guard/internal/rulesource"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
)

func cmdRules() *cobra.Command {
	c := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage permission rules",
	}
	c.AddCommand(cmdRulesList(), cmdRulesCheck(), cmdRulesImport(), cmdRulesReload())
	return c
}

// openSource picks the rule source from the persistent flags; the
// YAML file wins when both are set.
func openSource() (rulestore.RuleSource, func() error, error) {
	if rulesFile != "" {
		return rulesource.NewFileSource(rulesFile), func() error { return nil }, nil
	}
	if dbPath != "" {
		src, err := rulesource.OpenSQLite(dbPath, 1)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}
	return nil, nil, fmt.Errorf("either --rules-file or --db is required")
}

func cmdRulesList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := openSource()
			if err != nil {
				return err
			}
			defer closeSrc()

			store := rulestore.New(src)
			rules, err := store.AllRules(cmd.Context())
			if err != nil {
				return err
			}
			if output == "table" {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tAUTH\tACTIVE\tROLES\tSUBSCRIPTIONS\tREJECT")
				for _, r := range rules {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						r.Key(), r.AuthStatus, r.ActiveStatus,
						strings.Join(r.Roles, ","), strings.Join(r.SubscriptionTypes, ","), r.RejectAction)
				}
				return tw.Flush()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rules)
		},
	}
}

func cmdRulesCheck() *cobra.Command {
	var (
		scope  string
		target string
		method string
		userID string
		roles  []string
		auth   string
		active string
		subs   []string
	)
	c := &cobra.Command{
		Use:   "check",
		Short: "Evaluate one request offline against the rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !permit.Scope(scope).Valid() {
				return fmt.Errorf("unknown scope %q", scope)
			}
			src, closeSrc, err := openSource()
			if err != nil {
				return err
			}
			defer closeSrc()

			store := rulestore.New(src)
			g := guard.New(store, nil)

			user := permit.UserContext{
				ID:            userID,
				Roles:         roles,
				AuthStatus:    permit.AuthStatus(auth),
				ActiveStatus:  permit.ActiveStatus(active),
				Subscriptions: subs,
			}
			if userID != "" && auth == string(permit.AuthAnonymous) {
				user.AuthStatus = permit.AuthAuthenticated
			}

			res, err := g.Check(cmd.Context(), permit.Scope(scope), target, method, user)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	c.Flags().StringVar(&scope, "scope", "page", "scope: page|api|action|component")
	c.Flags().StringVar(&target, "target", "", "request path or identifier")
	c.Flags().StringVar(&method, "method", "", "HTTP method (api scope)")
	c.Flags().StringVar(&userID, "user-id", "", "user id, empty for anonymous")
	c.Flags().StringSliceVar(&roles, "roles", nil, "roles held by the user")
	c.Flags().StringVar(&auth, "auth-status", string(permit.AuthAnonymous), "anonymous|authenticated")
	c.Flags().StringVar(&active, "active-status", string(permit.ActiveNone), "inactive|active|active_2fa")
	c.Flags().StringSliceVar(&subs, "subscriptions", nil, "active subscription plans")
	_ = c.MarkFlagRequired("target")
	return c
}

func cmdRulesImport() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import YAML rules into the SQLite rule database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rulesFile == "" || dbPath == "" {
				return fmt.Errorf("both --rules-file and --db are required")
			}
			rules, err := rulesource.NewFileSource(rulesFile).Load(cmd.Context())
			if err != nil {
				return err
			}
			db, err := rulesource.OpenSQLite(dbPath, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, r := range rules {
				if err := db.AddRule(cmd.Context(), r); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules into %s\n", len(rules), dbPath)
			return nil
		},
	}
}

func cmdRulesReload() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask a running guardd to reload its rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, baseURL+"/admin/rules/reload", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("reload request: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("reload failed: %s", resp.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rules reloaded")
			return nil
		},
	}
}
