package rulesource

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/arabot777/idea2product-guard/internal/permit"
)

const schema = `
CREATE TABLE IF NOT EXISTS permission_rules (
	id                 TEXT PRIMARY KEY,
	scope              TEXT NOT NULL,
	method             TEXT NOT NULL DEFAULT '',
	target             TEXT NOT NULL,
	auth_status        TEXT NOT NULL DEFAULT 'anonymous',
	active_status      TEXT NOT NULL DEFAULT 'inactive',
	subscription_types TEXT NOT NULL DEFAULT '[]',
	reject_action      TEXT NOT NULL DEFAULT 'throw'
);

CREATE TABLE IF NOT EXISTS role_rules (
	role    TEXT NOT NULL,
	rule_id TEXT NOT NULL REFERENCES permission_rules(id) ON DELETE CASCADE,
	PRIMARY KEY (role, rule_id)
);
`

// SQLiteSource loads permission rules from a SQLite database: one row
// per rule in permission_rules, with role membership joined in from
// role_rules. Subscription types are stored as a JSON array.
type SQLiteSource struct {
	pool *sqlitex.Pool
}

// OpenSQLite opens (and creates if needed) the rule database. Use
// ":memory:" with pool size 1 in tests.
func OpenSQLite(path string, poolSize int) (*SQLiteSource, error) {
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, pragma := range []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA busy_timeout=5000",
				"PRAGMA foreign_keys=ON",
			} {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open rule database %s: %w", path, err)
	}
	return &SQLiteSource{pool: pool}, nil
}

func (s *SQLiteSource) Close() error {
	return s.pool.Close()
}

// Load queries all rules and their role memberships.
func (s *SQLiteSource) Load(ctx context.Context) ([]permit.PermissionRule, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("rule database: %w", err)
	}
	defer s.pool.Put(conn)

	rolesByRule := make(map[string][]string)
	err = sqlitex.Execute(conn,
		`SELECT rule_id, role FROM role_rules ORDER BY rule_id, role`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnText(0)
				rolesByRule[id] = append(rolesByRule[id], stmt.ColumnText(1))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query role memberships: %w", err)
	}

	var rules []permit.PermissionRule
	err = sqlitex.Execute(conn,
		`SELECT id, scope, method, target, auth_status, active_status,
		        subscription_types, reject_action
		   FROM permission_rules ORDER BY id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnText(0)
				var subs []string
				if raw := stmt.ColumnText(6); raw != "" && raw != "[]" {
					if err := json.Unmarshal([]byte(raw), &subs); err != nil {
						return &permit.RuleError{Key: id, Field: "subscription_types", Reason: err.Error()}
					}
				}
				rules = append(rules, permit.PermissionRule{
					Scope:             permit.Scope(stmt.ColumnText(1)),
					Method:            stmt.ColumnText(2),
					Target:            stmt.ColumnText(3),
					Roles:             rolesByRule[id],
					AuthStatus:        permit.AuthStatus(stmt.ColumnText(4)),
					ActiveStatus:      permit.ActiveStatus(stmt.ColumnText(5)),
					SubscriptionTypes: subs,
					RejectAction:      permit.RejectAction(stmt.ColumnText(7)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query permission rules: %w", err)
	}
	return rules, nil
}

// AddRule inserts a rule and its role memberships. Used by the import
// command and by tests; the running engine never writes rules.
func (s *SQLiteSource) AddRule(ctx context.Context, r permit.PermissionRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rule database: %w", err)
	}
	defer s.pool.Put(conn)

	subs, err := json.Marshal(r.SubscriptionTypes)
	if err != nil {
		return err
	}
	if r.SubscriptionTypes == nil {
		subs = []byte("[]")
	}

	id := uuid.NewString()
	err = sqlitex.Execute(conn,
		`INSERT INTO permission_rules
		 (id, scope, method, target, auth_status, active_status, subscription_types, reject_action)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			id, string(r.Scope), r.Method, r.Target,
			string(r.AuthStatus), string(r.ActiveStatus), string(subs), string(r.RejectAction),
		}})
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", r.Key(), err)
	}
	for _, role := range r.Roles {
		err = sqlitex.Execute(conn,
			`INSERT INTO role_rules (role, rule_id) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{role, id}})
		if err != nil {
			return fmt.Errorf("insert role membership %s -> %s: %w", role, r.Key(), err)
		}
	}
	return nil
}
