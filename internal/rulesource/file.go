package rulesource

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arabot777/idea2product-guard/internal/permit"
)

// FileSource loads permission rules from a YAML file. Meant for dev
// setups and the CLI; production deployments use SQLiteSource.
//
// File shape:
//
//	rules:
//	  - scope: page
//	    target: /admin
//	    roles: [admin]
//	    authStatus: authenticated
//	    activeStatus: active
//	    rejectAction: redirect
type FileSource struct {
	path string
}

type ruleFile struct {
	Rules []permit.PermissionRule `yaml:"rules"`
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]permit.PermissionRule, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRules(b)
}

// ParseRules decodes a YAML rule document. Omitted statuses default to
// the least restrictive value; omitted reject actions default to throw.
func ParseRules(b []byte) ([]permit.PermissionRule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.AuthStatus == "" {
			r.AuthStatus = permit.AuthAnonymous
		}
		if r.ActiveStatus == "" {
			r.ActiveStatus = permit.ActiveNone
		}
		if r.RejectAction == "" {
			r.RejectAction = permit.RejectThrow
		}
	}
	return f.Rules, nil
}
