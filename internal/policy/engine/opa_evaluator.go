// Package engine evaluates the role permission catalog with OPA Rego.
package engine

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	membershipdomain "teamos/backend/internal/membership/domain"
	"teamos/backend/internal/platform/rbac"
)

//go:embed permissions.rego
var permissionsPolicy string

const (
	allowQuery       = "data.teamos.permissions.allow"
	permissionsQuery = "data.teamos.permissions.role_permissions"
)

// OPAEvaluator answers permission questions against the embedded catalog. Queries are prepared once
// at construction and are safe for concurrent use.
type OPAEvaluator struct {
	allow       rego.PreparedEvalQuery
	permissions rego.PreparedEvalQuery
}

var _ rbac.Checker = (*OPAEvaluator)(nil)

// NewOPAEvaluator compiles the permission catalog.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	return newEvaluator(ctx, permissionsPolicy)
}

func newEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	module := rego.Module("permissions.rego", policy)
	allow, err := rego.New(rego.Query(allowQuery), module).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile permission policy: %w", err)
	}
	perms, err := rego.New(rego.Query(permissionsQuery), module).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile permission policy: %w", err)
	}
	return &OPAEvaluator{allow: allow, permissions: perms}, nil
}

// Allowed reports whether role holds perm. Unknown roles hold nothing.
func (e *OPAEvaluator) Allowed(ctx context.Context, role membershipdomain.Role, perm rbac.Permission) (bool, error) {
	rs, err := e.allow.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":       string(role),
		"permission": string(perm),
	}))
	if err != nil {
		return false, fmt.Errorf("eval permission policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("permission policy returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("permission policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// Permissions returns the sorted permissions of role.
func (e *OPAEvaluator) Permissions(ctx context.Context, role membershipdomain.Role) ([]rbac.Permission, error) {
	rs, err := e.permissions.Eval(ctx, rego.EvalInput(map[string]interface{}{"role": string(role)}))
	if err != nil {
		return nil, fmt.Errorf("eval permission policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}
	values, _ := rs[0].Expressions[0].Value.([]interface{})
	out := make([]rbac.Permission, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, rbac.Permission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// HealthCheck evaluates a known grant so readiness fails if the engine cannot answer.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	ok, err := e.Allowed(ctx, membershipdomain.RoleOwner, rbac.PermManageMembers)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("permission policy denies owner manage_members")
	}
	return nil
}
