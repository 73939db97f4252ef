package authz

import (
	"fmt"

	"creator-hub-backend/pkg/models"
)

// GrantDecision is the outcome of an escalation check. Reason carries
// the denial code (role_escalation_denied or forbidden_scope) so the
// caller can audit every outcome.
type GrantDecision struct {
	Allowed       bool         `json:"allowed"`
	Reason        string       `json:"reason,omitempty"`
	ResolvedScope models.Scope `json:"resolved_scope"`
}

// GrantAuthorizer validates grant and delegation requests against the
// escalation rules before anything touches the binding store. Authority
// propagates downward in the hierarchy, never laterally or upward: a
// space owner can mint moderators and members, only a hub admin can
// mint hub admins or space owners.
type GrantAuthorizer struct {
	resolver  *ScopeResolver
	evaluator *Evaluator
}

func NewGrantAuthorizer(resolver *ScopeResolver, evaluator *Evaluator) *GrantAuthorizer {
	return &GrantAuthorizer{resolver: resolver, evaluator: evaluator}
}

// AuthorizeGrant checks the rules in order; the first failure wins.
// The error return is for store failures only; a denial is a decision,
// not an error.
func (g *GrantAuthorizer) AuthorizeGrant(actorUserID string, targetRole models.Role, requested models.Scope) (GrantDecision, error) {
	denied := func(reason string) GrantDecision {
		return GrantDecision{Allowed: false, Reason: reason}
	}

	// 1. The scope must resolve to a hub.
	resolved := g.resolver.Resolve(requested)
	if resolved.HubID == "" {
		return denied(CodeRoleEscalationDenied), nil
	}

	// 2. Hub-admin grants target hub scope only.
	if targetRole == models.RoleHubAdmin && (resolved.ServerID != "" || resolved.ChannelID != "") {
		return denied(CodeRoleEscalationDenied), nil
	}

	// 3. Space roles need a server scope.
	if (targetRole == models.RoleSpaceOwner || targetRole == models.RoleSpaceModerator) && resolved.ServerID == "" {
		return denied(CodeRoleEscalationDenied), nil
	}

	// 4. Actor's authority at the resolved scope (expires stale
	// delegations before reading).
	bindings, err := g.evaluator.EffectiveBindings(actorUserID, resolved)
	if err != nil {
		return GrantDecision{}, fmt.Errorf("failed to evaluate actor bindings: %w", err)
	}

	// 5. Manager check: hub-level grants need hub_admin at the hub;
	// server-level grants accept hub_admin or space_owner at the server.
	var isHubAdmin, isSpaceOwner bool
	for _, b := range bindings {
		if !b.Scope.Covers(resolved) {
			continue
		}
		switch b.Role {
		case models.RoleHubAdmin:
			isHubAdmin = true
		case models.RoleSpaceOwner:
			isSpaceOwner = true
		}
	}
	hubLevel := resolved.ServerID == ""
	if hubLevel && !isHubAdmin {
		d := denied(CodeForbiddenScope)
		d.ResolvedScope = resolved
		return d, nil
	}
	if !hubLevel && !isHubAdmin && !isSpaceOwner {
		d := denied(CodeForbiddenScope)
		d.ResolvedScope = resolved
		return d, nil
	}

	// 6. Derive the assignable set from the actor's manager role.
	assignable := assignableRoles(isHubAdmin, isSpaceOwner)
	if !assignable[targetRole] {
		d := denied(CodeRoleEscalationDenied)
		d.ResolvedScope = resolved
		return d, nil
	}

	return GrantDecision{Allowed: true, ResolvedScope: resolved}, nil
}

func assignableRoles(isHubAdmin, isSpaceOwner bool) map[models.Role]bool {
	if isHubAdmin {
		return map[models.Role]bool{
			models.RoleHubAdmin:       true,
			models.RoleSpaceOwner:     true,
			models.RoleSpaceModerator: true,
			models.RoleMember:         true,
		}
	}
	if isSpaceOwner {
		return map[models.Role]bool{
			models.RoleSpaceModerator: true,
			models.RoleMember:         true,
		}
	}
	return nil
}
