package authz

import (
	"fmt"

	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/models"
)

// Evaluator computes the authority set for one (subject, scope) query:
// static bindings from the store plus bindings synthesized from server
// ownership and active delegations. Synthesized bindings live only for
// the duration of one evaluation and are never persisted.
type Evaluator struct {
	db Store
}

func NewEvaluator(db Store) *Evaluator {
	return &Evaluator{db: db}
}

// EffectiveBindings returns the union of static and derived bindings for
// subject at scope. Stale delegations for the scope's server are expired
// first, so a lapsed delegation can never leak into the result.
func (e *Evaluator) EffectiveBindings(subject string, scope models.Scope) ([]models.RoleBinding, error) {
	if scope.ServerID != "" {
		if err := e.db.ExpireStaleSpaceOwnerAssignments(scope.ServerID, subject); err != nil {
			return nil, fmt.Errorf("failed to expire stale delegations: %w", err)
		}
	}

	// Static bindings are loaded unfiltered; scope filtering is the
	// matcher's job downstream.
	bindings, err := e.db.ListRoleBindingsBySubject(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load role bindings: %w", err)
	}

	if scope.ServerID == "" {
		return bindings, nil
	}

	srv, err := e.db.GetServer(scope.ServerID)
	if err != nil {
		if database.IsNotFound(err) {
			return bindings, nil
		}
		return nil, err
	}

	ownerScope := models.Scope{HubID: srv.HubID, ServerID: srv.ID}
	if srv.OwnerUserID == subject {
		bindings = append(bindings, models.RoleBinding{
			Subject: subject,
			Role:    models.RoleSpaceOwner,
			Scope:   ownerScope,
		})
		return bindings, nil
	}

	// Duplicates are treated idempotently: at most one delegation-derived
	// binding is synthesized per evaluation.
	assignment, err := e.db.FindActiveSpaceOwnerAssignment(srv.ID, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up delegation: %w", err)
	}
	if assignment != nil {
		bindings = append(bindings, models.RoleBinding{
			Subject: subject,
			Role:    models.RoleSpaceOwner,
			Scope:   ownerScope,
		})
	}
	return bindings, nil
}
