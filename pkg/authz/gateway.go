package authz

import (
	"fmt"

	"creator-hub-backend/pkg/models"
)

// ActionRequest describes one privileged-action attempt.
type ActionRequest struct {
	ActorUserID     string
	Action          models.Action
	Scope           models.Scope
	Reason          string
	Metadata        map[string]interface{}
	TargetUserID    string
	TargetMessageID string
}

// Gateway is the single choke point for every privileged state-changing
// operation: it authorizes, records exactly one audit row per attempt,
// and only then runs the caller-supplied effect. No caller mutates
// protected state without going through it.
type Gateway struct {
	db        Store
	resolver  *ScopeResolver
	evaluator *Evaluator
}

func NewGateway(db Store, resolver *ScopeResolver, evaluator *Evaluator) *Gateway {
	return &Gateway{db: db, resolver: resolver, evaluator: evaluator}
}

// Execute authorizes req and runs effect.
//
// On denial the effect is never invoked; a denied audit row is written
// and a forbidden_scope error is returned. On success the granted audit
// row is written before the effect runs, so the trail answers "was this
// actor allowed to try" even when the effect later fails; an effect
// error propagates to the caller unsuppressed. The gateway never
// retries: retry policy lives at the external-adapter boundary so each
// audit row reflects one authorization decision.
func (g *Gateway) Execute(req ActionRequest, effect func() (interface{}, error)) (interface{}, error) {
	resolved := g.resolver.Resolve(req.Scope)
	if resolved.IsEmpty() {
		// Unresolvable scope: every axis of the query would be
		// unchecked, so matching must not even be attempted.
		rec := g.record(req, resolved, models.OutcomeDenied, CodeForbiddenScope)
		if err := g.db.InsertModerationAction(rec); err != nil {
			return nil, fmt.Errorf("failed to write audit record: %w", err)
		}
		return nil, ErrForbiddenScope("requested scope does not resolve to any known hub")
	}

	bindings, err := g.evaluator.EffectiveBindings(req.ActorUserID, resolved)
	if err != nil {
		return nil, err
	}

	authorized := false
	for _, b := range bindings {
		if b.Scope.Covers(resolved) && models.ActionAllowed(b.Role, req.Action) {
			authorized = true
			break
		}
	}

	if !authorized {
		rec := g.record(req, resolved, models.OutcomeDenied, CodeForbiddenScope)
		if err := g.db.InsertModerationAction(rec); err != nil {
			return nil, fmt.Errorf("failed to write audit record: %w", err)
		}
		return nil, ErrForbiddenScope(fmt.Sprintf("no authority to perform %s at the requested scope", req.Action))
	}

	rec := g.record(req, resolved, models.OutcomeGranted, req.Reason)
	if err := g.db.InsertModerationAction(rec); err != nil {
		// The effect must not run without a durable audit row.
		return nil, fmt.Errorf("failed to write audit record: %w", err)
	}

	return effect()
}

func (g *Gateway) record(req ActionRequest, resolved models.Scope, outcome models.AuditOutcome, reason string) *models.ModerationAction {
	return &models.ModerationAction{
		ActorUserID:     req.ActorUserID,
		Action:          req.Action,
		Scope:           resolved,
		TargetUserID:    req.TargetUserID,
		TargetMessageID: req.TargetMessageID,
		Metadata:        req.Metadata,
		Outcome:         outcome,
		Reason:          reason,
	}
}
