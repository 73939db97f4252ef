package handlers

import (
	"fmt"
	"net/http"
	"time"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/models"
	"creator-hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// RolesHandler manages explicit role bindings, time-bounded space-owner
// delegations and ownership transfers. Every grant and revoke passes the
// escalation rules first, and every outcome (granted or denied) lands in
// the audit log.
type RolesHandler struct {
	db      database.DatabaseInterface
	granter *authz.GrantAuthorizer
	gateway *authz.Gateway
}

func NewRolesHandler(db database.DatabaseInterface, granter *authz.GrantAuthorizer, gateway *authz.Gateway) *RolesHandler {
	return &RolesHandler{db: db, granter: granter, gateway: gateway}
}

type roleChangeRequest struct {
	SubjectUserID string `json:"subject_user_id"`
	Role          string `json:"role"`
	HubID         string `json:"hub_id"`
	ServerID      string `json:"server_id"`
	ChannelID     string `json:"channel_id"`
}

func (req *roleChangeRequest) scope() models.Scope {
	return models.Scope{HubID: req.HubID, ServerID: req.ServerID, ChannelID: req.ChannelID}
}

// POST /api/roles/grant
func (h *RolesHandler) Grant(w http.ResponseWriter, r *http.Request) {
	h.changeBinding(w, r, models.ActionRoleGrant)
}

// POST /api/roles/revoke
//
// Revoking requires the same authority as granting: whoever could not
// mint a binding cannot remove it either.
func (h *RolesHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.changeBinding(w, r, models.ActionRoleRevoke)
}

func (h *RolesHandler) changeBinding(w http.ResponseWriter, r *http.Request, action models.Action) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req roleChangeRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.SubjectUserID == "" {
		utils.WriteBadRequestResponse(w, "subject_user_id is required")
		return
	}
	role := models.Role(req.Role)
	if !models.ValidRole(role) {
		utils.WriteBadRequestResponse(w, "unknown role: "+req.Role)
		return
	}

	decision, err := h.granter.AuthorizeGrant(user.ID, role, req.scope())
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Authorization check failed: "+err.Error())
		return
	}

	// One audit row per attempt, denied included.
	outcome := models.OutcomeGranted
	if !decision.Allowed {
		outcome = models.OutcomeDenied
	}
	audit := &models.ModerationAction{
		ActorUserID:  user.ID,
		Action:       action,
		Scope:        decision.ResolvedScope,
		TargetUserID: req.SubjectUserID,
		Metadata:     map[string]interface{}{"role": role},
		Outcome:      outcome,
		Reason:       decision.Reason,
	}
	if err := h.db.InsertModerationAction(audit); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to write audit record: "+err.Error())
		return
	}

	if !decision.Allowed {
		if decision.Reason == authz.CodeForbiddenScope {
			utils.WriteCodedError(w, authz.ErrForbiddenScope(fmt.Sprintf("no authority to manage %s at the requested scope", role)))
		} else {
			utils.WriteCodedError(w, authz.ErrRoleEscalationDenied(fmt.Sprintf("cannot assign or revoke %s at the requested scope", role)))
		}
		return
	}

	binding := &models.RoleBinding{
		Subject: req.SubjectUserID,
		Role:    role,
		Scope:   decision.ResolvedScope,
	}
	if action == models.ActionRoleGrant {
		if err := h.db.CreateRoleBinding(binding); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to create binding: "+err.Error())
			return
		}
		utils.WriteCreatedResponse(w, map[string]interface{}{"binding": binding})
		return
	}

	if err := h.db.DeleteRoleBinding(req.SubjectUserID, role, decision.ResolvedScope); err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"revoked": binding})
}

// GET /api/roles?subject_user_id=
func (h *RolesHandler) ListBindings(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	subject := utils.GetQueryParam(r, "subject_user_id", user.ID)
	// Anyone can read their own bindings. Reading someone else's is
	// restricted to callers who hold a grant-capable role, and the view
	// is filtered to the scopes that role manages: a space owner of one
	// server never enumerates a user's bindings hub-wide.
	if subject != user.ID {
		own, err := h.db.ListRoleBindingsBySubject(user.ID)
		if err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to load bindings: "+err.Error())
			return
		}
		var managed []models.Scope
		for _, b := range own {
			if models.ActionAllowed(b.Role, models.ActionRoleGrant) {
				managed = append(managed, b.Scope)
			}
		}
		if len(managed) == 0 {
			utils.WriteForbiddenResponse(w, "cannot read another user's bindings")
			return
		}
		all, err := h.db.ListRoleBindingsBySubject(subject)
		if err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to load bindings: "+err.Error())
			return
		}
		visible := []models.RoleBinding{}
		for _, b := range all {
			for _, m := range managed {
				if scopeContains(m, b.Scope) {
					visible = append(visible, b)
					break
				}
			}
		}
		utils.WriteSuccessResponse(w, map[string]interface{}{"bindings": visible})
		return
	}
	bindings, err := h.db.ListRoleBindingsBySubject(subject)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load bindings: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"bindings": bindings})
}

// scopeContains reports whether inner sits inside outer on every axis:
// an outer wildcard admits any value, a fixed outer axis requires the
// same value. Unlike Covers, an empty inner axis never matches a fixed
// outer one, so a server-scoped manager does not see hub-wide bindings.
func scopeContains(outer, inner models.Scope) bool {
	axis := func(o, i string) bool { return o == "" || o == i }
	return axis(outer.HubID, inner.HubID) &&
		axis(outer.ServerID, inner.ServerID) &&
		axis(outer.ChannelID, inner.ChannelID)
}

// POST /api/delegations
func (h *RolesHandler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		ServerID  string     `json:"server_id"`
		UserID    string     `json:"user_id"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.ServerID == "" || req.UserID == "" {
		utils.WriteBadRequestResponse(w, "server_id and user_id are required")
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		utils.WriteBadRequestResponse(w, "expires_at must be in the future")
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID:  user.ID,
		Action:       models.ActionSpaceDelegate,
		Scope:        models.Scope{ServerID: req.ServerID},
		TargetUserID: req.UserID,
		Metadata:     map[string]interface{}{"expires_at": req.ExpiresAt},
	}, func() (interface{}, error) {
		// The gateway's lazy expiry only covers the actor; a lapsed but
		// never-flipped row for the target pair would still hold the
		// one-active-per-pair index, so flip it before inserting.
		if err := h.db.ExpireStaleSpaceOwnerAssignments(req.ServerID, req.UserID); err != nil {
			return nil, err
		}
		assignment := &models.SpaceOwnerAssignment{
			ServerID:         req.ServerID,
			AssignedUserID:   req.UserID,
			AssignedByUserID: user.ID,
			Status:           models.AssignmentActive,
			ExpiresAt:        req.ExpiresAt,
		}
		err := h.db.CreateSpaceOwnerAssignment(assignment)
		if database.IsDuplicateKey(err) {
			// One active delegation per (server, user); re-delegating
			// returns the existing one.
			existing, ferr := h.db.FindActiveSpaceOwnerAssignment(req.ServerID, req.UserID)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return map[string]interface{}{"delegation": existing}, nil
			}
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"delegation": assignment}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// DELETE /api/delegations/{id}
func (h *RolesHandler) RevokeDelegation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	delegationID := chiRoute.URLParam(r, "id")
	if delegationID == "" {
		utils.WriteBadRequestResponse(w, "delegation id required")
		return
	}

	assignment, err := h.db.GetSpaceOwnerAssignment(delegationID)
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID:  user.ID,
		Action:       models.ActionSpaceDelegate,
		Scope:        models.Scope{ServerID: assignment.ServerID},
		TargetUserID: assignment.AssignedUserID,
		Metadata:     map[string]interface{}{"delegation_id": assignment.ID, "revoke": true},
	}, func() (interface{}, error) {
		if err := h.db.RevokeSpaceOwnerAssignment(assignment.ID); err != nil {
			return nil, err
		}
		return map[string]interface{}{"revoked": assignment.ID}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// POST /api/servers/{id}/transfer
//
// Ownership moves in a single row-scoped update, so there is exactly one
// owner at any instant and the previous owner's implicit authority ends
// the moment the update commits.
func (h *RolesHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	serverID := chiRoute.URLParam(r, "id")
	if serverID == "" {
		utils.WriteBadRequestResponse(w, "server id required")
		return
	}

	var req struct {
		NewOwnerUserID string `json:"new_owner_user_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.NewOwnerUserID == "" {
		utils.WriteBadRequestResponse(w, "new_owner_user_id is required")
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID:  user.ID,
		Action:       models.ActionSpaceTransfer,
		Scope:        models.Scope{ServerID: serverID},
		TargetUserID: req.NewOwnerUserID,
	}, func() (interface{}, error) {
		if _, err := h.db.GetUserByID(req.NewOwnerUserID); err != nil {
			return nil, err
		}
		if err := h.db.TransferServerOwnership(serverID, req.NewOwnerUserID); err != nil {
			return nil, err
		}
		return map[string]interface{}{"server_id": serverID, "owner_user_id": req.NewOwnerUserID}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}
