package handlers

import (
	"net/http"
	"strconv"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/models"
	"creator-hub-backend/pkg/utils"
)

// AuditHandler reads the append-only moderation-action log. Listing is
// restricted to hub admins of the hub in question; there is no write
// surface because nothing outside the gateway inserts audit rows.
type AuditHandler struct {
	db        database.DatabaseInterface
	evaluator *authz.Evaluator
}

func NewAuditHandler(db database.DatabaseInterface, evaluator *authz.Evaluator) *AuditHandler {
	return &AuditHandler{db: db, evaluator: evaluator}
}

// GET /api/audit?hub_id=&limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	hubID := utils.GetQueryParam(r, "hub_id", "")
	if hubID == "" {
		utils.WriteBadRequestResponse(w, "hub_id is required")
		return
	}
	if _, err := h.db.GetHub(hubID); err != nil {
		utils.WriteCodedError(w, err)
		return
	}

	limit := 50
	if v := utils.GetQueryParam(r, "limit", ""); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			utils.WriteBadRequestResponse(w, "limit must be a positive integer")
			return
		}
		if parsed > 200 {
			parsed = 200
		}
		limit = parsed
	}

	scope := models.Scope{HubID: hubID}
	bindings, err := h.evaluator.EffectiveBindings(user.ID, scope)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to evaluate bindings: "+err.Error())
		return
	}
	isAdmin := false
	for _, b := range bindings {
		if b.Role == models.RoleHubAdmin && b.Scope.Covers(scope) {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		utils.WriteForbiddenResponse(w, "hub admin authority required to read the audit log")
		return
	}

	actions, err := h.db.ListModerationActions(hubID, limit)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list audit records: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"actions": actions})
}
