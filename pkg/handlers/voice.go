package handlers

import (
	"net/http"
	"time"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/models"
	"creator-hub-backend/pkg/utils"
)

// VoiceHandler issues short-lived signed tokens for joining voice
// channels. Issuance is a privileged action like any other: it goes
// through the gateway, so every token request is audited and a member
// kicked from a scope stops getting tokens there immediately.
type VoiceHandler struct {
	db      database.DatabaseInterface
	gateway *authz.Gateway
	jwt     *utils.JWTService
	ttl     time.Duration
}

func NewVoiceHandler(db database.DatabaseInterface, gateway *authz.Gateway, jwt *utils.JWTService) *VoiceHandler {
	return &VoiceHandler{db: db, gateway: gateway, jwt: jwt, ttl: 5 * time.Minute}
}

// POST /api/voice/token
func (h *VoiceHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.ChannelID == "" {
		utils.WriteBadRequestResponse(w, "channel_id is required")
		return
	}

	ch, err := h.db.GetChannel(req.ChannelID)
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	if ch.Kind != "voice" {
		utils.WriteBadRequestResponse(w, "channel is not a voice channel")
		return
	}

	scope := models.Scope{ServerID: ch.ServerID, ChannelID: ch.ID}
	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID: user.ID,
		Action:      models.ActionVoiceToken,
		Scope:       scope,
	}, func() (interface{}, error) {
		token, expiresAt, err := h.jwt.GenerateVoiceToken(user.ID, scope, h.ttl)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"token":      token,
			"expires_at": expiresAt,
			"channel_id": ch.ID,
		}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}
