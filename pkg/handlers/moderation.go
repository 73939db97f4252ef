package handlers

import (
	"net/http"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/matrix"
	"creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/models"
	"creator-hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// ModerationHandler routes every moderation effect through the gateway.
// Kick and redact are channel-scoped; ban and unban apply to the whole
// server, so a channel-scoped moderator cannot perform them elsewhere.
type ModerationHandler struct {
	db      database.DatabaseInterface
	gateway *authz.Gateway
	rooms   matrix.Adapter
}

func NewModerationHandler(db database.DatabaseInterface, gateway *authz.Gateway, rooms matrix.Adapter) *ModerationHandler {
	return &ModerationHandler{db: db, gateway: gateway, rooms: rooms}
}

// POST /api/moderation/kick
func (h *ModerationHandler) Kick(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		ChannelID    string `json:"channel_id"`
		TargetUserID string `json:"target_user_id"`
		Reason       string `json:"reason"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.ChannelID == "" || req.TargetUserID == "" {
		utils.WriteBadRequestResponse(w, "channel_id and target_user_id are required")
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID:  user.ID,
		Action:       models.ActionModerationKick,
		Scope:        models.Scope{ChannelID: req.ChannelID},
		Reason:       req.Reason,
		TargetUserID: req.TargetUserID,
	}, func() (interface{}, error) {
		ch, err := h.db.GetChannel(req.ChannelID)
		if err != nil {
			return nil, err
		}
		if err := h.rooms.Kick(ch.MatrixRoomID, req.TargetUserID, req.Reason); err != nil {
			return nil, err
		}
		return map[string]interface{}{"kicked": req.TargetUserID, "channel_id": ch.ID}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// POST /api/moderation/ban
func (h *ModerationHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.membershipAction(w, r, models.ActionModerationBan)
}

// POST /api/moderation/unban
func (h *ModerationHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.membershipAction(w, r, models.ActionModerationUnban)
}

// membershipAction handles ban and unban, which share a server-scoped
// shape. The external effect targets the server's space room.
func (h *ModerationHandler) membershipAction(w http.ResponseWriter, r *http.Request, action models.Action) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		ServerID     string `json:"server_id"`
		TargetUserID string `json:"target_user_id"`
		Reason       string `json:"reason"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.ServerID == "" || req.TargetUserID == "" {
		utils.WriteBadRequestResponse(w, "server_id and target_user_id are required")
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID:  user.ID,
		Action:       action,
		Scope:        models.Scope{ServerID: req.ServerID},
		Reason:       req.Reason,
		TargetUserID: req.TargetUserID,
	}, func() (interface{}, error) {
		srv, err := h.db.GetServer(req.ServerID)
		if err != nil {
			return nil, err
		}
		if action == models.ActionModerationBan {
			err = h.rooms.Ban(srv.MatrixSpaceID, req.TargetUserID, req.Reason)
		} else {
			err = h.rooms.Unban(srv.MatrixSpaceID, req.TargetUserID)
		}
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"action": action, "target_user_id": req.TargetUserID, "server_id": srv.ID}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// POST /api/moderation/redact
func (h *ModerationHandler) Redact(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		ChannelID string `json:"channel_id"`
		MessageID string `json:"message_id"`
		Reason    string `json:"reason"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.ChannelID == "" || req.MessageID == "" {
		utils.WriteBadRequestResponse(w, "channel_id and message_id are required")
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID:     user.ID,
		Action:          models.ActionModerationRedact,
		Scope:           models.Scope{ChannelID: req.ChannelID},
		Reason:          req.Reason,
		TargetMessageID: req.MessageID,
	}, func() (interface{}, error) {
		ch, err := h.db.GetChannel(req.ChannelID)
		if err != nil {
			return nil, err
		}
		if err := h.rooms.Redact(ch.MatrixRoomID, req.MessageID, req.Reason); err != nil {
			return nil, err
		}
		return map[string]interface{}{"redacted": req.MessageID, "channel_id": ch.ID}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// PUT /api/channels/{id}/slow_mode
func (h *ModerationHandler) SetSlowMode(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	channelID := chiRoute.URLParam(r, "id")
	if channelID == "" {
		utils.WriteBadRequestResponse(w, "channel id required")
		return
	}

	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.Seconds < 0 {
		utils.WriteBadRequestResponse(w, "seconds must be non-negative")
		return
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID: user.ID,
		Action:      models.ActionChannelSlowMode,
		Scope:       models.Scope{ChannelID: channelID},
		Metadata:    map[string]interface{}{"seconds": req.Seconds},
	}, func() (interface{}, error) {
		if err := h.db.SetChannelSlowMode(channelID, req.Seconds); err != nil {
			return nil, err
		}
		return map[string]interface{}{"channel_id": channelID, "slow_mode_seconds": req.Seconds}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// PUT /api/channels/{id}/lock
//
// Locking is a posting restriction, so it maps to channel.lock or
// channel.unlock depending on the requested state. Moderators hold
// neither.
func (h *ModerationHandler) SetLocked(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	channelID := chiRoute.URLParam(r, "id")
	if channelID == "" {
		utils.WriteBadRequestResponse(w, "channel id required")
		return
	}

	var req struct {
		Locked bool `json:"locked"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	action := models.ActionChannelUnlock
	if req.Locked {
		action = models.ActionChannelLock
	}

	result, err := h.gateway.Execute(authz.ActionRequest{
		ActorUserID: user.ID,
		Action:      action,
		Scope:       models.Scope{ChannelID: channelID},
		Metadata:    map[string]interface{}{"locked": req.Locked},
	}, func() (interface{}, error) {
		if err := h.db.SetChannelLocked(channelID, req.Locked); err != nil {
			return nil, err
		}
		return map[string]interface{}{"channel_id": channelID, "locked": req.Locked}, nil
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}
