package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/idempotency"
	"creator-hub-backend/pkg/matrix"
	"creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/models"
	"creator-hub-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// ProvisionHandler creates hubs, servers and channels. Server and
// channel creation are retried workflows: clients send an
// Idempotency-Key header and a replay returns the first response
// byte-for-byte without re-provisioning external rooms.
type ProvisionHandler struct {
	db       database.DatabaseInterface
	gateway  *authz.Gateway
	executor *idempotency.Executor
	rooms    matrix.Adapter
}

func NewProvisionHandler(db database.DatabaseInterface, gateway *authz.Gateway, executor *idempotency.Executor, rooms matrix.Adapter) *ProvisionHandler {
	return &ProvisionHandler{db: db, gateway: gateway, executor: executor, rooms: rooms}
}

// POST /api/hubs
//
// Bootstrap operation: the creator becomes the hub owner and receives a
// hub_admin binding at hub scope. This is the only binding written
// without the grant authorizer, since a brand-new hub has no admin yet.
func (h *ProvisionHandler) CreateHub(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "name is required")
		return
	}

	hub := &models.Hub{
		Name:        strings.TrimSpace(req.Name),
		OwnerUserID: user.ID,
	}
	if err := h.db.CreateHub(hub); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create hub: "+err.Error())
		return
	}

	binding := &models.RoleBinding{
		Subject: user.ID,
		Role:    models.RoleHubAdmin,
		Scope:   models.Scope{HubID: hub.ID},
	}
	if err := h.db.CreateRoleBinding(binding); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create admin binding: "+err.Error())
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"hub":           hub,
		"admin_binding": binding,
	})
}

// POST /api/servers
//
// Workflow order matters: the external space room is created before the
// local row, so a crash between the two leaves an orphaned external room
// (harmless, reconciled by replay with the same key) rather than a local
// server with no room.
func (h *ProvisionHandler) CreateServer(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteBadRequestResponse(w, "Failed to read request body")
		return
	}
	var req struct {
		HubID string `json:"hub_id"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.HubID == "" || strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "hub_id and name are required")
		return
	}
	name := strings.TrimSpace(req.Name)

	key := r.Header.Get("Idempotency-Key")
	body, err := h.executor.Run(key, json.RawMessage(raw), func() (interface{}, error) {
		return h.gateway.Execute(authz.ActionRequest{
			ActorUserID: user.ID,
			Action:      models.ActionSpaceCreate,
			Scope:       models.Scope{HubID: req.HubID},
			Metadata:    map[string]interface{}{"name": name},
		}, func() (interface{}, error) {
			spaceID, err := h.rooms.CreateSpace(name)
			if err != nil {
				return nil, err
			}

			srv := &models.Server{
				HubID:         req.HubID,
				Name:          name,
				OwnerUserID:   user.ID,
				MatrixSpaceID: spaceID,
			}
			if err := h.db.CreateServer(srv); err != nil {
				return nil, err
			}

			roomID, err := h.rooms.CreateRoom("general", "text")
			if err != nil {
				return nil, err
			}
			if err := h.rooms.AttachChild(spaceID, roomID); err != nil {
				return nil, err
			}
			ch := &models.Channel{
				ServerID:     srv.ID,
				Name:         "general",
				Kind:         "text",
				MatrixRoomID: roomID,
			}
			if err := h.db.CreateChannel(ch); err != nil {
				return nil, err
			}

			return map[string]interface{}{
				"server":          srv,
				"default_channel": ch,
			}, nil
		})
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteRawSuccessResponse(w, body)
}

// POST /api/servers/{id}/channels
func (h *ProvisionHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
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

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteBadRequestResponse(w, "Failed to read request body")
		return
	}
	var req struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "name is required")
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = "text"
	}
	if kind != "text" && kind != "voice" {
		utils.WriteBadRequestResponse(w, "kind must be text or voice")
		return
	}
	name := strings.TrimSpace(req.Name)

	key := r.Header.Get("Idempotency-Key")
	body, err := h.executor.Run(key, json.RawMessage(raw), func() (interface{}, error) {
		return h.gateway.Execute(authz.ActionRequest{
			ActorUserID: user.ID,
			Action:      models.ActionChannelCreate,
			Scope:       models.Scope{ServerID: serverID},
			Metadata:    map[string]interface{}{"name": name, "kind": kind},
		}, func() (interface{}, error) {
			srv, err := h.db.GetServer(serverID)
			if err != nil {
				return nil, err
			}

			roomID, err := h.rooms.CreateRoom(name, kind)
			if err != nil {
				return nil, err
			}
			if err := h.rooms.AttachChild(srv.MatrixSpaceID, roomID); err != nil {
				return nil, err
			}

			ch := &models.Channel{
				ServerID:     srv.ID,
				Name:         name,
				Kind:         kind,
				MatrixRoomID: roomID,
			}
			if err := h.db.CreateChannel(ch); err != nil {
				return nil, err
			}
			return map[string]interface{}{"channel": ch}, nil
		})
	})
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	utils.WriteRawSuccessResponse(w, body)
}

// GET /api/hubs/{id}/servers
func (h *ProvisionHandler) ListServers(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	hubID := chiRoute.URLParam(r, "id")
	if hubID == "" {
		utils.WriteBadRequestResponse(w, "hub id required")
		return
	}
	if _, err := h.db.GetHub(hubID); err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	servers, err := h.db.ListServersByHub(hubID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list servers: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"servers": servers})
}

// GET /api/servers/{id}/channels
func (h *ProvisionHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	serverID := chiRoute.URLParam(r, "id")
	if serverID == "" {
		utils.WriteBadRequestResponse(w, "server id required")
		return
	}
	if _, err := h.db.GetServer(serverID); err != nil {
		utils.WriteCodedError(w, err)
		return
	}
	channels, err := h.db.ListChannelsByServer(serverID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list channels: "+err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"channels": channels})
}
