package handlers

import (
	"net/http"
	"time"

	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/utils"
)

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db database.DatabaseInterface
}

func NewHealthHandler(db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{db: db}
}

// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(); err != nil {
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "unhealthy", "Database unreachable: "+err.Error(), "")
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
