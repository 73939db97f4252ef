package handlers

import (
	"errors"
	"net/http"

	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/session"
	"creator-hub-backend/pkg/utils"
)

// SessionHandler hands a login session from one device to another with
// an opaque one-time code. Codes live in Redis with a TTL, so they
// survive restarts and expire without a sweeper, and the exchange is
// atomic: a code redeems exactly once.
type SessionHandler struct {
	db    database.DatabaseInterface
	codes *session.Store
	jwt   *utils.JWTService
}

func NewSessionHandler(db database.DatabaseInterface, codes *session.Store, jwt *utils.JWTService) *SessionHandler {
	return &SessionHandler{db: db, codes: codes, jwt: jwt}
}

// POST /api/auth/session-code (authenticated)
func (h *SessionHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	if h.codes == nil {
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "unavailable", "Session handoff is not configured", "")
		return
	}

	code, err := utils.GenerateURLToken(24)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate code")
		return
	}
	if err := h.codes.Put(r.Context(), code, user.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to store code: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"code":       code,
		"expires_in": int(h.codes.TTL().Seconds()),
	})
}

// POST /api/auth/exchange-session (no auth; the code is the credential)
func (h *SessionHandler) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	if h.codes == nil {
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "unavailable", "Session handoff is not configured", "")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.Code == "" {
		utils.WriteBadRequestResponse(w, "code is required")
		return
	}

	userID, err := h.codes.Exchange(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, session.ErrCodeNotFound) {
			utils.WriteNotFoundResponse(w, "session code not found or expired")
			return
		}
		utils.WriteInternalServerErrorResponse(w, "Failed to exchange code: "+err.Error())
		return
	}

	user, err := h.db.GetUserByID(userID)
	if err != nil {
		utils.WriteCodedError(w, err)
		return
	}

	accessToken, refreshToken, expiresAt, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to issue tokens: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_at":    expiresAt,
		"user":          user,
	})
}
