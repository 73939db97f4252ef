package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a stable machine code plus a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteJSONResponse writes a success envelope with the given status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteSuccessResponse writes a 200 envelope.
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusOK, data)
}

// WriteCreatedResponse writes a 201 envelope.
func WriteCreatedResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusCreated, data)
}

// WriteRawSuccessResponse writes pre-marshaled JSON data verbatim inside
// the envelope. Idempotent workflows use it so a replayed request
// returns a byte-identical body.
func WriteRawSuccessResponse(w http.ResponseWriter, raw json.RawMessage) {
	WriteJSONResponse(w, http.StatusOK, raw)
}

// WriteErrorResponseWithCode writes an error envelope with a machine code.
func WriteErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteBadRequestResponse writes a 400 error.
func WriteBadRequestResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusBadRequest, "bad_request", message, "")
}

// WriteUnauthorizedResponse writes a 401 error.
func WriteUnauthorizedResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusUnauthorized, "unauthorized", message, "")
}

// WriteForbiddenResponse writes a 403 error.
func WriteForbiddenResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusForbidden, authz.CodeForbiddenScope, message, "")
}

// WriteNotFoundResponse writes a 404 error.
func WriteNotFoundResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusNotFound, authz.CodeNotFound, message, "")
}

// WriteConflictResponse writes a 409 error.
func WriteConflictResponse(w http.ResponseWriter, code, message string) {
	WriteErrorResponseWithCode(w, http.StatusConflict, code, message, "")
}

// WriteInternalServerErrorResponse writes a 500 error.
func WriteInternalServerErrorResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusInternalServerError, "internal_server_error", message, "")
}

// WriteCodedError maps an error from the authorization core to the HTTP
// status its code demands: forbidden_scope -> 403, role_escalation_denied
// and idempotency_conflict -> 409, not_found -> 404, adapter_failure ->
// 502. Anything uncoded is a 500.
func WriteCodedError(w http.ResponseWriter, err error) {
	var ae *authz.Error
	if errors.As(err, &ae) {
		switch ae.Code {
		case authz.CodeForbiddenScope:
			WriteErrorResponseWithCode(w, http.StatusForbidden, ae.Code, ae.Message, "")
		case authz.CodeRoleEscalationDenied, authz.CodeIdempotencyConflict:
			WriteErrorResponseWithCode(w, http.StatusConflict, ae.Code, ae.Message, "")
		case authz.CodeNotFound:
			WriteErrorResponseWithCode(w, http.StatusNotFound, ae.Code, ae.Message, "")
		case authz.CodeAdapterFailure:
			WriteErrorResponseWithCode(w, http.StatusBadGateway, ae.Code, ae.Message, "")
		default:
			WriteErrorResponseWithCode(w, http.StatusInternalServerError, ae.Code, ae.Message, "")
		}
		return
	}
	if database.IsNotFound(err) {
		WriteNotFoundResponse(w, "resource not found")
		return
	}
	WriteInternalServerErrorResponse(w, err.Error())
}

// ParseJSONBody decodes the request body into v.
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// GetQueryParam returns a query parameter or a default when absent.
func GetQueryParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
