package authz

import "errors"

// Stable machine-readable codes carried by every failure that can reach
// the API boundary. Clients branch on the code, never on prose.
const (
	CodeForbiddenScope       = "forbidden_scope"
	CodeRoleEscalationDenied = "role_escalation_denied"
	CodeIdempotencyConflict  = "idempotency_conflict"
	CodeNotFound             = "not_found"
	CodeAdapterFailure       = "adapter_failure"
)

// Error is a coded, human-readable failure. Nothing in the
// authorization core raises an unstructured error on a denial path.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func ErrForbiddenScope(msg string) error {
	return &Error{Code: CodeForbiddenScope, Message: msg}
}

func ErrRoleEscalationDenied(msg string) error {
	return &Error{Code: CodeRoleEscalationDenied, Message: msg}
}

func ErrIdempotencyConflict(msg string) error {
	return &Error{Code: CodeIdempotencyConflict, Message: msg}
}

func ErrNotFound(msg string) error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func ErrAdapterFailure(msg string) error {
	return &Error{Code: CodeAdapterFailure, Message: msg}
}

// CodeOf extracts the machine code from err, or "" when err carries none.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
