package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrBadRequest             ErrorCode = "BadRequest"             // HTTP 400, invalid payload or field-level validation failure
	ErrInvalidAPIKey          ErrorCode = "InvalidAPIKey"          // HTTP 401
	ErrInvalidToken           ErrorCode = "InvalidToken"           // HTTP 403, admin token rejected
	ErrCSRFInvalid            ErrorCode = "CSRFInvalid"            // HTTP 403, CSRF token/session mismatch or expiry
	ErrNotFound               ErrorCode = "NotFound"               // HTTP 404
	ErrMethodNotAllowed       ErrorCode = "MethodNotAllowed"       // HTTP 405
	ErrRateLimitExceeded      ErrorCode = "RateLimitExceeded"      // HTTP 429
	ErrConcurrentModification ErrorCode = "ConcurrentModification" // HTTP 500, update retries exhausted
	ErrStorageFailure         ErrorCode = "StorageFailure"         // HTTP 500, write transport failure
	ErrInternal               ErrorCode = "InternalServerError"    // HTTP 500
)

// Sentinel errors for the document store taxonomy. Callers match these with
// errors.Is after the store has wrapped them with key and attempt context.
var (
	ErrDocumentNotFound       = errors.New("document not found")
	ErrDocumentDecode         = errors.New("document decode failed")
	ErrStorageWrite           = errors.New("storage write failed")
	ErrConcurrentUpdateFailed = errors.New("concurrent modification: update retries exhausted")
)

// ErrorResponse is the standard error format returned to clients as HTTP JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}
