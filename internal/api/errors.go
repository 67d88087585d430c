// Package api provides the HTTP handlers of the talentboard API and its
// standardized error responses.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/talentboard/internal/middleware"
)

// Error codes written by the handlers. The middleware chain adds
// rate_limited, forbidden_origin and the idempotency_* codes.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeBadRequest indicates a malformed request (bad JSON, bad id).
	ErrCodeBadRequest = "bad_request"

	// ErrCodeNotFound indicates the requested candidate was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeScoringFailed indicates the scorer could not produce sub-scores.
	ErrCodeScoringFailed = "scoring_failed"

	// ErrCodeRecomputeFailed indicates the evaluation was stored but ranks
	// could not be recomputed.
	ErrCodeRecomputeFailed = "recompute_failed"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"
)

// ErrorResponse is the body of every API error: {"message": "...", "code": "..."}.
// Clients that only read message keep working.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteError writes a standardized JSON error response.
//
// The code is recorded on the logging middleware's writer, so it appears as
// error_code in the request log without the handler threading a context back.
//
//	WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Candidate not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	ctx = middleware.SetErrorCode(ctx, code)
	middleware.UpdateResponseContext(w, ctx)

	data, err := json.Marshal(ErrorResponse{Message: message, Code: code})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
