package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/handlers/render"
	"github.com/nkiryanov/bazaar/internal/handlers/userctx"
	"github.com/nkiryanov/bazaar/internal/logger"
)

// renderError writes service error with status matching its kind
func renderError(w http.ResponseWriter, err error, l logger.Logger) {
	var code int

	switch {
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		code = http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidState):
		code = http.StatusConflict
	case errors.Is(err, apperrors.ErrPolicyViolation):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrTransient):
		l.Warn("Storage temporary unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		render.ServiceError(w, "Service temporary unavailable, retry later", http.StatusServiceUnavailable)
		return
	default:
		l.Error("Internal server error", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if threshold, ok := apperrors.Threshold(err); ok {
		render.ThresholdError(w, err.Error(), code, threshold)
		return
	}
	render.ServiceError(w, err.Error(), code)
}

// callerID returns authenticated caller or writes error response
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
	}
	return id, ok
}

// pathID parses '{id}' path value or writes error response
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
