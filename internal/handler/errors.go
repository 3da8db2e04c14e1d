package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/formbridge"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/service"
)

func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, err)
}

// writeServiceError maps a service error to a status code and JSON body.
// Unexpected errors are logged in full and reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve   *apperr.ValidationError
		dup  *apperr.DuplicateError
		perr *apperr.ProviderError
	)

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, dup.Message)
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, service.ErrRegistrationClosed):
		writeError(w, http.StatusConflict, "registration is closed")
	case errors.Is(err, formbridge.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid state")
	case errors.Is(err, formbridge.ErrNotConnected):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: "not connected", Message: "Connect your Google account first"})
	case errors.Is(err, formbridge.ErrOAuthInit):
		hlog.FromRequest(r).Error().Err(err).Msg("google oauth unavailable")
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{Error: "Failed to initialize OAuth client"})
	case errors.As(err, &perr):
		hlog.FromRequest(r).Error().Err(err).Str("op", perr.Op).Msg("provider request failed")
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: "provider error", Message: perr.Diagnostic})
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
