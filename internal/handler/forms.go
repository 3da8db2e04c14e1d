package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/formbridge"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/session"
)

// FormsHandler serves the Google Forms integration endpoints.
type FormsHandler struct {
	bridge  *formbridge.Bridge
	svc     *service.EventService
	baseURL string
	log     zerolog.Logger
}

// NewFormsHandler constructs a FormsHandler. baseURL is the frontend origin
// the OAuth callback redirects back to.
func NewFormsHandler(bridge *formbridge.Bridge, svc *service.EventService, baseURL string, log zerolog.Logger) *FormsHandler {
	return &FormsHandler{bridge: bridge, svc: svc, baseURL: baseURL, log: log}
}

// Auth handles GET /integrations/google-forms/auth?returnTo=
// It redirects to Google's consent screen.
func (h *FormsHandler) Auth(w http.ResponseWriter, r *http.Request) {
	target, err := h.bridge.InitiateAuth(r.Context(), session.FromContext(r.Context()), r.URL.Query().Get("returnTo"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /integrations/google-forms/callback
// Every outcome redirects back to the frontend; failures carry an error code.
func (h *FormsHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		hlog.FromRequest(r).Info().Str("error", e).Msg("google consent declined")
		h.redirect(w, r, formbridge.DefaultReturnTo, "google_forms_error", "access_denied")
		return
	}

	returnTo, err := h.bridge.HandleCallback(r.Context(), session.FromContext(r.Context()), q.Get("code"), q.Get("state"))
	if err != nil {
		code := "callback_failed"
		switch {
		case errors.Is(err, formbridge.ErrInvalidState):
			code = "invalid_state"
		case errors.Is(err, formbridge.ErrOAuthInit):
			code = "not_configured"
		}
		hlog.FromRequest(r).Warn().Err(err).Msg("google oauth callback failed")
		h.redirect(w, r, formbridge.DefaultReturnTo, "google_forms_error", code)
		return
	}
	h.redirect(w, r, returnTo, "google_forms", "connected")
}

func (h *FormsHandler) redirect(w http.ResponseWriter, r *http.Request, path, key, value string) {
	u, err := url.Parse(h.baseURL + path)
	if err != nil {
		u = &url.URL{Path: formbridge.DefaultReturnTo}
	}
	v := u.Query()
	v.Set(key, value)
	u.RawQuery = v.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// Status handles GET /integrations/google-forms/status
func (h *FormsHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.bridge.CheckStatus(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type disconnectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Disconnect handles POST /integrations/google-forms/disconnect
func (h *FormsHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	err := h.bridge.Disconnect(r.Context(), session.FromContext(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, disconnectResponse{Success: true, Message: "Google account disconnected"})
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Error: "Unauthorized", Message: "Sign in to manage integrations"})
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("google disconnect failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to disconnect", Message: "Please try again"})
	}
}

// GetForm handles GET /integrations/google-forms/forms/{formId}
func (h *FormsHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	schema, err := h.bridge.FetchForm(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// Import handles POST /events/{id}/import/google-forms/{formId}
func (h *FormsHandler) Import(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ImportFromGoogleForms(r.Context(), h.bridge, session.FromContext(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
