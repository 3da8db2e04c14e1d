// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/gatherly/gatherly-api/internal/attender"
	"github.com/gatherly/gatherly-api/internal/calendar"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/session"
)

// EventHandler holds the HTTP handlers for events and their attenders.
type EventHandler struct {
	svc *service.EventService
	log zerolog.Logger

	// CountdownInterval is how often the countdown stream recomputes.
	CountdownInterval time.Duration
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log zerolog.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log, CountdownInterval: time.Minute}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.OrganizerEmail == "" {
		if u := session.FromContext(r.Context()); u != nil {
			req.OrganizerEmail = u.Email
		}
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events, optionally filtered by ?community_id=.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), r.URL.Query().Get("community_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// The response includes the time left to register; the view is recorded in the background.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.svc.EventDetails(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.svc.TrackView(r.Context(), details.ID, session.FromContext(r.Context()))
	writeJSON(w, http.StatusOK, details)
}

// Register handles POST /events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Register(r.Context(), id, session.FromContext(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListAttenders handles GET /events/{id}/attenders
// Query: rsvp, approval, verified (true|false), q.
func (h *EventHandler) ListAttenders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := attender.Filter{
		RSVP:     model.RSVPStatus(q.Get("rsvp")),
		Approval: model.ApprovalStatus(q.Get("approval")),
		Query:    q.Get("q"),
	}
	if v := q.Get("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "verified must be true or false")
			return
		}
		f.Verified = &b
	}

	list, err := h.svc.ListAttenders(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []service.AttenderDetails{}
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateApproval handles PATCH /events/{id}/attenders/{attenderID}/approval
func (h *EventHandler) UpdateApproval(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateApprovalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	v, err := h.svc.UpdateApproval(r.Context(), session.FromContext(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "attenderID"), req.ApprovalStatus)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// VerifyAttender handles POST /attenders/{id}/verify
func (h *EventHandler) VerifyAttender(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.VerifyAttender(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Summary handles GET /events/{id}/summary
func (h *EventHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Calendar handles GET /events/{id}/calendar.ics
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ics, err := calendar.Build(event)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("event_id", event.ID).Msg("calendar export failed")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+calendar.FileName(event)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
