package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/registration"
)

// Countdown handles GET /events/{id}/countdown
// It streams the time left to register as server-sent events until the
// deadline passes or the client goes away. Each message carries a
// TimeRemaining object; a final "closed" event follows the deadline.
func (h *EventHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if event.RegistrationDeadline == nil {
		w.WriteHeader(http.StatusOK)
		writeEvent(w, "countdown", nil)
		writeEvent(w, "closed", nil)
		flusher.Flush()
		return
	}

	// Only the latest value matters; a slow client skips stale ticks.
	updates := make(chan *registration.TimeRemaining, 1)
	watcher := registration.NewWatcher(func(tr *registration.TimeRemaining) {
		select {
		case <-updates:
		default:
		}
		updates <- tr
	})
	watcher.Interval = h.CountdownInterval
	if err := watcher.Watch(*event.RegistrationDeadline, lo.FromPtr(event.Timezone)); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("event_id", event.ID).Msg("countdown: bad deadline")
		writeError(w, http.StatusUnprocessableEntity, "event has an invalid registration deadline")
		return
	}
	defer watcher.Stop()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case tr := <-updates:
			writeEvent(w, "countdown", tr)
			if tr == nil {
				writeEvent(w, "closed", nil)
				flusher.Flush()
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) {
	data, _ := json.Marshal(v)
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
