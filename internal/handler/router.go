package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gatherly/gatherly-api/internal/session"
)

// RouterConfig carries what NewRouter needs beyond the handlers.
type RouterConfig struct {
	Log         zerolog.Logger
	CORSOrigins []string
	Verifier    *session.Verifier
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig, events *EventHandler, forms *FormsHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Log))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(cfg.Verifier.Middleware(cfg.Log))

	r.With(NoCache()).Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.With(Public(PublicMaxAge, PublicSWR)).Get("/", events.ListEvents)
		r.With(session.RequireUser).Post("/", events.CreateEvent)

		r.Route("/{id}", func(r chi.Router) {
			r.With(Private(PrivateMaxAge, PrivateSWR)).Get("/", events.GetEvent)
			r.With(Public(PublicMaxAge, PublicSWR)).Get("/calendar.ics", events.Calendar)
			r.With(NoCache()).Get("/countdown", events.Countdown)
			r.With(NoCache()).Post("/register", events.Register)
			r.With(Private(PrivateMaxAge, PrivateSWR)).Get("/attenders", events.ListAttenders)

			r.Group(func(r chi.Router) {
				r.Use(session.RequireUser, NoCache())
				r.Patch("/attenders/{attenderID}/approval", events.UpdateApproval)
				r.Get("/summary", events.Summary)
				r.Post("/import/google-forms/{formId}", forms.Import)
			})
		})
	})

	r.With(session.RequireUser, NoCache()).Post("/attenders/{id}/verify", events.VerifyAttender)

	r.Route("/integrations/google-forms", func(r chi.Router) {
		r.Use(NoCache())
		r.Get("/callback", forms.Callback)
		r.Post("/disconnect", forms.Disconnect)

		r.Group(func(r chi.Router) {
			r.Use(session.RequireUser)
			r.Get("/auth", forms.Auth)
			r.Get("/status", forms.Status)
			r.Get("/forms/{formId}", forms.GetForm)
		})
	})

	return r
}
