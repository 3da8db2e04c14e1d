package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/formbridge"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/session"
)

const (
	testSecret  = "super-secret-jwt-token-with-at-least-32-characters"
	testBaseURL = "http://app.example.com"
)

// store is an in-memory stand-in for every repository the handlers reach.
type store struct {
	mu        sync.Mutex
	events    map[string]*model.Event
	attenders []model.Attender
	views     int
	tokens    map[string]model.TokenRecord
}

func newStore() *store {
	return &store{events: map[string]*model.Event{}, tokens: map[string]model.TokenRecord{}}
}

func (s *store) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &model.Event{
		ID: uuid.NewString(), Title: req.Title, Description: req.Description, Location: req.Location,
		StartsAt: req.StartsAt, EndsAt: req.EndsAt, RegistrationDeadline: req.RegistrationDeadline,
		Timezone: req.Timezone, RequiresApproval: req.RequiresApproval, Capacity: req.Capacity,
		OrganizerName: req.OrganizerName, OrganizerEmail: req.OrganizerEmail, CustomQuestions: req.CustomQuestions,
	}
	s.events[e.ID] = e
	return e, nil
}

func (s *store) List(context.Context, string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out, nil
}

func (s *store) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *store) Insert(_ context.Context, a model.Attender) (*model.Attender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.attenders {
		if r.EventID == a.EventID && a.Email != nil && r.Email != nil && *r.Email == *a.Email {
			return nil, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	a.ID = uuid.NewString()
	s.attenders = append(s.attenders, a)
	return &a, nil
}

func (s *store) VerificationStatus(_ context.Context, eventID, email string) (*bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.attenders {
		if r.EventID == eventID && r.Email != nil && *r.Email == email {
			v := r.IsVerified
			return &v, nil
		}
	}
	return nil, nil
}

func (s *store) ListByEvent(_ context.Context, eventID string) ([]model.Attender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Attender
	for _, r := range s.attenders {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *store) UpdateApproval(_ context.Context, eventID, attenderID string, status model.ApprovalStatus) (*model.Attender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attenders {
		if s.attenders[i].EventID == eventID && s.attenders[i].ID == attenderID {
			s.attenders[i].ApprovalStatus = &status
			cp := s.attenders[i]
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *store) MarkVerified(_ context.Context, attenderID, email string) (*model.Attender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attenders {
		a := &s.attenders[i]
		if a.ID == attenderID && a.Email != nil && strings.EqualFold(*a.Email, email) {
			a.IsVerified = true
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// views satisfies service.ViewStore on a separate type to avoid a
// method clash with the event store's Create.
type views struct{ s *store }

func (v views) Record(context.Context, string, string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.views++
	return nil
}

func (v views) Count(context.Context, string) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.views, nil
}

type tokens struct{ s *store }

func (t tokens) Get(_ context.Context, userID string) (*model.TokenRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rec, ok := t.s.tokens[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &rec, nil
}

func (t tokens) Upsert(_ context.Context, rec model.TokenRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tokens[rec.UserID] = rec
	return nil
}

func (t tokens) Delete(_ context.Context, userID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	delete(t.s.tokens, userID)
	return nil
}

type testServer struct {
	store  *store
	svc    *service.EventService
	events *EventHandler
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := newStore()
	log := zerolog.Nop()
	svc := service.NewEventService(st, st, views{st}, log)
	t.Cleanup(svc.Wait)

	oc := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://api.example.com/integrations/google-forms/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  "http://127.0.0.1:1/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	bridge := formbridge.NewWithOAuth(oc, tokens{st}, log)

	events := NewEventHandler(svc, log)
	events.CountdownInterval = 10 * time.Millisecond
	forms := NewFormsHandler(bridge, svc, testBaseURL, log)

	router := NewRouter(RouterConfig{
		Log:         log,
		CORSOrigins: []string{testBaseURL},
		Verifier:    session.NewVerifier(testSecret, "sb-access-token"),
	}, events, forms)

	return &testServer{store: st, svc: svc, events: events, router: router}
}

func bearer(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{session.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + tok
}
