package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/formbridge"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/session"
)

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func (f *fakeEvents) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &model.Event{
		ID: uuid.NewString(), Title: req.Title, StartsAt: req.StartsAt, Capacity: req.Capacity,
		RequiresApproval: req.RequiresApproval, OrganizerEmail: req.OrganizerEmail,
		RegistrationDeadline: req.RegistrationDeadline, Timezone: req.Timezone, CustomQuestions: req.CustomQuestions,
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeEvents) List(_ context.Context, communityID string) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Event
	for _, e := range f.events {
		if communityID == "" || (e.CommunityID != nil && *e.CommunityID == communityID) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// fakeAttenders mimics the database: (event, email) is unique and reported
// as a Postgres unique violation.
type fakeAttenders struct {
	mu         sync.Mutex
	rows       []model.Attender
	capacity   map[string]int
	insertErr  error
	lookupErr  error
	lookupSeen int
}

func (f *fakeAttenders) Insert(_ context.Context, a model.Attender) (*model.Attender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	going := 0
	for _, r := range f.rows {
		if r.EventID != a.EventID {
			continue
		}
		if a.Email != nil && r.Email != nil && *r.Email == *a.Email {
			return nil, fmt.Errorf("insert attender: %w", &pgconn.PgError{
				Code:    "23505",
				Message: `duplicate key value violates unique constraint "attenders_event_id_email_key"`,
			})
		}
		if r.RSVPStatus == model.RSVPGoing {
			going++
		}
	}
	if c, ok := f.capacity[a.EventID]; ok && a.RSVPStatus == model.RSVPGoing && going >= c {
		return nil, ErrEventFull
	}
	a.ID = uuid.NewString()
	now := time.Now()
	a.RegisteredAt = &now
	f.rows = append(f.rows, a)
	return &a, nil
}

func (f *fakeAttenders) VerificationStatus(_ context.Context, eventID, email string) (*bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupSeen++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, r := range f.rows {
		if r.EventID == eventID && r.Email != nil && *r.Email == email {
			v := r.IsVerified
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeAttenders) ListByEvent(_ context.Context, eventID string) ([]model.Attender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attender
	for _, r := range f.rows {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttenders) UpdateApproval(_ context.Context, eventID, attenderID string, status model.ApprovalStatus) (*model.Attender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].EventID == eventID && f.rows[i].ID == attenderID {
			f.rows[i].ApprovalStatus = &status
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeAttenders) MarkVerified(_ context.Context, attenderID, email string) (*model.Attender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		r := &f.rows[i]
		if r.ID == attenderID && r.Email != nil && strings.EqualFold(*r.Email, email) {
			r.IsVerified = true
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

type fakeViews struct {
	mu      sync.Mutex
	views   []string
	failing bool
}

func (f *fakeViews) Record(_ context.Context, eventID, viewerID string) error {
	if f.failing {
		return errors.New("connection refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, eventID+"/"+viewerID)
	return nil
}

func (f *fakeViews) Count(_ context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.views {
		if strings.HasPrefix(v, eventID+"/") {
			n++
		}
	}
	return n, nil
}

type fakeForms struct {
	questions []formbridge.Question
	responses []formbridge.Response
	err       error
}

func (f *fakeForms) FetchResponses(context.Context, *session.User, string) ([]formbridge.Question, []formbridge.Response, error) {
	return f.questions, f.responses, f.err
}

type fixture struct {
	svc       *EventService
	events    *fakeEvents
	attenders *fakeAttenders
	views     *fakeViews
}

var (
	now       = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	organizer = &session.User{ID: "org-1", Email: "host@example.com"}
	guest     = &session.User{ID: "guest-1", Email: "ada@example.com"}
)

func newFixture() *fixture {
	f := &fixture{
		events:    &fakeEvents{events: map[string]*model.Event{}},
		attenders: &fakeAttenders{capacity: map[string]int{}},
		views:     &fakeViews{},
	}
	f.svc = NewEventService(f.events, f.attenders, f.views, zerolog.Nop())
	f.svc.now = func() time.Time { return now }
	return f
}

// addEvent stores e with defaults filled in and returns its id.
func (f *fixture) addEvent(e model.Event) string {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Title == "" {
		e.Title = "Go Meetup"
	}
	if e.StartsAt.IsZero() {
		e.StartsAt = now.Add(7 * 24 * time.Hour)
	}
	if e.OrganizerEmail == "" {
		e.OrganizerEmail = organizer.Email
	}
	if e.Capacity != nil {
		f.attenders.capacity[e.ID] = *e.Capacity
	}
	f.events.events[e.ID] = &e
	return e.ID
}
