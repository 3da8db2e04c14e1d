// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/registration"
	"github.com/gatherly/gatherly-api/internal/repository"
	"github.com/gatherly/gatherly-api/internal/session"
	"github.com/gatherly/gatherly-api/internal/validation"
)

// viewTimeout bounds a background view insert.
const viewTimeout = 5 * time.Second

var (
	// ErrRegistrationClosed is returned when the registration deadline has passed.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrEventFull is returned when an event has no seats left.
	ErrEventFull = repository.ErrEventFull
)

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context, communityID string) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// AttenderStore persists attenders. Insert reports a duplicate (event, email)
// as the database's unique violation and a full event as ErrEventFull.
type AttenderStore interface {
	Insert(ctx context.Context, a model.Attender) (*model.Attender, error)
	VerificationStatus(ctx context.Context, eventID, email string) (*bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Attender, error)
	UpdateApproval(ctx context.Context, eventID, attenderID string, status model.ApprovalStatus) (*model.Attender, error)
	MarkVerified(ctx context.Context, attenderID, email string) (*model.Attender, error)
}

// ViewStore records and counts event page views.
type ViewStore interface {
	Record(ctx context.Context, eventID, viewerID string) error
	Count(ctx context.Context, eventID string) (int, error)
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events    EventStore
	attenders AttenderStore
	views     ViewStore
	log       zerolog.Logger
	now       func() time.Time

	background sync.WaitGroup
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, attenders AttenderStore, views ViewStore, log zerolog.Logger) *EventService {
	return &EventService{
		events:    events,
		attenders: attenders,
		views:     views,
		log:       log,
		now:       time.Now,
	}
}

// EventDetails is an event with its derived registration state.
type EventDetails struct {
	*model.Event
	TimeRemaining    *registration.TimeRemaining `json:"time_remaining"`
	RegistrationOpen bool                        `json:"registration_open"`
}

// CreateEvent validates the request and delegates to the repository.
// Custom questions without an id are given one.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.OrganizerEmail = strings.ToLower(strings.TrimSpace(req.OrganizerEmail))

	var ve apperr.ValidationError
	validation.Collect(&ve, "", &req)

	tz := ""
	if req.Timezone != nil {
		tz = *req.Timezone
		if _, err := time.LoadLocation(tz); err != nil {
			ve.Add("timezone", "timezone", "must be an IANA timezone name")
			tz = ""
		}
	}
	if req.RegistrationDeadline != nil {
		if _, err := registration.ParseDeadline(*req.RegistrationDeadline, tz); err != nil {
			ve.Add("registration_deadline", "datetime", "must be a date or timestamp")
		}
	}

	seen := map[string]bool{}
	for i := range req.CustomQuestions.Custom {
		q := &req.CustomQuestions.Custom[i]
		q.Label = strings.TrimSpace(q.Label)
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		field := fmt.Sprintf("custom_questions.custom[%d]", i)
		if q.Label == "" {
			ve.Add(field+".label", "required", "is required")
		}
		if seen[q.ID] || q.ID == model.PhoneAnswerKey {
			ve.Add(field+".id", "unique", "must be unique")
		}
		seen[q.ID] = true
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	event, err := s.events.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info().Str("event_id", event.ID).Msg("event created")
	return event, nil
}

// ListEvents returns all events, or those of one community.
func (s *EventService) ListEvents(ctx context.Context, communityID string) ([]model.Event, error) {
	events, err := s.events.List(ctx, strings.TrimSpace(communityID))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperr.ErrNotFound
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// EventDetails returns the event with the time left to register.
func (s *EventService) EventDetails(ctx context.Context, id string) (*EventDetails, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.details(event), nil
}

func (s *EventService) details(event *model.Event) *EventDetails {
	d := &EventDetails{Event: event, RegistrationOpen: true}
	if event.RegistrationDeadline == nil {
		return d
	}
	tr, err := registration.Compute(*event.RegistrationDeadline, lo.FromPtr(event.Timezone), s.now())
	if err != nil {
		// Stored deadlines are validated on create; an unparsable one leaves registration open.
		s.log.Warn().Err(err).Str("event_id", event.ID).Msg("unparsable registration deadline")
		return d
	}
	d.TimeRemaining = tr
	d.RegistrationOpen = tr != nil
	return d
}

// TrackView records a page view without blocking the caller. Failures are
// logged and otherwise ignored.
func (s *EventService) TrackView(ctx context.Context, eventID string, viewer *session.User) {
	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), viewTimeout)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		if err := s.views.Record(ctx, eventID, viewerID); err != nil {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("could not record event view")
		}
	}()
}

// Wait blocks until background work started by the service has finished.
func (s *EventService) Wait() {
	s.background.Wait()
}

// isOrganizer reports whether user organizes event.
func isOrganizer(user *session.User, event *model.Event) bool {
	return user != nil && event.OrganizerEmail != "" && strings.EqualFold(user.Email, event.OrganizerEmail)
}

// requireOrganizer loads the event and checks that user may manage it.
func (s *EventService) requireOrganizer(ctx context.Context, user *session.User, eventID string) (*model.Event, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !isOrganizer(user, event) {
		return nil, apperr.ErrForbidden
	}
	return event, nil
}
