package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/attender"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/session"
)

// AnonymousName replaces the name of anonymous attenders in public listings.
const AnonymousName = "Anonymous"

// EventSummary is the organizer dashboard for one event.
type EventSummary struct {
	attender.Summary
	Views     int  `json:"views"`
	Capacity  *int `json:"capacity,omitempty"`
	SeatsLeft *int `json:"seats_left,omitempty"`
}

// AttenderDetails is an attender with its custom answers laid out for display.
type AttenderDetails struct {
	attender.View
	Answers []attender.Answer `json:"answers,omitempty"`
}

// ListAttenders returns the attenders of an event matching f. Organizers see
// everything; everyone else gets names only, with anonymous attenders masked.
func (s *EventService) ListAttenders(ctx context.Context, user *session.User, eventID string, f attender.Filter) ([]AttenderDetails, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	all, err := s.attenders.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list attenders: %w", err)
	}

	organizer := isOrganizer(user, event)
	return lo.Map(f.Apply(all), func(a model.Attender, _ int) AttenderDetails {
		if !organizer {
			a = redact(a)
			return AttenderDetails{View: attender.NewView(&a)}
		}
		return AttenderDetails{
			View:    attender.NewView(&a),
			Answers: attender.ResolveAnswers(event.CustomQuestions, a.CustomAnswers),
		}
	}), nil
}

func redact(a model.Attender) model.Attender {
	a.Email = nil
	a.Phone = nil
	a.CustomAnswers = nil
	if a.IsAnonymous {
		a.Name = AnonymousName
		a.AvatarURL = nil
	}
	return a
}

// UpdateApproval records the organizer's decision on one registration.
func (s *EventService) UpdateApproval(ctx context.Context, user *session.User, eventID, attenderID string, status model.ApprovalStatus) (*attender.View, error) {
	if !status.Valid() {
		var ve apperr.ValidationError
		ve.Add("approval_status", "oneof", "must be one of: pending, approved, rejected")
		return nil, &ve
	}
	event, err := s.requireOrganizer(ctx, user, eventID)
	if err != nil {
		return nil, err
	}
	if !event.RequiresApproval {
		var ve apperr.ValidationError
		ve.Add("approval_status", "unsupported", "this event does not require approval")
		return nil, &ve
	}

	a, err := s.attenders.UpdateApproval(ctx, event.ID, attenderID, status)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("update approval: %w", err)
	}
	s.log.Info().Str("event_id", event.ID).Str("attender_id", a.ID).Str("approval", string(status)).Msg("approval updated")
	v := attender.NewView(a)
	return &v, nil
}

// Summary returns attendance counts for the organizer dashboard.
func (s *EventService) Summary(ctx context.Context, user *session.User, eventID string) (*EventSummary, error) {
	event, err := s.requireOrganizer(ctx, user, eventID)
	if err != nil {
		return nil, err
	}
	all, err := s.attenders.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list attenders: %w", err)
	}

	sum := &EventSummary{Summary: attender.Summarize(all), Capacity: event.Capacity}
	if event.Capacity != nil {
		taken := lo.CountBy(all, func(a model.Attender) bool {
			return a.RSVPStatus == model.RSVPGoing && lo.FromPtr(a.ApprovalStatus) != model.ApprovalRejected
		})
		sum.SeatsLeft = lo.ToPtr(max(*event.Capacity-taken, 0))
	}

	views, err := s.views.Count(ctx, event.ID)
	if err != nil {
		// The dashboard still renders without a view count.
		s.log.Warn().Err(err).Str("event_id", event.ID).Msg("could not count event views")
	}
	sum.Views = views
	return sum, nil
}
