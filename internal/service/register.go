package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/attender"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/registration"
	"github.com/gatherly/gatherly-api/internal/session"
)

// Registration outcome messages.
const (
	MsgRegistered       = "You're registered!"
	MsgPendingApproval  = "Registration received. The organizer will review it shortly."
	MsgCheckEmail       = "Check your email to confirm your registration."
	MsgRegistrationDone = "Your registration is confirmed."
)

// Register validates the registration and inserts it. Uniqueness is enforced
// by the database; a duplicate comes back as *apperr.DuplicateError with a
// message that depends on whether the earlier registration was verified.
func (s *EventService) Register(ctx context.Context, eventID string, user *session.User, req model.RegisterRequest) (*model.RegistrationResult, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if d := s.details(event); !d.RegistrationOpen {
		return nil, ErrRegistrationClosed
	}

	a, err := buildAttender(event, user, req)
	if err != nil {
		return nil, err
	}

	saved, err := s.attenders.Insert(ctx, *a)
	if err != nil {
		return nil, s.registrationErr(ctx, event.ID, a, err)
	}

	s.log.Info().
		Str("event_id", event.ID).
		Str("attender_id", saved.ID).
		Str("rsvp", string(saved.RSVPStatus)).
		Bool("verified", saved.IsVerified).
		Msg("attender registered")
	return &model.RegistrationResult{Attender: saved, Message: registeredMessage(saved)}, nil
}

// buildAttender normalizes the request into an attender row and validates it,
// reporting every invalid field at once.
func buildAttender(event *model.Event, user *session.User, req model.RegisterRequest) (*model.Attender, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)

	a := &model.Attender{
		EventID:     event.ID,
		Name:        strings.TrimSpace(req.Name),
		Email:       lo.EmptyableToPtr(email),
		Phone:       lo.EmptyableToPtr(phone),
		AvatarURL:   lo.EmptyableToPtr(strings.TrimSpace(req.AvatarURL)),
		RSVPStatus:  lo.Ternary(req.RSVPStatus == "", model.RSVPGoing, req.RSVPStatus),
		IsAnonymous: req.IsAnonymous,
		IsVerified:  user != nil && email != "" && strings.EqualFold(user.Email, email),
	}
	if event.RequiresApproval {
		a.ApprovalStatus = lo.ToPtr(model.ApprovalPending)
	}

	answers := attender.DecodeAnswers(req.CustomAnswers)
	if phone != "" && event.CustomQuestions.Phone.Enabled {
		answers[model.PhoneAnswerKey] = phone
	}

	var ve apperr.ValidationError
	if err := attender.Validate(a); err != nil {
		var fields *apperr.ValidationError
		if !errors.As(err, &fields) {
			return nil, err
		}
		ve.Fields = append(ve.Fields, fields.Fields...)
	}
	for _, key := range attender.MissingRequired(event.CustomQuestions, answers) {
		ve.Add("custom_answers."+key, "required", "is required")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if known := attender.KnownAnswers(event.CustomQuestions, answers); len(known) > 0 {
		raw, err := json.Marshal(known)
		if err != nil {
			return nil, fmt.Errorf("encode custom answers: %w", err)
		}
		a.CustomAnswers = raw
	}
	return a, nil
}

// registrationErr converts an insert failure into the error shown to the registrant.
func (s *EventService) registrationErr(ctx context.Context, eventID string, a *model.Attender, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, ErrEventFull):
		return ErrEventFull
	}

	be := registration.BackendErrorFrom(err)
	if !registration.IsDuplicate(be) {
		return fmt.Errorf("register for event: %w", err)
	}

	dc := &registration.DuplicateContext{Email: lo.FromPtr(a.Email)}
	if dc.Email != "" {
		verified, lookupErr := s.attenders.VerificationStatus(ctx, eventID, dc.Email)
		if lookupErr != nil {
			s.log.Warn().Err(lookupErr).Str("event_id", eventID).Msg("could not load verification state of duplicate")
		}
		dc.IsVerified = verified
	}
	msg, _ := registration.DuplicateMessage(be, dc)
	return &apperr.DuplicateError{Message: msg}
}

func registeredMessage(a *model.Attender) string {
	switch {
	case a.ApprovalStatus != nil && *a.ApprovalStatus == model.ApprovalPending:
		return MsgPendingApproval
	case a.Email != nil && !a.IsVerified:
		return MsgCheckEmail
	}
	return MsgRegistered
}

// VerifyAttender confirms the signed-in user's own provisional registration.
func (s *EventService) VerifyAttender(ctx context.Context, user *session.User, attenderID string) (*model.RegistrationResult, error) {
	if user == nil || user.Email == "" {
		return nil, apperr.ErrUnauthenticated
	}
	a, err := s.attenders.MarkVerified(ctx, attenderID, user.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("verify attender: %w", err)
	}
	s.log.Info().Str("attender_id", a.ID).Msg("attender verified")
	return &model.RegistrationResult{Attender: a, Message: MsgRegistrationDone}, nil
}
