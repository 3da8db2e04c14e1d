package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/attender"
	"github.com/gatherly/gatherly-api/internal/formbridge"
	"github.com/gatherly/gatherly-api/internal/registration"
	"github.com/gatherly/gatherly-api/internal/session"
)

// FormSource reads a Google Form's questions and responses on behalf of a user.
type FormSource interface {
	FetchResponses(ctx context.Context, user *session.User, formID string) ([]formbridge.Question, []formbridge.Response, error)
}

// ImportResult reports what an import did.
type ImportResult struct {
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// ImportFromGoogleForms adds every response of formID to the organizer's event.
// Imported rows are admitted without approval since they were collected
// outside the platform. Responses already registered are counted as
// duplicates; a full event stops the import.
func (s *EventService) ImportFromGoogleForms(ctx context.Context, forms FormSource, user *session.User, eventID, formID string) (*ImportResult, error) {
	event, err := s.requireOrganizer(ctx, user, eventID)
	if err != nil {
		return nil, err
	}

	questions, responses, err := forms.FetchResponses(ctx, user, formID)
	if err != nil {
		return nil, err
	}

	rows, err := formbridge.ImportAttenders(event.ID, questions, responses, event.CustomQuestions)
	if err != nil {
		return nil, fmt.Errorf("map form responses: %w", err)
	}
	res := &ImportResult{Skipped: len(responses) - len(rows)}
	if err := attender.ValidateBatch(rows); err != nil {
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		// Invalid rows are reported and skipped; the rest still import.
		bad := map[int]bool{}
		for _, f := range ve.Fields {
			var i int
			if _, scanErr := fmt.Sscanf(f.Field, "[%d].", &i); scanErr == nil {
				bad[i] = true
			}
			res.Errors = append(res.Errors, f.Field+": "+f.Message)
		}
		kept := rows[:0]
		for i, r := range rows {
			if !bad[i] {
				kept = append(kept, r)
			}
		}
		res.Skipped += len(rows) - len(kept)
		rows = kept
	}

	for i, a := range rows {
		_, err := s.attenders.Insert(ctx, a)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, ErrEventFull):
			res.Skipped += len(rows) - i
			res.Errors = append(res.Errors, "event is full")
			s.log.Warn().Str("event_id", event.ID).Int("imported", res.Imported).Msg("import stopped: event full")
			return res, nil
		case registration.IsDuplicate(registration.BackendErrorFrom(err)):
			res.Duplicates++
		default:
			return res, fmt.Errorf("import attender: %w", err)
		}
	}

	s.log.Info().
		Str("event_id", event.ID).
		Str("form_id", formID).
		Int("imported", res.Imported).
		Int("duplicates", res.Duplicates).
		Int("skipped", res.Skipped).
		Msg("google forms import finished")
	return res, nil
}
