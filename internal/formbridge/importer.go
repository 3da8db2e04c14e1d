package formbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/model"
)

// ImportAttenders converts form responses into attender rows for eventID.
//
// Name, email and phone come from the question whose title best names them:
// an exact title first, then the most specific phrase it contains. The
// respondent email collected by Google wins over a typed email and marks the
// attender verified. Remaining answers fill custom questions whose label matches
// the question title. Responses with neither a name nor an email are skipped.
func ImportAttenders(eventID string, questions []Question, responses []Response, cfg model.CustomQuestionsConfig) ([]model.Attender, error) {
	nameTitle := bestTitle(questions, []string{"name", "full name", "your name"}, "full name", "your name", "name")
	emailTitle := bestTitle(questions, []string{"email", "e-mail", "email address"}, "email", "e-mail")
	phoneTitle := bestTitle(questions, []string{"phone", "phone number", "mobile"}, "phone", "mobile")

	labels := lo.SliceToMap(cfg.Custom, func(q model.CustomQuestion) (string, string) {
		return normalize(q.Label), q.ID
	})

	var out []model.Attender
	for _, r := range responses {
		email := strings.ToLower(strings.TrimSpace(r.RespondentEmail))
		verified := email != ""
		if email == "" && emailTitle != "" {
			email = strings.ToLower(strings.TrimSpace(r.Answers[emailTitle]))
		}

		name := strings.TrimSpace(r.Answers[nameTitle])
		if name == "" && email != "" {
			name, _, _ = strings.Cut(email, "@")
		}
		if name == "" {
			continue
		}

		answers := model.CustomAnswers{}
		phone := strings.TrimSpace(r.Answers[phoneTitle])
		if phone != "" && cfg.Phone.Enabled {
			answers[model.PhoneAnswerKey] = phone
		}
		for title, value := range r.Answers {
			if id, ok := labels[normalize(title)]; ok && value != "" {
				answers[id] = value
			}
		}

		a := model.Attender{
			EventID:     eventID,
			Name:        name,
			Email:       lo.EmptyableToPtr(email),
			Phone:       lo.EmptyableToPtr(phone),
			RSVPStatus:  model.RSVPGoing,
			IsVerified:  verified,
			IsAnonymous: false,
		}
		if t, err := time.Parse(time.RFC3339Nano, r.LastSubmittedTime); err == nil {
			a.RegisteredAt = &t
		}
		if len(answers) > 0 {
			raw, err := json.Marshal(answers)
			if err != nil {
				return nil, fmt.Errorf("encode answers for response %s: %w", r.ResponseID, err)
			}
			a.CustomAnswers = raw
		}
		out = append(out, a)
	}
	return out, nil
}

// bestTitle returns the title of the question whose normalized title is one
// of exact, or else the first question containing the earliest of phrases.
func bestTitle(questions []Question, exact []string, phrases ...string) string {
	if q, ok := lo.Find(questions, func(q Question) bool {
		return lo.Contains(exact, normalize(q.Title))
	}); ok {
		return q.Title
	}
	for _, p := range phrases {
		if q, ok := lo.Find(questions, func(q Question) bool {
			return strings.Contains(normalize(q.Title), p)
		}); ok {
			return q.Title
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
