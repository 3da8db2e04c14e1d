package attender

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/model"
)

// AnswerKind tags a resolved custom answer.
type AnswerKind string

const (
	AnswerPhone    AnswerKind = "phone"
	AnswerQuestion AnswerKind = "question"
	// AnswerExtra is a stored key the current question config no longer knows about.
	AnswerExtra AnswerKind = "extra"
)

// Answer is one custom answer resolved against a question config.
type Answer struct {
	Kind     AnswerKind `json:"kind"`
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	Value    string     `json:"value"`
	Required bool       `json:"required,omitempty"`
}

// SortedQuestions returns the custom questions in display order.
func SortedQuestions(cfg model.CustomQuestionsConfig) []model.CustomQuestion {
	qs := append([]model.CustomQuestion(nil), cfg.Custom...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs
}

// DecodeAnswers reads stored custom answers. Any JSON object is accepted;
// non-string scalars are rendered as text and nested values as compact JSON.
// null, an empty payload or a non-object yields an empty map.
func DecodeAnswers(raw json.RawMessage) model.CustomAnswers {
	out := model.CustomAnswers{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return out
	}
	for k, v := range obj {
		if s, ok := scalarText(v); ok {
			out[k] = s
		}
	}
	return out
}

func scalarText(v json.RawMessage) (string, bool) {
	var anyVal any
	if err := json.Unmarshal(v, &anyVal); err != nil {
		return "", false
	}
	switch t := anyVal.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []any:
		parts := lo.Map(t, func(item any, _ int) string { return fmt.Sprint(item) })
		return strings.Join(parts, ", "), true
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return "", false
		}
		return buf.String(), true
	}
}

// ResolveAnswers lays stored answers out against cfg: the phone answer first
// (when enabled), then configured questions in display order, then any keys
// the config does not know as AnswerExtra sorted by key.
func ResolveAnswers(cfg model.CustomQuestionsConfig, raw json.RawMessage) []Answer {
	answers := DecodeAnswers(raw)
	var out []Answer

	if cfg.Phone.Enabled {
		if v, ok := answers[model.PhoneAnswerKey]; ok {
			out = append(out, Answer{Kind: AnswerPhone, Key: model.PhoneAnswerKey, Label: "Phone", Value: v, Required: cfg.Phone.Required})
		}
	}

	known := map[string]bool{model.PhoneAnswerKey: cfg.Phone.Enabled}
	for _, q := range SortedQuestions(cfg) {
		known[q.ID] = true
		if v, ok := answers[q.ID]; ok {
			out = append(out, Answer{Kind: AnswerQuestion, Key: q.ID, Label: q.Label, Value: v, Required: q.Required})
		}
	}

	extras := lo.Filter(lo.Keys(answers), func(k string, _ int) bool { return !known[k] })
	sort.Strings(extras)
	for _, k := range extras {
		out = append(out, Answer{Kind: AnswerExtra, Key: k, Label: k, Value: answers[k]})
	}
	return out
}

// KnownAnswers keeps only answers whose key is present in cfg.
func KnownAnswers(cfg model.CustomQuestionsConfig, answers model.CustomAnswers) model.CustomAnswers {
	ids := lo.SliceToMap(cfg.Custom, func(q model.CustomQuestion) (string, bool) { return q.ID, true })
	if cfg.Phone.Enabled {
		ids[model.PhoneAnswerKey] = true
	}
	return lo.PickBy(answers, func(k, _ string) bool { return ids[k] })
}

// MissingRequired lists the keys of required questions without a non-blank answer,
// in display order.
func MissingRequired(cfg model.CustomQuestionsConfig, answers model.CustomAnswers) []string {
	var missing []string
	if cfg.Phone.Enabled && cfg.Phone.Required && strings.TrimSpace(answers[model.PhoneAnswerKey]) == "" {
		missing = append(missing, model.PhoneAnswerKey)
	}
	for _, q := range SortedQuestions(cfg) {
		if q.Required && strings.TrimSpace(answers[q.ID]) == "" {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
