// Package formbridge connects a user's Google account, reads Google Forms
// schemas and responses, and translates them into attender records.
package formbridge

import (
	"strings"

	"google.golang.org/api/forms/v1"
)

// QuestionType is the closed set of question kinds the platform understands.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionDropdown       QuestionType = "dropdown"
	QuestionShortText      QuestionType = "short_text"
	QuestionParagraph      QuestionType = "paragraph"
	QuestionScale          QuestionType = "scale"
	QuestionDate           QuestionType = "date"
	QuestionTime           QuestionType = "time"
	QuestionFileUpload     QuestionType = "file_upload"
	QuestionGrid           QuestionType = "grid"
	QuestionUnknown        QuestionType = "unknown"
)

// providerTypes maps Google Forms kind names (choice types and question
// variants) to QuestionType.
var providerTypes = map[string]QuestionType{
	"RADIO":                QuestionMultipleChoice,
	"CHECKBOX":             QuestionCheckbox,
	"DROP_DOWN":            QuestionDropdown,
	"TEXT":                 QuestionShortText,
	"PARAGRAPH_TEXT":       QuestionParagraph,
	"SCALE":                QuestionScale,
	"DATE":                 QuestionDate,
	"TIME":                 QuestionTime,
	"FILE_UPLOAD":          QuestionFileUpload,
	"GRID":                 QuestionGrid,
	"CHECKBOX_GRID":        QuestionGrid,
	"MULTIPLE_CHOICE":      QuestionMultipleChoice,
	"MULTIPLE_CHOICE_GRID": QuestionGrid,
	"SHORT_ANSWER":         QuestionShortText,
	"PARAGRAPH":            QuestionParagraph,
	"LINEAR_SCALE":         QuestionScale,
}

// QuestionTypeFromString maps a provider type name to a QuestionType.
// Unrecognized names become QuestionUnknown.
func QuestionTypeFromString(s string) QuestionType {
	key := strings.ToUpper(strings.TrimSpace(s))
	if qt, ok := providerTypes[key]; ok {
		return qt
	}
	if qt := QuestionType(strings.ToLower(key)); qt.known() {
		return qt
	}
	return QuestionUnknown
}

func (q QuestionType) known() bool {
	switch q {
	case QuestionMultipleChoice, QuestionCheckbox, QuestionDropdown, QuestionShortText, QuestionParagraph,
		QuestionScale, QuestionDate, QuestionTime, QuestionFileUpload, QuestionGrid:
		return true
	}
	return false
}

// Scale holds the bounds of a linear scale question.
type Scale struct {
	Low       int64  `json:"low"`
	High      int64  `json:"high"`
	LowLabel  string `json:"lowLabel,omitempty"`
	HighLabel string `json:"highLabel,omitempty"`
}

// Question is a form item translated into the platform's shape.
type Question struct {
	ItemID     string       `json:"itemId"`
	Title      string       `json:"title"`
	QuestionID string       `json:"questionId"`
	Required   bool         `json:"required"`
	Type       QuestionType `json:"type"`
	Choices    []string     `json:"choices,omitempty"`
	Scale      *Scale       `json:"scale,omitempty"`
}

// Response is a form response keyed by question title.
type Response struct {
	ResponseID        string            `json:"responseId"`
	CreateTime        string            `json:"createTime"`
	LastSubmittedTime string            `json:"lastSubmittedTime"`
	RespondentEmail   string            `json:"respondentEmail,omitempty"`
	Answers           map[string]string `json:"answers"`
}

// ParseQuestion translates a form item. Items that are not questions (page
// breaks, text, images) return ok=false. Question kinds the provider adds in
// the future parse as QuestionUnknown.
func ParseQuestion(item *forms.Item) (Question, bool) {
	if item == nil {
		return Question{}, false
	}

	q := Question{ItemID: item.ItemId, Title: item.Title}

	switch {
	case item.QuestionItem != nil && item.QuestionItem.Question != nil:
		pq := item.QuestionItem.Question
		q.QuestionID = pq.QuestionId
		q.Required = pq.Required
		q.Type = QuestionTypeFromString(providerKind(pq))
		if pq.ChoiceQuestion != nil {
			for _, opt := range pq.ChoiceQuestion.Options {
				if opt != nil && !opt.IsOther {
					q.Choices = append(q.Choices, opt.Value)
				}
			}
		}
		if sq := pq.ScaleQuestion; sq != nil {
			q.Scale = &Scale{Low: sq.Low, High: sq.High, LowLabel: sq.LowLabel, HighLabel: sq.HighLabel}
		}
		return q, true

	case item.QuestionGroupItem != nil:
		g := item.QuestionGroupItem
		q.Type = QuestionGrid
		for _, row := range g.Questions {
			if row == nil {
				continue
			}
			if q.QuestionID == "" {
				q.QuestionID = row.QuestionId
			}
			q.Required = q.Required || row.Required
		}
		if g.Grid != nil && g.Grid.Columns != nil {
			for _, opt := range g.Grid.Columns.Options {
				if opt != nil {
					q.Choices = append(q.Choices, opt.Value)
				}
			}
		}
		return q, true
	}

	return Question{}, false
}

// providerKind names the variant set on a Google Forms question.
func providerKind(q *forms.Question) string {
	switch {
	case q.ChoiceQuestion != nil:
		return q.ChoiceQuestion.Type
	case q.TextQuestion != nil:
		if q.TextQuestion.Paragraph {
			return "PARAGRAPH_TEXT"
		}
		return "TEXT"
	case q.ScaleQuestion != nil:
		return "SCALE"
	case q.DateQuestion != nil:
		return "DATE"
	case q.TimeQuestion != nil:
		return "TIME"
	case q.FileUploadQuestion != nil:
		return "FILE_UPLOAD"
	case q.RowQuestion != nil:
		return "GRID"
	}
	return ""
}

// ParseQuestions translates every question item in a form, in form order.
func ParseQuestions(f *forms.Form) []Question {
	if f == nil {
		return nil
	}
	var out []Question
	for _, item := range f.Items {
		if q, ok := ParseQuestion(item); ok {
			out = append(out, q)
		}
	}
	return out
}

// TitleIndex maps question ids to titles. Grid rows are titled "Item [Row]".
func TitleIndex(f *forms.Form) map[string]string {
	titles := map[string]string{}
	if f == nil {
		return titles
	}
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		if item.QuestionItem != nil && item.QuestionItem.Question != nil {
			titles[item.QuestionItem.Question.QuestionId] = item.Title
		}
		if item.QuestionGroupItem != nil {
			for _, row := range item.QuestionGroupItem.Questions {
				if row == nil {
					continue
				}
				title := item.Title
				if row.RowQuestion != nil && row.RowQuestion.Title != "" {
					title += " [" + row.RowQuestion.Title + "]"
				}
				titles[row.QuestionId] = title
			}
		}
	}
	return titles
}

// ParseResponse translates a form response, keying answers by question title.
// Multiple text answers are joined with ", "; file uploads are reported by file name.
// Answers to questions missing from titles are keyed by question id.
func ParseResponse(r *forms.FormResponse, titles map[string]string) Response {
	out := Response{Answers: map[string]string{}}
	if r == nil {
		return out
	}
	out.ResponseID = r.ResponseId
	out.CreateTime = r.CreateTime
	out.LastSubmittedTime = r.LastSubmittedTime
	out.RespondentEmail = r.RespondentEmail

	for qid, ans := range r.Answers {
		key := titles[qid]
		if key == "" {
			key = qid
		}

		var values []string
		if ans.TextAnswers != nil {
			for _, ta := range ans.TextAnswers.Answers {
				if ta != nil {
					values = append(values, ta.Value)
				}
			}
		}
		if ans.FileUploadAnswers != nil {
			for _, fa := range ans.FileUploadAnswers.Answers {
				if fa != nil {
					values = append(values, fa.FileName)
				}
			}
		}
		out.Answers[key] = strings.Join(values, ", ")
	}
	return out
}
