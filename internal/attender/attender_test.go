package attender

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/model"
)

func approval(s model.ApprovalStatus) *model.ApprovalStatus { return &s }

func TestRSVPBadge(t *testing.T) {
	tests := []struct {
		status  model.RSVPStatus
		label   string
		variant string
	}{
		{model.RSVPGoing, "Going", "success"},
		{model.RSVPMaybe, "Maybe", "warning"},
		{model.RSVPNotGoing, "Not Going", "destructive"},
		{"waitlisted", "waitlisted", "secondary"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			b := RSVPBadge(tt.status)
			if b.Label != tt.label || b.Variant != tt.variant {
				t.Errorf("RSVPBadge(%q) = %+v, want %s/%s", tt.status, b, tt.label, tt.variant)
			}
		})
	}
}

func TestApprovalBadge(t *testing.T) {
	if _, ok := ApprovalBadge(nil); ok {
		t.Error("nil approval status should have no badge")
	}

	b, ok := ApprovalBadge(approval(model.ApprovalPending))
	if !ok || b.Label != "Pending" || b.Class == "" {
		t.Errorf("pending badge = %+v, %v", b, ok)
	}

	b, _ = ApprovalBadge(approval(model.ApprovalApproved))
	if b.Label != "Approved" || b.Variant != "default" {
		t.Errorf("approved badge = %+v", b)
	}

	b, _ = ApprovalBadge(approval(model.ApprovalRejected))
	if b.Variant != "destructive" {
		t.Errorf("rejected badge = %+v", b)
	}
}

func TestNewViewJSON(t *testing.T) {
	a := &model.Attender{ID: "a1", Name: "Ada", RSVPStatus: model.RSVPGoing}
	data, err := json.Marshal(NewView(a))
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "Ada" {
		t.Errorf("embedded attender fields missing: %s", data)
	}
	if _, ok := got["approval_badge"]; ok {
		t.Errorf("auto-approved attender should omit approval_badge: %s", data)
	}
}

func TestValidate(t *testing.T) {
	valid := &model.Attender{Name: "Ada", RSVPStatus: model.RSVPGoing, Email: lo.ToPtr("ada@example.com")}
	if err := Validate(valid); err != nil {
		t.Fatalf("Validate(valid) = %v", err)
	}

	bad := &model.Attender{
		RSVPStatus:     "yes",
		Email:          lo.ToPtr("not-an-email"),
		ApprovalStatus: approval("maybe"),
	}
	err := Validate(bad)

	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Validate(bad) = %v, want *ValidationError", err)
	}

	got := lo.Map(ve.Fields, func(f apperr.FieldError, _ int) string { return f.Field })
	want := []string{"name", "email", "rsvp_status", "approval_status"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fields = %v, want %v", got, want)
	}
}

func TestValidateBatchReportsEveryRow(t *testing.T) {
	rows := []model.Attender{
		{Name: "ok", RSVPStatus: model.RSVPMaybe},
		{Name: "", RSVPStatus: model.RSVPGoing},
		{Name: "bad status", RSVPStatus: "nope"},
	}

	err := ValidateBatch(rows)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("ValidateBatch() = %v, want *ValidationError", err)
	}

	got := lo.Map(ve.Fields, func(f apperr.FieldError, _ int) string { return f.Field })
	want := []string{"[1].name", "[2].rsvp_status"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fields = %v, want %v", got, want)
	}
}

func TestCustomAnswersAreOpaqueToValidation(t *testing.T) {
	for _, raw := range []string{`null`, `{"q1":"x"}`, `[1,2,3]`, `"text"`, `42`} {
		a := &model.Attender{Name: "Ada", RSVPStatus: model.RSVPGoing, CustomAnswers: json.RawMessage(raw)}
		if err := Validate(a); err != nil {
			t.Errorf("Validate with custom_answers %s = %v, want nil", raw, err)
		}
	}
}

var questionCfg = model.CustomQuestionsConfig{
	Phone: model.PhoneQuestion{Enabled: true, Required: true},
	Custom: []model.CustomQuestion{
		{ID: "diet", Label: "Dietary needs", Order: 2},
		{ID: "company", Label: "Company", Required: true, Order: 1},
	},
}

func TestResolveAnswers(t *testing.T) {
	raw := json.RawMessage(`{"diet":"vegan","company":"Acme","phone":"+1 555","legacy":true,"zz":null,"tags":["a","b"]}`)

	got := ResolveAnswers(questionCfg, raw)
	want := []Answer{
		{Kind: AnswerPhone, Key: "phone", Label: "Phone", Value: "+1 555", Required: true},
		{Kind: AnswerQuestion, Key: "company", Label: "Company", Value: "Acme", Required: true},
		{Kind: AnswerQuestion, Key: "diet", Label: "Dietary needs", Value: "vegan"},
		{Kind: AnswerExtra, Key: "legacy", Label: "legacy", Value: "true"},
		{Kind: AnswerExtra, Key: "tags", Label: "tags", Value: "a, b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveAnswers() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestResolveAnswersPhoneDisabledIsExtra(t *testing.T) {
	cfg := model.CustomQuestionsConfig{}
	got := ResolveAnswers(cfg, json.RawMessage(`{"phone":"123"}`))
	if len(got) != 1 || got[0].Kind != AnswerExtra {
		t.Errorf("phone with disabled config = %+v, want one extra", got)
	}
}

func TestDecodeAnswersTolerant(t *testing.T) {
	for _, raw := range []string{"", "null", "[1]", "{bad json"} {
		if got := DecodeAnswers(json.RawMessage(raw)); len(got) != 0 {
			t.Errorf("DecodeAnswers(%q) = %v, want empty", raw, got)
		}
	}
}

func TestKnownAnswersAndMissingRequired(t *testing.T) {
	answers := model.CustomAnswers{"diet": "none", "unknown": "x", "phone": " "}

	known := KnownAnswers(questionCfg, answers)
	if _, ok := known["unknown"]; ok {
		t.Error("KnownAnswers kept a key not in config")
	}
	if len(known) != 2 {
		t.Errorf("KnownAnswers = %v, want diet and phone", known)
	}

	missing := MissingRequired(questionCfg, answers)
	if !reflect.DeepEqual(missing, []string{"phone", "company"}) {
		t.Errorf("MissingRequired = %v, want [phone company]", missing)
	}
}

func TestFilterAndSummarize(t *testing.T) {
	people := []model.Attender{
		{Name: "Ada", Email: lo.ToPtr("ada@example.com"), RSVPStatus: model.RSVPGoing, IsVerified: true},
		{Name: "Brian", RSVPStatus: model.RSVPMaybe, ApprovalStatus: approval(model.ApprovalPending)},
		{Name: "Cleo", RSVPStatus: model.RSVPGoing, ApprovalStatus: approval(model.ApprovalRejected), IsAnonymous: true},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"Ada", "Brian", "Cleo"}},
		{"going", Filter{RSVP: model.RSVPGoing}, []string{"Ada", "Cleo"}},
		{"approved includes auto", Filter{Approval: model.ApprovalApproved}, []string{"Ada"}},
		{"unverified", Filter{Verified: lo.ToPtr(false)}, []string{"Brian", "Cleo"}},
		{"query email", Filter{Query: "EXAMPLE"}, []string{"Ada"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lo.Map(tt.filter.Apply(people), func(a model.Attender, _ int) string { return a.Name })
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}

	s := Summarize(people)
	if s.Total != 3 || s.Verified != 1 || s.Unverified != 2 || s.Anonymous != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
	if s.ByRSVP[model.RSVPGoing] != 2 || s.ByApproval[model.ApprovalApproved] != 1 || s.ByApproval[model.ApprovalPending] != 1 {
		t.Errorf("Summarize() counts = %+v", s)
	}
}
