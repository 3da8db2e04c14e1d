package attender

import (
	"strings"

	"github.com/samber/lo"

	"github.com/gatherly/gatherly-api/internal/model"
)

// Filter selects attenders for dashboard listings. Zero values match everything.
type Filter struct {
	RSVP     model.RSVPStatus
	Approval model.ApprovalStatus
	Verified *bool
	Query    string
}

// Apply returns the attenders matching f, preserving order.
func (f Filter) Apply(as []model.Attender) []model.Attender {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	return lo.Filter(as, func(a model.Attender, _ int) bool {
		if f.RSVP != "" && a.RSVPStatus != f.RSVP {
			return false
		}
		if f.Approval != "" && approvalOf(a) != f.Approval {
			return false
		}
		if f.Verified != nil && a.IsVerified != *f.Verified {
			return false
		}
		if q != "" {
			email := strings.ToLower(lo.FromPtr(a.Email))
			if !strings.Contains(strings.ToLower(a.Name), q) && !strings.Contains(email, q) {
				return false
			}
		}
		return true
	})
}

// approvalOf treats a missing status as approved.
func approvalOf(a model.Attender) model.ApprovalStatus {
	if a.ApprovalStatus == nil {
		return model.ApprovalApproved
	}
	return *a.ApprovalStatus
}

// Summary counts attenders by state for the organizer dashboard.
type Summary struct {
	Total      int                          `json:"total"`
	ByRSVP     map[model.RSVPStatus]int     `json:"by_rsvp"`
	ByApproval map[model.ApprovalStatus]int `json:"by_approval"`
	Verified   int                          `json:"verified"`
	Unverified int                          `json:"unverified"`
	Anonymous  int                          `json:"anonymous"`
}

// Summarize computes a Summary over as.
func Summarize(as []model.Attender) Summary {
	verified := lo.CountBy(as, func(a model.Attender) bool { return a.IsVerified })
	return Summary{
		Total:      len(as),
		ByRSVP:     lo.CountValuesBy(as, func(a model.Attender) model.RSVPStatus { return a.RSVPStatus }),
		ByApproval: lo.CountValuesBy(as, approvalOf),
		Verified:   verified,
		Unverified: len(as) - verified,
		Anonymous:  lo.CountBy(as, func(a model.Attender) bool { return a.IsAnonymous }),
	}
}
