// Package attender holds the attender state model: status presentation tables,
// schema validation, custom answer resolution and dashboard filtering.
package attender

import "github.com/gatherly/gatherly-api/internal/model"

// Badge describes how a status is shown in the UI.
type Badge struct {
	Label   string `json:"label"`
	Variant string `json:"variant"`
	Class   string `json:"class,omitempty"`
}

var rsvpBadges = map[model.RSVPStatus]Badge{
	model.RSVPGoing:    {Label: "Going", Variant: "success"},
	model.RSVPMaybe:    {Label: "Maybe", Variant: "warning"},
	model.RSVPNotGoing: {Label: "Not Going", Variant: "destructive"},
}

var approvalBadges = map[model.ApprovalStatus]Badge{
	model.ApprovalPending:  {Label: "Pending", Variant: "outline", Class: "text-yellow-600 border-yellow-600"},
	model.ApprovalApproved: {Label: "Approved", Variant: "default", Class: "bg-green-600"},
	model.ApprovalRejected: {Label: "Rejected", Variant: "destructive"},
}

// RSVPBadge returns the presentation for an RSVP status.
// Unknown statuses render as a neutral badge labelled with the raw value.
func RSVPBadge(s model.RSVPStatus) Badge {
	if b, ok := rsvpBadges[s]; ok {
		return b
	}
	return Badge{Label: string(s), Variant: "secondary"}
}

// ApprovalBadge returns the presentation for an approval status. A nil status
// (auto-approved) has no badge.
func ApprovalBadge(s *model.ApprovalStatus) (Badge, bool) {
	if s == nil {
		return Badge{}, false
	}
	if b, ok := approvalBadges[*s]; ok {
		return b, true
	}
	return Badge{Label: string(*s), Variant: "secondary"}, true
}

// View is an attender with its badges resolved, as returned to dashboards.
type View struct {
	*model.Attender
	RSVPBadge     Badge  `json:"rsvp_badge"`
	ApprovalBadge *Badge `json:"approval_badge,omitempty"`
}

// NewView attaches presentation data to a.
func NewView(a *model.Attender) View {
	v := View{Attender: a, RSVPBadge: RSVPBadge(a.RSVPStatus)}
	if b, ok := ApprovalBadge(a.ApprovalStatus); ok {
		v.ApprovalBadge = &b
	}
	return v
}
