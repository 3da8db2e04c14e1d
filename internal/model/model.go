// Package model defines the core domain types for the events platform.
package model

import (
	"encoding/json"
	"time"
)

// RSVPStatus is a registrant's stated intention to attend.
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPNotGoing RSVPStatus = "not_going"
	RSVPMaybe    RSVPStatus = "maybe"
)

// Valid reports whether s is a known RSVP status.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPNotGoing, RSVPMaybe:
		return true
	}
	return false
}

// ApprovalStatus is the organizer's decision on a registration, independent of RSVP.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Event represents an event hosted by a community.
type Event struct {
	ID                   string                `json:"id"`
	CommunityID          *string               `json:"community_id,omitempty"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Location             string                `json:"location"`
	StartsAt             time.Time             `json:"starts_at"`
	EndsAt               *time.Time            `json:"ends_at,omitempty"`
	RegistrationDeadline *string               `json:"registration_deadline,omitempty"`
	Timezone             *string               `json:"timezone,omitempty"`
	RequiresApproval     bool                  `json:"requires_approval"`
	Capacity             *int                  `json:"capacity,omitempty"`
	OrganizerName        string                `json:"organizer_name"`
	OrganizerEmail       string                `json:"organizer_email"`
	CustomQuestions      CustomQuestionsConfig `json:"custom_questions"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// Attender is one registration for an event.
// ApprovalStatus is only meaningful for events that require approval; nil means auto-approved.
// IsVerified=false marks a provisional registration awaiting email confirmation.
type Attender struct {
	ID             string          `json:"id"`
	EventID        string          `json:"event_id"`
	Name           string          `json:"name" validate:"required,max=200"`
	Email          *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string         `json:"phone,omitempty" validate:"omitempty,max=32"`
	AvatarURL      *string         `json:"avatar_url,omitempty" validate:"omitempty,url"`
	RSVPStatus     RSVPStatus      `json:"rsvp_status" validate:"required,oneof=going not_going maybe"`
	ApprovalStatus *ApprovalStatus `json:"approval_status,omitempty" validate:"omitempty,oneof=pending approved rejected"`
	IsVerified     bool            `json:"is_verified"`
	RegisteredAt   *time.Time      `json:"registered_at,omitempty"`
	IsAnonymous    bool            `json:"is_anonymous"`
	CustomAnswers  json.RawMessage `json:"custom_answers,omitempty"`
}

// IsApproved reports whether the attender counts as admitted.
func (a *Attender) IsApproved() bool {
	return a.ApprovalStatus == nil || *a.ApprovalStatus == ApprovalApproved
}

// PhoneQuestion configures the built-in phone field.
type PhoneQuestion struct {
	Enabled  bool `json:"enabled"`
	Required bool `json:"required"`
}

// CustomQuestion is one organizer-defined question. ID is stable and keys CustomAnswers.
type CustomQuestion struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Order    int    `json:"order"`
}

// CustomQuestionsConfig is the registration form configuration for an event.
type CustomQuestionsConfig struct {
	Phone  PhoneQuestion    `json:"phone"`
	Custom []CustomQuestion `json:"custom"`
}

// PhoneAnswerKey is the reserved CustomAnswers key for the phone field.
const PhoneAnswerKey = "phone"

// CustomAnswers maps question id (or PhoneAnswerKey) to an answer.
type CustomAnswers map[string]string

// TokenRecord stores a user's Google OAuth tokens. One record per user.
type TokenRecord struct {
	UserID       string     `json:"user_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenType    string     `json:"token_type"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	CommunityID          *string               `json:"community_id"`
	Title                string                `json:"title" validate:"required,max=200"`
	Description          string                `json:"description" validate:"max=10000"`
	Location             string                `json:"location" validate:"max=500"`
	StartsAt             time.Time             `json:"starts_at" validate:"required"`
	EndsAt               *time.Time            `json:"ends_at" validate:"omitempty,gtfield=StartsAt"`
	RegistrationDeadline *string               `json:"registration_deadline"`
	Timezone             *string               `json:"timezone"`
	RequiresApproval     bool                  `json:"requires_approval"`
	Capacity             *int                  `json:"capacity" validate:"omitempty,min=1,max=100000"`
	OrganizerName        string                `json:"organizer_name" validate:"max=200"`
	OrganizerEmail       string                `json:"organizer_email" validate:"omitempty,email"`
	CustomQuestions      CustomQuestionsConfig `json:"custom_questions"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	AvatarURL     string          `json:"avatar_url"`
	RSVPStatus    RSVPStatus      `json:"rsvp_status"`
	IsAnonymous   bool            `json:"is_anonymous"`
	CustomAnswers json.RawMessage `json:"custom_answers"`
}

// UpdateApprovalRequest is the payload for an organizer approval decision.
type UpdateApprovalRequest struct {
	ApprovalStatus ApprovalStatus `json:"approval_status"`
}

// RegistrationResult is returned after a successful registration.
type RegistrationResult struct {
	Attender *Attender `json:"attender"`
	Message  string    `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Fields  any    `json:"fields,omitempty"`
}
