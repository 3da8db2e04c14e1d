// Package calendar renders events as iCalendar (RFC 5545) files.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/gatherly/gatherly-api/internal/model"
)

// ProductID identifies the generator in PRODID.
const ProductID = "-//Gatherly//Events//EN"

// DefaultDuration is used when an event has no end time.
const DefaultDuration = time.Hour

// ErrInvalidEvent is returned when an event lacks the fields a calendar entry needs.
var ErrInvalidEvent = errors.New("invalid calendar event")

// Build renders e as a single-event calendar with a one hour reminder.
func Build(e *model.Event) (string, error) {
	return BuildAt(e, time.Now())
}

// BuildAt is Build with an explicit DTSTAMP.
func BuildAt(e *model.Event, stamp time.Time) (string, error) {
	if e == nil {
		return "", fmt.Errorf("%w: no event", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if e.StartsAt.IsZero() {
		return "", fmt.Errorf("%w: start time is required", ErrInvalidEvent)
	}

	start := e.StartsAt.UTC()
	end := start.Add(DefaultDuration)
	if e.EndsAt != nil && e.EndsAt.After(e.StartsAt) {
		end = e.EndsAt.UTC()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)

	ev := cal.AddEvent(uid(e))
	ev.SetDtStampTime(stamp.UTC())
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(e.Title)
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	if e.OrganizerEmail != "" {
		var params []ics.PropertyParameter
		if e.OrganizerName != "" {
			params = append(params, ics.WithCN(e.OrganizerName))
		}
		ev.SetOrganizer("mailto:"+e.OrganizerEmail, params...)
	}
	ev.SetStatus(ics.ObjectStatusConfirmed)
	ev.SetProperty(ics.ComponentPropertyTransp, "OPAQUE")
	ev.SetProperty(ics.ComponentProperty("X-MICROSOFT-CDO-BUSYSTATUS"), "BUSY")

	alarm := ev.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger("-PT1H")
	alarm.SetProperty(ics.ComponentPropertyDescription, "Reminder: "+e.Title)

	return cal.Serialize(), nil
}

// FileName is a download name for the event's calendar file.
func FileName(e *model.Event) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, strings.TrimSpace(e.Title))
	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		slug = "event"
	}
	return slug + ".ics"
}

// uid is stable per event so re-imports update rather than duplicate.
func uid(e *model.Event) string {
	if _, err := uuid.Parse(e.ID); err == nil {
		return e.ID + "@gatherly"
	}
	return uuid.NewString() + "@gatherly"
}
