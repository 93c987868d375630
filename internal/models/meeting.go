package models

import (
	"fmt"
	"strings"
	"time"
)

// Meeting represents a calendar event in a provider-neutral form.
type Meeting struct {
	UID         string     // iCalendar UID, used for briefed-state tracking
	Title       string     // Summary or title of the meeting
	Description string     // Detailed description
	StartTime   time.Time  // Start time
	EndTime     time.Time  // End time
	Location    string     // Location, if any
	Organizer   string     // Organizer's email
	Attendees   []Attendee // Everyone on the invite
	AllDay      bool       // True when DTSTART is date-valued
	Source      string     // Which calendar source produced this meeting
}

// Attendee is a single person on a meeting invite.
type Attendee struct {
	Email  string // Lowercased email address
	Name   string // Display name (CN), may be empty
	Status string // Participation status: ACCEPTED, DECLINED, NEEDS-ACTION, ...
}

// Contact is a CRM record loaded from the local contact directory.
type Contact struct {
	Email   string            `json:"email"`
	Name    string            `json:"name,omitempty"`
	Company string            `json:"company,omitempty"`
	Title   string            `json:"title,omitempty"`
	Notes   string            `json:"notes,omitempty"` // path to a notes file, relative to the CRM dir
	Extra   map[string]string `json:"-"`
}

// ID returns the stable identifier used to record that a meeting was briefed.
// Combining the UID with the start time means a rescheduled meeting gets
// briefed again.
func (m *Meeting) ID() string {
	return fmt.Sprintf("%s_%s", m.UID, m.StartTime.Format(time.RFC3339))
}

// Declined reports whether the attendee with the given email has declined.
func (m *Meeting) Declined(email string) bool {
	email = strings.ToLower(email)
	for _, a := range m.Attendees {
		if a.Email == email && strings.EqualFold(a.Status, "DECLINED") {
			return true
		}
	}
	return false
}

// DisplayName returns the attendee's name, falling back to the local part of
// the email address.
func (a Attendee) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if local, _, ok := strings.Cut(a.Email, "@"); ok {
		return local
	}
	return a.Email
}

// Domain returns the domain of the attendee's email address, or "".
func (a Attendee) Domain() string {
	if _, domain, ok := strings.Cut(a.Email, "@"); ok {
		return domain
	}
	return ""
}
