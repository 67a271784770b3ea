package model

import (
	"strings"
	"time"
)

// DefaultTitle labels an appointment that has no location.
const DefaultTitle = "Rendez-vous"

// Appointment is a single booked slot in the shelter's appointment book.
type Appointment struct {
	ID       int64     `yaml:"id" json:"id"`
	Date     time.Time `yaml:"date" json:"date"`
	Location string    `yaml:"location,omitempty" json:"location,omitempty"`

	// Cats and Employees hold display names of the participants.
	Cats      []string `yaml:"cats,omitempty" json:"cats,omitempty"`
	Employees []string `yaml:"employees,omitempty" json:"employees,omitempty"`
}

// Title is the short label shown on the calendar grid.
func (a Appointment) Title() string {
	if s := strings.TrimSpace(a.Location); s != "" {
		return s
	}
	return DefaultTitle
}

// In returns a copy of a with Date converted to loc.
func (a Appointment) In(loc *time.Location) Appointment {
	a.Date = a.Date.In(loc)
	return a
}

// FullInfo is the long-form description used for hover tooltips, e.g.
// "10:00 · Clinique du Parc · Chats : Minou, Tigrou · Employés : Alice".
func (a Appointment) FullInfo() string {
	parts := []string{a.Date.Format("15:04"), a.Title()}
	if len(a.Cats) > 0 {
		parts = append(parts, "Chats : "+strings.Join(a.Cats, ", "))
	}
	if len(a.Employees) > 0 {
		parts = append(parts, "Employés : "+strings.Join(a.Employees, ", "))
	}
	return strings.Join(parts, " · ")
}

// Occurrence represents a single concrete instance of an event from an
// external ICS feed (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // feed ID from config
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
