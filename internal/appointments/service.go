// Package appointments builds the calendar's remote events source: booked
// appointments from the store merged with occurrences of the external ICS
// feeds.
package appointments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"apptcal/internal/calendar"
	"apptcal/internal/ics"
	"apptcal/internal/model"
	"apptcal/internal/store"
)

// OccurrenceSource is the read side of an ICS feed snapshot.
type OccurrenceSource interface {
	Occurrences(from, to time.Time) []model.Occurrence
}

// Service lists calendar events for a date range.
type Service struct {
	store    store.Store
	feed     OccurrenceSource
	labels   map[string]string
	location *time.Location
}

// NewService returns a service over st. feed may be nil when no ICS feed is
// configured; sources provide the tooltip labels of feed events.
func NewService(st store.Store, feed OccurrenceSource, sources []ics.Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	labels := make(map[string]string, len(sources))
	for _, src := range sources {
		labels[src.ID] = src.Label()
	}
	return &Service{store: st, feed: feed, labels: labels, location: loc}
}

// Store returns the underlying appointment store.
func (s *Service) Store() store.Store {
	return s.store
}

// Location returns the display timezone.
func (s *Service) Location() *time.Location {
	return s.location
}

// Events returns the events in [from, to) sorted by start. Store errors are
// returned; the ICS side only ever serves its last snapshot.
func (s *Service) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	appts, err := s.store.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}

	type keyed struct {
		start time.Time
		ev    calendar.Event
	}
	all := make([]keyed, 0, len(appts))
	for _, a := range appts {
		all = append(all, keyed{start: a.Date, ev: s.FromAppointment(a)})
	}
	if s.feed != nil {
		for _, o := range s.feed.Occurrences(from, to) {
			all = append(all, keyed{start: o.Start, ev: s.FromOccurrence(o)})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].start.Before(all[j].start)
	})

	out := make([]calendar.Event, len(all))
	for i, k := range all {
		out[i] = k.ev
	}
	return out, nil
}

// FromAppointment converts a booked appointment into a calendar event.
func (s *Service) FromAppointment(a model.Appointment) calendar.Event {
	return calendar.Event{
		ID:    "appt-" + strconv.FormatInt(a.ID, 10),
		Title: a.Title(),
		Start: a.Date.In(s.location).Format(time.RFC3339),
		ExtendedProps: &calendar.ExtendedProps{
			FullInfo: a.In(s.location).FullInfo(),
			Location: a.Location,
		},
	}
}

// occurrenceID is unique per VEVENT instance: the UID is digested since it
// may hold any characters, and two events of one feed can share a start.
func occurrenceID(o model.Occurrence) string {
	sum := sha256.Sum256([]byte(o.UID))
	return "ics-" + o.SourceID + "-" + hex.EncodeToString(sum[:6]) + "-" + o.InstanceKey
}

// FromOccurrence converts one ICS occurrence into a calendar event. The
// tooltip joins the feed label, location and description.
func (s *Service) FromOccurrence(o model.Occurrence) calendar.Event {
	ev := calendar.Event{
		ID:     occurrenceID(o),
		Title:  strings.TrimSpace(o.Summary),
		AllDay: o.AllDay,
	}
	if ev.Title == "" {
		ev.Title = model.DefaultTitle
	}
	if o.AllDay {
		ev.Start = o.Start.Format(time.DateOnly)
		ev.End = o.End.Format(time.DateOnly)
	} else {
		ev.Start = o.Start.In(s.location).Format(time.RFC3339)
		ev.End = o.End.In(s.location).Format(time.RFC3339)
	}

	var parts []string
	if label := s.labels[o.SourceID]; label != "" {
		parts = append(parts, label)
	}
	if loc := strings.TrimSpace(o.Location); loc != "" {
		parts = append(parts, loc)
	}
	if desc := strings.TrimSpace(o.Description); desc != "" {
		parts = append(parts, desc)
	}
	ev.ExtendedProps = &calendar.ExtendedProps{
		FullInfo: strings.Join(parts, " · "),
		Location: o.Location,
		Source:   o.SourceID,
	}
	return ev
}
