package appointments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptcal/internal/calendar"
	"apptcal/internal/ics"
	"apptcal/internal/model"
)

type memStore struct {
	appts []model.Appointment
	err   error
}

func (m *memStore) List(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Appointment
	for _, a := range m.appts {
		if (from.IsZero() || !a.Date.Before(from)) && (to.IsZero() || a.Date.Before(to)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, a model.Appointment) (model.Appointment, error) {
	a.ID = int64(len(m.appts) + 1)
	m.appts = append(m.appts, a)
	return a, nil
}

func (m *memStore) Ping(context.Context) error { return m.err }
func (m *memStore) Close() error               { return nil }

type staticFeed []model.Occurrence

func (f staticFeed) Occurrences(time.Time, time.Time) []model.Occurrence { return f }

func TestEventsMergesStoreAndFeed(t *testing.T) {
	st := &memStore{appts: []model.Appointment{
		{ID: 2, Date: time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC), Location: "Refuge"},
		{ID: 1, Date: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), Location: "Clinique", Cats: []string{"Minou"}},
	}}
	feed := staticFeed{{
		SourceID:    "vet",
		UID:         "u1",
		InstanceKey: "2024-05-02T10:00:00Z",
		Summary:     "Permanence",
		Description: "Sans rendez-vous",
		Start:       time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
	}}
	svc := NewService(st, feed, []ics.Source{{ID: "vet", Name: "Vétérinaire"}}, time.UTC)

	events, err := svc.Events(context.Background(),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, calendar.Event{
		ID:    "appt-1",
		Title: "Clinique",
		Start: "2024-05-01T08:00:00Z",
		ExtendedProps: &calendar.ExtendedProps{
			FullInfo: "08:00 · Clinique · Chats : Minou",
			Location: "Clinique",
		},
	}, events[0])

	assert.Equal(t, occurrenceID(model.Occurrence{SourceID: "vet", UID: "u1", InstanceKey: "2024-05-02T10:00:00Z"}), events[1].ID)
	assert.True(t, strings.HasPrefix(events[1].ID, "ics-vet-"))
	assert.True(t, strings.HasSuffix(events[1].ID, "-2024-05-02T10:00:00Z"))
	assert.Equal(t, "Permanence", events[1].Title)
	assert.Equal(t, "2024-05-02T12:00:00Z", events[1].End)
	assert.Equal(t, "Vétérinaire · Sans rendez-vous", events[1].FullInfo())
	assert.Equal(t, "vet", events[1].ExtendedProps.Source)

	assert.Equal(t, "appt-2", events[2].ID)
}

func TestEventsUsesDisplayTimezone(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	st := &memStore{appts: []model.Appointment{
		{ID: 1, Date: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
	}}
	svc := NewService(st, nil, nil, paris)

	events, err := svc.Events(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-05-01T10:00:00+02:00", events[0].Start)
	assert.Equal(t, "Rendez-vous", events[0].Title)
	assert.Equal(t, "10:00 · Rendez-vous", events[0].FullInfo())
}

func TestEventsStoreError(t *testing.T) {
	svc := NewService(&memStore{err: errors.New("db down")}, nil, nil, time.UTC)
	_, err := svc.Events(context.Background(), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "db down")
}

func TestFromOccurrenceAllDay(t *testing.T) {
	svc := NewService(&memStore{}, nil, nil, time.UTC)
	ev := svc.FromOccurrence(model.Occurrence{
		SourceID:    "holidays",
		InstanceKey: "k",
		AllDay:      true,
		Start:       time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC),
	})

	assert.True(t, ev.AllDay)
	assert.Equal(t, "2024-05-08", ev.Start)
	assert.Equal(t, "2024-05-09", ev.End)
	assert.Equal(t, "Rendez-vous", ev.Title)
	assert.Empty(t, ev.FullInfo())
	// Falls back to the title in the tooltip.
	assert.Equal(t, "Rendez-vous", calendar.TooltipFor(ev).Title)
}

func TestEventsDistinctIDsForSameStart(t *testing.T) {
	const feedICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:a@x\r\nDTSTART:20240502T100000Z\r\nDTEND:20240502T110000Z\r\nSUMMARY:Vaccin Minou\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:b@x\r\nDTSTART:20240502T100000Z\r\nDTEND:20240502T110000Z\r\nSUMMARY:Sterilisation Tigrou\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	src := ics.Source{ID: "vet", Name: "Vétérinaire"}
	parsed, err := ics.ParseICS(src, []byte(feedICS))
	require.NoError(t, err)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, expanded.Occurrences, 2)

	svc := NewService(&memStore{}, staticFeed(expanded.Occurrences), []ics.Source{src}, time.UTC)
	events, err := svc.Events(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.ElementsMatch(t, []string{"Vaccin Minou", "Sterilisation Tigrou"}, []string{events[0].Title, events[1].Title})
}
