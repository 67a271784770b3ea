package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"apptcal/internal/calendar"
	appLog "apptcal/internal/log"
)

type rangeKey struct {
	from, to int64
}

type eventsCacheEntry struct {
	events    []calendar.Event
	updatedAt time.Time
}

// Layouts accepted for the start/end query parameters the calendar widget
// sends when it fetches a visible range.
var rangeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

func parseRangeParam(v string, loc *time.Location) (time.Time, error) {
	// An unescaped "+" offset arrives as a space.
	v = strings.ReplaceAll(v, " ", "+")
	for _, layout := range rangeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

// visibleRange reads start/end. Without them it spans the previous, current
// and next month around now.
func (s *Server) visibleRange(r *http.Request) (time.Time, time.Time, error) {
	loc := s.svc.Location()
	q := r.URL.Query()

	now := s.now().In(loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	from := monthStart.AddDate(0, -1, 0)
	to := monthStart.AddDate(0, 2, 0)

	if v := q.Get("start"); v != "" {
		t, err := parseRangeParam(v, loc)
		if err != nil {
			return from, to, fmt.Errorf("start: %w", err)
		}
		from = t
	}
	if v := q.Get("end"); v != "" {
		t, err := parseRangeParam(v, loc)
		if err != nil {
			return from, to, fmt.Errorf("end: %w", err)
		}
		to = t
	}
	if !to.After(from) {
		return from, to, errors.New("end must be after start")
	}
	return from, to, nil
}

// handleAppointmentsAPI is the calendar's remote events source.
//
// GET /api/appointments?start=2024-04-29T00:00:00+02:00&end=2024-06-10T00:00:00+02:00
//
// The response is a bare JSON array of events
// ({id, title, start, end?, allDay?, extendedProps?}).
func (s *Server) handleAppointmentsAPI(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.visibleRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := rangeKey{from: from.Unix(), to: to.Unix()}
	now := time.Now()

	s.eventsMu.RLock()
	entry, ok := s.eventsCache[key]
	s.eventsMu.RUnlock()
	if ok && now.Sub(entry.updatedAt) < eventsCacheTTL {
		writeJSON(w, http.StatusOK, entry.events)
		return
	}

	events, err := s.svc.Events(r.Context(), from, to)
	if err != nil {
		appLog.Error("api appointments: list failed", err,
			"start", from.Format(time.RFC3339), "end", to.Format(time.RFC3339))
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}

	s.eventsMu.Lock()
	for k, e := range s.eventsCache {
		if now.Sub(e.updatedAt) >= eventsCacheTTL {
			delete(s.eventsCache, k)
		}
	}
	s.eventsCache[key] = eventsCacheEntry{events: events, updatedAt: now}
	s.eventsMu.Unlock()

	appLog.Debug("api appointments", "start", from.Format(time.RFC3339), "end", to.Format(time.RFC3339), "count", len(events))
	s.metrics.EventsServed(len(events))
	writeJSON(w, http.StatusOK, events)
}

// invalidateEvents drops every cached range, e.g. after a booking.
func (s *Server) invalidateEvents() {
	s.eventsMu.Lock()
	clear(s.eventsCache)
	s.eventsMu.Unlock()
}
