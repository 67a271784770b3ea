package ics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

// Default expansion window around "now" used by Feed.Refresh.
const (
	DefaultBackfill = 92 * 24 * time.Hour
	DefaultHorizon  = 366 * 24 * time.Hour
)

// Feed keeps the last expanded occurrences of a set of ICS sources. Refresh
// replaces the snapshot per source; a source that fails keeps its previous
// occurrences.
type Feed struct {
	sources  []Source
	fetcher  *Fetcher
	location *time.Location

	Backfill time.Duration
	Horizon  time.Duration
	Now      func() time.Time

	mu       sync.RWMutex
	bySource map[string][]model.Occurrence
	updated  time.Time
}

// NewFeed returns an empty feed over sources. loc is the display timezone.
func NewFeed(sources []Source, fetcher *Fetcher, loc *time.Location) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{
		sources:  sources,
		fetcher:  fetcher,
		location: loc,
		Backfill: DefaultBackfill,
		Horizon:  DefaultHorizon,
		Now:      time.Now,
		bySource: make(map[string][]model.Occurrence),
	}
}

// Sources returns the configured sources.
func (f *Feed) Sources() []Source {
	return f.sources
}

// Refresh fetches, parses and expands every source. The returned error joins
// per-source failures; successful sources are applied regardless.
func (f *Feed) Refresh(ctx context.Context) error {
	if len(f.sources) == 0 {
		return nil
	}

	now := f.Now().In(f.location)
	cfg := ExpandConfig{
		DisplayLocation: f.location,
		RangeStart:      now.Add(-f.Backfill),
		RangeEnd:        now.Add(f.Horizon),
	}

	results, fetchErr := f.fetcher.FetchAll(ctx, f.sources)
	errs := []error{fetchErr}

	fresh := make(map[string][]model.Occurrence, len(results))
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", res.Source.ID)
			errs = append(errs, err)
			continue
		}
		expanded, err := ExpandOccurrences(parsed, cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fresh[res.Source.ID] = expanded.Occurrences
	}

	f.mu.Lock()
	for id, occ := range fresh {
		f.bySource[id] = occ
	}
	f.updated = time.Now()
	total := 0
	for _, occ := range f.bySource {
		total += len(occ)
	}
	f.mu.Unlock()

	appLog.Info("ics feeds refreshed", "sources", len(f.sources), "refreshed", len(fresh), "occurrences", total)
	return errors.Join(errs...)
}

// Occurrences returns the snapshot occurrences overlapping [from, to),
// sorted by start. A zero bound is open.
func (f *Feed) Occurrences(from, to time.Time) []model.Occurrence {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []model.Occurrence
	for _, occs := range f.bySource {
		for _, o := range occs {
			if !to.IsZero() && !o.Start.Before(to) {
				continue
			}
			if !from.IsZero() && !overlapsFrom(o, from) {
				continue
			}
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].UID < out[j].UID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// overlapsFrom reports whether o extends past from. An occurrence without a
// positive duration counts as the instant at its start.
func overlapsFrom(o model.Occurrence, from time.Time) bool {
	if !o.End.After(o.Start) {
		return !o.Start.Before(from)
	}
	return o.End.After(from)
}

// Updated returns the time of the last Refresh, zero before the first.
func (f *Feed) Updated() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}
