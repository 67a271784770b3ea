// Package store persists the shelter's appointment book.
//
// Two backends exist: FileStore keeps a YAML file (the default for a single
// machine) and PostgresStore uses a shared PostgreSQL database. Open picks
// one from the configuration.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"apptcal/internal/config"
	"apptcal/internal/model"
)

// ErrInvalidAppointment is returned by Create for an appointment without a date.
var ErrInvalidAppointment = errors.New("store: appointment date is required")

// Store lists and creates appointments.
type Store interface {
	// List returns appointments with from <= Date < to, ordered by date.
	// A zero from or to leaves that side open.
	List(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	// Create assigns an ID to a and persists it.
	Create(ctx context.Context, a model.Appointment) (model.Appointment, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Open returns a PostgresStore when cfg.DatabaseURL is set and a FileStore
// on cfg.AppointmentsFile otherwise.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.DatabaseURL != "" {
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return OpenFile(cfg.AppointmentsFile)
}

func validate(a model.Appointment) error {
	if a.Date.IsZero() {
		return ErrInvalidAppointment
	}
	return nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func sortByDate(list []model.Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date.Equal(list[j].Date) {
			return list[i].ID < list[j].ID
		}
		return list[i].Date.Before(list[j].Date)
	})
}
