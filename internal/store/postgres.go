package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS appointment (
	id       BIGSERIAL PRIMARY KEY,
	date     TIMESTAMPTZ NOT NULL,
	location TEXT
);
CREATE INDEX IF NOT EXISTS appointment_date_idx ON appointment (date);
CREATE TABLE IF NOT EXISTS appointment_cat (
	appointment_id BIGINT NOT NULL REFERENCES appointment (id) ON DELETE CASCADE,
	name           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS appointment_employee (
	appointment_id BIGINT NOT NULL REFERENCES appointment (id) ON DELETE CASCADE,
	name           TEXT NOT NULL
);`

const listQuery = `
SELECT a.id, a.date, COALESCE(a.location, ''),
	COALESCE((SELECT array_agg(c.name ORDER BY c.name) FROM appointment_cat c WHERE c.appointment_id = a.id), '{}'),
	COALESCE((SELECT array_agg(e.name ORDER BY e.name) FROM appointment_employee e WHERE e.appointment_id = a.id), '{}')
FROM appointment a
WHERE ($1::timestamptz IS NULL OR a.date >= $1)
  AND ($2::timestamptz IS NULL OR a.date < $2)
ORDER BY a.date, a.id`

// PostgresStore keeps appointments in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to connStr, verifies the connection and creates the
// schema when missing.
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	appLog.Info("postgres appointment store ready", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) List(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, listQuery, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		var a model.Appointment
		err := row.Scan(&a.ID, &a.Date, &a.Location, &a.Cats, &a.Employees)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan appointments: %w", err)
	}
	for i := range out {
		if len(out[i].Cats) == 0 {
			out[i].Cats = nil
		}
		if len(out[i].Employees) == 0 {
			out[i].Employees = nil
		}
	}
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if err := validate(a); err != nil {
		return model.Appointment{}, err
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO appointment (date, location) VALUES ($1, NULLIF($2, '')) RETURNING id`,
			a.Date, a.Location,
		).Scan(&a.ID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, name := range a.Cats {
			batch.Queue(`INSERT INTO appointment_cat (appointment_id, name) VALUES ($1, $2)`, a.ID, name)
		}
		for _, name := range a.Employees {
			batch.Queue(`INSERT INTO appointment_employee (appointment_id, name) VALUES ($1, $2)`, a.ID, name)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return model.Appointment{}, fmt.Errorf("store: create appointment: %w", err)
	}

	appLog.Info("appointment created", "id", a.ID, "date", a.Date.Format(time.RFC3339), "location", a.Location)
	return a, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
