package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"apptcal/internal/fsutil"
	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

// fileBook is the on-disk YAML document.
type fileBook struct {
	NextID       int64               `yaml:"next_id"`
	Appointments []model.Appointment `yaml:"appointments"`
}

// FileStore keeps the appointment book in a single YAML file. The whole book
// is held in memory and rewritten on every Create.
type FileStore struct {
	path string

	mu   sync.RWMutex
	book fileBook
}

// OpenFile loads the book at path. A missing file is an empty book; it is
// created on the first Create.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: appointments file path is empty")
	}
	s := &FileStore{path: path, book: fileBook{NextID: 1}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("appointments file not found; starting empty book", "path", path)
			return s, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s.book); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}
	// Hand-edited files may lack next_id or carry a stale one.
	for _, a := range s.book.Appointments {
		if a.ID >= s.book.NextID {
			s.book.NextID = a.ID + 1
		}
	}
	if s.book.NextID < 1 {
		s.book.NextID = 1
	}

	appLog.Info("appointments file loaded", "path", path, "count", len(s.book.Appointments))
	return s, nil
}

func (s *FileStore) List(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Appointment, 0, len(s.book.Appointments))
	for _, a := range s.book.Appointments {
		if inRange(a.Date, from, to) {
			out = append(out, a)
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *FileStore) Create(_ context.Context, a model.Appointment) (model.Appointment, error) {
	if err := validate(a); err != nil {
		return model.Appointment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.book.NextID
	next := fileBook{
		NextID:       a.ID + 1,
		Appointments: append(append([]model.Appointment(nil), s.book.Appointments...), a),
	}

	data, err := yaml.Marshal(&next)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("store: marshal book: %w", err)
	}
	if err := fsutil.WriteAtomic(s.path, data); err != nil {
		return model.Appointment{}, fmt.Errorf("store: write %s: %w", s.path, err)
	}

	s.book = next
	appLog.Info("appointment created", "id", a.ID, "date", a.Date.Format(time.RFC3339), "location", a.Location)
	return a, nil
}

// Ping reports an error when the book file exists but cannot be stat'ed.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
