package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptcal/internal/config"
	"apptcal/internal/model"
)

func TestFileStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "appointments.yaml")

	s, err := OpenFile(path)
	require.NoError(t, err)

	may1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	may3 := time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC)
	june := time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC)

	for _, a := range []model.Appointment{
		{Date: may3, Location: "Refuge"},
		{Date: june, Location: "Clinique"},
		{Date: may1, Location: "Clinique", Cats: []string{"Minou"}, Employees: []string{"Alice"}},
	} {
		_, err := s.Create(ctx, a)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, may1, all[0].Date)
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, []string{"Minou"}, all[0].Cats)

	may, err := s.List(ctx, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, may, 2)
	assert.Equal(t, "Clinique", may[0].Location)
	assert.Equal(t, "Refuge", may[1].Location)

	// Reopen from disk.
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	again, err := reopened.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, again, 3)

	created, err := reopened.Create(ctx, model.Appointment{Date: june.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
}

func TestFileStoreRejectsZeroDate(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "a.yaml"))
	require.NoError(t, err)

	_, err = s.Create(context.Background(), model.Appointment{Location: "x"})
	assert.ErrorIs(t, err, ErrInvalidAppointment)
}

func TestOpenFileRepairsNextID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.yaml")
	data := `
appointments:
  - id: 12
    date: 2024-05-01T10:00:00Z
    location: Clinique
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)

	a, err := s.Create(context.Background(), model.Appointment{Date: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(13), a.ID)
}

func TestOpenFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.yaml")
	require.NoError(t, os.WriteFile(path, []byte("appointments: {"), 0o600))

	_, err := OpenFile(path)
	assert.ErrorContains(t, err, "store: parse")
}

func TestOpenSelectsFileWithoutDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AppointmentsFile = filepath.Join(t.TempDir(), "a.yaml")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}
