package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New("every now and then")
	assert.Error(t, err)

	_, err = New("*/15 * * * *")
	assert.NoError(t, err)
	_, err = New("@hourly")
	assert.NoError(t, err)
}

func TestRunOnceRunsAllJobs(t *testing.T) {
	var order []string
	s, err := New("@hourly",
		Job{Name: "ics", Run: func(context.Context) error {
			order = append(order, "ics")
			return errors.New("feed down")
		}},
		Job{Name: "preview", Run: func(context.Context) error {
			order = append(order, "preview")
			return nil
		}},
	)
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "ics: feed down")
	assert.Equal(t, []string{"ics", "preview"}, order)
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@hourly", Job{Name: "x", Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.RunOnce(ctx), context.Canceled)
	assert.Equal(t, int32(0), runs.Load())
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := New("@hourly", Job{Name: "x", Run: func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "second start is rejected")

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run at startup")
	}

	s.Stop()
	s.Stop()
}
