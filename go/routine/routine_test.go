package routine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoutineRunsOnTicker(t *testing.T) {
	var runs atomic.Int32
	r := New("test-ticker", func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil).WithTicker(5 * time.Millisecond)
	r.Start(context.Background())
	defer r.Close()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestRoutineRunsOnSignal(t *testing.T) {
	signal := make(chan struct{})
	var runs atomic.Int32
	r := New("test-signal", func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil).WithSignal(signal)
	r.Start(context.Background())
	defer r.Close()

	// Runs once on start, then waits.
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	signal <- struct{}{}
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)
}

func TestRoutineRetriesFailures(t *testing.T) {
	var runs atomic.Int32
	signal := make(chan struct{})
	r := New("test-retry", func(context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil).WithSignal(signal).WithConstantBackOff(time.Millisecond)
	r.Start(context.Background())
	defer r.Close()

	require.Eventually(t, func() bool { return runs.Load() == 3 }, time.Second, time.Millisecond)
	require.Never(t, func() bool { return runs.Load() > 3 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRoutineStopsAfterMaxConsecutiveErrors(t *testing.T) {
	permanent := make(chan error, 1)
	r := New("test-max-errors", func(context.Context) error {
		return errors.New("always failing")
	}, func(err error) { permanent <- err }).WithMaxConsecutiveErrors(3)
	r.Start(context.Background())

	select {
	case err := <-permanent:
		require.ErrorIs(t, err, &PermanentError{})
		require.ErrorContains(t, err, "exceeded max consecutive errors (3): always failing")
	case <-time.After(time.Second):
		t.Fatal("routine did not stop")
	}
	<-r.Done()
	r.Close()
}

func TestRoutineTimeout(t *testing.T) {
	deadlines := make(chan bool, 1)
	r := New("test-timeout", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		select {
		case deadlines <- ok:
		default:
		}
		return nil
	}, nil).WithTimeout(time.Second).WithTicker(time.Hour)
	r.Start(context.Background())
	defer r.Close()

	require.True(t, <-deadlines)
}

func TestCloseInParallel(t *testing.T) {
	routines := make([]*Routine, 3)
	for i := range routines {
		routines[i] = New("test-close", func(context.Context) error { return nil }, nil).WithTicker(time.Hour).Start(context.Background())
	}
	CloseInParallel(routines...)
	for _, r := range routines {
		select {
		case <-r.Done():
		default:
			t.Fatal("routine still running")
		}
	}
}

func TestCloseBeforeStart(t *testing.T) {
	New("test-unstarted", func(context.Context) error { return nil }, nil).Close()
}

func TestNewPermanentError(t *testing.T) {
	cause := errors.New("cause")
	err := NewPermanentError("wrapping %s: %w", "thing", cause)
	require.EqualError(t, err, "permanent error: wrapping thing: cause")
	require.ErrorIs(t, err, cause)
}
