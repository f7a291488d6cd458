package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestScheduler_Register(t *testing.T) {
	s := New(zap.NewNop())
	noop := func(context.Context) error { return nil }

	assert.ErrorIs(t, s.Register(Task{Name: "", Interval: time.Second, Run: noop}), ErrInvalidTask)
	assert.ErrorIs(t, s.Register(Task{Name: "x", Interval: 0, Run: noop}), ErrInvalidTask)
	assert.ErrorIs(t, s.Register(Task{Name: "x", Interval: time.Second}), ErrInvalidTask)

	require.NoError(t, s.Register(Task{Name: "mail_alert", Interval: time.Minute, Run: noop}))
	assert.ErrorIs(t, s.Register(Task{Name: "mail_alert", Interval: time.Minute, Run: noop}), ErrDuplicateTask)

	s.Start(context.Background())
	defer func() { _ = s.Stop(context.Background()) }()
	assert.ErrorIs(t, s.Register(Task{Name: "late", Interval: time.Minute, Run: noop}), ErrSchedulerRunning)
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(zap.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.Register(Task{
		Name:       "sweep",
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestScheduler_RunNowAndStatus(t *testing.T) {
	s := New(zap.NewNop())
	calls := 0
	require.NoError(t, s.Register(Task{
		Name:     "flaky",
		Interval: time.Hour,
		Run: func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("smtp down")
			}
			return nil
		},
	}))
	require.NoError(t, s.Register(Task{
		Name:     "boom",
		Interval: time.Hour,
		Run:      func(context.Context) error { panic("nil map") },
	}))

	assert.Error(t, s.RunNow(context.Background(), "flaky"))
	require.NoError(t, s.RunNow(context.Background(), "flaky"))
	assert.ErrorContains(t, s.RunNow(context.Background(), "boom"), "panicked")
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrTaskNotFound)

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "flaky", status[0].Name)
	assert.Equal(t, 2, status[0].Runs)
	assert.Equal(t, 1, status[0].Failures)
	assert.Empty(t, status[0].LastError)
	assert.NotNil(t, status[0].LastRunAt)
	assert.Equal(t, 1, status[1].Failures)
	assert.Contains(t, status[1].LastError, "nil map")
}

func TestScheduler_TimeoutIsApplied(t *testing.T) {
	s := New(zap.NewNop())
	require.NoError(t, s.Register(Task{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))
	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), context.DeadlineExceeded)
}
