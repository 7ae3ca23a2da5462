package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type everySchedule time.Duration

func (s everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s))
}

func TestParseSchedule(t *testing.T) {
	schedule, err := ParseSchedule("0 2 * * *")
	require.NoError(t, err)

	from := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC), schedule.Next(from))

	_, err = ParseSchedule("0 0 2 * * *")
	assert.Error(t, err, "seconds field is not accepted")

	_, err = ParseSchedule("not a schedule")
	assert.Error(t, err)
}

func TestScheduledJob_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	job := NewScheduledJob("test", everySchedule(5*time.Millisecond), func(context.Context) error {
		if runs.Add(1) == 2 {
			return errors.New("boom")
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond,
		"a failed run must not stop the schedule")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled job did not stop after cancellation")
	}
}
