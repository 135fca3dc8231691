package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesSpec(t *testing.T) {
	_, err := New("gap-check", "not a cron spec", time.UTC, func() {}, nil)
	require.Error(t, err)

	s, err := New("gap-check", DailySpec(6, 15), time.UTC, func() {}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gap-check", s.JobName())
}

func TestSpecs(t *testing.T) {
	assert.Equal(t, "15 6 * * *", DailySpec(6, 15))
	assert.Equal(t, "0 * * * *", HourlySpec())
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s, err := New("gap-check", DailySpec(6, 15), time.UTC, func() {}, nil)
	require.NoError(t, err)

	assert.False(t, s.Running())
	assert.True(t, s.NextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	first := s.NextRun()
	assert.False(t, first.IsZero())

	// Starting again must not reschedule.
	require.NoError(t, s.Start())
	assert.Equal(t, first, s.NextRun())

	s.Stop()
	assert.False(t, s.Running())
	assert.True(t, s.NextRun().IsZero())

	s.Stop() // no-op
	assert.False(t, s.Running())
}

func TestScheduler_Restart(t *testing.T) {
	s, err := New("gap-check", HourlySpec(), time.UTC, func() {}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	s.Stop()
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	s.Stop()
}

func TestScheduler_NextRunMatchesSpec(t *testing.T) {
	s, err := New("gap-check", DailySpec(6, 15), time.UTC, func() {}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.NextRun()
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 15, next.Minute())
	assert.True(t, next.After(time.Now().Add(-time.Minute)))
}
