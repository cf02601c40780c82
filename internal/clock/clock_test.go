package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayStartIsLocalMidnight(t *testing.T) {
	c, err := New("UTC")
	require.NoError(t, err)

	start := c.TodayStart()
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, 0, start.Second())
}

func TestTodayEndIsOneNanosecondBeforeNextMidnight(t *testing.T) {
	c, err := New("UTC")
	require.NoError(t, err)

	end := c.TodayEnd()
	start := c.TodayStart()
	assert.Equal(t, start.Add(24*time.Hour).Add(-time.Nanosecond), end)
}

func TestStartOfDayUsesClockTimezone(t *testing.T) {
	c, err := New("UTC")
	require.NoError(t, err)

	in := time.Date(2026, 3, 15, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), c.StartOfDay(in))
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New("Not/A_Zone")
	assert.Error(t, err)
}

func TestMidnightTimerFiresAndRearms(t *testing.T) {
	c, err := New("UTC")
	require.NoError(t, err)

	var mu sync.Mutex
	fired := 0
	done := make(chan struct{})
	timer := NewMidnightTimer(c, nil, func(time.Time) {
		mu.Lock()
		fired++
		n := fired
		mu.Unlock()
		if n == 1 {
			close(done)
		}
	})

	// Force an immediate fire instead of waiting for real midnight.
	timer.fire()
	<-done
	assert.NotNil(t, timer.timer, "fire must re-arm the timer for the next midnight")
	timer.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fired)
}

func TestMidnightTimerStopPreventsRearm(t *testing.T) {
	c, err := New("UTC")
	require.NoError(t, err)

	timer := NewMidnightTimer(c, nil, func(time.Time) {})
	timer.Stop()
	timer.fire() // after Stop, fire must be a no-op and must not arm a new timer
	assert.Nil(t, timer.timer)
}

func TestMidnightTimerRecoversHandlerPanic(t *testing.T) {
	c, err := New("UTC")
	require.NoError(t, err)

	timer := NewMidnightTimer(c, nil, func(time.Time) { panic("boom") })
	assert.NotPanics(t, func() {
		timer.fire()
		timer.Stop()
	})
}
