package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

func TestMockClock_AdvanceFiresInDeadlineOrder(t *testing.T) {
	clock := NewMockClock(epoch)
	var fired []string

	clock.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "c") })
	clock.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	clock.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "b") })

	clock.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(250*time.Millisecond), clock.Now())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Zero(t, clock.Pending())
}

func TestMockClock_SameDeadlineKeepsRegistrationOrder(t *testing.T) {
	clock := NewMockClock(epoch)
	var fired []int
	for i := 0; i < 5; i++ {
		i := i // per-iteration copy; the go directive is below 1.22
		clock.AfterFunc(0, func() { fired = append(fired, i) })
	}

	clock.Advance(0)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, fired)
}

func TestMockClock_StoppedTimerNeverFires(t *testing.T) {
	clock := NewMockClock(epoch)
	called := false
	timer := clock.AfterFunc(time.Second, func() { called = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports inactive")

	clock.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestMockClock_ChainedTimersFireWithinOneAdvance(t *testing.T) {
	clock := NewMockClock(epoch)
	var at []time.Time

	var step func()
	step = func() {
		at = append(at, clock.Now())
		if len(at) < 3 {
			clock.AfterFunc(700*time.Millisecond, step)
		}
	}
	clock.AfterFunc(0, step)

	clock.Advance(1400 * time.Millisecond)
	require.Len(t, at, 3)
	assert.Equal(t, epoch, at[0])
	assert.Equal(t, epoch.Add(700*time.Millisecond), at[1])
	assert.Equal(t, epoch.Add(1400*time.Millisecond), at[2])
}

func TestRealClock_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	RealClock{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
