package clock_test

import (
	"testing"
	"time"

	"github.com/aretw0/statecraft/pkg/clock"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	c := clock.NewManual(epoch)
	var fired []string

	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "b") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "c") })

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(500*time.Millisecond), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestManual_StopPreventsFire(t *testing.T) {
	c := clock.NewManual(epoch)
	fired := false

	timer := c.AfterFunc(100*time.Millisecond, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports already stopped")

	c.Advance(time.Second)
	assert.False(t, fired)
}

func TestManual_CallbackSeesDeadlineTime(t *testing.T) {
	c := clock.NewManual(epoch)
	var seen time.Time
	c.AfterFunc(250*time.Millisecond, func() { seen = c.Now() })

	c.Advance(time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), seen)
}

func TestManual_ChainedTimersInsideWindow(t *testing.T) {
	c := clock.NewManual(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			c.AfterFunc(100*time.Millisecond, tick)
		}
	}
	c.AfterFunc(100*time.Millisecond, tick)

	c.Advance(time.Second)
	assert.Equal(t, 3, count)
}

func TestReal_AfterFunc(t *testing.T) {
	c := clock.New()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock callback did not fire")
	}
}
