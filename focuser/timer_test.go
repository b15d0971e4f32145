package focuser

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleTimerFiresOnce(t *testing.T) {
	var n atomic.Int32
	it := NewIdleTimer(func() { n.Add(1) })
	it.Start(10 * time.Millisecond)
	assert.True(t, it.Pending())
	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
	assert.False(t, it.Pending())
}

func TestIdleTimerCancel(t *testing.T) {
	var n atomic.Int32
	it := NewIdleTimer(func() { n.Add(1) })
	it.Start(10 * time.Millisecond)
	it.Cancel()
	assert.False(t, it.Pending())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())

	// cancel of a stopped timer is harmless
	it.Cancel()
}

func TestIdleTimerRestartReplacesSchedule(t *testing.T) {
	var n atomic.Int32
	it := NewIdleTimer(func() { n.Add(1) })
	it.Start(10 * time.Millisecond)
	it.Start(10 * time.Millisecond)
	it.Reset(10 * time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load(), "only the latest schedule may fire")
}

func TestIdleTimerResetPostponesDeadline(t *testing.T) {
	fired := make(chan time.Time, 1)
	it := NewIdleTimer(func() { fired <- time.Now() })
	start := time.Now()
	it.Start(40 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	it.Reset(40 * time.Millisecond)
	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 60*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}
