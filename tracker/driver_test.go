package tracker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualDriver(t *testing.T) {
	d := NewManualDriver()
	assert.False(t, d.Tick(), "nothing scheduled")

	var n int
	require.NoError(t, d.Schedule(func() { n++ }))
	assert.ErrorIs(t, d.Schedule(func() {}), ErrDriverBusy)
	assert.True(t, d.Scheduled())

	assert.True(t, d.Tick())
	assert.True(t, d.Tick())
	assert.Equal(t, 2, n)

	d.Cancel()
	d.Cancel()
	assert.False(t, d.Tick())
	assert.Equal(t, 2, n)
}

func TestManualDriver_CancelFromTick(t *testing.T) {
	d := NewManualDriver()
	require.NoError(t, d.Schedule(func() { d.Cancel() }))

	assert.True(t, d.Tick())
	assert.False(t, d.Scheduled())
}

func TestTickerDriver(t *testing.T) {
	d := NewTickerDriver(time.Millisecond)
	assert.Equal(t, time.Millisecond, d.Interval())

	var n atomic.Int64
	require.NoError(t, d.Schedule(func() { n.Add(1) }))
	assert.ErrorIs(t, d.Schedule(func() {}), ErrDriverBusy)

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)

	d.Cancel()
	d.Cancel()
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("tick goroutine did not exit")
	}

	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, n.Load())
}

func TestTickerDriver_DefaultInterval(t *testing.T) {
	assert.Equal(t, time.Second/60, NewTickerDriver(0).Interval())
	assert.Nil(t, NewTickerDriver(time.Second).Done())
}
