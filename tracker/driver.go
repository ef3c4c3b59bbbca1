package tracker

import (
	"sync"
	"time"
)

// Driver owns the tick cadence of a session. Schedule starts invoking tick
// until Cancel. Ticks never overlap. Cancel must not wait for a tick in
// flight, since a session may be stopped from inside its own callback.
type Driver interface {
	Schedule(tick func()) error
	Cancel()
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TickerDriver ticks from its own goroutine on a time.Ticker. It runs a
// single loop; build a new one per session.
type TickerDriver struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickerDriver creates a driver ticking every interval. A non-positive
// interval falls back to 1/60 s.
func NewTickerDriver(interval time.Duration) *TickerDriver {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerDriver{interval: interval}
}

// Schedule starts the tick goroutine.
func (d *TickerDriver) Schedule(tick func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return ErrDriverBusy
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop, d.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				tick()
			}
		}
	}()
	return nil
}

// Cancel stops scheduling new ticks. It returns without waiting for a tick in
// flight; use Done to wait for the goroutine to exit.
func (d *TickerDriver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return
	}
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
}

// Done returns a channel closed when the tick goroutine has exited. It is nil
// before Schedule.
func (d *TickerDriver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Interval returns the tick interval.
func (d *TickerDriver) Interval() time.Duration { return d.interval }

// ManualDriver ticks only when Tick is called, for hosts that own their
// render loop and for deterministic tests.
type ManualDriver struct {
	mu   sync.Mutex
	tick func()
}

// NewManualDriver creates an unscheduled manual driver.
func NewManualDriver() *ManualDriver {
	return &ManualDriver{}
}

// Schedule registers tick.
func (d *ManualDriver) Schedule(tick func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tick != nil {
		return ErrDriverBusy
	}
	d.tick = tick
	return nil
}

// Cancel unregisters the tick function.
func (d *ManualDriver) Cancel() {
	d.mu.Lock()
	d.tick = nil
	d.mu.Unlock()
}

// Tick runs one tick and reports whether one was scheduled.
func (d *ManualDriver) Tick() bool {
	d.mu.Lock()
	tick := d.tick
	d.mu.Unlock()
	if tick == nil {
		return false
	}
	tick()
	return true
}

// Scheduled reports whether a tick function is registered.
func (d *ManualDriver) Scheduled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tick != nil
}
