package session

import (
	"sync"
	"time"
)

// Countdown is a cancellable countdown clock at 1-second resolution.
// It emits the remaining seconds to an optional subscriber on every tick and
// invokes the expiry callback exactly once when the remaining time reaches
// zero, then stops ticking. Stop guarantees no callback fires afterwards.
//
// Instances are independent and single-use; create a new Countdown per
// session rather than restarting one.
type Countdown struct {
	interval time.Duration
	duration int

	onTick   func(remaining int)
	onExpire func()

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCountdown builds a countdown over durationSeconds with the standard
// 1-second tick. A duration of 0 fires expiry immediately on Start.
func NewCountdown(durationSeconds int, onTick func(remaining int), onExpire func()) *Countdown {
	return NewCountdownWithInterval(durationSeconds, time.Second, onTick, onExpire)
}

// NewCountdownWithInterval is NewCountdown with an injectable tick interval.
// Tests use short intervals; production code uses NewCountdown.
func NewCountdownWithInterval(durationSeconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return &Countdown{
		interval: interval,
		duration: durationSeconds,
		onTick:   onTick,
		onExpire: onExpire,
		stopCh:   make(chan struct{}),
	}
}

// Start begins ticking in a background goroutine. A zero duration invokes
// the expiry callback synchronously before Start returns.
func (c *Countdown) Start() {
	if c.duration == 0 {
		if c.onExpire != nil {
			c.onExpire()
		}
		return
	}
	go c.run()
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	remaining := c.duration
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			// Re-check cancellation after waking so a Stop that raced the
			// tick still wins.
			select {
			case <-c.stopCh:
				return
			default:
			}

			remaining--
			if c.onTick != nil {
				c.onTick(remaining)
			}
			if remaining <= 0 {
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
		}
	}
}

// Stop cancels the countdown. Idempotent, and safe to call from within the
// expiry callback.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
