package room

import "time"

type timerEvent struct {
	epoch uint64
	fn    func()
}

// phaseClock owns the single scheduler timer of a room. Every arm or stop
// bumps the epoch, so a callback that was already in flight when its timer
// got replaced is recognised as stale and dropped.
type phaseClock struct {
	scheduler Scheduler
	post      func(timerEvent) bool
	id        int64
	oneShot   bool
	epoch     uint64
}

func newPhaseClock(scheduler Scheduler, post func(timerEvent) bool) *phaseClock {
	return &phaseClock{scheduler: scheduler, post: post}
}

// arm replaces whatever timer is running. fn runs on the room loop.
func (c *phaseClock) arm(delay, interval time.Duration, fn func()) {
	c.stop()
	epoch, post := c.epoch, c.post
	c.oneShot = interval <= 0
	c.id = c.scheduler.AddTimer(delay, interval, func() {
		post(timerEvent{epoch: epoch, fn: fn})
	})
}

func (c *phaseClock) stop() {
	if c.id != 0 {
		c.scheduler.RemoveTimer(c.id)
		c.id = 0
	}
	c.epoch++
}

func (c *phaseClock) fire(ev timerEvent) {
	if ev.epoch != c.epoch {
		return
	}
	if c.oneShot {
		c.id = 0
	}
	ev.fn()
}
