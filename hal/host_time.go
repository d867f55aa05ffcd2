//go:build !tinygo

package hal

import "time"

// lineClock converts elapsed wall time into a number of scanlines due.
type lineClock struct {
	period time.Duration
	limit  int

	last time.Time
	acc  time.Duration
}

func newLineClock(period time.Duration, limit int) *lineClock {
	if period <= 0 {
		period = time.Microsecond
	}
	return &lineClock{period: period, limit: limit}
}

// step returns the lines due at now. After a stall longer than limit lines
// the backlog is dropped rather than replayed.
func (c *lineClock) step(now time.Time) int {
	if c.last.IsZero() {
		c.last = now
		c.acc = 0
		return 1
	}

	c.acc += now.Sub(c.last)
	c.last = now

	n := int(c.acc / c.period)
	if n == 0 {
		return 0
	}
	c.acc = c.acc % c.period
	if c.limit > 0 && n > c.limit {
		n = c.limit
	}
	return n
}
