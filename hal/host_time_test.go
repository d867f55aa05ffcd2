//go:build !tinygo

package hal

import (
	"testing"
	"time"
)

func TestLineClockStep(t *testing.T) {
	now := time.Unix(0, 0)
	c := newLineClock(64*time.Microsecond, 100)

	if n := c.step(now); n != 1 {
		t.Fatalf("first step = %d, want 1", n)
	}

	now = now.Add(30 * time.Microsecond)
	if n := c.step(now); n != 0 {
		t.Fatalf("step after 30us = %d, want 0", n)
	}

	// Remainders accumulate across steps.
	now = now.Add(40 * time.Microsecond)
	if n := c.step(now); n != 1 {
		t.Fatalf("step after 70us = %d, want 1", n)
	}

	now = now.Add(640 * time.Microsecond)
	if n := c.step(now); n != 10 {
		t.Fatalf("step after 640us = %d, want 10", n)
	}
}

func TestLineClockDropsBacklog(t *testing.T) {
	now := time.Unix(0, 0)
	c := newLineClock(64*time.Microsecond, 100)
	c.step(now)

	now = now.Add(time.Second)
	if n := c.step(now); n != 100 {
		t.Fatalf("step after stall = %d, want 100", n)
	}
	now = now.Add(64 * time.Microsecond)
	if n := c.step(now); n > 2 {
		t.Fatalf("step after stall recovery = %d, want at most 2", n)
	}
}
