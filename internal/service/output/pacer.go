package output

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Pacer spaces frames to a fixed rate by sleeping until the next frame slot.
// When the caller falls more than a frame behind, the schedule restarts from
// now instead of bursting to catch up.
type Pacer struct {
	clock    clock.Clock
	interval time.Duration
	next     time.Time
}

// NewPacer returns a Pacer for fps frames per second.
func NewPacer(clk clock.Clock, fps int) *Pacer {
	p := &Pacer{clock: clk}
	if fps > 0 {
		p.interval = time.Second / time.Duration(fps)
	}
	return p
}

// Wait blocks until the next frame slot.
func (p *Pacer) Wait() {
	if d := p.delay(); d > 0 {
		p.clock.Sleep(d)
	}
}

// delay returns how long to sleep for the current slot and books the next one.
func (p *Pacer) delay() time.Duration {
	if p.interval <= 0 {
		return 0
	}
	now := p.clock.Now()
	if p.next.IsZero() || now.Sub(p.next) > p.interval {
		p.next = now
	}
	d := p.next.Sub(now)
	p.next = p.next.Add(p.interval)
	return d
}

// FallbackInterval is the fixed per-frame sleep used when there is no device:
// 1000/fps whole milliseconds.
func FallbackInterval(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(1000/fps) * time.Millisecond
}
