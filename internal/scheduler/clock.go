package scheduler

import "time"

// Clock is a free-running millisecond counter. It wraps at 2^32 like a
// microcontroller millis() timer; callers must compare readings with Elapsed.
type Clock interface {
	Millis() uint32
}

type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Elapsed returns now-last in modular uint32 arithmetic, which is correct
// across a single wraparound of the counter.
func Elapsed(now, last uint32) uint32 {
	return now - last
}

// Millis converts d to a counter interval, saturating at the counter width.
func Millis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > int64(^uint32(0)):
		return ^uint32(0)
	default:
		return uint32(ms)
	}
}
