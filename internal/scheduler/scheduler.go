// Package scheduler implements a single-threaded cooperative scheduler.
//
// Every pass checks each entry in declaration order and runs the ones whose
// interval has elapsed. Tasks run on the caller's goroutine; a task that
// blocks holds up every other entry until it returns.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

type Task func(ctx context.Context)

type Entry struct {
	Name     string
	Interval uint32
	Last     uint32
	Fired    uint64
	task     Task
}

type Scheduler struct {
	clock   Clock
	entries []*Entry
}

func New(clock Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Add registers a task. The entry's last fire time starts at the current
// clock value, so the first run happens one interval after registration.
func (s *Scheduler) Add(name string, interval time.Duration, task Task) (*Entry, error) {
	ms := Millis(interval)
	if ms == 0 {
		return nil, fmt.Errorf("entry %q: interval must be positive, got %s", name, interval)
	}
	if task == nil {
		return nil, fmt.Errorf("entry %q: nil task", name)
	}

	e := &Entry{
		Name:     name,
		Interval: ms,
		Last:     s.clock.Millis(),
		task:     task,
	}
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Scheduler) Entries() []*Entry {
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Due reports whether more than interval milliseconds have passed since last.
func Due(now, last, interval uint32) bool {
	return Elapsed(now, last) > interval
}

// RunPending performs one pass over all entries and returns how many fired.
// The clock is sampled per entry so a long task does not skew later checks.
func (s *Scheduler) RunPending(ctx context.Context) int {
	fired := 0
	for _, e := range s.entries {
		now := s.clock.Millis()
		if !Due(now, e.Last, e.Interval) {
			continue
		}
		e.Last = now
		e.Fired++
		e.task(ctx)
		fired++
	}
	return fired
}
