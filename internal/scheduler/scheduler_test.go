package scheduler

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	now uint32
}

func (c *fakeClock) Millis() uint32 { return c.now }

func TestElapsedAcrossWraparound(t *testing.T) {
	last := uint32(0xFFFFFF00)
	now := uint32(0x00000100)

	if got := Elapsed(now, last); got != 0x200 {
		t.Fatalf("expected elapsed 512 across wrap, got %d", got)
	}
	if got := Elapsed(last, last); got != 0 {
		t.Fatalf("expected zero elapsed, got %d", got)
	}
}

func TestEntryFiresOnlyAfterInterval(t *testing.T) {
	clk := &fakeClock{}
	s := New(clk)

	runs := 0
	e, err := s.Add("sample", 1000*time.Millisecond, func(context.Context) { runs++ })
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	clk.now = 1000
	if s.RunPending(context.Background()) != 0 || runs != 0 {
		t.Fatalf("entry must not fire when elapsed equals interval")
	}
	if e.Last != 0 {
		t.Fatalf("last fire must not move without firing, got %d", e.Last)
	}

	clk.now = 1001
	if s.RunPending(context.Background()) != 1 || runs != 1 {
		t.Fatalf("entry should fire once elapsed exceeds interval")
	}
	if e.Last != 1001 {
		t.Fatalf("expected last fire 1001, got %d", e.Last)
	}

	if s.RunPending(context.Background()) != 0 || runs != 1 {
		t.Fatalf("entry fired twice in the same millisecond")
	}
}

func TestEntryDoesNotStickOrSpinOnWrap(t *testing.T) {
	clk := &fakeClock{now: 0xFFFFFE00}
	s := New(clk)

	runs := 0
	if _, err := s.Add("conn", 500*time.Millisecond, func(context.Context) { runs++ }); err != nil {
		t.Fatalf("add: %v", err)
	}

	// 0xFFFFFE00 + 0x1F5 = 0xFFFFFFF5, still short of the interval.
	clk.now = 0xFFFFFFF4
	s.RunPending(context.Background())
	if runs != 0 {
		t.Fatalf("fired early")
	}

	// Counter has wrapped; 0x200 + 0x0A = 522ms elapsed.
	clk.now = 0x0000000A
	s.RunPending(context.Background())
	if runs != 1 {
		t.Fatalf("expected one run after wrap, got %d", runs)
	}

	for i := 0; i < 10; i++ {
		s.RunPending(context.Background())
	}
	if runs != 1 {
		t.Fatalf("entry kept firing after wrap: %d runs", runs)
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	clk := &fakeClock{}
	s := New(clk)

	var order []string
	add := func(name string, d time.Duration) {
		if _, err := s.Add(name, d, func(context.Context) { order = append(order, name) }); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	add("conn", 500*time.Millisecond)
	add("temp", 10*time.Second)
	add("humidity", 10*time.Second)

	conn := 0
	for ms := uint32(0); ms <= 20002; ms++ {
		clk.now = ms
		before := len(order)
		s.RunPending(context.Background())
		for _, name := range order[before:] {
			if name == "conn" {
				conn++
			}
		}
		switch ms {
		case 10001, 20002:
			got := order[before:]
			if len(got) < 2 || got[len(got)-2] != "temp" || got[len(got)-1] != "humidity" {
				t.Fatalf("at %dms expected temp and humidity to fire, got %v", ms, got)
			}
		}
	}

	if conn != 39 {
		t.Fatalf("expected connection entry to fire 39 times, got %d", conn)
	}

	samples := 0
	for _, name := range order {
		if name != "conn" {
			samples++
		}
	}
	if samples != 4 {
		t.Fatalf("expected two sampling passes per entry, got %d runs", samples)
	}
}

func TestAddRejectsBadEntries(t *testing.T) {
	s := New(&fakeClock{})

	if _, err := s.Add("zero", 0, func(context.Context) {}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := s.Add("nil", time.Second, nil); err == nil {
		t.Fatalf("expected error for nil task")
	}
}
