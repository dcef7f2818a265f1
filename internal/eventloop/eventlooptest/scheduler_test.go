package eventlooptest

import (
	"testing"
	"time"
)

func TestAdvanceFiresInOrder(t *testing.T) {
	var s Scheduler
	var got []string
	s.AfterFunc(30*time.Millisecond, func() { got = append(got, "b") })
	s.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })

	s.Advance(20 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected [a], got %v", got)
	}
	s.Advance(20 * time.Millisecond)
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", s.Pending())
	}
}

func TestStoppedTimerDoesNotFire(t *testing.T) {
	var s Scheduler
	fired := false
	tm := s.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("expected Stop to report pending")
	}
	s.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestEvery(t *testing.T) {
	var s Scheduler
	var elapsed []time.Duration
	tm := s.Every(10*time.Millisecond, func(d time.Duration) { elapsed = append(elapsed, d) })

	s.Advance(35 * time.Millisecond)
	if len(elapsed) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(elapsed))
	}
	for _, d := range elapsed {
		if d != 10*time.Millisecond {
			t.Fatalf("expected 10ms ticks, got %v", d)
		}
	}
	tm.Stop()
	s.Advance(time.Second)
	if len(elapsed) != 3 {
		t.Fatalf("expected no ticks after Stop, got %d", len(elapsed))
	}
}
