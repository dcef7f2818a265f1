// Package eventlooptest provides a manually advanced scheduler for tests.
package eventlooptest

import (
	"sort"
	"time"

	"gameshub/internal/eventloop"
)

// Scheduler is an eventloop.Scheduler driven by Advance instead of the wall
// clock. Callbacks run synchronously inside Advance, in due order.
type Scheduler struct {
	now    time.Duration
	nextID int
	timers []*timer
}

var _ eventloop.Scheduler = (*Scheduler)(nil)

type timer struct {
	id      int
	due     time.Duration
	period  time.Duration
	last    time.Duration
	once    func()
	every   func(time.Duration)
	stopped bool
}

func (t *timer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc implements eventloop.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) eventloop.Timer {
	return s.add(&timer{due: s.now + d, once: fn})
}

// Every implements eventloop.Scheduler.
func (s *Scheduler) Every(d time.Duration, fn func(time.Duration)) eventloop.Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	return s.add(&timer{due: s.now + d, period: d, last: s.now, every: fn})
}

func (s *Scheduler) add(t *timer) *timer {
	s.nextID++
	t.id = s.nextID
	s.timers = append(s.timers, t)
	return t
}

// Pending reports how many timers are still scheduled.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (s *Scheduler) Advance(d time.Duration) {
	end := s.now + d
	for {
		t := s.next(end)
		if t == nil {
			break
		}
		s.now = t.due
		if t.every != nil {
			elapsed := s.now - t.last
			t.last = s.now
			t.due += t.period
			t.every(elapsed)
			continue
		}
		t.stopped = true
		t.once()
	}
	s.now = end
	s.compact()
}

func (s *Scheduler) next(end time.Duration) *timer {
	var due []*timer
	for _, t := range s.timers {
		if !t.stopped && t.due <= end {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due == due[j].due {
			return due[i].id < due[j].id
		}
		return due[i].due < due[j].due
	})
	return due[0]
}

func (s *Scheduler) compact() {
	kept := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped {
			kept = append(kept, t)
		}
	}
	s.timers = kept
}
