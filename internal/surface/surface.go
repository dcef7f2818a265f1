// Package surface implements the container games mount themselves on.
//
// A Surface holds an ordered list of elements (what a client draws) and the
// action handlers games attach to them (what a client can trigger). It is
// not safe for concurrent use; the hub only touches it from its event loop.
package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gameshub/internal/eventloop"
)

var (
	// ErrNoHandler is returned by Dispatch when nothing listens for an action.
	ErrNoHandler = errors.New("surface: no handler for action")
	// ErrDuplicateElement is returned by Append for an ID already mounted.
	ErrDuplicateElement = errors.New("surface: duplicate element id")
	// ErrNoElement is returned by Update for an unknown ID.
	ErrNoElement = errors.New("surface: no such element")
)

// Kind is the kind of a mounted element.
type Kind string

const (
	KindText   Kind = "text"
	KindButton Kind = "button"
	KindCanvas Kind = "canvas"
	KindGroup  Kind = "group"
)

// Element is one mounted piece of a game's UI.
type Element struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Text   string `json:"text,omitempty"`
	Class  string `json:"class,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// View is a snapshot of everything mounted on the surface.
type View struct {
	Seq      uint64    `json:"seq"`
	Elements []Element `json:"elements"`
	Actions  []string  `json:"actions"`
}

// Handler handles a dispatched action. The payload is whatever the client
// sent, possibly empty.
type Handler func(payload json.RawMessage) error

// Surface is the shared mounting container.
type Surface struct {
	sched    eventloop.Scheduler
	elements []*Element
	index    map[string]*Element
	handlers map[string]Handler
	order    []string
	subs     map[int]func(View)
	nextSub  int
	seq      uint64
}

// New creates an empty surface whose games schedule work on sched.
func New(sched eventloop.Scheduler) *Surface {
	return &Surface{
		sched:    sched,
		index:    make(map[string]*Element),
		handlers: make(map[string]Handler),
		subs:     make(map[int]func(View)),
	}
}

// AfterFunc schedules fn on the surface's scheduler.
func (s *Surface) AfterFunc(d time.Duration, fn func()) eventloop.Timer {
	return s.sched.AfterFunc(d, fn)
}

// Every schedules a periodic fn on the surface's scheduler.
func (s *Surface) Every(d time.Duration, fn func(elapsed time.Duration)) eventloop.Timer {
	return s.sched.Every(d, fn)
}

// Append mounts el at the end of the surface.
func (s *Surface) Append(el Element) error {
	if el.ID == "" {
		return fmt.Errorf("surface: element id required")
	}
	if _, ok := s.index[el.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateElement, el.ID)
	}
	e := el
	s.elements = append(s.elements, &e)
	s.index[el.ID] = &e
	s.changed()
	return nil
}

// Update applies fn to a mounted element. The ID cannot be changed.
func (s *Surface) Update(id string, fn func(*Element)) error {
	e, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoElement, id)
	}
	fn(e)
	e.ID = id
	s.changed()
	return nil
}

// SetText is a shorthand for updating an element's text.
func (s *Surface) SetText(id, text string) error {
	return s.Update(id, func(e *Element) { e.Text = text })
}

// Remove unmounts an element. Unknown IDs are ignored.
func (s *Surface) Remove(id string) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, e := range s.elements {
		if e.ID == id {
			s.elements = append(s.elements[:i], s.elements[i+1:]...)
			break
		}
	}
	s.changed()
}

// Get returns a copy of a mounted element.
func (s *Surface) Get(id string) (Element, bool) {
	e, ok := s.index[id]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// Len returns the number of mounted elements.
func (s *Surface) Len() int {
	return len(s.elements)
}

// On registers h for action, replacing any previous handler.
func (s *Surface) On(action string, h Handler) {
	_, replaced := s.handlers[action]
	s.handlers[action] = h
	if !replaced {
		s.order = append(s.order, action)
		s.changed()
	}
}

// Off removes the handler for action.
func (s *Surface) Off(action string) {
	if _, ok := s.handlers[action]; !ok {
		return
	}
	delete(s.handlers, action)
	for i, a := range s.order {
		if a == action {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.changed()
}

// Dispatch invokes the handler registered for action.
func (s *Surface) Dispatch(action string, payload json.RawMessage) error {
	h, ok := s.handlers[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, action)
	}
	return h(payload)
}

// Clear unmounts every element and drops every handler.
func (s *Surface) Clear() {
	s.elements = nil
	s.index = make(map[string]*Element)
	s.handlers = make(map[string]Handler)
	s.order = nil
	s.changed()
}

// View returns a snapshot of the surface.
func (s *Surface) View() View {
	v := View{
		Seq:      s.seq,
		Elements: make([]Element, 0, len(s.elements)),
		Actions:  make([]string, len(s.order)),
	}
	for _, e := range s.elements {
		v.Elements = append(v.Elements, *e)
	}
	copy(v.Actions, s.order)
	return v
}

// Subscribe calls fn with a fresh View after every change. The returned
// function cancels the subscription.
func (s *Surface) Subscribe(fn func(View)) func() {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Surface) changed() {
	s.seq++
	if len(s.subs) == 0 {
		return
	}
	v := s.View()
	for _, fn := range s.subs {
		fn(v)
	}
}
