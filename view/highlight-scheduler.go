package view

import (
	"sync"
	"time"
)

type HighlightClass string

const (
	HighlightClass_Row  HighlightClass = "row"
	HighlightClass_Cell HighlightClass = "cell"
)

const DefaultHighlightDwell = 1500 * time.Millisecond

type highlight struct {
	tag   Tag
	timer Timer
}

// HighlightScheduler owns the time boxed highlight states keyed by price.
//
// Every (class, price) pair is Inactive until triggered, then Active with the
// latest tag until the dwell time passes without another trigger. A re-trigger
// stops the pending timer and starts a new one. An expiry only removes the
// entry that armed it, so a timer that already fired while a re-trigger was
// holding the lock leaves the newer entry alone.
type HighlightScheduler struct {
	mu    sync.Mutex
	clock Clock
	dwell time.Duration

	rows  map[string]*highlight
	cells map[string]*highlight

	onChange func(class HighlightClass, active int)
}

func NewHighlightScheduler(clock Clock, dwell time.Duration) *HighlightScheduler {
	if clock == nil {
		clock = RuntimeClock
	}
	if dwell <= 0 {
		dwell = DefaultHighlightDwell
	}

	return &HighlightScheduler{
		clock: clock,
		dwell: dwell,
		rows:  make(map[string]*highlight),
		cells: make(map[string]*highlight),
	}
}

// OnChange registers fn to be called with the number of active highlights of
// a class every time that number may have changed. fn runs under the
// scheduler lock and must not call back into the scheduler.
func (s *HighlightScheduler) OnChange(fn func(class HighlightClass, active int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onChange = fn
}

func (s *HighlightScheduler) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(HighlightClass_Row, len(s.rows))
	s.onChange(HighlightClass_Cell, len(s.cells))
}

func (s *HighlightScheduler) Trigger(changes ChangeSet) {
	if changes.IsEmpty() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for price, tag := range changes.Rows {
		s.arm(s.rows, price, tag)
	}
	for price, tag := range changes.Cells {
		s.arm(s.cells, price, tag)
	}
	s.notify()
}

func (s *HighlightScheduler) arm(states map[string]*highlight, price string, tag Tag) {
	if current, ok := states[price]; ok {
		current.timer.Stop()
	}

	h := &highlight{tag: tag}
	h.timer = s.clock.AfterFunc(s.dwell, func() {
		s.expire(states, price, h)
	})
	states[price] = h
}

func (s *HighlightScheduler) expire(states map[string]*highlight, price string, h *highlight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if states[price] == h {
		delete(states, price)
		s.notify()
	}
}

// CancelAll stops every pending timer and drops all highlights.
func (s *HighlightScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, states := range []map[string]*highlight{s.rows, s.cells} {
		for price, h := range states {
			h.timer.Stop()
			delete(states, price)
		}
	}
	s.notify()
}

func (s *HighlightScheduler) Rows() map[string]Tag {
	return s.snapshot(HighlightClass_Row)
}

func (s *HighlightScheduler) Cells() map[string]Tag {
	return s.snapshot(HighlightClass_Cell)
}

// Active returns the tag currently shown for price in class.
func (s *HighlightScheduler) Active(class HighlightClass, price string) (Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.states(class)[price]
	if !ok {
		return "", false
	}
	return h.tag, true
}

func (s *HighlightScheduler) Len(class HighlightClass) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.states(class))
}

func (s *HighlightScheduler) snapshot(class HighlightClass) map[string]Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := s.states(class)
	result := make(map[string]Tag, len(states))
	for price, h := range states {
		result[price] = h.tag
	}

	return result
}

func (s *HighlightScheduler) states(class HighlightClass) map[string]*highlight {
	if class == HighlightClass_Cell {
		return s.cells
	}
	return s.rows
}
