package engine

import (
	"sort"
	"sync"
	"time"
)

// TimerHandle identifies a scheduled callback. The zero handle is never issued.
type TimerHandle uint64

// Scheduler runs deferred, cancelable callbacks
type Scheduler interface {
	Schedule(d time.Duration, fn func()) TimerHandle
	Cancel(h TimerHandle)
}

// TimerScheduler schedules on the wall clock with time.AfterFunc
type TimerScheduler struct {
	mu     sync.Mutex
	next   TimerHandle
	timers map[TimerHandle]*time.Timer
}

// NewTimerScheduler creates a wall-clock scheduler
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[TimerHandle]*time.Timer)}
}

// Schedule runs fn after d on its own goroutine
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, h)
		s.mu.Unlock()
		fn()
	})
	return h
}

// Cancel stops a pending callback. Unknown handles are ignored.
func (s *TimerScheduler) Cancel(h TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending returns the number of callbacks not yet fired
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler fires callbacks only when Advance is called, on the
// calling goroutine. It drives bots deterministically in tests and
// simulations.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	next    TimerHandle
	pending map[TimerHandle]manualTimer
}

type manualTimer struct {
	due time.Duration
	seq TimerHandle
	fn  func()
}

// NewManualScheduler creates a scheduler at virtual time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[TimerHandle]manualTimer)}
}

// Schedule registers fn to fire d after the current virtual time
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = manualTimer{due: s.now + d, seq: s.next, fn: fn}
	return s.next
}

// Cancel drops a pending callback
func (s *ManualScheduler) Cancel(h TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// Pending returns the number of callbacks not yet fired
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Now returns the virtual time
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves virtual time forward by d, firing every callback that comes
// due in order, including callbacks scheduled by earlier ones. It returns the
// number fired.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	until := s.now + d
	s.mu.Unlock()

	fired := 0
	for {
		s.mu.Lock()
		var due []manualTimer
		for _, t := range s.pending {
			if t.due <= until {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = until
			s.mu.Unlock()
			return fired
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].due != due[j].due {
				return due[i].due < due[j].due
			}
			return due[i].seq < due[j].seq
		})
		first := due[0]
		delete(s.pending, first.seq)
		s.now = first.due
		s.mu.Unlock()

		first.fn()
		fired++
	}
}
