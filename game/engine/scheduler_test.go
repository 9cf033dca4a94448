package engine

import (
	"reflect"
	"testing"
	"time"
)

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.Schedule(2*time.Second, func() { order = append(order, "b") })
	h := s.Schedule(time.Second, func() { order = append(order, "never") })
	s.Schedule(time.Second, func() {
		order = append(order, "a")
		s.Schedule(500*time.Millisecond, func() { order = append(order, "a2") })
	})
	s.Cancel(h)

	if n := s.Advance(1500 * time.Millisecond); n != 2 {
		t.Errorf("Expected 2 callbacks, got %d", n)
	}
	if !reflect.DeepEqual(order, []string{"a", "a2"}) {
		t.Errorf("Expected [a a2], got %v", order)
	}
	if s.Now() != 1500*time.Millisecond {
		t.Errorf("Expected virtual time 1.5s, got %v", s.Now())
	}

	s.Advance(time.Second)
	if !reflect.DeepEqual(order, []string{"a", "a2", "b"}) {
		t.Errorf("Expected [a a2 b], got %v", order)
	}
	if s.Pending() != 0 {
		t.Errorf("Expected no pending callbacks, got %d", s.Pending())
	}
}

func TestTimerScheduler(t *testing.T) {
	s := NewTimerScheduler()
	done := make(chan struct{})

	s.Schedule(time.Millisecond, func() { close(done) })
	h := s.Schedule(time.Hour, func() { t.Error("Expected canceled callback not to run") })
	s.Cancel(h)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for callback")
	}
	if s.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", s.Pending())
	}
	s.Cancel(TimerHandle(999))
}

func TestEventWindow(t *testing.T) {
	var w EventWindow

	for _, id := range []int{1, 2, 4} {
		if w.Observe(id) {
			t.Errorf("Expected id %d to be new", id)
		}
	}
	if !w.Observe(2) {
		t.Error("Expected id 2 to be a duplicate")
	}
	if w.Missing() != 1 {
		t.Errorf("Expected 1 missing id, got %d", w.Missing())
	}
	if w.Observe(3) {
		t.Error("Expected late id 3 to be new")
	}
	if w.Missing() != 0 {
		t.Errorf("Expected no missing ids, got %d", w.Missing())
	}

	w.Observe(1000)
	if w.High() != 1000 {
		t.Errorf("Expected high 1000, got %d", w.High())
	}
	if !w.Observe(4) {
		t.Error("Expected ids older than the window to count as duplicates")
	}
	if w.Observe(0) {
		t.Error("Expected id 0 to be ignored")
	}
}
