// Package effects delivers anchor notifications to whatever wants to react
// to an arm latching onto a wall: stain recorders, sound, observers.
// Delivery is fire and forget, a sink never reports back to the arm.
package effects

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Sink receives anchor notifications. point is the wall contact, direction
// runs from the arm tip to the contact just before the snap.
type Sink interface {
	OnAnchor(point, direction physics.Vector2D)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(point, direction physics.Vector2D)

// OnAnchor calls f
func (f SinkFunc) OnAnchor(point, direction physics.Vector2D) { f(point, direction) }

// Multi fans a notification out to several sinks in order. Nil entries are skipped.
type Multi []Sink

// OnAnchor forwards to every sink. A panicking sink does not stop the
// ones after it; once all have run the failures are re-raised together
// as an error.
func (m Multi) OnAnchor(point, direction physics.Vector2D) {
	var errs []error
	for i, s := range m {
		if s == nil {
			continue
		}
		if err := deliver(s, point, direction); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		panic(errors.Join(errs...))
	}
}

func deliver(s Sink, point, direction physics.Vector2D) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	s.OnAnchor(point, direction)
	return nil
}

// Mark is one recorded anchor contact
type Mark struct {
	Seq       uint64           `json:"seq" msgpack:"seq"`
	Point     physics.Vector2D `json:"point" msgpack:"point"`
	Direction physics.Vector2D `json:"direction" msgpack:"direction"`
}

// DefaultRecorderCapacity bounds the marks kept by NewRecorder(0)
const DefaultRecorderCapacity = 256

// Recorder keeps the most recent anchor marks in a fixed ring. Safe for
// concurrent use.
type Recorder struct {
	mu    sync.Mutex
	marks []Mark
	next  int
	total uint64
}

// NewRecorder creates a recorder holding at most capacity marks
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{marks: make([]Mark, 0, capacity)}
}

// OnAnchor records a mark, overwriting the oldest when full
func (r *Recorder) OnAnchor(point, direction physics.Vector2D) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	m := Mark{Seq: r.total, Point: point, Direction: direction}
	if len(r.marks) < cap(r.marks) {
		r.marks = append(r.marks, m)
		return
	}
	r.marks[r.next] = m
	r.next = (r.next + 1) % len(r.marks)
}

// Marks returns a copy of the retained marks, oldest first
func (r *Recorder) Marks() []Mark {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Mark, 0, len(r.marks))
	out = append(out, r.marks[r.next:]...)
	out = append(out, r.marks[:r.next]...)
	return out
}

// Since returns the retained marks with Seq greater than seq, oldest first
func (r *Recorder) Since(seq uint64) []Mark {
	all := r.Marks()
	for i, m := range all {
		if m.Seq > seq {
			return all[i:]
		}
	}
	return nil
}

// Len is the number of retained marks
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.marks)
}

// Total is the number of marks ever recorded
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Reset drops every mark
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = r.marks[:0]
	r.next = 0
	r.total = 0
}
