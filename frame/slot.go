// Package frame holds the latest decoded video frame between the producer
// and the render loop.
//
// The Slot is a single-entry mailbox with overwrite semantics: a producer
// submitting faster than the display refresh silently replaces frames that
// were never drawn. Memory stays bounded to one stored frame plus the frames
// currently borrowed by in-flight draws.
package frame

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one decoded image with its source timestamp.
//
// Image must not be modified after Submit. The slot owns the frame until it
// is displaced and every borrowed Handle has been released.
type Frame struct {
	Image     image.Image
	Timestamp time.Duration
	Seq       uint64

	release  func()
	refs     int  // slot reference + outstanding handles; guarded by Slot.mu
	acquired bool // drawn at least once; guarded by Slot.mu
}

// SubmitOption configures a submitted frame.
type SubmitOption func(*Frame)

// WithRelease registers fn to be called once the frame is no longer stored
// in the slot and no draw holds it. Producers use it to recycle buffers.
func WithRelease(fn func()) SubmitOption {
	return func(f *Frame) {
		f.release = fn
	}
}

// Handle is a read-only borrow of a frame for the duration of one draw.
type Handle struct {
	slot  *Slot
	frame *Frame
	once  sync.Once
}

// Frame returns the borrowed frame.
func (h *Handle) Frame() *Frame {
	return h.frame
}

// Release returns the borrow. It is safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.slot.unref(h.frame)
	})
}

// Stats is a snapshot of slot counters.
type Stats struct {
	Submitted uint64 // frames passed to Submit
	Dropped   uint64 // frames displaced before any draw acquired them
	Released  uint64 // frames whose release hook has run (or would have)
}

// Slot stores the most recent frame.
//
// Slot is safe for concurrent use by one or more producers and readers.
// The critical section of every method is O(1).
type Slot struct {
	mu      sync.Mutex
	current *Frame

	seq       atomic.Uint64
	submitted atomic.Uint64
	dropped   atomic.Uint64
	released  atomic.Uint64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Submit stores img as the current frame and displaces the previous one.
// It never blocks on readers.
func (s *Slot) Submit(img image.Image, ts time.Duration, opts ...SubmitOption) *Frame {
	f := &Frame{
		Image:     img,
		Timestamp: ts,
		Seq:       s.seq.Add(1),
		refs:      1,
	}
	for _, opt := range opts {
		opt(f)
	}
	s.submitted.Add(1)

	s.mu.Lock()
	prev := s.current
	s.current = f
	var done *Frame
	if prev != nil {
		if !prev.acquired {
			s.dropped.Add(1)
		}
		if prev.refs--; prev.refs == 0 {
			done = prev
		}
	}
	s.mu.Unlock()

	s.finish(done)
	return f
}

// Current returns the latest frame without removing it.
// Repeated calls between two Submits return the same frame.
func (s *Slot) Current() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// Acquire borrows the current frame for one draw. The frame stays alive
// until the handle is released even if it is displaced meanwhile.
func (s *Slot) Acquire() (*Handle, bool) {
	s.mu.Lock()
	f := s.current
	if f == nil {
		s.mu.Unlock()
		return nil, false
	}
	f.refs++
	f.acquired = true
	s.mu.Unlock()
	return &Handle{slot: s, frame: f}, true
}

// Reset removes the stored frame.
func (s *Slot) Reset() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	var done *Frame
	if prev != nil {
		if prev.refs--; prev.refs == 0 {
			done = prev
		}
	}
	s.mu.Unlock()
	s.finish(done)
}

// Stats returns the slot counters.
func (s *Slot) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Dropped:   s.dropped.Load(),
		Released:  s.released.Load(),
	}
}

func (s *Slot) unref(f *Frame) {
	s.mu.Lock()
	f.refs--
	last := f.refs == 0
	s.mu.Unlock()
	if last {
		s.finish(f)
	}
}

// finish runs the release hook outside the lock so producers may submit
// from inside it.
func (s *Slot) finish(f *Frame) {
	if f == nil {
		return
	}
	s.released.Add(1)
	if f.release != nil {
		f.release()
	}
}
