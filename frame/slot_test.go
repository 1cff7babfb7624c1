package frame

import (
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newImage(w int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, 1))
}

func TestSlotEmpty(t *testing.T) {
	s := NewSlot()
	if f, ok := s.Current(); ok || f != nil {
		t.Errorf("Current() on empty slot = %v, %v", f, ok)
	}
	if h, ok := s.Acquire(); ok || h != nil {
		t.Errorf("Acquire() on empty slot = %v, %v", h, ok)
	}
}

func TestSlotLatestWins(t *testing.T) {
	s := NewSlot()
	for i := 1; i <= 5; i++ {
		s.Submit(newImage(i), time.Duration(i)*time.Second)
		f, ok := s.Current()
		if !ok {
			t.Fatalf("Current() after submit %d returned nothing", i)
		}
		if f.Timestamp != time.Duration(i)*time.Second {
			t.Errorf("Current().Timestamp = %v, want %v", f.Timestamp, time.Duration(i)*time.Second)
		}
		if f.Seq != uint64(i) {
			t.Errorf("Current().Seq = %d, want %d", f.Seq, i)
		}
	}
}

func TestSlotCurrentIsStable(t *testing.T) {
	s := NewSlot()
	s.Submit(newImage(1), 0)
	a, _ := s.Current()
	b, _ := s.Current()
	if a != b {
		t.Error("repeated Current() calls returned different frames")
	}
}

func TestSlotDropAccounting(t *testing.T) {
	s := NewSlot()
	s.Submit(newImage(1), 0)
	s.Submit(newImage(2), time.Second) // F1 never drawn

	h, ok := s.Acquire()
	if !ok {
		t.Fatal("Acquire() returned nothing")
	}
	if h.Frame().Timestamp != time.Second {
		t.Errorf("acquired %v, want the frame at 1s", h.Frame().Timestamp)
	}
	h.Release()

	s.Submit(newImage(3), 2*time.Second) // F2 was drawn

	st := s.Stats()
	if st.Submitted != 3 {
		t.Errorf("Submitted = %d, want 3", st.Submitted)
	}
	if st.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", st.Dropped)
	}
	if st.Released != 2 {
		t.Errorf("Released = %d, want 2", st.Released)
	}
}

func TestSlotReleaseWaitsForHandles(t *testing.T) {
	s := NewSlot()
	var released atomic.Int32
	s.Submit(newImage(1), 0, WithRelease(func() { released.Add(1) }))

	h, _ := s.Acquire()
	s.Submit(newImage(2), time.Second)
	if released.Load() != 0 {
		t.Fatal("frame released while a draw still holds it")
	}

	h.Release()
	h.Release() // idempotent
	if released.Load() != 1 {
		t.Errorf("release hook ran %d times, want 1", released.Load())
	}
}

func TestSlotReset(t *testing.T) {
	s := NewSlot()
	var released atomic.Bool
	s.Submit(newImage(1), 0, WithRelease(func() { released.Store(true) }))
	s.Reset()
	if _, ok := s.Current(); ok {
		t.Error("Current() after Reset returned a frame")
	}
	if !released.Load() {
		t.Error("Reset did not release the stored frame")
	}
	s.Reset() // no-op on empty slot
}

func TestSlotSubmitFromReleaseHook(t *testing.T) {
	s := NewSlot()
	var resubmitted atomic.Bool
	s.Submit(newImage(1), 0, WithRelease(func() {
		if resubmitted.CompareAndSwap(false, true) {
			s.Submit(newImage(9), 9*time.Second)
		}
	}))
	s.Submit(newImage(2), time.Second)

	f, _ := s.Current()
	if f.Timestamp != 9*time.Second {
		t.Errorf("Current().Timestamp = %v, want 9s", f.Timestamp)
	}
}

func TestSlotConcurrentNeverOlder(t *testing.T) {
	s := NewSlot()
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			s.Submit(newImage(1), time.Duration(i))
		}
	}()
	go func() {
		defer wg.Done()
		var last uint64
		for range n {
			h, ok := s.Acquire()
			if !ok {
				continue
			}
			f := h.Frame()
			if f.Seq < last {
				t.Errorf("observed seq %d after %d", f.Seq, last)
			}
			if time.Duration(f.Seq) != f.Timestamp {
				t.Errorf("torn frame: seq %d timestamp %d", f.Seq, f.Timestamp)
			}
			last = f.Seq
			h.Release()
		}
	}()
	wg.Wait()

	f, _ := s.Current()
	if f.Seq != n {
		t.Errorf("final Seq = %d, want %d", f.Seq, n)
	}
}
