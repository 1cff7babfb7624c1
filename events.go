package panorama

import (
	"time"

	"github.com/kelindar/event"
)

// Event type identifiers for kelindar/event. They start at a fixed base so
// that engine events can share a dispatcher with host events numbered from 1.
const (
	TypeFramePresented uint32 = 0x70616e00 + iota + 1
	TypePictureTaken
	TypeRenderQueueCleaned
	TypeTouchesChanged
)

// FramePresented is published after each successful present.
type FramePresented struct {
	// Seq is the frame sequence number, 0 when no frame was available.
	Seq       uint64
	Timestamp time.Duration
	Width     int
	Height    int
	// Dropped is the number of frames the slot has discarded so far.
	Dropped  uint64
	Duration time.Duration
}

// Type returns the event type identifier for FramePresented.
func (e FramePresented) Type() uint32 { return TypeFramePresented }

// PictureTaken is published after TakePicture succeeds.
type PictureTaken struct {
	Seq       uint64
	Timestamp time.Duration
	Width     int
	Height    int
}

// Type returns the event type identifier for PictureTaken.
func (e PictureTaken) Type() uint32 { return TypePictureTaken }

// RenderQueueCleaned is published when CleanRenderQueue returns.
type RenderQueueCleaned struct {
	// Discarded is the number of queued draws removed without presenting.
	Discarded int
}

// Type returns the event type identifier for RenderQueueCleaned.
func (e RenderQueueCleaned) Type() uint32 { return TypeRenderQueueCleaned }

// TouchesChanged is published when a touch begins or ends.
type TouchesChanged struct {
	Count int
}

// Type returns the event type identifier for TouchesChanged.
func (e TouchesChanged) Type() uint32 { return TypeTouchesChanged }

// Subscribe registers handler for events of type T published by e.
// Handlers run on a dispatcher goroutine. The returned function unsubscribes.
// Subscribing to a closed engine that owns its dispatcher does nothing.
//
// Example:
//
//	unsub := panorama.Subscribe(e, func(ev panorama.FramePresented) {
//	    log.Println("presented", ev.Seq)
//	})
//	defer unsub()
func Subscribe[T event.Event](e *Engine, handler func(T)) func() {
	e.eventsMu.RLock()
	defer e.eventsMu.RUnlock()
	if e.eventsClosed {
		return func() {}
	}
	return event.Subscribe(e.events, handler)
}

func publish[T event.Event](e *Engine, ev T) {
	e.eventsMu.RLock()
	defer e.eventsMu.RUnlock()
	if !e.eventsClosed {
		event.Publish(e.events, ev)
	}
}

// closeEvents closes the dispatcher if the engine created it. A dispatcher
// passed with WithDispatcher belongs to the caller.
func (e *Engine) closeEvents() {
	if e.opts.dispatcher != nil {
		return
	}
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	if !e.eventsClosed {
		e.eventsClosed = true
		_ = e.events.Close()
	}
}
