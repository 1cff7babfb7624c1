package panorama

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/panorama/frame"
	"github.com/gogpu/panorama/render"
)

// StartRendering switches to continuous rendering: one draw per vsync tick.
// Ticks that find the render queue full are skipped, so a slow draw never
// stalls the vsync source or the producer. Calling it while already
// continuous is a no-op.
func (e *Engine) StartRendering() error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.loopMu.Lock()
	defer e.loopMu.Unlock()

	e.suspended.Store(false)
	if e.stopTick != nil {
		return nil
	}

	src := e.opts.vsync
	var ticker *time.Ticker
	if src == nil {
		ticker = time.NewTicker(time.Duration(float64(time.Second) / e.opts.refreshRate))
		src = ticker.C
	}
	stop, done := make(chan struct{}), make(chan struct{})
	e.stopTick, e.tickDone = stop, done
	go e.tick(src, ticker, stop, done)

	Logger().Info("panorama: continuous rendering started", "rate", e.opts.refreshRate, "vsync", e.opts.vsync != nil)
	return nil
}

// StartDrawSingleFrame stops continuous rendering and queues exactly one
// draw and present.
func (e *Engine) StartDrawSingleFrame() error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.loopMu.Lock()
	defer e.loopMu.Unlock()

	e.stopTickingLocked()
	e.suspended.Store(false)
	e.drain()
	select {
	case e.queue <- struct{}{}:
	default:
	}
	return nil
}

// CleanRenderQueue stops continuous rendering, discards queued draws and
// waits for the draw in progress. After it returns no draw touches the
// surface until StartRendering or StartDrawSingleFrame is called.
func (e *Engine) CleanRenderQueue() {
	e.loopMu.Lock()
	e.suspended.Store(true)
	e.stopTickingLocked()
	n := e.drain()
	e.loopMu.Unlock()

	// A draw dequeued before suspension either finishes here or sees the
	// flag once it gets the lock.
	e.drawMu.Lock()
	e.drawMu.Unlock() //nolint:staticcheck // empty critical section waits for the in-flight draw

	if n > 0 {
		e.cancelled.Add(uint64(n))
		e.metrics.draws.WithLabelValues(outcomeCancelled).Add(float64(n))
	}
	publish(e, RenderQueueCleaned{Discarded: n})
	Logger().Debug("panorama: render queue cleaned", "discarded", n)
}

// ResetRenderBuffer drops the backing target. The next draw allocates a
// new one at the current viewport size.
func (e *Engine) ResetRenderBuffer() {
	e.surfMu.Lock()
	e.target = nil
	e.surfMu.Unlock()
}

// Resize overrides the viewport size and resets the render buffer. Passing
// zero for both dimensions follows the surface size again.
func (e *Engine) Resize(width, height int) error {
	if width == 0 && height == 0 {
		e.surfMu.Lock()
		e.viewport = image.Point{}
		e.target = nil
		e.surfMu.Unlock()
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", render.ErrInvalidDimensions, width, height)
	}
	e.surfMu.Lock()
	e.viewport = image.Pt(width, height)
	e.target = nil
	e.surfMu.Unlock()
	return nil
}

// ReleaseDevice cleans the render queue and detaches the surface. Later
// draws are skipped until InitDevice is called again.
func (e *Engine) ReleaseDevice() {
	e.CleanRenderQueue()
	e.surfMu.Lock()
	had := e.surface != nil
	e.surface = nil
	e.target = nil
	e.surfMu.Unlock()

	e.touches.Reset()
	e.mu.Lock()
	e.state.panning = false
	e.mu.Unlock()
	if had {
		Logger().Info("panorama: device released")
	}
}

// run is the render goroutine.
func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.queue:
			e.drawQueued()
		}
	}
}

// tick forwards vsync ticks to the render queue until stop is closed.
func (e *Engine) tick(src <-chan time.Time, ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if ticker != nil {
		defer ticker.Stop()
	}
	for {
		select {
		case <-stop:
			return
		case <-e.done:
			return
		case _, ok := <-src:
			if !ok {
				return
			}
			select {
			case e.queue <- struct{}{}:
			default:
				e.ticksSkipped.Add(1)
				e.metrics.ticksSkipped.Inc()
			}
		}
	}
}

// stopTickingLocked stops the vsync goroutine and waits for it to exit.
// Caller holds loopMu.
func (e *Engine) stopTickingLocked() {
	if e.stopTick == nil {
		return
	}
	close(e.stopTick)
	<-e.tickDone
	e.stopTick, e.tickDone = nil, nil
}

// drain removes queued draws and returns how many were removed.
func (e *Engine) drain() int {
	n := 0
	for {
		select {
		case <-e.queue:
			n++
		default:
			return n
		}
	}
}

func (e *Engine) drawQueued() {
	e.drawMu.Lock()
	defer e.drawMu.Unlock()
	if e.suspended.Load() {
		e.cancelled.Add(1)
		e.metrics.draws.WithLabelValues(outcomeCancelled).Inc()
		return
	}
	e.drawLocked()
}

// drawLocked renders the current frame and presents it. Caller holds drawMu.
func (e *Engine) drawLocked() {
	start := time.Now()

	surface, target, err := e.acquireTarget()
	if err != nil {
		e.notReady.Add(1)
		e.metrics.draws.WithLabelValues(outcomeNotReady).Inc()
		Logger().Debug("panorama: draw skipped", "err", err)
		return
	}

	var f *frame.Frame
	if h, ok := e.slot.Acquire(); ok {
		defer h.Release()
		f = h.Frame()
	}

	v := e.snapshot()
	if v.showTouches {
		e.updateHits(v, target.Width(), target.Height())
	}
	e.compose(target, f, v)

	if err := surface.Present(target.Image()); err != nil {
		e.failed.Add(1)
		e.metrics.draws.WithLabelValues(outcomeFailed).Inc()
		Logger().Warn("panorama: present failed", "err", err)
		return
	}

	elapsed := time.Since(start)
	e.presented.Add(1)
	e.metrics.draws.WithLabelValues(outcomePresented).Inc()
	e.metrics.drawDuration.Observe(elapsed.Seconds())

	ev := FramePresented{
		Width:    target.Width(),
		Height:   target.Height(),
		Dropped:  e.slot.Stats().Dropped,
		Duration: elapsed,
	}
	if f != nil {
		ev.Seq, ev.Timestamp = f.Seq, f.Timestamp
	}
	publish(e, ev)
}

// acquireTarget returns the attached surface and a backing target sized to
// the viewport, allocating a new target after a reset or a size change.
func (e *Engine) acquireTarget() (render.Surface, *render.PixmapTarget, error) {
	e.surfMu.Lock()
	defer e.surfMu.Unlock()
	if e.surface == nil {
		return nil, nil, ErrSurfaceNotReady
	}
	w, h := e.viewportLocked()
	if w <= 0 || h <= 0 {
		return nil, nil, fmt.Errorf("%w: viewport %dx%d", ErrSurfaceNotReady, w, h)
	}
	switch {
	case e.target == nil:
		t, err := render.NewPixmapTarget(w, h)
		if err != nil {
			return nil, nil, err
		}
		e.target = t
		Logger().Debug("panorama: render buffer allocated", "width", w, "height", h)
	case e.target.Width() != w || e.target.Height() != h:
		if err := e.target.Resize(w, h); err != nil {
			return nil, nil, err
		}
		Logger().Debug("panorama: render buffer resized", "width", w, "height", h)
	}
	return e.surface, e.target, nil
}
