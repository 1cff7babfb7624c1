package panorama

import (
	"image"

	"github.com/gogpu/panorama/render"
)

// TakePicture renders the current frame with the current orientation,
// field of view and display mode into a new image owned by the caller.
//
// The image has the capture size set by WithCaptureSize, or the viewport
// size. TakePicture does not change the view, does not wait for the live
// draw and does not present. Concurrent captures are serialized. Without
// a new frame or input in between, two calls return identical pixels.
func (e *Engine) TakePicture() (*image.RGBA, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	e.surfMu.Lock()
	attached := e.surface != nil
	w, h := e.viewportLocked()
	e.surfMu.Unlock()
	if !attached {
		return nil, ErrSurfaceNotReady
	}
	if e.opts.captureW > 0 {
		w, h = e.opts.captureW, e.opts.captureH
	}

	handle, ok := e.slot.Acquire()
	if !ok {
		return nil, ErrNoFrame
	}
	defer handle.Release()
	f := handle.Frame()

	e.captureMu.Lock()
	defer e.captureMu.Unlock()
	if e.capture == nil {
		t, err := render.NewPixmapTarget(w, h)
		if err != nil {
			return nil, err
		}
		e.capture = t
	} else if e.capture.Width() != w || e.capture.Height() != h {
		if err := e.capture.Resize(w, h); err != nil {
			return nil, err
		}
	}
	e.compose(e.capture, f, e.snapshot())
	img := e.capture.Snapshot()

	e.pictures.Add(1)
	e.metrics.pictures.Inc()
	publish(e, PictureTaken{Seq: f.Seq, Timestamp: f.Timestamp, Width: w, Height: h})
	Logger().Debug("panorama: picture taken", "seq", f.Seq, "width", w, "height", h)
	return img, nil
}
