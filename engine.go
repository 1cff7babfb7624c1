package panorama

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kelindar/event"

	"github.com/gogpu/panorama/frame"
	"github.com/gogpu/panorama/orient"
	"github.com/gogpu/panorama/overlay"
	"github.com/gogpu/panorama/projection"
	"github.com/gogpu/panorama/render"
	"github.com/gogpu/panorama/touch"
)

// defaultTextureAspect is assumed for hit testing before the first frame.
const defaultTextureAspect = 2.0

// Engine displays a stream of frames on a spherical, cylindrical or flat
// surface and lets device motion and touch steer the camera.
//
// All methods are safe for concurrent use. A typical host feeds frames from
// a decoder goroutine, input from the UI goroutine and lets the engine's
// own goroutine draw:
//
//	e, _ := panorama.New()
//	defer e.Close()
//	_ = e.InitDevice(surface)
//	_ = e.StartRendering()
//	for img, ts := range decoder {
//	    e.SetPixelBuffer(img, ts)
//	}
type Engine struct {
	opts engineOptions

	slot     *frame.Slot
	tracker  *orient.Tracker
	touches  *touch.Tracker
	raster   *projection.Rasterizer
	meshes   *projection.MeshCache
	timecode *overlay.Timecode
	events   *event.Dispatcher
	metrics  *engineMetrics

	eventsMu     sync.RWMutex
	eventsClosed bool

	mu    sync.RWMutex
	state viewState

	surfMu   sync.Mutex
	surface  render.Surface
	target   *render.PixmapTarget
	viewport image.Point // set by Resize; zero follows the surface size

	texMu  sync.Mutex
	tex    *projection.Texture
	texSeq uint64

	// drawMu is held for the whole of every live draw.
	drawMu sync.Mutex

	// captureMu guards the offscreen target reused by TakePicture.
	captureMu sync.Mutex
	capture   *render.PixmapTarget

	queue     chan struct{}
	loopMu    sync.Mutex
	stopTick  chan struct{}
	tickDone  chan struct{}
	suspended atomic.Bool

	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	presented    atomic.Uint64
	notReady     atomic.Uint64
	failed       atomic.Uint64
	cancelled    atomic.Uint64
	ticksSkipped atomic.Uint64
	pictures     atomic.Uint64
}

// New creates an engine and starts its render goroutine. Nothing is drawn
// until InitDevice attaches a surface and rendering is started.
func New(opts ...EngineOption) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !validFOVRange(o.minFOV, o.maxFOV) {
		return nil, fmt.Errorf("%w: range [%v, %v]", ErrInvalidFieldOfView, o.minFOV, o.maxFOV)
	}
	if !finite(o.fov) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFieldOfView, o.fov)
	}
	if !o.mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDisplayMode, o.mode)
	}
	if !o.composition.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidComposition, o.composition)
	}

	var tc *overlay.Timecode
	if o.timecode {
		var err error
		if tc, err = overlay.New(o.overlayOpts...); err != nil {
			return nil, err
		}
	}

	d := o.dispatcher
	if d == nil {
		d = event.NewDispatcher()
	}

	slot := frame.NewSlot()
	e := &Engine{
		opts:     o,
		slot:     slot,
		tracker:  orient.NewTracker(o.motionSupported, o.trackerOpts...),
		touches:  touch.NewTracker(),
		meshes:   projection.NewMeshCache(),
		timecode: tc,
		events:   d,
		metrics:  newEngineMetrics(o.registerer, slot),
		queue:    make(chan struct{}, o.queueDepth),
		done:     make(chan struct{}),
		state: viewState{
			minFOV:      o.minFOV,
			maxFOV:      o.maxFOV,
			mode:        o.mode,
			composition: o.composition,
		},
	}
	e.state.fov = e.state.clampFOV(o.fov)
	e.metrics.fov.Set(e.state.fov)
	e.raster = projection.NewRasterizer(o.workers)

	e.wg.Add(1)
	go e.run()

	Logger().Debug("panorama: engine created",
		"mode", o.mode, "fov", e.state.fov, "workers", e.raster.Workers())
	return e, nil
}

// InitDevice attaches the host surface. Replacing an attached surface
// drops the backing target so the next draw matches the new size.
func (e *Engine) InitDevice(s render.Surface) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if s == nil {
		return render.ErrNilSurface
	}
	e.surfMu.Lock()
	e.surface = s
	e.target = nil
	e.surfMu.Unlock()

	w, h := s.Size()
	Logger().Info("panorama: device attached", "width", w, "height", h)
	return nil
}

// SetPixelBuffer submits a decoded frame with its capture timestamp. It
// never blocks on drawing; a frame that is replaced before any draw is
// dropped. img must not be modified afterwards.
func (e *Engine) SetPixelBuffer(img image.Image, ts time.Duration, opts ...frame.SubmitOption) {
	if img == nil || e.closed.Load() {
		return
	}
	e.slot.Submit(img, ts, opts...)
}

// SetOrientToDevice turns device motion tracking on or off. Enabling fails
// with orient.ErrMotionUnavailable when the host has no motion sensors.
// Turning it on never moves the camera; motion applies from the next sample.
func (e *Engine) SetOrientToDevice(on bool) error {
	if !on {
		e.tracker.Disable()
		return nil
	}
	if err := e.tracker.Enable(); err != nil {
		Logger().Warn("panorama: orient to device unavailable", "err", err)
		return err
	}
	return nil
}

// OrientToDevice reports whether device motion tracking is active.
func (e *Engine) OrientToDevice() bool {
	return e.tracker.State() == orient.StateActive
}

// OrientationSupported reports whether motion tracking can be enabled.
func (e *Engine) OrientationSupported() bool {
	return e.tracker.Supported()
}

// SetOrientationSupported updates motion capability at runtime. Losing
// support turns tracking off and keeps the current orientation.
func (e *Engine) SetOrientationSupported(supported bool) {
	e.tracker.SetSupported(supported)
}

// SetTouchToPan toggles panning with one finger.
func (e *Engine) SetTouchToPan(on bool) {
	e.touches.SetPanEnabled(on)
	if !on {
		e.mu.Lock()
		e.state.panning = false
		e.mu.Unlock()
	}
}

// TouchToPan reports whether touch panning is on.
func (e *Engine) TouchToPan() bool {
	return e.touches.PanEnabled()
}

// SetPinchToZoom toggles zooming with two fingers.
func (e *Engine) SetPinchToZoom(on bool) {
	e.touches.SetPinchEnabled(on)
}

// PinchToZoom reports whether pinch zoom is on.
func (e *Engine) PinchToZoom() bool {
	return e.touches.PinchEnabled()
}

// SetShowTouches toggles hit testing and markers for active touches.
func (e *Engine) SetShowTouches(on bool) {
	e.mu.Lock()
	e.state.showTouches = on
	e.mu.Unlock()
	if !on {
		e.touches.ClearHits()
	}
}

// ShowTouches reports whether touch markers are drawn.
func (e *Engine) ShowTouches() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.showTouches
}

// SetDisplayMode switches the display surface. It takes effect on the
// next draw.
func (e *Engine) SetDisplayMode(m DisplayMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDisplayMode, m)
	}
	e.mu.Lock()
	e.state.mode = m
	e.mu.Unlock()
	return nil
}

// DisplayMode returns the current display mode.
func (e *Engine) DisplayMode() DisplayMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.mode
}

// SetFieldOfView sets the vertical field of view in degrees. Finite values
// outside the configured range are clamped; NaN and infinities are
// rejected with ErrInvalidFieldOfView.
func (e *Engine) SetFieldOfView(deg float64) error {
	if !finite(deg) {
		return fmt.Errorf("%w: %v", ErrInvalidFieldOfView, deg)
	}
	e.mu.Lock()
	e.state.fov = e.state.clampFOV(deg)
	fov := e.state.fov
	e.mu.Unlock()
	e.metrics.fov.Set(fov)
	return nil
}

// FieldOfView returns the vertical field of view in degrees.
func (e *Engine) FieldOfView() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.fov
}

// SetFieldOfViewRange changes the field of view bounds and re-clamps the
// current value.
func (e *Engine) SetFieldOfViewRange(minDeg, maxDeg float64) error {
	if !validFOVRange(minDeg, maxDeg) {
		return fmt.Errorf("%w: range [%v, %v]", ErrInvalidFieldOfView, minDeg, maxDeg)
	}
	e.mu.Lock()
	e.state.minFOV, e.state.maxFOV = minDeg, maxDeg
	e.state.fov = e.state.clampFOV(e.state.fov)
	fov := e.state.fov
	e.mu.Unlock()
	e.metrics.fov.Set(fov)
	return nil
}

// FieldOfViewRange returns the field of view bounds in degrees.
func (e *Engine) FieldOfViewRange() (minDeg, maxDeg float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.minFOV, e.state.maxFOV
}

// SetComposition selects how motion and touch combine. Unknown values are
// rejected with ErrInvalidComposition.
func (e *Engine) SetComposition(c Composition) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidComposition, c)
	}
	e.mu.Lock()
	e.state.composition = c
	e.mu.Unlock()
	return nil
}

// Composition returns the current composition.
func (e *Engine) Composition() Composition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.composition
}

// Orientation returns the camera orientation combining device motion and
// touch pan.
func (e *Engine) Orientation() orient.Quat {
	return e.snapshot().orientation
}

// Pan rotates the camera as a touch drag would: positive yaw turns left
// and positive pitch turns up. Angles are in radians.
func (e *Engine) Pan(yaw, pitch float64) {
	if !finite(yaw) || !finite(pitch) {
		return
	}
	e.mu.Lock()
	e.state.pan(yaw, pitch)
	e.mu.Unlock()
}

// ResetOrientation returns the camera to the mesh front.
func (e *Engine) ResetOrientation() {
	e.tracker.Reset()
	e.mu.Lock()
	e.state.touchYaw, e.state.touchPitch = 0, 0
	e.mu.Unlock()
}

// HandleMotion feeds one device-motion sample. It reports whether the
// orientation changed. Samples are ignored while tracking is off and,
// with CompositionTouchWins, while a pan is in progress.
func (e *Engine) HandleMotion(s orient.Sample) bool {
	e.mu.RLock()
	drop := e.state.composition == CompositionTouchWins && e.state.panning
	e.mu.RUnlock()
	if drop {
		return false
	}
	return e.tracker.Update(s)
}

// HandleTouch feeds one touch event and returns the camera change it caused.
func (e *Engine) HandleTouch(ev touch.Event) touch.Delta {
	w, h := e.viewportSize()

	e.mu.RLock()
	fov := e.state.fov
	e.mu.RUnlock()

	d := e.touches.Handle(ev, touch.Viewport{Width: w, Height: h, FOV: fov})

	e.mu.Lock()
	e.state.panning = d.Panning
	if !d.IsZero() {
		e.state.pan(d.Yaw, d.Pitch)
		if d.FOVScale > 0 {
			e.state.fov = e.state.clampFOV(e.state.fov * d.FOVScale)
		}
	}
	fov = e.state.fov
	show := e.state.showTouches
	e.mu.Unlock()
	e.metrics.fov.Set(fov)

	switch ev.Phase {
	case touch.Began, touch.Ended, touch.Cancelled:
		n := e.touches.Count()
		e.metrics.touches.Set(float64(n))
		publish(e, TouchesChanged{Count: n})
	}
	if show {
		e.updateHits(e.snapshot(), w, h)
	}
	return d
}

// Touches returns the active touches. Hits are set only when ShowTouches
// is on and the touch ray meets the mesh.
func (e *Engine) Touches() touch.Set {
	return e.touches.Set()
}

// NumberOfTouches returns the number of active touches.
func (e *Engine) NumberOfTouches() int {
	return e.touches.Count()
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Frames frame.Stats

	Presented    uint64 // draws that reached the surface
	NotReady     uint64 // draws skipped without a surface
	Failed       uint64 // draws whose present returned an error
	Cancelled    uint64 // queued draws removed by CleanRenderQueue
	TicksSkipped uint64 // vsync ticks skipped on a full queue
	Pictures     uint64

	MotionRejected uint64 // motion samples damped or discarded
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Frames:         e.slot.Stats(),
		Presented:      e.presented.Load(),
		NotReady:       e.notReady.Load(),
		Failed:         e.failed.Load(),
		Cancelled:      e.cancelled.Load(),
		TicksSkipped:   e.ticksSkipped.Load(),
		Pictures:       e.pictures.Load(),
		MotionRejected: e.tracker.Rejected(),
	}
}

// Close stops rendering, detaches the surface and releases the stored
// frame. Close is idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.ReleaseDevice()
		e.closed.Store(true)
		close(e.done)
		e.wg.Wait()
		e.raster.Close()
		e.slot.Reset()
		e.closeEvents()
		Logger().Debug("panorama: engine closed")
	})
	return nil
}

// snapshot copies the view state for one draw.
func (e *Engine) snapshot() view {
	sensor := e.tracker.Orientation()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return view{
		orientation: e.state.compose(sensor),
		fov:         e.state.fov,
		mode:        e.state.mode,
		showTouches: e.state.showTouches,
	}
}

// viewportSize returns the Resize override or the surface size, and zero
// without a surface.
func (e *Engine) viewportSize() (width, height int) {
	e.surfMu.Lock()
	defer e.surfMu.Unlock()
	return e.viewportLocked()
}

func (e *Engine) viewportLocked() (width, height int) {
	if e.viewport.X > 0 && e.viewport.Y > 0 {
		return e.viewport.X, e.viewport.Y
	}
	if e.surface == nil {
		return 0, 0
	}
	return e.surface.Size()
}

// texture returns the texture for f, converting it once per frame.
func (e *Engine) texture(f *frame.Frame) *projection.Texture {
	if f == nil {
		return nil
	}
	e.texMu.Lock()
	defer e.texMu.Unlock()
	if e.tex == nil || e.texSeq != f.Seq {
		e.tex = projection.NewTexture(f.Image, e.opts.maxTextureSize)
		e.texSeq = f.Seq
	}
	return e.tex
}

// textureAspect returns the aspect of the last texture, for meshes built
// before a frame is drawn.
func (e *Engine) textureAspect() float64 {
	e.texMu.Lock()
	defer e.texMu.Unlock()
	if e.tex == nil {
		return defaultTextureAspect
	}
	return e.tex.Aspect()
}

// updateHits casts every active touch against the mesh seen through v.
func (e *Engine) updateHits(v view, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	set := e.touches.Set()
	if len(set) == 0 {
		return
	}
	mesh := e.meshes.Get(v.mode.shape(), e.textureAspect())
	cam := v.camera(width, height)
	hits := make(map[int]touch.Coordinate, len(set))
	for _, p := range set {
		c, ok := projection.Cast(mesh, cam, p.X, p.Y, float64(width), float64(height))
		if !ok {
			continue
		}
		hits[p.ID] = touch.Coordinate{U: c.U, V: c.V, Latitude: c.Latitude, Longitude: c.Longitude}
	}
	e.touches.SetHits(hits)
}

// compose renders f as seen through v into target: scene, touch markers,
// then the timecode label. Without a drawable frame the target is cleared
// to the background.
func (e *Engine) compose(target *render.PixmapTarget, f *frame.Frame, v view) {
	tex := e.texture(f)
	if tex == nil {
		target.Clear(e.opts.background)
		return
	}
	opts := projection.DrawOptions{
		Filter:      e.opts.filter,
		Background:  e.opts.background,
		MarkerColor: e.opts.markerColor,
		MarkerWidth: e.opts.markerWidth,
	}
	if v.showTouches {
		for _, c := range e.touches.Set().Hits() {
			opts.Markers = append(opts.Markers, projection.Marker{U: c.U, V: c.V})
		}
	}
	dst := target.Image()
	e.raster.Draw(dst, tex, e.meshes.Get(v.mode.shape(), tex.Aspect()), v.camera(target.Width(), target.Height()), opts)
	if e.timecode != nil {
		e.timecode.Draw(dst, f.Timestamp)
	}
}
