package panorama

import (
	"image/color"
	"time"

	"github.com/kelindar/event"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/panorama/orient"
	"github.com/gogpu/panorama/overlay"
	"github.com/gogpu/panorama/projection"
)

// Defaults for a new Engine.
const (
	DefaultFOV         = projection.DefaultFOV
	DefaultMinFOV      = 10.0
	DefaultMaxFOV      = 140.0
	DefaultRefreshRate = 60.0
	DefaultQueueDepth  = 2
)

// EngineOption configures an Engine during creation.
//
// Example:
//
//	e, err := panorama.New(
//	    panorama.WithDisplayMode(panorama.DisplayCylindrical),
//	    panorama.WithFieldOfView(90),
//	    panorama.WithMetrics(prometheus.DefaultRegisterer),
//	)
type EngineOption func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	mode        DisplayMode
	fov         float64
	minFOV      float64
	maxFOV      float64
	composition Composition

	motionSupported bool
	trackerOpts     []orient.TrackerOption

	refreshRate float64
	vsync       <-chan time.Time
	queueDepth  int

	captureW, captureH int

	workers        int
	filter         projection.Filter
	background     color.RGBA
	maxTextureSize int
	markerColor    color.RGBA
	markerWidth    float64

	timecode    bool
	overlayOpts []overlay.Option
	registerer  prometheus.Registerer
	dispatcher  *event.Dispatcher
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		mode:        DisplaySpherical,
		fov:         DefaultFOV,
		minFOV:      DefaultMinFOV,
		maxFOV:      DefaultMaxFOV,
		composition: CompositionSensorFirst,
		refreshRate: DefaultRefreshRate,
		queueDepth:  DefaultQueueDepth,
		background:  color.RGBA{A: 255},
		markerColor: color.RGBA{R: 255, G: 255, A: 255},
		markerWidth: projection.DefaultMarkerWidth,
		timecode:    true,
	}
}

// WithDisplayMode sets the initial display mode. Invalid modes are ignored.
func WithDisplayMode(m DisplayMode) EngineOption {
	return func(o *engineOptions) {
		if m.Valid() {
			o.mode = m
		}
	}
}

// WithFieldOfView sets the initial vertical field of view in degrees.
// The value is clamped to the configured range when the engine is created.
func WithFieldOfView(deg float64) EngineOption {
	return func(o *engineOptions) {
		o.fov = deg
	}
}

// WithFieldOfViewRange sets the bounds for the field of view in degrees.
// New fails with ErrInvalidFieldOfView unless 0 < min <= max < 180.
func WithFieldOfViewRange(minDeg, maxDeg float64) EngineOption {
	return func(o *engineOptions) {
		o.minFOV = minDeg
		o.maxFOV = maxDeg
	}
}

// WithComposition sets how device motion and touch pan combine.
func WithComposition(c Composition) EngineOption {
	return func(o *engineOptions) {
		o.composition = c
	}
}

// WithMotionSupported declares that the host has motion sensors, so that
// SetOrientToDevice(true) can succeed.
func WithMotionSupported(supported bool) EngineOption {
	return func(o *engineOptions) {
		o.motionSupported = supported
	}
}

// WithTrackerOptions passes options to the orientation tracker.
func WithTrackerOptions(opts ...orient.TrackerOption) EngineOption {
	return func(o *engineOptions) {
		o.trackerOpts = append(o.trackerOpts, opts...)
	}
}

// WithRefreshRate sets the continuous rendering rate in Hz used when no
// vsync source is injected.
func WithRefreshRate(hz float64) EngineOption {
	return func(o *engineOptions) {
		if hz > 0 {
			o.refreshRate = hz
		}
	}
}

// WithVSync makes continuous rendering tick on values received from ch
// instead of an internal ticker. The host keeps ownership of ch.
func WithVSync(ch <-chan time.Time) EngineOption {
	return func(o *engineOptions) {
		o.vsync = ch
	}
}

// WithQueueDepth sets the capacity of the render queue. Ticks arriving
// while the queue is full are skipped.
func WithQueueDepth(n int) EngineOption {
	return func(o *engineOptions) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}

// WithCaptureSize sets the TakePicture output size. Zero uses the viewport.
func WithCaptureSize(width, height int) EngineOption {
	return func(o *engineOptions) {
		if width > 0 && height > 0 {
			o.captureW, o.captureH = width, height
		}
	}
}

// WithWorkers sets the number of rasterizer workers. Zero uses GOMAXPROCS.
func WithWorkers(n int) EngineOption {
	return func(o *engineOptions) {
		o.workers = max(n, 0)
	}
}

// WithFilter sets the texture sampling filter.
func WithFilter(f projection.Filter) EngineOption {
	return func(o *engineOptions) {
		o.filter = f
	}
}

// WithBackground sets the clear colour for pixels not covered by the mesh.
func WithBackground(c color.RGBA) EngineOption {
	return func(o *engineOptions) {
		o.background = c
	}
}

// WithMaxTextureSize limits the texture width; larger frames are scaled down.
func WithMaxTextureSize(px int) EngineOption {
	return func(o *engineOptions) {
		o.maxTextureSize = max(px, 0)
	}
}

// WithTouchMarkers sets the colour and width of the latitude and longitude
// lines drawn through touch hits. Width is a fraction of the texture.
func WithTouchMarkers(c color.RGBA, width float64) EngineOption {
	return func(o *engineOptions) {
		o.markerColor = c
		if width > 0 {
			o.markerWidth = width
		}
	}
}

// WithTimecode toggles the timecode label. It is on by default.
func WithTimecode(on bool, opts ...overlay.Option) EngineOption {
	return func(o *engineOptions) {
		o.timecode = on
		o.overlayOpts = append(o.overlayOpts, opts...)
	}
}

// WithMetrics registers engine metrics on r.
func WithMetrics(r prometheus.Registerer) EngineOption {
	return func(o *engineOptions) {
		o.registerer = r
	}
}

// WithDispatcher publishes engine events on d instead of a private dispatcher.
func WithDispatcher(d *event.Dispatcher) EngineOption {
	return func(o *engineOptions) {
		o.dispatcher = d
	}
}
