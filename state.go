package panorama

import (
	"math"

	"github.com/gogpu/panorama/orient"
	"github.com/gogpu/panorama/projection"
)

// viewState is the mutable camera configuration, guarded by Engine.mu.
type viewState struct {
	fov            float64
	minFOV, maxFOV float64
	mode           DisplayMode
	composition    Composition
	showTouches    bool

	// touchYaw and touchPitch accumulate pan gestures in radians.
	touchYaw, touchPitch float64
	panning              bool
}

// view is an immutable per-draw snapshot of the camera.
type view struct {
	orientation orient.Quat
	fov         float64
	mode        DisplayMode
	showTouches bool
}

func (v view) camera(width, height int) projection.Camera {
	aspect := 1.0
	if width > 0 && height > 0 {
		aspect = float64(width) / float64(height)
	}
	return projection.Camera{Orientation: v.orientation, FOV: v.fov, Aspect: aspect}
}

// clampFOV limits deg to the configured range.
func (s *viewState) clampFOV(deg float64) float64 {
	return math.Min(math.Max(deg, s.minFOV), s.maxFOV)
}

// pan adds a touch rotation. Pitch stops at the poles so the horizon never
// flips over.
func (s *viewState) pan(yaw, pitch float64) {
	s.touchYaw = math.Remainder(s.touchYaw+yaw, 2*math.Pi)
	s.touchPitch = math.Min(math.Max(s.touchPitch+pitch, -math.Pi/2), math.Pi/2)
}

func (s *viewState) touchRotation() orient.Quat {
	return orient.YawPitchRoll(s.touchYaw, s.touchPitch, 0)
}

// compose combines the sensor contribution with the touch rotation.
func (s *viewState) compose(sensor orient.Quat) orient.Quat {
	touch := s.touchRotation()
	if s.composition == CompositionTouchFirst {
		return touch.Mul(sensor)
	}
	return sensor.Mul(touch)
}

func validFOVRange(minDeg, maxDeg float64) bool {
	return minDeg > 0 && minDeg <= maxDeg && maxDeg < 180 && !math.IsNaN(minDeg) && !math.IsNaN(maxDeg)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
