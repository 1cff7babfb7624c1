package orient

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrMotionUnavailable is returned by Tracker.Enable when the device has no
// usable motion sensors.
var ErrMotionUnavailable = errors.New("orient: motion sensors unavailable")

// State is the tracker state.
type State uint8

const (
	// StateDisabled ignores all samples. The last orientation is retained.
	StateDisabled State = iota

	// StateActive integrates every sample into the orientation.
	StateActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Sample is one reading from the device-motion service.
//
// Exactly one of Attitude or RotationRate is expected. When HasAttitude is
// set, Attitude is an absolute device attitude in the sensor's reference
// frame. Otherwise RotationRate is the body-frame angular velocity in
// radians per second, integrated over Interval.
type Sample struct {
	Attitude     Quat
	HasAttitude  bool
	RotationRate Vec3
	Interval     time.Duration
}

// Default tracker parameters.
const (
	DefaultUpdateRate     = 60.0
	DefaultMaxAngularRate = 8 * math.Pi
)

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithUpdateRate sets the nominal sensor rate in Hz. Sample intervals that
// are missing or longer than four nominal periods are replaced by one
// nominal period.
func WithUpdateRate(hz float64) TrackerOption {
	return func(t *Tracker) {
		if hz > 0 {
			t.period = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithMaxAngularRate sets the plausible angular speed bound in rad/s.
// Faster rotation-rate samples are scaled down to the bound and attitude
// jumps are limited to the bound times the sample interval.
func WithMaxAngularRate(radPerSec float64) TrackerOption {
	return func(t *Tracker) {
		if radPerSec > 0 {
			t.maxRate = radPerSec
		}
	}
}

// WithSmoothing sets the exponential smoothing factor in (0, 1]. Each sample
// moves the orientation this fraction of the way towards the sensor
// reading; 1 disables smoothing.
func WithSmoothing(alpha float64) TrackerOption {
	return func(t *Tracker) {
		if alpha > 0 && alpha <= 1 {
			t.smoothing = alpha
		}
	}
}

// Tracker fuses motion samples into a camera orientation.
//
// Tracker is safe for concurrent use: samples typically arrive on an input
// goroutine while the render loop reads Orientation.
type Tracker struct {
	mu sync.Mutex

	supported bool
	state     State

	period    time.Duration
	maxRate   float64
	smoothing float64

	// current is the tracker contribution to the camera orientation.
	current Quat

	// reference maps raw attitudes into the tracker frame so that the first
	// attitude after Enable reproduces current exactly.
	reference    Quat
	hasReference bool
	rejected     uint64
}

// NewTracker creates a disabled tracker. supported reports whether the
// motion subsystem is present on this device.
func NewTracker(supported bool, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		supported: supported,
		period:    time.Second / DefaultUpdateRate,
		maxRate:   DefaultMaxAngularRate,
		smoothing: 1,
		current:   Identity(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Supported reports whether motion tracking can be enabled.
func (t *Tracker) Supported() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supported
}

// SetSupported updates the capability, for hosts whose motion service
// becomes unavailable at runtime. Losing support disables the tracker.
func (t *Tracker) SetSupported(supported bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.supported = supported
	if !supported {
		t.state = StateDisabled
	}
}

// State returns the current tracker state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Enable activates tracking. Integration restarts from the current
// orientation so enabling never moves the camera.
func (t *Tracker) Enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.supported {
		t.state = StateDisabled
		return ErrMotionUnavailable
	}
	if t.state == StateActive {
		return nil
	}
	t.state = StateActive
	t.hasReference = false
	return nil
}

// Disable stops tracking and keeps the current orientation.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateDisabled
}

// Reset returns the orientation to Identity without changing the state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Identity()
	t.hasReference = false
}

// Orientation returns the tracker contribution to the camera orientation.
func (t *Tracker) Orientation() Quat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Rejected returns the number of samples that were damped or discarded.
func (t *Tracker) Rejected() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rejected
}

// Update integrates one sample. It reports whether the orientation changed.
func (t *Tracker) Update(s Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return false
	}

	dt := s.Interval
	if dt <= 0 || dt > 4*t.period {
		dt = t.period
	}
	seconds := dt.Seconds()

	if s.HasAttitude {
		return t.updateAttitude(s.Attitude.Normalize(), seconds)
	}
	return t.updateRate(s.RotationRate, seconds)
}

func (t *Tracker) updateRate(rate Vec3, seconds float64) bool {
	speed := rate.Length()
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		t.rejected++
		return false
	}
	if speed == 0 {
		return false
	}
	if speed > t.maxRate {
		rate = rate.Mul(t.maxRate / speed)
		speed = t.maxRate
		t.rejected++
	}
	target := t.current.Mul(AxisAngle(rate, speed*seconds))
	t.current = t.current.Slerp(target, t.smoothing)
	return true
}

func (t *Tracker) updateAttitude(attitude Quat, seconds float64) bool {
	if !t.hasReference {
		// current = reference * attitude  =>  reference = current * attitude⁻¹
		t.reference = t.current.Mul(attitude.Conjugate())
		t.hasReference = true
		return false
	}
	target := t.reference.Mul(attitude)

	limit := t.maxRate * seconds
	if angle := t.current.Angle(target); angle > limit {
		target = t.current.Slerp(target, limit/angle)
		t.rejected++
	}
	t.current = t.current.Slerp(target, t.smoothing)
	return true
}
