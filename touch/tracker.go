// Package touch turns raw touch events into camera pan and zoom deltas.
package touch

import (
	"math"
	"slices"
	"sync"
)

// Phase is the lifecycle stage of one touch point.
type Phase uint8

const (
	Began Phase = iota
	Moved
	Ended
	Cancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Began:
		return "began"
	case Moved:
		return "moved"
	case Ended:
		return "ended"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is one raw touch event in screen coordinates (pixels, origin top-left).
type Event struct {
	ID    int
	Phase Phase
	X, Y  float64
}

// Viewport is the view geometry used to convert pixels into angles.
type Viewport struct {
	Width, Height int
	// FOV is the vertical field of view in degrees.
	FOV float64
}

// Delta is the camera change produced by one event.
type Delta struct {
	// Yaw and Pitch are in radians. Positive yaw turns the camera left,
	// positive pitch turns it up, so content follows the finger.
	Yaw, Pitch float64

	// FOVScale multiplies the field of view; 1 means unchanged.
	FOVScale float64

	// Panning reports whether a pan gesture is in progress.
	Panning bool
}

// IsZero reports whether the delta leaves the camera unchanged.
func (d Delta) IsZero() bool {
	return d.Yaw == 0 && d.Pitch == 0 && (d.FOVScale == 1 || d.FOVScale == 0)
}

// Coordinate is where a touch ray meets the display mesh.
type Coordinate struct {
	// U and V are texture coordinates in [0, 1].
	U, V float64
	// Latitude and Longitude are in degrees; longitude 0 is the mesh front.
	Latitude, Longitude float64
}

// Point is one active touch.
type Point struct {
	ID   int
	X, Y float64
	// Hit is nil when hit testing is off or the ray missed the mesh.
	Hit *Coordinate
}

// Set is an immutable snapshot of active touches ordered by start time.
type Set []Point

// Len returns the number of touches.
func (s Set) Len() int { return len(s) }

// Hits returns the coordinates of touches that hit the mesh.
func (s Set) Hits() []Coordinate {
	var out []Coordinate
	for _, p := range s {
		if p.Hit != nil {
			out = append(out, *p.Hit)
		}
	}
	return out
}

type point struct {
	id   int
	x, y float64
}

// Tracker tracks active touches and derives pan and pinch deltas.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	pan   bool
	pinch bool

	// active is ordered by Began; the first two entries are the primary touches.
	active []point

	// pinchDist is the previous distance between the primary touches, 0 when
	// no pinch is in progress.
	pinchDist float64

	hits map[int]Coordinate
}

// NewTracker creates a tracker with pan and pinch disabled.
func NewTracker() *Tracker {
	return &Tracker{hits: make(map[int]Coordinate)}
}

// SetPanEnabled toggles touch-to-pan.
func (t *Tracker) SetPanEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pan = on
}

// PanEnabled reports whether touch-to-pan is on.
func (t *Tracker) PanEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pan
}

// SetPinchEnabled toggles pinch-to-zoom.
func (t *Tracker) SetPinchEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pinch = on
	t.pinchDist = 0
}

// PinchEnabled reports whether pinch-to-zoom is on.
func (t *Tracker) PinchEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pinch
}

// Handle applies one event and returns the resulting camera delta.
// Touches are tracked even when both gestures are disabled so that the
// active set stays accurate.
func (t *Tracker) Handle(ev Event, vp Viewport) Delta {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := Delta{FOVScale: 1}
	idx := t.index(ev.ID)

	switch ev.Phase {
	case Began:
		if idx >= 0 {
			t.active[idx] = point{id: ev.ID, x: ev.X, y: ev.Y}
		} else {
			t.active = append(t.active, point{id: ev.ID, x: ev.X, y: ev.Y})
		}
		t.pinchDist = t.primaryDistance()

	case Moved:
		if idx < 0 {
			break
		}
		before := t.snapshotPrimary()
		t.active[idx].x, t.active[idx].y = ev.X, ev.Y
		after := t.snapshotPrimary()
		d = t.gesture(before, after, vp)

	case Ended, Cancelled:
		if idx < 0 {
			break
		}
		t.active = slices.Delete(t.active, idx, idx+1)
		delete(t.hits, ev.ID)
		t.pinchDist = t.primaryDistance()
	}

	d.Panning = t.pan && len(t.active) > 0
	return d
}

// gesture derives the delta between two primary-touch snapshots.
func (t *Tracker) gesture(before, after []point, vp Viewport) Delta {
	d := Delta{FOVScale: 1}
	if len(after) >= 2 && t.pinch {
		dist := distance(after[0], after[1])
		if t.pinchDist > 0 && dist > 0 {
			d.FOVScale = t.pinchDist / dist
		}
		t.pinchDist = dist
		return d
	}
	if !t.pan || len(before) == 0 || len(before) != len(after) {
		return d
	}
	bx, by := centroid(before)
	ax, ay := centroid(after)
	d.Yaw, d.Pitch = PanAngles(ax-bx, ay-by, vp)
	return d
}

// PanAngles converts a screen-space drag into yaw and pitch in radians.
// One viewport height of vertical drag equals the vertical field of view
// and one viewport width equals the horizontal field of view, so pan speed
// does not depend on resolution or zoom level.
func PanAngles(dx, dy float64, vp Viewport) (yaw, pitch float64) {
	if vp.Width <= 0 || vp.Height <= 0 || vp.FOV <= 0 {
		return 0, 0
	}
	vfov := vp.FOV * math.Pi / 180
	aspect := float64(vp.Width) / float64(vp.Height)
	hfov := 2 * math.Atan(math.Tan(vfov/2)*aspect)
	yaw = dx / float64(vp.Width) * hfov
	pitch = dy / float64(vp.Height) * vfov
	return yaw, pitch
}

// SetHits replaces the hit coordinates, keyed by touch ID. Touches absent
// from hits are reported without a coordinate.
func (t *Tracker) SetHits(hits map[int]Coordinate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.hits)
	for id, c := range hits {
		if t.index(id) >= 0 {
			t.hits[id] = c
		}
	}
}

// ClearHits drops all hit coordinates.
func (t *Tracker) ClearHits() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.hits)
}

// Set returns a snapshot of the active touches.
func (t *Tracker) Set() Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(Set, len(t.active))
	for i, p := range t.active {
		out[i] = Point{ID: p.id, X: p.x, Y: p.y}
		if c, ok := t.hits[p.id]; ok {
			out[i].Hit = &c
		}
	}
	return out
}

// Count returns the number of active touches.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Reset forgets every active touch.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = t.active[:0]
	t.pinchDist = 0
	clear(t.hits)
}

func (t *Tracker) index(id int) int {
	return slices.IndexFunc(t.active, func(p point) bool { return p.id == id })
}

func (t *Tracker) snapshotPrimary() []point {
	n := min(len(t.active), 2)
	return slices.Clone(t.active[:n])
}

func (t *Tracker) primaryDistance() float64 {
	if len(t.active) < 2 {
		return 0
	}
	return distance(t.active[0], t.active[1])
}

func distance(a, b point) float64 {
	return math.Hypot(a.x-b.x, a.y-b.y)
}

func centroid(ps []point) (x, y float64) {
	for _, p := range ps {
		x += p.x
		y += p.y
	}
	n := float64(len(ps))
	return x / n, y / n
}
