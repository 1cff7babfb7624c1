package panorama

import (
	"fmt"
	"strings"

	"github.com/gogpu/panorama/projection"
)

// DisplayMode selects the surface the video is mapped onto.
type DisplayMode uint8

const (
	// DisplaySpherical maps an equirectangular frame onto the inside of a
	// sphere around the camera.
	DisplaySpherical DisplayMode = iota

	// DisplayFlat shows the frame on a plane in front of the camera.
	DisplayFlat

	// DisplayCylindrical wraps the frame around an open cylinder.
	DisplayCylindrical
)

// Valid reports whether m is a known mode.
func (m DisplayMode) Valid() bool {
	return m <= DisplayCylindrical
}

// String returns the mode name as accepted by ParseDisplayMode.
func (m DisplayMode) String() string {
	switch m {
	case DisplaySpherical:
		return "spherical"
	case DisplayFlat:
		return "flat"
	case DisplayCylindrical:
		return "cylindrical"
	default:
		return fmt.Sprintf("DisplayMode(%d)", m)
	}
}

// ParseDisplayMode parses a mode name. Matching is case-insensitive.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spherical", "sphere":
		return DisplaySpherical, nil
	case "flat", "plane":
		return DisplayFlat, nil
	case "cylindrical", "cylinder":
		return DisplayCylindrical, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDisplayMode, s)
}

func (m DisplayMode) shape() projection.Shape {
	switch m {
	case DisplayFlat:
		return projection.ShapeQuad
	case DisplayCylindrical:
		return projection.ShapeCylinder
	default:
		return projection.ShapeSphere
	}
}

// Composition selects how device motion and touch pan combine into the
// camera orientation.
type Composition uint8

const (
	// CompositionSensorFirst applies the touch rotation in the frame already
	// rotated by the device: Q = Qsensor * Qtouch.
	CompositionSensorFirst Composition = iota

	// CompositionTouchFirst applies the device rotation on top of the touch
	// rotation: Q = Qtouch * Qsensor.
	CompositionTouchFirst

	// CompositionTouchWins composes like CompositionSensorFirst but drops
	// motion samples while a pan gesture is in progress.
	CompositionTouchWins
)

// Valid reports whether c is a known composition.
func (c Composition) Valid() bool {
	return c <= CompositionTouchWins
}

// String returns the composition name as accepted by ParseComposition.
func (c Composition) String() string {
	switch c {
	case CompositionSensorFirst:
		return "sensor-first"
	case CompositionTouchFirst:
		return "touch-first"
	case CompositionTouchWins:
		return "touch-wins"
	default:
		return fmt.Sprintf("Composition(%d)", c)
	}
}

// ParseComposition parses a composition name.
func ParseComposition(s string) (Composition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sensor-first", "":
		return CompositionSensorFirst, nil
	case "touch-first":
		return CompositionTouchFirst, nil
	case "touch-wins":
		return CompositionTouchWins, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidComposition, s)
}
