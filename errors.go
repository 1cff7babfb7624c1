package panorama

import "errors"

var (
	// ErrSurfaceNotReady is returned when no host surface is attached.
	ErrSurfaceNotReady = errors.New("panorama: surface not ready")

	// ErrNoFrame is returned by TakePicture before the first SetPixelBuffer.
	ErrNoFrame = errors.New("panorama: no frame submitted")

	// ErrInvalidDisplayMode is returned for unknown display modes.
	ErrInvalidDisplayMode = errors.New("panorama: invalid display mode")

	// ErrInvalidComposition is returned for unknown compositions.
	ErrInvalidComposition = errors.New("panorama: invalid composition")

	// ErrInvalidFieldOfView is returned for non-finite field of view values
	// and for invalid field of view ranges.
	ErrInvalidFieldOfView = errors.New("panorama: invalid field of view")

	// ErrClosed is returned by operations on a closed Engine.
	ErrClosed = errors.New("panorama: engine closed")
)
