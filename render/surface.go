// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
	"sync"
)

// Surface errors.
var (
	// ErrNilSurface is returned when a nil Surface is attached.
	ErrNilSurface = errors.New("render: nil surface")

	// ErrSurfaceClosed is returned by Present after the surface was closed.
	ErrSurfaceClosed = errors.New("render: surface is closed")
)

// Surface is a host-provided drawable.
//
// The engine calls Size at the start of every draw and Present with the
// composed frame at the end. Present must not retain img after it returns.
type Surface interface {
	// Size returns the drawable size in pixels.
	Size() (width, height int)

	// Present displays the composed frame.
	Present(img *image.RGBA) error
}

// ImageSurface is a headless Surface that keeps a copy of the last
// presented frame.
//
// ImageSurface is safe for concurrent use.
type ImageSurface struct {
	mu        sync.Mutex
	width     int
	height    int
	last      *image.RGBA
	presented uint64
	rejected  uint64
	closed    bool
	onPresent func(*image.RGBA)
}

// NewImageSurface creates a headless surface of the given size.
func NewImageSurface(width, height int) (*ImageSurface, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return &ImageSurface{width: width, height: height}, nil
}

// Size returns the surface size.
func (s *ImageSurface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// SetSize changes the surface size, as a host view would on rotation or
// window resize.
func (s *ImageSurface) SetSize(width, height int) error {
	if err := checkSize(width, height); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	return nil
}

// OnPresent registers fn to be called with each presented copy, after the
// copy is stored. fn runs on the presenting goroutine and must not call
// back into the surface.
func (s *ImageSurface) OnPresent(fn func(*image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPresent = fn
}

// Present stores a copy of img.
func (s *ImageSurface) Present(img *image.RGBA) error {
	if img == nil {
		return nil
	}
	cp := cloneRGBA(img)

	s.mu.Lock()
	if s.closed {
		s.rejected++
		s.mu.Unlock()
		return ErrSurfaceClosed
	}
	s.last = cp
	s.presented++
	fn := s.onPresent
	s.mu.Unlock()

	if fn != nil {
		fn(cp)
	}
	return nil
}

// Last returns a copy of the last presented frame, or nil if nothing was
// presented.
func (s *ImageSurface) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	return cloneRGBA(s.last)
}

// Presented returns the number of successful Present calls.
func (s *ImageSurface) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Rejected returns the number of Present calls made after Close.
func (s *ImageSurface) Rejected() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

// Close destroys the surface. Later Present calls fail with ErrSurfaceClosed.
func (s *ImageSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ensure ImageSurface implements Surface.
var _ Surface = (*ImageSurface)(nil)
