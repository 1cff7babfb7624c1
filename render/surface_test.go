// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
)

func TestImageSurfacePresent(t *testing.T) {
	s, err := NewImageSurface(8, 4)
	if err != nil {
		t.Fatalf("NewImageSurface() error = %v", err)
	}
	if s.Last() != nil {
		t.Error("Last() before any Present should be nil")
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.SetRGBA(2, 2, color.RGBA{R: 255, A: 255})
	if err := s.Present(img); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	img.SetRGBA(2, 2, color.RGBA{G: 255, A: 255})

	last := s.Last()
	if got := last.RGBAAt(2, 2); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("Last() pixel = %v, Present must copy", got)
	}
	if s.Presented() != 1 {
		t.Errorf("Presented() = %d, want 1", s.Presented())
	}
}

func TestImageSurfaceClose(t *testing.T) {
	s, _ := NewImageSurface(2, 2)
	_ = s.Close()

	err := s.Present(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Present after Close error = %v, want ErrSurfaceClosed", err)
	}
	if s.Rejected() != 1 || s.Presented() != 0 {
		t.Errorf("Rejected() = %d, Presented() = %d, want 1, 0", s.Rejected(), s.Presented())
	}
}

func TestImageSurfaceSetSize(t *testing.T) {
	s, _ := NewImageSurface(2, 2)
	if err := s.SetSize(30, 20); err != nil {
		t.Fatalf("SetSize() error = %v", err)
	}
	if w, h := s.Size(); w != 30 || h != 20 {
		t.Errorf("Size() = %d, %d, want 30, 20", w, h)
	}
	if err := s.SetSize(0, 20); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("SetSize(0, 20) error = %v, want ErrInvalidDimensions", err)
	}
	if _, err := NewImageSurface(-1, 3); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("NewImageSurface(-1, 3) error = %v, want ErrInvalidDimensions", err)
	}
}

func TestImageSurfaceOnPresent(t *testing.T) {
	s, _ := NewImageSurface(2, 2)
	got := make(chan *image.RGBA, 1)
	s.OnPresent(func(img *image.RGBA) { got <- img })

	_ = s.Present(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if img := <-got; img.Bounds().Dx() != 2 {
		t.Errorf("OnPresent image bounds = %v", img.Bounds())
	}
}

func TestImageSurfaceConcurrent(t *testing.T) {
	s, _ := NewImageSurface(16, 16)
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = s.Present(img)
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = s.Last()
				_, _ = s.Size()
			}
		}()
	}
	wg.Wait()
	if s.Presented() != 200 {
		t.Errorf("Presented() = %d, want 200", s.Presented())
	}
}

func TestNewTextureSurface(t *testing.T) {
	if _, err := NewTextureSurface(nil, 10, 10); !errors.Is(err, ErrNilProvider) {
		t.Errorf("nil provider error = %v, want ErrNilProvider", err)
	}
	if _, err := NewTextureSurface(newMockProvider(), 0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("zero width error = %v, want ErrInvalidDimensions", err)
	}

	s, err := NewTextureSurface(newMockProvider(), 64, 32)
	if err != nil {
		t.Fatalf("NewTextureSurface() error = %v", err)
	}
	if w, h := s.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %d, %d, want 64, 32", w, h)
	}
	if s.Provider() == nil {
		t.Error("Provider() = nil before Close")
	}
}

func TestTextureSurfacePresentCopies(t *testing.T) {
	s, _ := NewTextureSurface(newMockProvider(), 4, 2)
	if s.Dirty() {
		t.Error("new surface should not be dirty")
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(3, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	if err := s.Present(img); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if !s.Dirty() {
		t.Error("Present should mark the surface dirty")
	}
	img.SetRGBA(3, 1, color.RGBA{})

	off := (1*4 + 3) * 4
	if got := s.data[off : off+4]; got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 255 {
		t.Errorf("stored pixel = %v, Present must copy", got)
	}
}

func TestTextureSurfaceResizeAndClose(t *testing.T) {
	s, _ := NewTextureSurface(newMockProvider(), 4, 2)
	if err := s.Resize(8, 8); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := s.Size(); w != 8 || h != 8 {
		t.Errorf("Size() after Resize = %d, %d", w, h)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if s.Provider() != nil {
		t.Error("Provider() after Close should be nil")
	}
	if err := s.Present(image.NewRGBA(image.Rect(0, 0, 8, 8))); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Present after Close error = %v, want ErrSurfaceClosed", err)
	}
	if err := s.Resize(2, 2); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Resize after Close error = %v, want ErrSurfaceClosed", err)
	}
}

func TestTextureSurfaceRenderToNil(t *testing.T) {
	s, _ := NewTextureSurface(newMockProvider(), 4, 2)
	if err := s.RenderTo(nil); !errors.Is(err, ErrInvalidDrawContext) {
		t.Errorf("RenderTo(nil) error = %v, want ErrInvalidDrawContext", err)
	}
}
