// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
)

// TextureSurface errors.
var (
	// ErrNilProvider is returned when a TextureSurface is created without a
	// DeviceHandle.
	ErrNilProvider = errors.New("render: nil DeviceHandle")

	// ErrInvalidDrawContext is returned when RenderTo gets a nil drawer or
	// the created texture is not a gpucontext.Texture.
	ErrInvalidDrawContext = errors.New("render: draw context must implement gpucontext.TextureDrawer")

	// ErrInvalidRenderer is returned when the drawer has no texture creator.
	ErrInvalidRenderer = errors.New("render: draw context has no texture creator")
)

type textureDestroyer interface {
	Destroy()
}

// TextureSurface is a Surface that hands composed frames to a gpucontext
// host as a texture.
//
// Present runs on the engine's render goroutine and only copies pixels.
// The host calls RenderTo from its own draw callback, where the texture is
// created on first use, updated when a new frame was presented, and drawn
// at the origin. A resize recreates the texture; the previous one is
// destroyed only after the replacement upload has completed.
//
// TextureSurface is safe for concurrent use.
type TextureSurface struct {
	mu         sync.Mutex
	provider   DeviceHandle
	width      int
	height     int
	data       []byte // last presented frame, premultiplied RGBA
	dataW      int
	dataH      int
	dirty      bool // data changed since the last upload
	texture    any
	oldTexture any
	texW       int
	texH       int
	closed     bool
}

// NewTextureSurface creates a surface drawing through the host's device.
func NewTextureSurface(provider DeviceHandle, width, height int) (*TextureSurface, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return &TextureSurface{provider: provider, width: width, height: height}, nil
}

// Provider returns the host device handle, or nil after Close.
func (s *TextureSurface) Provider() DeviceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.provider
}

// Size returns the surface size.
func (s *TextureSurface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Resize changes the surface size. The texture is recreated on the next
// RenderTo that sees a frame of the new size.
func (s *TextureSurface) Resize(width, height int) error {
	if err := checkSize(width, height); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	s.width, s.height = width, height
	return nil
}

// Present copies img for the next RenderTo.
func (s *TextureSurface) Present(img *image.RGBA) error {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if need := w * h * 4; cap(s.data) >= need {
		s.data = s.data[:need]
	} else {
		s.data = make([]byte, need)
	}
	for y := range h {
		copy(s.data[y*w*4:(y+1)*w*4], img.Pix[y*img.Stride:])
	}
	s.dataW, s.dataH = w, h
	s.dirty = true
	return nil
}

// Dirty reports whether a frame was presented since the last upload.
func (s *TextureSurface) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// RenderTo uploads the last presented frame if needed and draws it at the
// origin of dc. It does nothing until the first Present.
func (s *TextureSurface) RenderTo(dc gpucontext.TextureDrawer) error {
	if dc == nil {
		return ErrInvalidDrawContext
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if s.data == nil {
		return nil
	}

	if s.texture != nil && (s.texW != s.dataW || s.texH != s.dataH) {
		if s.oldTexture != nil {
			destroy(s.oldTexture)
		}
		s.oldTexture = s.texture
		s.texture = nil
	}

	switch {
	case s.texture == nil:
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrInvalidRenderer
		}
		tex, err := creator.NewTextureFromRGBA(s.dataW, s.dataH, s.data)
		if err != nil {
			return fmt.Errorf("render: NewTextureFromRGBA failed: %w", err)
		}
		s.texture = tex
		if pt, ok := s.texture.(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}
		s.texW, s.texH = s.dataW, s.dataH

		// The upload above waits for the GPU, so the replaced texture is idle.
		if s.oldTexture != nil {
			destroy(s.oldTexture)
			s.oldTexture = nil
		}

	case s.dirty:
		if updater, ok := s.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(s.data); err != nil {
				return fmt.Errorf("render: texture update failed: %w", err)
			}
		}
	}
	s.dirty = false

	gpuTex, ok := s.texture.(gpucontext.Texture)
	if !ok {
		return ErrInvalidDrawContext
	}
	return dc.DrawTexture(gpuTex, 0, 0)
}

// Close releases the textures. Later Present calls fail with
// ErrSurfaceClosed. Close is idempotent.
func (s *TextureSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.oldTexture != nil {
		destroy(s.oldTexture)
		s.oldTexture = nil
	}
	if s.texture != nil {
		destroy(s.texture)
		s.texture = nil
	}
	s.data = nil
	s.provider = nil
	return nil
}

func destroy(tex any) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// Ensure TextureSurface implements Surface.
var _ Surface = (*TextureSurface)(nil)
