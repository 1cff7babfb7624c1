// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidDimensions is returned for targets or surfaces with a
// non-positive width or height.
var ErrInvalidDimensions = errors.New("render: invalid dimensions")

// PixmapTarget is the CPU pixel storage a frame is composed into. The
// projection rasterizer and the overlay write RGBA8 premultiplied pixels.
//
// Example:
//
//	target, _ := render.NewPixmapTarget(800, 600)
//	rasterizer.Draw(target.Image(), tex, mesh, cam, opts)
//	img := target.Snapshot()
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) (*PixmapTarget, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Snapshot returns a deep copy of the target contents.
func (t *PixmapTarget) Snapshot() *image.RGBA {
	return cloneRGBA(t.img)
}

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	px := [4]uint8{rgba.R, rgba.G, rgba.B, rgba.A}
	w := t.Width() * 4
	for y := range t.Height() {
		row := t.img.Pix[y*t.img.Stride : y*t.img.Stride+w]
		for x := 0; x < w; x += 4 {
			copy(row[x:x+4], px[:])
		}
	}
}

// Resize reallocates the target with the given dimensions.
// The contents are not preserved.
func (t *PixmapTarget) Resize(width, height int) error {
	if err := checkSize(width, height); err != nil {
		return err
	}
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// cloneRGBA returns a copy of img rebased to the origin.
func cloneRGBA(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		copy(out.Pix[y*out.Stride:], src)
	}
	return out
}
