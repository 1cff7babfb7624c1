// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Filter selects how texels are sampled.
type Filter uint8

const (
	// FilterBilinear blends the four nearest texels.
	FilterBilinear Filter = iota
	// FilterNearest picks the nearest texel.
	FilterNearest
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterBilinear:
		return "bilinear"
	case FilterNearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// Texture is an RGBA image prepared for sampling. U wraps horizontally and
// V clamps vertically, matching equirectangular video.
type Texture struct {
	img  *image.RGBA
	w, h int
}

// NewTexture converts src into a texture. If maxSize > 0 and either side of
// src exceeds it, the image is downscaled to fit while keeping its aspect.
// An *image.RGBA at the origin within limits is used without copying, so it
// must not be modified while the texture is in use.
func NewTexture(src image.Image, maxSize int) *Texture {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	dw, dh := w, h
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		scale := float64(maxSize) / float64(max(w, h))
		dw = max(1, int(math.Round(float64(w)*scale)))
		dh = max(1, int(math.Round(float64(h)*scale)))
	}

	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && dw == w && dh == h {
		return &Texture{img: rgba, w: w, h: h}
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	if dw == w && dh == h {
		draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return &Texture{img: dst, w: dw, h: dh}
}

// Width returns the texture width in texels.
func (t *Texture) Width() int { return t.w }

// Height returns the texture height in texels.
func (t *Texture) Height() int { return t.h }

// Aspect returns width / height.
func (t *Texture) Aspect() float64 {
	return float64(t.w) / float64(t.h)
}

// Image returns the backing image. It must not be modified.
func (t *Texture) Image() *image.RGBA { return t.img }

func (t *Texture) texel(x, y int) [4]uint8 {
	x %= t.w
	if x < 0 {
		x += t.w
	}
	y = min(max(y, 0), t.h-1)
	i := y*t.img.Stride + x*4
	p := t.img.Pix[i : i+4 : i+4]
	return [4]uint8{p[0], p[1], p[2], p[3]}
}

// Sample returns the premultiplied RGBA value at (u, v).
func (t *Texture) Sample(u, v float64, f Filter) [4]uint8 {
	x := u*float64(t.w) - 0.5
	y := v*float64(t.h) - 0.5
	if f == FilterNearest {
		return t.texel(int(math.Floor(x+0.5)), int(math.Floor(y+0.5)))
	}

	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	c00 := t.texel(ix, iy)
	c10 := t.texel(ix+1, iy)
	c01 := t.texel(ix, iy+1)
	c11 := t.texel(ix+1, iy+1)

	var out [4]uint8
	for k := range 4 {
		top := float64(c00[k])*(1-fx) + float64(c10[k])*fx
		bottom := float64(c01[k])*(1-fx) + float64(c11[k])*fx
		out[k] = uint8(top*(1-fy) + bottom*fy + 0.5)
	}
	return out
}
