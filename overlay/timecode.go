// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package overlay draws the source timecode label on top of a rendered frame.
//
// Text is shaped with go-text/typesetting (HarfBuzz) and glyph outlines are
// rasterized from the same font with golang.org/x/image/vector. Glyph masks
// are cached per glyph ID, so steady-state drawing only composites.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/draw"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Corner is the viewport corner the label is anchored to.
type Corner uint8

const (
	TopRight Corner = iota
	TopLeft
	BottomRight
	BottomLeft
)

// String returns the corner name.
func (c Corner) String() string {
	switch c {
	case TopRight:
		return "top-right"
	case TopLeft:
		return "top-left"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	default:
		return "unknown"
	}
}

// Defaults for a new Timecode.
const (
	DefaultSize    = 14.0
	DefaultMargin  = 8
	DefaultPadding = 4
)

var (
	defaultText = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	defaultBox  = color.RGBA{A: 160} // translucent black, premultiplied
)

// FormatTimecode formats d as HH:MM:SS.mmm. Negative durations format as zero.
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// Option configures a Timecode.
type Option func(*Timecode)

// WithSize sets the font size in pixels.
func WithSize(px float64) Option {
	return func(t *Timecode) {
		if px > 0 {
			t.size = px
		}
	}
}

// WithCorner sets the anchor corner.
func WithCorner(c Corner) Option {
	return func(t *Timecode) {
		t.corner = c
	}
}

// WithMargin sets the distance in pixels between the box and the viewport edge.
func WithMargin(px int) Option {
	return func(t *Timecode) {
		t.margin = max(px, 0)
	}
}

// WithColors sets the text and box colors. Both are premultiplied.
func WithColors(text, box color.RGBA) Option {
	return func(t *Timecode) {
		t.text = text
		t.box = box
	}
}

// WithFont sets TrueType or OpenType font data. The default is Go Mono.
func WithFont(data []byte) Option {
	return func(t *Timecode) {
		t.fontData = data
	}
}

type glyphMask struct {
	mask   *image.Alpha // nil for glyphs without outline
	offset image.Point  // mask origin relative to the pen on the baseline
}

// Timecode renders timestamp labels.
//
// Timecode is safe for concurrent use.
type Timecode struct {
	size     float64
	corner   Corner
	margin   int
	padding  int
	text     color.RGBA
	box      color.RGBA
	fontData []byte

	mu      sync.Mutex
	outline *sfnt.Font
	face    *font.Face
	shaper  shaping.HarfbuzzShaper
	buf     sfnt.Buffer
	ascent  int
	descent int
	glyphs  map[sfnt.GlyphIndex]glyphMask
}

// New parses the font and creates a label renderer.
func New(opts ...Option) (*Timecode, error) {
	t := &Timecode{
		size:     DefaultSize,
		corner:   TopRight,
		margin:   DefaultMargin,
		padding:  DefaultPadding,
		text:     defaultText,
		box:      defaultBox,
		fontData: gomono.TTF,
		glyphs:   make(map[sfnt.GlyphIndex]glyphMask),
	}
	for _, opt := range opts {
		opt(t)
	}

	shapingFace, err := font.ParseTTF(bytes.NewReader(t.fontData))
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font for shaping: %w", err)
	}
	t.face = shapingFace

	outline, err := sfnt.Parse(t.fontData)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font outlines: %w", err)
	}
	t.outline = outline

	m, err := outline.Metrics(&t.buf, t.ppem(), xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("overlay: font metrics: %w", err)
	}
	t.ascent = m.Ascent.Ceil()
	t.descent = m.Descent.Ceil()
	return t, nil
}

// Corner returns the anchor corner.
func (t *Timecode) Corner() Corner {
	return t.corner
}

func (t *Timecode) ppem() fixed.Int26_6 {
	return fixed.Int26_6(t.size * 64)
}

func (t *Timecode) boxSize(width int) image.Point {
	return image.Pt(width+2*t.padding, t.ascent+t.descent+2*t.padding)
}

// Draw composites the label for ts onto dst and returns the box it covers.
// The box is clipped to dst; an empty rectangle means nothing was drawn.
func (t *Timecode) Draw(dst *image.RGBA, ts time.Duration) image.Rectangle {
	t.mu.Lock()
	defer t.mu.Unlock()

	glyphs, width := t.shape(FormatTimecode(ts))
	box := t.place(dst.Bounds(), t.boxSize(width))
	clipped := box.Intersect(dst.Bounds())
	if clipped.Empty() {
		return image.Rectangle{}
	}
	draw.Draw(dst, clipped, image.NewUniform(t.box), image.Point{}, draw.Over)

	fg := image.NewUniform(t.text)
	penX := box.Min.X + t.padding
	baseline := box.Min.Y + t.padding + t.ascent
	for _, g := range glyphs {
		gm := t.mask(sfnt.GlyphIndex(g.GlyphID))
		if gm.mask != nil {
			origin := image.Pt(
				penX+int(math.Round(fixedToFloat(g.XOffset))),
				baseline-int(math.Round(fixedToFloat(g.YOffset))),
			).Add(gm.offset)
			r := gm.mask.Bounds().Add(origin)
			draw.DrawMask(dst, r, fg, image.Point{}, gm.mask, image.Point{}, draw.Over)
		}
		penX += int(math.Round(fixedToFloat(g.Advance)))
	}
	return clipped
}

// place anchors a box of the given size to the configured corner of bounds.
func (t *Timecode) place(bounds image.Rectangle, size image.Point) image.Rectangle {
	var p image.Point
	switch t.corner {
	case TopLeft:
		p = image.Pt(bounds.Min.X+t.margin, bounds.Min.Y+t.margin)
	case BottomRight:
		p = image.Pt(bounds.Max.X-t.margin-size.X, bounds.Max.Y-t.margin-size.Y)
	case BottomLeft:
		p = image.Pt(bounds.Min.X+t.margin, bounds.Max.Y-t.margin-size.Y)
	default:
		p = image.Pt(bounds.Max.X-t.margin-size.X, bounds.Min.Y+t.margin)
	}
	return image.Rectangle{Min: p, Max: p.Add(size)}
}

// shape runs HarfBuzz over text and returns the glyphs and the total advance
// in pixels. Caller holds t.mu.
func (t *Timecode) shape(text string) ([]shaping.Glyph, int) {
	if text == "" {
		return nil, 0
	}
	runes := []rune(text)
	out := t.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      t.face,
		Size:      t.ppem(),
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
	})
	width := 0
	for _, g := range out.Glyphs {
		width += int(math.Round(fixedToFloat(g.Advance)))
	}
	return out.Glyphs, width
}

// mask returns the cached coverage mask of gid, rasterizing it on first use.
// Caller holds t.mu.
func (t *Timecode) mask(gid sfnt.GlyphIndex) glyphMask {
	if gm, ok := t.glyphs[gid]; ok {
		return gm
	}
	gm := t.rasterize(gid)
	t.glyphs[gid] = gm
	return gm
}

func (t *Timecode) rasterize(gid sfnt.GlyphIndex) glyphMask {
	segs, err := t.outline.LoadGlyph(&t.buf, gid, t.ppem(), nil)
	if err != nil || len(segs) == 0 {
		return glyphMask{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range segs {
		for _, p := range s.Args[:argCount(s.Op)] {
			x, y := fixedToFloat(p.X), fixedToFloat(p.Y)
			minX, minY = math.Min(minX, x), math.Min(minY, y)
			maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
		}
	}
	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	w := int(math.Ceil(maxX)) - x0
	h := int(math.Ceil(maxY)) - y0
	if w <= 0 || h <= 0 {
		return glyphMask{}
	}

	fx, fy := float32(x0), float32(y0)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(fixedToFloat(p.X)) - fx, float32(fixedToFloat(p.Y)) - fy
	}
	z := vector.NewRasterizer(w, h)
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			z.ClosePath()
			z.MoveTo(pt(s.Args[0]))
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(s.Args[0])
			cx, cy := pt(s.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(s.Args[0])
			cx, cy := pt(s.Args[1])
			dx, dy := pt(s.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return glyphMask{mask: mask, offset: image.Pt(x0, y0)}
}

func argCount(op sfnt.SegmentOp) int {
	switch op {
	case sfnt.SegmentOpQuadTo:
		return 2
	case sfnt.SegmentOpCubeTo:
		return 3
	default:
		return 1
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
