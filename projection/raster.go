// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/panorama/internal/parallel"
)

// DefaultMarkerWidth is the half-width of touch marker lines in texture units.
const DefaultMarkerWidth = 0.0015

// minClipW keeps vertices strictly in front of the camera after clipping.
const minClipW = 1e-5

// Marker is a touch position on the mesh, drawn as one line of constant
// latitude and one of constant longitude.
type Marker struct {
	U, V float64
}

// DrawOptions configures one draw.
type DrawOptions struct {
	Filter Filter

	// Background fills pixels the mesh does not cover.
	Background color.RGBA

	Markers     []Marker
	MarkerColor color.RGBA
	// MarkerWidth defaults to DefaultMarkerWidth.
	MarkerWidth float64
}

// Rasterizer maps a texture onto a mesh in software.
//
// The target is split into horizontal bands that render concurrently, one
// band per task. Rasterizer is safe for concurrent use; draws into distinct
// targets may overlap.
type Rasterizer struct {
	pool *parallel.WorkerPool
}

// NewRasterizer creates a rasterizer with the given number of band workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewRasterizer(workers int) *Rasterizer {
	return &Rasterizer{pool: parallel.NewWorkerPool(workers)}
}

// Workers returns the number of band workers.
func (r *Rasterizer) Workers() int {
	return r.pool.Workers()
}

// Close stops the band workers. Later draws run on the calling goroutine.
func (r *Rasterizer) Close() {
	r.pool.Close()
}

// screenVertex is a clipped vertex after perspective divide.
// u, v and invW are divided by w for perspective-correct interpolation.
type screenVertex struct {
	x, y   float64
	uw, vw float64
	invW   float64
}

type screenTriangle struct {
	v          [3]screenVertex
	area       float64
	minY, maxY int
}

// Draw renders tex mapped onto mesh as seen by cam into dst. A nil texture
// or mesh clears dst to the background.
func (r *Rasterizer) Draw(dst *image.RGBA, tex *Texture, mesh *Mesh, cam Camera, opts DrawOptions) {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return
	}
	if opts.MarkerWidth <= 0 {
		opts.MarkerWidth = DefaultMarkerWidth
	}

	var tris []screenTriangle
	if tex != nil && mesh != nil {
		tris = setup(mesh, cam, float64(w), float64(h))
	}

	rows := max(1, (h+r.pool.Workers()*2-1)/(r.pool.Workers()*2))
	bands := (h + rows - 1) / rows
	r.pool.Run(bands, func(i int) {
		y0 := i * rows
		y1 := min(y0+rows, h)
		clearRows(dst, y0, y1, opts.Background)
		for t := range tris {
			if tris[t].maxY < y0 || tris[t].minY >= y1 {
				continue
			}
			fill(dst, &tris[t], y0, y1, tex, &opts)
		}
	})
}

// setup transforms, clips and projects every triangle of mesh.
func setup(mesh *Mesh, cam Camera, w, h float64) []screenTriangle {
	mvp := cam.ViewProjection()
	clip := make([]Vec4, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		clip[i] = mvp.TransformPoint(v.Pos)
	}

	tris := make([]screenTriangle, 0, mesh.Triangles())
	var poly, scratch []clipVertex
	for i := range mesh.Triangles() {
		ia, ib, ic := mesh.Indices[3*i], mesh.Indices[3*i+1], mesh.Indices[3*i+2]
		poly = append(poly[:0],
			clipVertex{clip[ia], mesh.Vertices[ia].U, mesh.Vertices[ia].V},
			clipVertex{clip[ib], mesh.Vertices[ib].U, mesh.Vertices[ib].V},
			clipVertex{clip[ic], mesh.Vertices[ic].U, mesh.Vertices[ic].V},
		)
		poly, scratch = clipNear(poly, scratch)
		if len(poly) < 3 {
			continue
		}
		s0 := project(poly[0], w, h)
		for k := 1; k+1 < len(poly); k++ {
			t := screenTriangle{v: [3]screenVertex{s0, project(poly[k], w, h), project(poly[k+1], w, h)}}
			t.area = edge(t.v[0], t.v[1], t.v[2].x, t.v[2].y)
			if t.area == 0 || math.IsNaN(t.area) {
				continue
			}
			lo := math.Min(t.v[0].y, math.Min(t.v[1].y, t.v[2].y))
			hi := math.Max(t.v[0].y, math.Max(t.v[1].y, t.v[2].y))
			if hi < 0 || lo >= h {
				continue
			}
			t.minY = int(math.Floor(math.Max(lo, 0)))
			t.maxY = int(math.Ceil(math.Min(hi, h-1)))
			tris = append(tris, t)
		}
	}
	return tris
}

type clipVertex struct {
	p    Vec4
	u, v float64
}

// clipNear clips poly against the plane w = minClipW (Sutherland-Hodgman).
// The result reuses scratch; the returned scratch is the old poly buffer.
func clipNear(poly, scratch []clipVertex) (out, spare []clipVertex) {
	out = scratch[:0]
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		aIn := a.p.W >= minClipW
		bIn := b.p.W >= minClipW
		if aIn {
			out = append(out, a)
		}
		if aIn != bIn {
			t := (minClipW - a.p.W) / (b.p.W - a.p.W)
			out = append(out, clipVertex{
				p: Vec4{
					X: a.p.X + (b.p.X-a.p.X)*t,
					Y: a.p.Y + (b.p.Y-a.p.Y)*t,
					Z: a.p.Z + (b.p.Z-a.p.Z)*t,
					W: minClipW,
				},
				u: a.u + (b.u-a.u)*t,
				v: a.v + (b.v-a.v)*t,
			})
		}
	}
	return out, poly
}

func project(c clipVertex, w, h float64) screenVertex {
	inv := 1 / c.p.W
	return screenVertex{
		x:    (c.p.X*inv + 1) * 0.5 * w,
		y:    (1 - c.p.Y*inv) * 0.5 * h,
		uw:   c.u * inv,
		vw:   c.v * inv,
		invW: inv,
	}
}

// edge is twice the signed area of (a, b, p).
func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// fill rasterizes rows [y0, y1) of t into dst. Pixels are sampled at their
// centres and edges are inclusive, so shared edges leave no cracks.
func fill(dst *image.RGBA, t *screenTriangle, y0, y1 int, tex *Texture, opts *DrawOptions) {
	w := dst.Bounds().Dx()
	a, b, c := t.v[0], t.v[1], t.v[2]
	lo := math.Min(a.x, math.Min(b.x, c.x))
	hi := math.Max(a.x, math.Max(b.x, c.x))
	if hi < 0 || lo > float64(w) {
		return
	}
	minX := int(math.Floor(math.Max(lo, 0)))
	maxX := int(math.Ceil(math.Min(hi, float64(w-1))))
	if minX > maxX {
		return
	}
	inv := 1 / t.area
	const eps = -1e-9

	for y := max(y0, t.minY); y < min(y1, t.maxY+1); y++ {
		py := float64(y) + 0.5
		row := dst.Pix[y*dst.Stride:]
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			l0 := edge(b, c, px, py) * inv
			l1 := edge(c, a, px, py) * inv
			l2 := edge(a, b, px, py) * inv
			if l0 < eps || l1 < eps || l2 < eps {
				continue
			}
			iw := l0*a.invW + l1*b.invW + l2*c.invW
			if iw <= 0 {
				continue
			}
			u := (l0*a.uw + l1*b.uw + l2*c.uw) / iw
			v := (l0*a.vw + l1*b.vw + l2*c.vw) / iw

			var px4 [4]uint8
			if onMarker(u, v, opts) {
				mc := opts.MarkerColor
				px4 = [4]uint8{mc.R, mc.G, mc.B, mc.A}
			} else {
				px4 = tex.Sample(u, v, opts.Filter)
			}
			copy(row[x*4:x*4+4], px4[:])
		}
	}
}

func onMarker(u, v float64, opts *DrawOptions) bool {
	for _, m := range opts.Markers {
		du := math.Abs(u - m.U)
		du = math.Min(du, 1-du)
		if du <= opts.MarkerWidth || math.Abs(v-m.V) <= opts.MarkerWidth {
			return true
		}
	}
	return false
}

func clearRows(dst *image.RGBA, y0, y1 int, bg color.RGBA) {
	w := dst.Bounds().Dx()
	px := [4]uint8{bg.R, bg.G, bg.B, bg.A}
	for y := y0; y < y1; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			copy(row[x:x+4], px[:])
		}
	}
}
