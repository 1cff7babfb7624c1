package main

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/gogpu/panorama"
	"github.com/gogpu/panorama/frame"
	"github.com/gogpu/panorama/orient"
)

// sectors are the longitude band colours, starting at the left edge of the
// equirectangular image (longitude -180°).
var sectors = [8]color.RGBA{
	{R: 200, G: 60, B: 60, A: 255},
	{R: 200, G: 140, B: 40, A: 255},
	{R: 190, G: 190, B: 50, A: 255},
	{R: 70, G: 180, B: 70, A: 255},
	{R: 50, G: 170, B: 170, A: 255},
	{R: 60, G: 100, B: 200, A: 255},
	{R: 130, G: 70, B: 190, A: 255},
	{R: 190, G: 70, B: 150, A: 255},
}

var (
	gridColor  = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	sweepColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// sweepRate is how fast the white marker circles the horizon.
const sweepRate = 30.0 // degrees per second

// drawPattern fills dst with an equirectangular test card: eight longitude
// bands, a grid line every 15° and a marker sweeping along the equator at t.
func drawPattern(dst *image.RGBA, t time.Duration) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	sweep := math.Mod(180+sweepRate*t.Seconds(), 360) - 180
	for y := range h {
		lat := 90 - (float64(y)+0.5)*180/float64(h)
		for x := range w {
			lon := (float64(x)+0.5)*360/float64(w) - 180
			c := sectors[min(int((lon+180)/45), len(sectors)-1)]
			switch {
			case math.Abs(lat) < 4 && math.Abs(angleDiff(lon, sweep)) < 3:
				c = sweepColor
			case onGrid(lon, 360/float64(w)) || onGrid(lat, 180/float64(h)):
				c = gridColor
			}
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, c)
		}
	}
}

// onGrid reports whether deg lies within one pixel step of a 15° line.
func onGrid(deg, step float64) bool {
	r := math.Mod(math.Abs(deg), 15)
	return r < step || 15-r < step*0.5
}

func angleDiff(a, b float64) float64 {
	return math.Remainder(a-b, 360)
}

// source produces test cards at a fixed rate. Buffers return to the pool
// when the engine releases them.
type source struct {
	w, h int
	fps  float64
	pool sync.Pool
}

func newSource(w, h int, fps float64) *source {
	s := &source{w: w, h: h, fps: fps}
	s.pool.New = func() any { return image.NewRGBA(image.Rect(0, 0, w, h)) }
	return s
}

// frameAt renders the card for t into a pooled buffer.
func (s *source) frameAt(t time.Duration) *image.RGBA {
	img := s.pool.Get().(*image.RGBA)
	drawPattern(img, t)
	return img
}

// run submits frames until ctx is done and returns how many it produced.
func (s *source) run(ctx context.Context, e *panorama.Engine) uint64 {
	interval := time.Duration(float64(time.Second) / s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return n
		case <-ticker.C:
			ts := time.Duration(n) * interval
			img := s.frameAt(ts)
			e.SetPixelBuffer(img, ts, frame.WithRelease(func() { s.pool.Put(img) }))
			n++
		}
	}
}

// gyro simulates a device slowly turning back and forth about the vertical
// axis.
type gyro struct {
	interval time.Duration
	period   time.Duration
	peak     float64 // rad/s
}

func newGyro(interval time.Duration) *gyro {
	return &gyro{interval: interval, period: 8 * time.Second, peak: 0.6}
}

// sample returns the rotation rate sample at elapsed time t.
func (g *gyro) sample(t time.Duration) orient.Sample {
	phase := 2 * math.Pi * t.Seconds() / g.period.Seconds()
	return orient.Sample{
		RotationRate: orient.V3(0, g.peak*math.Sin(phase), 0),
		Interval:     g.interval,
	}
}

func (g *gyro) run(ctx context.Context, e *panorama.Engine) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.HandleMotion(g.sample(now.Sub(start)))
		}
	}
}
