package main

import (
	"context"
	"image"
	"math"
	"testing"
	"time"
)

func TestDrawPatternSectors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 360, 180))
	drawPattern(img, 0)

	// Pixel centres away from grid lines and the sweep marker.
	tests := []struct {
		x, y int
		want int
	}{
		{7, 30, 0},
		{52, 30, 1},
		{187, 30, 4},
		{352, 140, 7},
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.x, tt.y); got != sectors[tt.want] {
			t.Errorf("pixel (%d, %d) = %v, want sector %d %v", tt.x, tt.y, got, tt.want, sectors[tt.want])
		}
	}
}

func TestDrawPatternSweepMoves(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 360, 180))

	// At t=0 the marker sits at longitude 0, one second later 30° east.
	drawPattern(img, time.Second)
	if got := img.RGBAAt(209, 90); got != sweepColor {
		t.Errorf("pixel at lon 30 = %v, want the sweep marker", got)
	}
	if got := img.RGBAAt(97, 90); got == sweepColor {
		t.Error("sweep marker drawn far from its position")
	}
}

func TestSourceRecyclesBuffers(t *testing.T) {
	src := newSource(64, 32, 30)
	img := src.frameAt(0)
	if got := img.Bounds(); got != image.Rect(0, 0, 64, 32) {
		t.Fatalf("frame bounds = %v", got)
	}
	src.pool.Put(img)
	if again := src.frameAt(time.Second); again.Bounds() != img.Bounds() {
		t.Errorf("pooled frame bounds = %v", again.Bounds())
	}
}

func TestGyroSample(t *testing.T) {
	g := newGyro(time.Second / 60)
	if s := g.sample(0); s.RotationRate.Length() != 0 {
		t.Errorf("sample(0) rate = %v, want still", s.RotationRate)
	}
	s := g.sample(2 * time.Second)
	if math.Abs(s.RotationRate.Y-g.peak) > 1e-9 || s.Interval != time.Second/60 {
		t.Errorf("sample at quarter period = %+v, want peak yaw rate", s)
	}
}

func TestSourceRun(t *testing.T) {
	e := testEngine(t)
	src := newSource(64, 32, 200)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if n := src.run(ctx, e); n == 0 {
		t.Fatal("source produced no frames")
	}
	if got := e.Stats().Frames.Submitted; got == 0 {
		t.Error("engine received no frames")
	}
}
