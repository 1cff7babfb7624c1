// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"math"
	"testing"

	"github.com/gogpu/panorama/orient"
)

func TestSphereGeometry(t *testing.T) {
	m := Sphere(8, 4)
	if got, want := len(m.Vertices), 9*5; got != want {
		t.Errorf("len(Vertices) = %d, want %d", got, want)
	}
	if got, want := m.Triangles(), 8*4*2; got != want {
		t.Errorf("Triangles() = %d, want %d", got, want)
	}
	for i, v := range m.Vertices {
		if l := v.Pos.Length(); math.Abs(l-1) > eps {
			t.Fatalf("vertex %d at distance %v, want 1", i, l)
		}
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestEquirectFront(t *testing.T) {
	tests := []struct {
		name string
		u, v float64
		want orient.Vec3
	}{
		{"front", 0.5, 0.5, orient.Forward},
		{"right", 0.75, 0.5, orient.V3(1, 0, 0)},
		{"left", 0.25, 0.5, orient.V3(-1, 0, 0)},
		{"north pole", 0.5, 0, orient.Up},
		{"south pole", 0.5, 1, orient.V3(0, -1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := equirect(tt.u, tt.v); !got.Approx(tt.want, eps) {
				t.Errorf("equirect(%v, %v) = %v, want %v", tt.u, tt.v, got, tt.want)
			}
		})
	}
}

func TestCylinderHeight(t *testing.T) {
	m := NewMesh(ShapeCylinder, 2)
	if m.Shape != ShapeCylinder {
		t.Fatalf("Shape = %v", m.Shape)
	}
	top, bottom := math.Inf(-1), math.Inf(1)
	for _, v := range m.Vertices {
		top = math.Max(top, v.Pos.Y)
		bottom = math.Min(bottom, v.Pos.Y)
		if r := math.Hypot(v.Pos.X, v.Pos.Z); math.Abs(r-1) > eps {
			t.Fatalf("vertex radius %v, want 1", r)
		}
	}
	if got := top - bottom; math.Abs(got-math.Pi) > eps {
		t.Errorf("height = %v, want pi for a 2:1 texture", got)
	}
}

func TestQuadFillsDefaultFOV(t *testing.T) {
	m := NewMesh(ShapeQuad, 2)
	halfH := math.Tan(orient.Radians(DefaultFOV) / 2)
	for _, v := range m.Vertices {
		if v.Pos.Z != -1 {
			t.Errorf("quad vertex z = %v, want -1", v.Pos.Z)
		}
		if math.Abs(math.Abs(v.Pos.Y)-halfH) > eps || math.Abs(math.Abs(v.Pos.X)-2*halfH) > eps {
			t.Errorf("quad vertex %v, want corners at (+-%v, +-%v)", v.Pos, 2*halfH, halfH)
		}
	}
}

func TestMeshCache(t *testing.T) {
	c := NewMeshCache()
	a := c.Get(ShapeSphere, 2)
	if b := c.Get(ShapeSphere, 1.5); a != b {
		t.Error("sphere should not depend on texture aspect")
	}
	q1 := c.Get(ShapeQuad, 16.0/9.0)
	if q2 := c.Get(ShapeQuad, 16.0/9.0); q1 != q2 {
		t.Error("same quad built twice")
	}
	c.Get(ShapeCylinder, 2)
	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if q3 := c.Get(ShapeQuad, 4.0/3.0); q3 == q1 {
		t.Error("quad for a new aspect reused the old mesh")
	}
}

func TestMeshCacheBoundedByShape(t *testing.T) {
	c := NewMeshCache()
	for i := range 500 {
		aspect := 1 + float64(i)/100
		c.Get(ShapeQuad, aspect)
		c.Get(ShapeCylinder, aspect)
		c.Get(ShapeSphere, aspect)
	}
	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d after many aspects, want 3", got)
	}
	last := c.Get(ShapeQuad, 1+499.0/100)
	if again := c.Get(ShapeQuad, 1+499.0/100); again != last {
		t.Error("last aspect not kept")
	}
}

func TestShapeString(t *testing.T) {
	tests := map[Shape]string{ShapeQuad: "quad", ShapeSphere: "sphere", ShapeCylinder: "cylinder", Shape(9): "unknown"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Shape(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestCastSphereFront(t *testing.T) {
	mesh := Sphere(SphereSlices, SphereStacks)
	cam := Camera{Orientation: orient.Identity(), FOV: 75, Aspect: 1}

	c, ok := Cast(mesh, cam, 50, 50, 100, 100)
	if !ok {
		t.Fatal("centre ray missed the sphere")
	}
	if math.Abs(c.U-0.5) > 1e-6 || math.Abs(c.V-0.5) > 1e-6 {
		t.Errorf("UV = (%v, %v), want (0.5, 0.5)", c.U, c.V)
	}
	if math.Abs(c.Latitude) > 1e-6 || math.Abs(c.Longitude) > 1e-6 {
		t.Errorf("lat/lon = (%v, %v), want (0, 0)", c.Latitude, c.Longitude)
	}
}

func TestCastSphereYawLeft(t *testing.T) {
	mesh := Sphere(SphereSlices, SphereStacks)
	cam := Camera{Orientation: orient.AxisAngle(orient.Up, math.Pi/2), FOV: 75, Aspect: 1}

	c, ok := Cast(mesh, cam, 50, 50, 100, 100)
	if !ok {
		t.Fatal("ray missed the sphere")
	}
	if math.Abs(c.Longitude+90) > 1e-6 {
		t.Errorf("Longitude = %v, want -90", c.Longitude)
	}
	if math.Abs(c.U-0.25) > 1e-6 {
		t.Errorf("U = %v, want 0.25", c.U)
	}
}

func TestCastSphereAlwaysHits(t *testing.T) {
	mesh := Sphere(16, 8)
	for _, q := range []orient.Quat{
		orient.Identity(),
		orient.YawPitchRoll(math.Pi, 0, 0),
		orient.YawPitchRoll(0.3, math.Pi/2-0.01, 0),
		orient.YawPitchRoll(-2, -1.2, 0.5),
	} {
		cam := Camera{Orientation: q, FOV: 120, Aspect: 1.5}
		for _, pt := range [][2]float64{{0, 0}, {150, 50}, {299, 199}, {37, 181}} {
			if _, ok := Cast(mesh, cam, pt[0], pt[1], 300, 200); !ok {
				t.Errorf("ray %v with orientation %v missed the enclosing sphere", pt, q)
			}
		}
	}
}

func TestCastQuad(t *testing.T) {
	mesh := NewMesh(ShapeQuad, 2)
	cam := Camera{Orientation: orient.Identity(), FOV: DefaultFOV, Aspect: 2}

	c, ok := Cast(mesh, cam, 50, 25, 200, 100)
	if !ok {
		t.Fatal("ray missed the quad")
	}
	if math.Abs(c.U-0.25) > 1e-9 || math.Abs(c.V-0.25) > 1e-9 {
		t.Errorf("UV = (%v, %v), want (0.25, 0.25)", c.U, c.V)
	}

	cam.Orientation = orient.AxisAngle(orient.Up, math.Pi)
	if _, ok := Cast(mesh, cam, 100, 50, 200, 100); ok {
		t.Error("ray looking away from the quad reported a hit")
	}
}

func TestCastCylinderMissesAbove(t *testing.T) {
	mesh := NewMesh(ShapeCylinder, 2)
	cam := Camera{Orientation: orient.AxisAngle(orient.V3(1, 0, 0), orient.Radians(80)), FOV: 30, Aspect: 1}
	if _, ok := Cast(mesh, cam, 50, 50, 100, 100); ok {
		t.Error("ray looking up through the open top reported a hit")
	}
	cam.Orientation = orient.Identity()
	if _, ok := Cast(mesh, cam, 50, 50, 100, 100); !ok {
		t.Error("horizontal ray missed the cylinder")
	}
}

func TestCastInvalidViewport(t *testing.T) {
	if _, ok := Cast(Sphere(8, 4), Camera{FOV: 75}, 1, 1, 0, 0); ok {
		t.Error("Cast with empty viewport reported a hit")
	}
	if _, ok := Cast(nil, Camera{FOV: 75}, 1, 1, 10, 10); ok {
		t.Error("Cast with nil mesh reported a hit")
	}
}
