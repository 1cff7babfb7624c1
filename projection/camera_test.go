// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"math"
	"testing"

	"github.com/gogpu/panorama/orient"
)

const eps = 1e-9

func TestPerspectiveDepthRange(t *testing.T) {
	m := Perspective(orient.Radians(60), 1.5, NearPlane, FarPlane)

	near := m.TransformPoint(orient.Vec3{Z: -NearPlane})
	if got := near.Z / near.W; math.Abs(got+1) > eps {
		t.Errorf("near plane ndc z = %v, want -1", got)
	}
	far := m.TransformPoint(orient.Vec3{Z: -FarPlane})
	if got := far.Z / far.W; math.Abs(got-1) > 1e-6 {
		t.Errorf("far plane ndc z = %v, want 1", got)
	}
}

func TestMat4MultiplyIdentity(t *testing.T) {
	m := RotationMat4(orient.YawPitchRoll(0.3, -0.2, 0.1))
	if got := m.Multiply(IdentityMat4()); got != m {
		t.Errorf("m * I = %v, want %v", got, m)
	}
	if got := IdentityMat4().Multiply(m); got != m {
		t.Errorf("I * m = %v, want %v", got, m)
	}
}

func TestRotationTransposeIsInverse(t *testing.T) {
	m := RotationMat4(orient.YawPitchRoll(1.1, 0.4, -0.7))
	got := m.Multiply(m.Transpose())
	want := IdentityMat4()
	for i := range got {
		if math.Abs(got[i]-want[i]) > eps {
			t.Fatalf("R * Rt = %v, want identity", got)
		}
	}
}

func TestRotationMatchesQuat(t *testing.T) {
	q := orient.YawPitchRoll(0.5, 0.25, 0)
	v := orient.V3(0.2, -0.4, -1)
	got := RotationMat4(q).TransformVector(v)
	if want := q.Rotate(v); !got.Approx(want, eps) {
		t.Errorf("matrix rotate = %v, quat rotate = %v", got, want)
	}
}

func TestCameraFieldOfViewClamp(t *testing.T) {
	tests := []struct {
		name string
		fov  float64
		want float64
	}{
		{"normal", 75, 75},
		{"zero", 0, minCameraFOV},
		{"negative", -20, minCameraFOV},
		{"straight", 180, maxCameraFOV},
		{"nan", math.NaN(), DefaultFOV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Camera{FOV: tt.fov, Aspect: 1}
			if got := orient.Degrees(c.FieldOfView()); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FieldOfView() = %v deg, want %v", got, tt.want)
			}
		})
	}
}

func TestCameraDefaultLooksAtFront(t *testing.T) {
	var c Camera // zero orientation means identity
	c.FOV = 75
	dir := c.Ray(50, 50, 100, 100)
	if !dir.Approx(orient.Forward, eps) {
		t.Errorf("centre ray = %v, want %v", dir, orient.Forward)
	}
	if v := c.View(); v != IdentityMat4() {
		t.Errorf("View() = %v, want identity", v)
	}
}

func TestCameraRayTopEdgeIsHalfFOV(t *testing.T) {
	c := Camera{Orientation: orient.Identity(), FOV: 60, Aspect: 2}
	dir := c.Ray(100, 0, 200, 100)
	got := math.Acos(dir.Dot(orient.Forward))
	if want := orient.Radians(30); math.Abs(got-want) > eps {
		t.Errorf("angle to top edge = %v, want %v", got, want)
	}
}

func TestCameraRayRoundTrip(t *testing.T) {
	c := Camera{Orientation: orient.YawPitchRoll(0.7, -0.3, 0.2), FOV: 80, Aspect: 16.0 / 9.0}
	const w, h = 320.0, 180.0
	vp := c.ViewProjection()

	for _, pt := range [][2]float64{{160, 90}, {10, 20}, {300, 170}, {0, 180}} {
		dir := c.Ray(pt[0], pt[1], w, h)
		clip := vp.TransformPoint(dir)
		sx := (clip.X/clip.W + 1) * 0.5 * w
		sy := (1 - clip.Y/clip.W) * 0.5 * h
		if math.Abs(sx-pt[0]) > 1e-6 || math.Abs(sy-pt[1]) > 1e-6 {
			t.Errorf("Ray(%v) projects back to (%v, %v)", pt, sx, sy)
		}
	}
}

func TestCameraYawLeft(t *testing.T) {
	c := Camera{Orientation: orient.AxisAngle(orient.Up, math.Pi/2), FOV: 75, Aspect: 1}
	dir := c.Ray(50, 50, 100, 100)
	if want := orient.V3(-1, 0, 0); !dir.Approx(want, eps) {
		t.Errorf("centre ray after yaw left = %v, want %v", dir, want)
	}
}
