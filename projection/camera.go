// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"math"

	"github.com/gogpu/panorama/orient"
)

// Clip planes of the perspective projection. Every mesh lies on or inside
// the unit sphere around the camera, so the far plane never clips it.
const (
	NearPlane = 0.01
	FarPlane  = 100.0
)

// Field of view limits applied by Camera regardless of engine configuration.
const (
	minCameraFOV = 0.1
	maxCameraFOV = 179.9
)

// Camera is a virtual camera at the origin.
type Camera struct {
	// Orientation rotates camera space into world space. The identity looks
	// down -Z at the mesh front.
	Orientation orient.Quat

	// FOV is the vertical field of view in degrees.
	FOV float64

	// Aspect is viewport width divided by height.
	Aspect float64
}

// FieldOfView returns the clamped vertical field of view in radians.
func (c Camera) FieldOfView() float64 {
	fov := c.FOV
	if math.IsNaN(fov) {
		fov = DefaultFOV
	}
	return orient.Radians(min(max(fov, minCameraFOV), maxCameraFOV))
}

func (c Camera) aspect() float64 {
	if c.Aspect <= 0 || math.IsNaN(c.Aspect) || math.IsInf(c.Aspect, 0) {
		return 1
	}
	return c.Aspect
}

func (c Camera) orientation() orient.Quat {
	if c.Orientation == (orient.Quat{}) {
		return orient.Identity()
	}
	return c.Orientation.Normalize()
}

// View returns the world-to-camera matrix.
func (c Camera) View() Mat4 {
	return RotationMat4(c.orientation()).Transpose()
}

// Projection returns the camera-to-clip matrix.
func (c Camera) Projection() Mat4 {
	return Perspective(c.FieldOfView(), c.aspect(), NearPlane, FarPlane)
}

// ViewProjection returns Projection * View.
func (c Camera) ViewProjection() Mat4 {
	return c.Projection().Multiply(c.View())
}

// Ray returns the unit world-space direction through screen point (x, y)
// of a w x h viewport. The origin is top-left.
func (c Camera) Ray(x, y, w, h float64) orient.Vec3 {
	if w <= 0 || h <= 0 {
		return c.orientation().Forward()
	}
	ndcX := 2*x/w - 1
	ndcY := 1 - 2*y/h
	t := math.Tan(c.FieldOfView() / 2)
	dir := orient.Vec3{X: ndcX * t * c.aspect(), Y: ndcY * t, Z: -1}
	return c.orientation().Rotate(dir).Normalize()
}
