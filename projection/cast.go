// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"math"

	"github.com/gogpu/panorama/orient"
)

// Coordinate is a point on the display mesh.
type Coordinate struct {
	// U and V are texture coordinates in [0, 1].
	U, V float64

	// Latitude and Longitude are in degrees. Longitude 0 is the mesh front
	// and grows to the right; latitude grows upward.
	Latitude, Longitude float64
}

const castEpsilon = 1e-9

// Cast intersects the ray through screen point (x, y) of a w x h viewport
// with mesh. It reports false when the ray misses, which only happens for
// meshes that do not enclose the camera.
func Cast(mesh *Mesh, cam Camera, x, y, w, h float64) (Coordinate, bool) {
	if mesh == nil || w <= 0 || h <= 0 {
		return Coordinate{}, false
	}
	dir := cam.Ray(x, y, w, h)

	best := math.Inf(1)
	var hitU, hitV float64
	found := false
	for i := range mesh.Triangles() {
		a, b, c := mesh.triangle(i)
		t, bu, bv, ok := intersect(dir, a.Pos, b.Pos, c.Pos)
		if !ok || t >= best {
			continue
		}
		best = t
		bw := 1 - bu - bv
		hitU = bw*a.U + bu*b.U + bv*c.U
		hitV = bw*a.V + bu*b.V + bv*c.V
		found = true
	}
	if !found {
		return Coordinate{}, false
	}

	p := dir.Mul(best)
	return Coordinate{
		U:         hitU,
		V:         hitV,
		Latitude:  orient.Degrees(math.Asin(min(max(p.Y/p.Length(), -1), 1))),
		Longitude: orient.Degrees(math.Atan2(p.X, -p.Z)),
	}, true
}

// intersect is the Möller-Trumbore ray/triangle test for a ray from the
// origin. It returns the ray distance and the barycentric weights of b and c.
func intersect(dir, a, b, c orient.Vec3) (t, u, v float64, ok bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < castEpsilon {
		return 0, 0, 0, false
	}
	inv := 1 / det
	s := a.Neg()
	u = s.Dot(p) * inv
	if u < -castEpsilon || u > 1+castEpsilon {
		return 0, 0, 0, false
	}
	q := s.Cross(e1)
	v = dir.Dot(q) * inv
	if v < -castEpsilon || u+v > 1+castEpsilon {
		return 0, 0, 0, false
	}
	t = e2.Dot(q) * inv
	if t <= castEpsilon {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
