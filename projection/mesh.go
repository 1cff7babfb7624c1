// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"math"
	"sync"

	"github.com/gogpu/panorama/orient"
)

// DefaultFOV is the vertical field of view, in degrees, at which the flat
// quad exactly fills the viewport height.
const DefaultFOV = 75.0

// Mesh tessellation used by MeshCache.
const (
	SphereSlices   = 72
	SphereStacks   = 36
	CylinderSlices = 72
)

// Shape selects the surface the frame is mapped onto.
type Shape uint8

const (
	// ShapeQuad is a flat rectangle in front of the camera.
	ShapeQuad Shape = iota
	// ShapeSphere is a full equirectangular sphere around the camera.
	ShapeSphere
	// ShapeCylinder is an open cylinder around the camera.
	ShapeCylinder
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeQuad:
		return "quad"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	default:
		return "unknown"
	}
}

// Vertex is a mesh vertex with texture coordinates.
// U grows to the right and V grows downward in the texture.
type Vertex struct {
	Pos  orient.Vec3
	U, V float64
}

// Mesh is an indexed triangle list. Meshes are immutable once built.
type Mesh struct {
	Shape    Shape
	Vertices []Vertex
	Indices  []uint32
}

// Triangles returns the number of triangles.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// triangle returns the vertices of triangle i.
func (m *Mesh) triangle(i int) (a, b, c Vertex) {
	return m.Vertices[m.Indices[3*i]], m.Vertices[m.Indices[3*i+1]], m.Vertices[m.Indices[3*i+2]]
}

// equirect maps texture coordinates to a direction on the unit sphere.
// (0.5, 0.5) maps to -Z.
func equirect(u, v float64) orient.Vec3 {
	lon := (u - 0.5) * 2 * math.Pi
	lat := (0.5 - v) * math.Pi
	sinLon, cosLon := math.Sincos(lon)
	sinLat, cosLat := math.Sincos(lat)
	return orient.Vec3{X: sinLon * cosLat, Y: sinLat, Z: -cosLon * cosLat}
}

// grid builds (cols+1) x (rows+1) vertices with pos computed from u, v and
// two triangles per cell. The u = 0 and u = 1 columns are separate vertices
// so no triangle spans the texture seam.
func grid(shape Shape, cols, rows int, pos func(u, v float64) orient.Vec3) *Mesh {
	m := &Mesh{
		Shape:    shape,
		Vertices: make([]Vertex, 0, (cols+1)*(rows+1)),
		Indices:  make([]uint32, 0, cols*rows*6),
	}
	for i := 0; i <= rows; i++ {
		v := float64(i) / float64(rows)
		for j := 0; j <= cols; j++ {
			u := float64(j) / float64(cols)
			m.Vertices = append(m.Vertices, Vertex{Pos: pos(u, v), U: u, V: v})
		}
	}
	stride := uint32(cols + 1)
	for i := range uint32(rows) {
		for j := range uint32(cols) {
			a := i*stride + j
			b := a + 1
			c := a + stride
			d := c + 1
			m.Indices = append(m.Indices, a, c, b, b, c, d)
		}
	}
	return m
}

// Sphere builds a unit sphere with equirectangular texture coordinates.
func Sphere(slices, stacks int) *Mesh {
	slices = max(slices, 3)
	stacks = max(stacks, 2)
	return grid(ShapeSphere, slices, stacks, equirect)
}

// Cylinder builds an open unit-radius cylinder of the given height centred
// on the camera. The texture wraps once around the circumference.
func Cylinder(slices int, height float64) *Mesh {
	slices = max(slices, 3)
	return grid(ShapeCylinder, slices, 1, func(u, v float64) orient.Vec3 {
		sinLon, cosLon := math.Sincos((u - 0.5) * 2 * math.Pi)
		return orient.Vec3{X: sinLon, Y: (0.5 - v) * height, Z: -cosLon}
	})
}

// Quad builds a width x height rectangle on the plane z = -1.
func Quad(width, height float64) *Mesh {
	return grid(ShapeQuad, 1, 1, func(u, v float64) orient.Vec3 {
		return orient.Vec3{X: (u - 0.5) * width, Y: (0.5 - v) * height, Z: -1}
	})
}

// NewMesh builds the mesh for shape using a texture of the given aspect
// ratio (width / height).
//
// The cylinder height keeps texels square over a full turn. The quad fills
// the viewport height at DefaultFOV and keeps the texture aspect.
func NewMesh(shape Shape, aspect float64) *Mesh {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	switch shape {
	case ShapeSphere:
		return Sphere(SphereSlices, SphereStacks)
	case ShapeCylinder:
		return Cylinder(CylinderSlices, 2*math.Pi/aspect)
	default:
		h := 2 * math.Tan(orient.Radians(DefaultFOV)/2)
		return Quad(h*aspect, h)
	}
}

type meshEntry struct {
	aspect int64 // aspect * 1000, rounded
	mesh   *Mesh
}

// MeshCache memoizes the mesh of each shape for the last texture aspect it
// was asked for. A new aspect replaces the cached mesh of that shape, so the
// cache holds at most one mesh per shape.
//
// MeshCache is safe for concurrent use.
type MeshCache struct {
	mu     sync.Mutex
	meshes map[Shape]meshEntry
}

// NewMeshCache creates an empty cache.
func NewMeshCache() *MeshCache {
	return &MeshCache{meshes: make(map[Shape]meshEntry)}
}

// Get returns the cached mesh for shape and aspect, building it when the
// shape has no mesh yet or its aspect changed.
func (c *MeshCache) Get(shape Shape, aspect float64) *Mesh {
	var key int64
	if shape != ShapeSphere {
		key = int64(math.Round(aspect * 1000))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.meshes[shape]; ok && e.aspect == key {
		return e.mesh
	}
	m := NewMesh(shape, aspect)
	c.meshes[shape] = meshEntry{aspect: key, mesh: m}
	return m
}

// Len returns the number of cached meshes.
func (c *MeshCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.meshes)
}
