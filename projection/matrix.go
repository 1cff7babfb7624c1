// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package projection

import (
	"math"

	"github.com/gogpu/panorama/orient"
)

// Vec4 is a homogeneous clip-space coordinate.
type Vec4 struct {
	X, Y, Z, W float64
}

// Mat4 is a 4x4 matrix in row-major order acting on column vectors:
//
//	| m0  m1  m2  m3  |   | x |
//	| m4  m5  m6  m7  | * | y |
//	| m8  m9  m10 m11 |   | z |
//	| m12 m13 m14 m15 |   | w |
type Mat4 [16]float64

// IdentityMat4 returns the identity matrix.
func IdentityMat4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// RotationMat4 returns the rotation matrix of q.
func RotationMat4(q orient.Quat) Mat4 {
	r := q.Matrix()
	return Mat4{
		r[0], r[1], r[2], 0,
		r[3], r[4], r[5], 0,
		r[6], r[7], r[8], 0,
		0, 0, 0, 1,
	}
}

// Perspective returns an OpenGL-style projection matrix mapping the view
// frustum to clip space. fovY is the vertical field of view in radians.
func Perspective(fovY, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fovY/2)
	nf := 1 / (near - far)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, 2 * far * near * nf,
		0, 0, -1, 0,
	}
}

// Multiply returns m * n. Applied to a vector, n transforms first.
func (m Mat4) Multiply(n Mat4) Mat4 {
	var out Mat4
	for row := range 4 {
		for col := range 4 {
			var sum float64
			for k := range 4 {
				sum += m[row*4+k] * n[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for row := range 4 {
		for col := range 4 {
			out[col*4+row] = m[row*4+col]
		}
	}
	return out
}

// TransformPoint applies the matrix to a point (w = 1).
func (m Mat4) TransformPoint(p orient.Vec3) Vec4 {
	return Vec4{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
		W: m[12]*p.X + m[13]*p.Y + m[14]*p.Z + m[15],
	}
}

// TransformVector applies the matrix to a direction (w = 0).
func (m Mat4) TransformVector(v orient.Vec3) orient.Vec3 {
	return orient.Vec3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}
