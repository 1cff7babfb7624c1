package orient

import "math"

// Quat is a rotation quaternion W + Xi + Yj + Zk (Hamilton convention).
//
// Quaternions produced by this package are always normalized. The zero
// value is not a valid rotation; use Identity.
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the identity rotation. A camera with this orientation
// looks down -Z with +Y up.
func Identity() Quat {
	return Quat{W: 1}
}

// AxisAngle creates a rotation of angle radians around axis.
// A zero axis yields the identity rotation.
func AxisAngle(axis Vec3, angle float64) Quat {
	axis = axis.Normalize()
	if axis.IsZero() {
		return Identity()
	}
	s, c := math.Sincos(angle / 2)
	return Quat{W: c, X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

// YawPitchRoll builds a rotation from yaw around +Y, then pitch around the
// rotated +X, then roll around the rotated -Z. Angles are in radians.
func YawPitchRoll(yaw, pitch, roll float64) Quat {
	q := AxisAngle(Up, yaw)
	q = q.Mul(AxisAngle(Vec3{X: 1}, pitch))
	return q.Mul(AxisAngle(Forward, roll))
}

// Mul returns the Hamilton product q * r. Applied to a vector, r rotates
// first and q second.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}.Normalize()
}

// Conjugate returns the inverse rotation.
func (q Quat) Conjugate() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Dot returns the 4D dot product of two quaternions.
func (q Quat) Dot(r Quat) float64 {
	return q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
}

// Norm returns the quaternion magnitude.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.Dot(q))
}

// Normalize returns q scaled to unit length.
// Degenerate input (zero or non-finite) yields the identity rotation.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity()
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.W)).Add(u.Cross(t))
}

// Forward returns the look direction of a camera with this orientation.
func (q Quat) Forward() Vec3 {
	return q.Rotate(Forward)
}

// Angle returns the rotation angle in radians between q and r, in [0, π].
func (q Quat) Angle(r Quat) float64 {
	d := math.Abs(q.Dot(r))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Approx reports whether q and r describe the same rotation within epsilon
// radians. q and -q are treated as equal.
func (q Quat) Approx(r Quat, epsilon float64) bool {
	return q.Angle(r) < epsilon
}

// Slerp interpolates along the shortest arc from q (t=0) to r (t=1).
func (q Quat) Slerp(r Quat, t float64) Quat {
	d := q.Dot(r)
	if d < 0 {
		r = Quat{W: -r.W, X: -r.X, Y: -r.Y, Z: -r.Z}
		d = -d
	}
	if d > 0.9995 {
		return Quat{
			W: q.W + (r.W-q.W)*t,
			X: q.X + (r.X-q.X)*t,
			Y: q.Y + (r.Y-q.Y)*t,
			Z: q.Z + (r.Z-q.Z)*t,
		}.Normalize()
	}
	theta := math.Acos(d)
	sin := math.Sin(theta)
	a := math.Sin((1-t)*theta) / sin
	b := math.Sin(t*theta) / sin
	return Quat{
		W: q.W*a + r.W*b,
		X: q.X*a + r.X*b,
		Y: q.Y*a + r.Y*b,
		Z: q.Z*a + r.Z*b,
	}.Normalize()
}

// Matrix returns the 3x3 rotation matrix in row-major order.
func (q Quat) Matrix() [9]float64 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
