// Package quaternion implements Hamilton quaternion algebra and conversion
// to/from Tait-Bryan (321 / ZYX) angles, stored as [w, x, y, z].
package quaternion

import "math"

// Quaternion is a unit (or near-unit) rotation represented as [w, x, y, z].
type Quaternion [4]float64

// Identity returns the identity rotation.
func Identity() Quaternion { return Quaternion{1, 0, 0, 0} }

// Mul computes the Hamilton product q*r (q applied after r).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		q[0]*r[0] - q[1]*r[1] - q[2]*r[2] - q[3]*r[3],
		q[0]*r[1] + q[1]*r[0] + q[2]*r[3] - q[3]*r[2],
		q[0]*r[2] - q[1]*r[3] + q[2]*r[0] + q[3]*r[1],
		q[0]*r[3] + q[1]*r[2] - q[2]*r[1] + q[3]*r[0],
	}
}

// Conjugate returns the conjugate (inverse, for unit quaternions).
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{q[0], -q[1], -q[2], -q[3]}
}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalized returns q scaled to unit norm; the zero quaternion is returned
// unchanged.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return Quaternion{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}

// RotateVector rotates the 3-vector v by the unit quaternion q.
func (q Quaternion) RotateVector(v [3]float64) [3]float64 {
	p := Quaternion{0, v[0], v[1], v[2]}
	r := q.Mul(p).Mul(q.Conjugate())
	return [3]float64{r[1], r[2], r[3]}
}

// RotationMatrix returns the 3x3 rotation matrix equivalent to unit
// quaternion q, row-major.
func (q Quaternion) RotationMatrix() [3][3]float64 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z
	return [3][3]float64{
		{1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy)},
		{2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx)},
		{2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy)},
	}
}

// TaitBryan is a 321 (ZYX) Euler angle triple: [pitch_X, roll_Y, yaw_Z] in
// radians, matching the output record's axis ordering.
type TaitBryan struct {
	PitchX float64
	RollY  float64
	YawZ   float64
}

// ToTaitBryan converts a unit quaternion to 321 Tait-Bryan angles.
func ToTaitBryan(q Quaternion) TaitBryan {
	w, x, y, z := q[0], q[1], q[2], q[3]

	sinrCosp := 2 * (w*x + y*z)
	cosrCosp := 1 - 2*(x*x+y*y)
	roll := math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (w*y - z*x)
	var pitch float64
	if sinp >= 1 {
		pitch = math.Pi / 2
	} else if sinp <= -1 {
		pitch = -math.Pi / 2
	} else {
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	yaw := math.Atan2(sinyCosp, cosyCosp)

	return TaitBryan{PitchX: pitch, RollY: roll, YawZ: yaw}
}

// FromTaitBryan converts 321 Tait-Bryan angles to a unit quaternion.
func FromTaitBryan(tb TaitBryan) Quaternion {
	cy := math.Cos(tb.YawZ * 0.5)
	sy := math.Sin(tb.YawZ * 0.5)
	cr := math.Cos(tb.RollY * 0.5)
	sr := math.Sin(tb.RollY * 0.5)
	cp := math.Cos(tb.PitchX * 0.5)
	sp := math.Sin(tb.PitchX * 0.5)

	return Quaternion{
		cr*cp*cy + sr*sp*sy,
		sr*cp*cy - cr*sp*sy,
		cr*sp*cy + sr*cp*sy,
		cr*cp*sy - sr*sp*cy,
	}
}

// WrapToPi reduces an angle in radians into (-pi, pi].
func WrapToPi(a float64) float64 {
	r := math.Mod(a, 2*math.Pi)
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}
