package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation3d is a rotation in 3D space backed by a unit quaternion.
// Constructors always normalize, so every Rotation3d is a versor; q and -q
// describe the same rotation and compare equal. The zero value is the
// identity rotation.
type Rotation3d struct {
	q Quaternion
}

// quaternion returns the backing quaternion, mapping the zero value to the
// identity so that Rotation3d{} behaves as "no rotation".
func (r Rotation3d) quaternion() Quaternion {
	if r.q == (Quaternion{}) {
		return IdentityQuaternion()
	}
	return r.q
}

// NewRotation3d builds a rotation from a quaternion. The quaternion is
// normalized, so any non-zero scalar multiple produces the same rotation.
func NewRotation3d(q Quaternion) Rotation3d {
	return Rotation3d{q: q.Normalize()}
}

// NewRotation3dFromEuler builds a rotation from extrinsic roll, pitch and
// yaw angles in radians, applied about the fixed X, Y and Z axes in that
// order.
//
// https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles
func NewRotation3dFromEuler(roll, pitch, yaw float64) Rotation3d {
	cr := math.Cos(roll * 0.5)
	sr := math.Sin(roll * 0.5)

	cp := math.Cos(pitch * 0.5)
	sp := math.Sin(pitch * 0.5)

	cy := math.Cos(yaw * 0.5)
	sy := math.Sin(yaw * 0.5)

	return Rotation3d{q: Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}}
}

// NewRotation3dFromAxisAngle builds a rotation of angle radians about the
// given axis. The axis need not be normalized; a zero axis yields the
// identity rotation.
func NewRotation3dFromAxisAngle(axis r3.Vec, angle float64) Rotation3d {
	norm := math.Sqrt(axis.X*axis.X + axis.Y*axis.Y + axis.Z*axis.Z)
	if norm == 0.0 {
		return Rotation3d{}
	}

	scale := math.Sin(angle/2.0) / norm
	return Rotation3d{q: Quaternion{
		W: math.Cos(angle / 2.0),
		X: axis.X * scale,
		Y: axis.Y * scale,
		Z: axis.Z * scale,
	}}
}

// NewRotation3dFromRotationVector builds a rotation from a rotation vector
// (axis scaled by angle in radians).
func NewRotation3dFromRotationVector(rvec r3.Vec) Rotation3d {
	return NewRotation3d(QuaternionFromRotationVector(rvec))
}

// NewRotation3dFromMatrix builds a rotation from a 3x3 rotation matrix.
// The matrix must be special orthogonal: R·Rᵀ = I within 1e-9 Frobenius
// norm and det(R) = 1 within 1e-9. Violations return an error rather than
// being silently corrected.
func NewRotation3dFromMatrix(rotationMatrix mat.Matrix) (Rotation3d, error) {
	rows, cols := rotationMatrix.Dims()
	if rows != 3 || cols != 3 {
		return Rotation3d{}, fmt.Errorf("rotation matrix must be 3x3, got %dx%d", rows, cols)
	}

	var rrt mat.Dense
	rrt.Mul(rotationMatrix, rotationMatrix.T())
	var diff mat.Dense
	diff.Sub(&rrt, mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	if mat.Norm(&diff, 2) > epsilon {
		return Rotation3d{}, fmt.Errorf("rotation matrix is not orthogonal:\n%v", mat.Formatted(rotationMatrix))
	}
	if math.Abs(mat.Det(rotationMatrix)-1.0) > epsilon {
		return Rotation3d{}, fmt.Errorf("rotation matrix is orthogonal but not special orthogonal:\n%v", mat.Formatted(rotationMatrix))
	}

	// Matrix to quaternion via trace-based branch selection; the branch is
	// keyed on the largest diagonal entry to avoid dividing by a value
	// close to zero.
	// https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
	at := rotationMatrix.At
	trace := at(0, 0) + at(1, 1) + at(2, 2)
	var w, x, y, z float64

	switch {
	case trace > 0.0:
		s := 0.5 / math.Sqrt(trace+1.0)
		w = 0.25 / s
		x = (at(2, 1) - at(1, 2)) * s
		y = (at(0, 2) - at(2, 0)) * s
		z = (at(1, 0) - at(0, 1)) * s
	case at(0, 0) > at(1, 1) && at(0, 0) > at(2, 2):
		s := 2.0 * math.Sqrt(1.0+at(0, 0)-at(1, 1)-at(2, 2))
		w = (at(2, 1) - at(1, 2)) / s
		x = 0.25 * s
		y = (at(0, 1) + at(1, 0)) / s
		z = (at(0, 2) + at(2, 0)) / s
	case at(1, 1) > at(2, 2):
		s := 2.0 * math.Sqrt(1.0+at(1, 1)-at(0, 0)-at(2, 2))
		w = (at(0, 2) - at(2, 0)) / s
		x = (at(0, 1) + at(1, 0)) / s
		y = 0.25 * s
		z = (at(1, 2) + at(2, 1)) / s
	default:
		s := 2.0 * math.Sqrt(1.0+at(2, 2)-at(0, 0)-at(1, 1))
		w = (at(1, 0) - at(0, 1)) / s
		x = (at(0, 2) + at(2, 0)) / s
		y = (at(1, 2) + at(2, 1)) / s
		z = 0.25 * s
	}

	return NewRotation3d(Quaternion{W: w, X: x, Y: y, Z: z}), nil
}

// NewRotation3dBetween builds the shortest rotation that maps the initial
// vector onto the final vector. Parallel inputs yield the identity;
// antiparallel inputs yield a 180° rotation about an axis orthogonal to
// initial, chosen by crossing with the axis of initial's smallest
// component.
func NewRotation3dBetween(initial, final r3.Vec) Rotation3d {
	dot := initial.X*final.X + initial.Y*final.Y + initial.Z*final.Z
	normProduct := math.Sqrt(initial.X*initial.X+initial.Y*initial.Y+initial.Z*initial.Z) *
		math.Sqrt(final.X*final.X+final.Y*final.Y+final.Z*final.Z)
	dotNorm := dot / normProduct

	if dotNorm > 1.0-epsilon {
		return Rotation3d{}
	}

	if dotNorm < -1.0+epsilon {
		// Antiparallel: any orthogonal axis works, so cross with the
		// standard basis vector most orthogonal to initial.
		ax := math.Abs(initial.X)
		ay := math.Abs(initial.Y)
		az := math.Abs(initial.Z)

		var other r3.Vec
		if ax < ay {
			if ax < az {
				other = r3.Vec{X: 1}
			} else {
				other = r3.Vec{Z: 1}
			}
		} else {
			if ay < az {
				other = r3.Vec{Y: 1}
			} else {
				other = r3.Vec{Z: 1}
			}
		}

		axis := cross(initial, other)
		axisNorm := math.Sqrt(axis.X*axis.X + axis.Y*axis.Y + axis.Z*axis.Z)
		return Rotation3d{q: Quaternion{
			X: axis.X / axisNorm,
			Y: axis.Y / axisNorm,
			Z: axis.Z / axisNorm,
		}}
	}

	// https://stackoverflow.com/a/11741520
	axis := cross(initial, final)
	return NewRotation3d(Quaternion{W: normProduct + dot, X: axis.X, Y: axis.Y, Z: axis.Z})
}

func cross(a, b r3.Vec) r3.Vec {
	return r3.Vec{
		X: a.Y*b.Z - b.Y*a.Z,
		Y: b.X*a.Z - a.X*b.Z,
		Z: a.X*b.Y - b.X*a.Y,
	}
}

// Quaternion returns the backing unit quaternion.
func (r Rotation3d) Quaternion() Quaternion {
	return r.quaternion()
}

// X returns the roll angle in radians, the counterclockwise rotation about
// the X axis. At gimbal lock (pitch ±π/2) roll is unobservable and reports
// zero, with the full twist attributed to yaw.
func (r Rotation3d) X() float64 {
	q := r.quaternion()

	cxcy := 1.0 - 2.0*(q.X*q.X+q.Y*q.Y)
	sxcy := 2.0 * (q.W*q.X + q.Y*q.Z)
	cySq := cxcy*cxcy + sxcy*sxcy
	if cySq > 1e-20 {
		return math.Atan2(sxcy, cxcy)
	}
	return 0.0
}

// Y returns the pitch angle in radians, the counterclockwise rotation
// about the Y axis. The asin argument is clamped so floating-point drift
// past ±1 saturates to ±π/2 instead of producing NaN.
func (r Rotation3d) Y() float64 {
	q := r.quaternion()

	ratio := 2.0 * (q.W*q.Y - q.Z*q.X)
	if math.Abs(ratio) >= 1.0 {
		return math.Copysign(math.Pi/2.0, ratio)
	}
	return math.Asin(ratio)
}

// Z returns the yaw angle in radians, the counterclockwise rotation about
// the Z axis. At gimbal lock the generic formula degenerates and yaw falls
// back to a two-argument arctangent of the raw quaternion components.
func (r Rotation3d) Z() float64 {
	q := r.quaternion()

	cycz := 1.0 - 2.0*(q.Y*q.Y+q.Z*q.Z)
	cysz := 2.0 * (q.W*q.Z + q.X*q.Y)
	cySq := cycz*cycz + cysz*cysz
	if cySq > 1e-20 {
		return math.Atan2(cysz, cycz)
	}
	return math.Atan2(2.0*q.W*q.Z, q.W*q.W-q.Z*q.Z)
}

// Axis returns the normalized rotation axis, or the zero vector for the
// identity rotation.
func (r Rotation3d) Axis() r3.Vec {
	q := r.quaternion()
	norm := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if norm == 0.0 {
		return r3.Vec{}
	}
	return r3.Vec{X: q.X / norm, Y: q.Y / norm, Z: q.Z / norm}
}

// Angle returns the rotation angle in radians.
func (r Rotation3d) Angle() float64 {
	q := r.quaternion()
	norm := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	return 2.0 * math.Atan2(norm, q.W)
}

// RotationVector returns the axis scaled by the angle in radians.
func (r Rotation3d) RotationVector() r3.Vec {
	return r.quaternion().RotationVector()
}

// Matrix returns the equivalent 3x3 rotation matrix.
//
// https://en.wikipedia.org/wiki/Quaternions_and_spatial_rotation#Conversion_to_and_from_the_matrix_representation
func (r Rotation3d) Matrix() *mat.Dense {
	q := r.quaternion()
	w, x, y, z := q.W, q.X, q.Y, q.Z

	return mat.NewDense(3, 3, []float64{
		1.0 - 2.0*(y*y+z*z), 2.0 * (x*y - w*z), 2.0 * (x*z + w*y),
		2.0 * (x*y + w*z), 1.0 - 2.0*(x*x+z*z), 2.0 * (y*z - w*x),
		2.0 * (x*z - w*y), 2.0 * (y*z + w*x), 1.0 - 2.0*(x*x+y*y),
	})
}

// RotateBy composes two rotations extrinsically: the result is other
// applied after r about the fixed global axes, other.q * r.q.
func (r Rotation3d) RotateBy(other Rotation3d) Rotation3d {
	return Rotation3d{q: other.quaternion().Times(r.quaternion()).Normalize()}
}

// Plus is extrinsic composition, an alias for RotateBy.
func (r Rotation3d) Plus(other Rotation3d) Rotation3d {
	return r.RotateBy(other)
}

// Minus returns the relative rotation carrying other to r.
func (r Rotation3d) Minus(other Rotation3d) Rotation3d {
	return r.RotateBy(other.Inverse())
}

// Inverse returns the opposite rotation.
func (r Rotation3d) Inverse() Rotation3d {
	return NewRotation3d(r.quaternion().Inverse())
}

// Times scales the rotation angle by k about the rotation's own axis,
// the SLERP step from the identity. When the scalar part is negative the
// axis is flipped so the scaling follows the shorter arc.
//
// https://en.wikipedia.org/wiki/Slerp#Quaternion_Slerp
func (r Rotation3d) Times(k float64) Rotation3d {
	q := r.quaternion()
	if q.W >= 0.0 {
		return NewRotation3dFromAxisAngle(r3.Vec{X: q.X, Y: q.Y, Z: q.Z}, 2.0*k*math.Acos(q.W))
	}
	return NewRotation3dFromAxisAngle(r3.Vec{X: -q.X, Y: -q.Y, Z: -q.Z}, 2.0*k*math.Acos(-q.W))
}

// Div scales the rotation angle by 1/k.
func (r Rotation3d) Div(k float64) Rotation3d {
	return r.Times(1.0 / k)
}

// Interpolate spherically interpolates from r toward end, with param
// clamped to [0, 1]. The interpolation is expressed through the group
// operations rather than a separate SLERP implementation.
func (r Rotation3d) Interpolate(end Rotation3d, param float64) Rotation3d {
	return r.Plus(end.Minus(r).Times(clamp(param, 0, 1)))
}

// ApproxEqual reports whether two rotations are equal within tolerance,
// treating q and -q as the same rotation.
func (r Rotation3d) ApproxEqual(other Rotation3d) bool {
	q1 := r.quaternion()
	q2 := other.quaternion()
	return math.Abs(math.Abs(q1.Dot(q2))-q1.Norm()*q2.Norm()) < epsilon
}

// MarshalJSON encodes the rotation as {"quaternion": {"w": ..., ...}}.
func (r Rotation3d) MarshalJSON() ([]byte, error) {
	return json.Marshal(rotation3dJSON{Quaternion: r.quaternion()})
}

// UnmarshalJSON decodes {"quaternion": ...}, normalizing the result. A
// missing or zero quaternion decodes to the identity rotation.
func (r *Rotation3d) UnmarshalJSON(data []byte) error {
	var aux rotation3dJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = NewRotation3d(aux.Quaternion)
	return nil
}

type rotation3dJSON struct {
	Quaternion Quaternion `json:"quaternion"`
}

func (r Rotation3d) String() string {
	q := r.quaternion()
	return fmt.Sprintf("Rotation3d(%v)", q)
}
