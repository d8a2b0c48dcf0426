// Package geometry provides the quaternion-backed spatial algebra used to
// carry headset poses into the field frame: rotations, translations, poses
// and relative transforms, plus the frame conversions between the FRC field
// frame (right-handed, Z-up), the Unity engine frame (left-handed, Y-up)
// and the computer-vision camera frame.
//
// All types are immutable values. Arithmetic methods return new values and
// never mutate their receiver, so values can be shared freely across
// goroutines. Approximate comparisons use a 1e-9 tolerance throughout.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// epsilon is the shared tolerance for approximate equality and for the
// small-angle branch selection in the exp/log maps.
const epsilon = 1e-9

// Quaternion is a 4-component hypercomplex value (W + Xi + Yj + Zk).
// Unit-norm quaternions ("versors") represent rotations; general
// quaternions appear as intermediate Lie-algebra elements in Exp/Log.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewQuaternion returns the quaternion w + xi + yj + zk.
func NewQuaternion(w, x, y, z float64) Quaternion {
	return Quaternion{W: w, X: x, Y: y, Z: z}
}

// IdentityQuaternion returns the multiplicative identity (1, 0, 0, 0).
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionFromQuat converts a gonum quat.Number into a Quaternion.
func QuaternionFromQuat(n quat.Number) Quaternion {
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// Quat returns the quaternion as a gonum quat.Number for interop with
// gonum.org/v1/gonum/num/quat.
func (q Quaternion) Quat() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Plus returns the component-wise sum q + other.
func (q Quaternion) Plus(other Quaternion) Quaternion {
	return Quaternion{W: q.W + other.W, X: q.X + other.X, Y: q.Y + other.Y, Z: q.Z + other.Z}
}

// Minus returns the component-wise difference q - other.
func (q Quaternion) Minus(other Quaternion) Quaternion {
	return Quaternion{W: q.W - other.W, X: q.X - other.X, Y: q.Y - other.Y, Z: q.Z - other.Z}
}

// Scale returns the quaternion scaled component-wise by k.
func (q Quaternion) Scale(k float64) Quaternion {
	return Quaternion{W: q.W * k, X: q.X * k, Y: q.Y * k, Z: q.Z * k}
}

// Div returns the quaternion divided component-wise by k.
func (q Quaternion) Div(k float64) Quaternion {
	return q.Scale(1.0 / k)
}

// Times returns the Hamilton product q * other:
//
//	(r1, v1)(r2, v2) = (r1*r2 - v1·v2, r1*v2 + r2*v1 + v1×v2)
//
// The product is non-commutative; callers must track which operand is
// applied first.
func (q Quaternion) Times(other Quaternion) Quaternion {
	r1, r2 := q.W, other.W

	// v1·v2
	dot := q.X*other.X + q.Y*other.Y + q.Z*other.Z

	// v1×v2
	cx := q.Y*other.Z - other.Y*q.Z
	cy := other.X*q.Z - q.X*other.Z
	cz := q.X*other.Y - other.X*q.Y

	return Quaternion{
		W: r1*r2 - dot,
		X: r1*other.X + r2*q.X + cx,
		Y: r1*other.Y + r2*q.Y + cy,
		Z: r1*other.Z + r2*q.Z + cz,
	}
}

// Conjugate returns the quaternion with its vector part negated.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Dot returns the 4-vector dot product of q and other.
func (q Quaternion) Dot(other Quaternion) float64 {
	return q.W*other.W + q.X*other.X + q.Y*other.Y + q.Z*other.Z
}

// Norm returns the Euclidean norm of the quaternion.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.Dot(q))
}

// Inverse returns the multiplicative inverse, conjugate / norm². The zero
// quaternion has no inverse; callers must guarantee non-zero input.
func (q Quaternion) Inverse() Quaternion {
	norm := q.Norm()
	return q.Conjugate().Div(norm * norm)
}

// Normalize returns the unit quaternion pointing in the same direction.
// A quaternion with exactly zero norm normalizes to the identity
// (1, 0, 0, 0); this is the guard that keeps NaNs out of downstream math.
func (q Quaternion) Normalize() Quaternion {
	norm := q.Norm()
	if norm == 0.0 {
		return IdentityQuaternion()
	}
	return Quaternion{W: q.W / norm, X: q.X / norm, Y: q.Y / norm, Z: q.Z / norm}
}

// Exp computes the quaternion exponential, mapping a Lie-algebra element
// (W = log-scale, XYZ = scaled rotation axis) onto the group. Near zero
// axial magnitude the sin(θ)/θ factor is replaced by its Taylor expansion
// 1 - θ²/6 + θ⁴/120 to avoid catastrophic cancellation.
func (q Quaternion) Exp() Quaternion {
	scalar := math.Exp(q.W)

	axialMagnitude := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	cosine := math.Cos(axialMagnitude)

	var axialScalar float64
	if axialMagnitude < epsilon {
		// Taylor series of sin(θ)/θ near θ = 0.
		axialMagnitudeSq := axialMagnitude * axialMagnitude
		axialScalar = 1.0 - axialMagnitudeSq/6.0 + axialMagnitudeSq*axialMagnitudeSq/120.0
	} else {
		axialScalar = math.Sin(axialMagnitude) / axialMagnitude
	}

	return Quaternion{
		W: cosine * scalar,
		X: q.X * axialScalar * scalar,
		Y: q.Y * axialScalar * scalar,
		Z: q.Z * axialScalar * scalar,
	}
}

// ExpBy returns adjustment.Exp() composed onto q. This is the "twist"
// update used to nudge a rotation by a small Lie-algebra step.
func (q Quaternion) ExpBy(adjustment Quaternion) Quaternion {
	return adjustment.Exp().Times(q)
}

// Log computes the quaternion logarithm, the inverse of Exp. The scalar
// part is ln‖q‖. When the normalized scalar part is within 1e-9 of -1 the
// generic formula hits a 0/0 indeterminate form, so the result is pinned
// to (ln‖q‖, -π, 0, 0). Below 1e-9 vector norm the atan2(‖v‖, w)/‖v‖
// factor is replaced by its Taylor expansion 1/w - v²/(3w³).
func (q Quaternion) Log() Quaternion {
	norm := q.Norm()
	scalar := math.Log(norm)

	vNorm := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)

	if math.Abs(q.W/norm+1.0) < epsilon {
		return Quaternion{W: scalar, X: -math.Pi}
	}

	var vScalar float64
	if vNorm < epsilon {
		vScalar = 1.0/q.W - vNorm*vNorm/(3.0*q.W*q.W*q.W)
	} else {
		vScalar = math.Atan2(vNorm, q.W) / vNorm
	}

	return Quaternion{
		W: scalar,
		X: vScalar * q.X,
		Y: vScalar * q.Y,
		Z: vScalar * q.Z,
	}
}

// LogBy returns the Lie-algebra element carrying q to end:
// (end * q⁻¹).Log().
func (q Quaternion) LogBy(end Quaternion) Quaternion {
	return end.Times(q.Inverse()).Log()
}

// Pow raises the quaternion to a real power via the log/exp round trip,
// q^t = exp(t * log(q)).
func (q Quaternion) Pow(t float64) Quaternion {
	return q.Log().Scale(t).Exp()
}

// QuaternionFromRotationVector builds the versor encoding a rotation of
// ‖rvec‖ radians about the axis rvec. Near zero angle the sin(θ/2)/θ
// factor is replaced by its Taylor expansion 1/2 - θ²/48.
func QuaternionFromRotationVector(rvec r3.Vec) Quaternion {
	theta := math.Sqrt(rvec.X*rvec.X + rvec.Y*rvec.Y + rvec.Z*rvec.Z)
	cos := math.Cos(theta / 2)

	var axialScalar float64
	if theta < epsilon {
		axialScalar = 0.5 - theta*theta/48.0
	} else {
		axialScalar = math.Sin(theta/2) / theta
	}

	return Quaternion{
		W: cos,
		X: rvec.X * axialScalar,
		Y: rvec.Y * axialScalar,
		Z: rvec.Z * axialScalar,
	}
}

// RotationVector extracts the rotation vector (axis scaled by angle in
// radians) from a versor. The scalar-negative branch flips both atan2
// arguments so the result stays on the short arc; near zero vector norm
// the coefficient falls back to the Taylor expansion 2/w - 2v²/(3w³).
func (q Quaternion) RotationVector() r3.Vec {
	norm := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)

	var coeff float64
	if norm < epsilon {
		coeff = 2.0/q.W - 2.0/3.0*norm*norm/(q.W*q.W*q.W)
	} else {
		if q.W < 0.0 {
			coeff = 2.0 * math.Atan2(-norm, -q.W) / norm
		} else {
			coeff = 2.0 * math.Atan2(norm, q.W) / norm
		}
	}

	return r3.Vec{X: coeff * q.X, Y: coeff * q.Y, Z: coeff * q.Z}
}

// ApproxEqual reports whether two quaternions are equal within tolerance.
// The comparison is dot(q, other) ≈ ‖q‖‖other‖, which distinguishes q
// from -q; rotations identify the two only at the Rotation3d level.
func (q Quaternion) ApproxEqual(other Quaternion) bool {
	return math.Abs(q.Dot(other)-q.Norm()*other.Norm()) < epsilon
}

func (q Quaternion) String() string {
	return fmt.Sprintf("Quaternion(%v, %v, %v, %v)", q.W, q.X, q.Y, q.Z)
}
