package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Translation3d is a displacement in 3D space, in meters. The zero value
// is the origin.
type Translation3d struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewTranslation3d returns the translation (x, y, z) in meters.
func NewTranslation3d(x, y, z float64) Translation3d {
	return Translation3d{X: x, Y: y, Z: z}
}

// NewTranslation3dFromVec converts a gonum r3.Vec into a Translation3d.
func NewTranslation3dFromVec(v r3.Vec) Translation3d {
	return Translation3d{X: v.X, Y: v.Y, Z: v.Z}
}

// Vec returns the translation as a gonum r3.Vec for interop with
// gonum.org/v1/gonum/spatial/r3.
func (t Translation3d) Vec() r3.Vec {
	return r3.Vec{X: t.X, Y: t.Y, Z: t.Z}
}

// Plus returns the vector sum t + other.
func (t Translation3d) Plus(other Translation3d) Translation3d {
	return Translation3d{X: t.X + other.X, Y: t.Y + other.Y, Z: t.Z + other.Z}
}

// Minus returns the vector difference t - other.
func (t Translation3d) Minus(other Translation3d) Translation3d {
	return Translation3d{X: t.X - other.X, Y: t.Y - other.Y, Z: t.Z - other.Z}
}

// Neg returns the translation pointing the opposite direction.
func (t Translation3d) Neg() Translation3d {
	return Translation3d{X: -t.X, Y: -t.Y, Z: -t.Z}
}

// Times returns the translation scaled by k.
func (t Translation3d) Times(k float64) Translation3d {
	return Translation3d{X: t.X * k, Y: t.Y * k, Z: t.Z * k}
}

// Div returns the translation divided by k.
func (t Translation3d) Div(k float64) Translation3d {
	return t.Times(1.0 / k)
}

// Dot returns the dot product t · other.
func (t Translation3d) Dot(other Translation3d) float64 {
	return t.X*other.X + t.Y*other.Y + t.Z*other.Z
}

// Cross returns the cross product t × other.
func (t Translation3d) Cross(other Translation3d) Translation3d {
	return Translation3d{
		X: t.Y*other.Z - other.Y*t.Z,
		Y: other.X*t.Z - t.X*other.Z,
		Z: t.X*other.Y - other.X*t.Y,
	}
}

// Norm returns the distance from the origin.
func (t Translation3d) Norm() float64 {
	return math.Sqrt(t.Dot(t))
}

// Distance returns the Euclidean distance between two translations.
func (t Translation3d) Distance(other Translation3d) float64 {
	return other.Minus(t).Norm()
}

// RotateBy rotates the translation about the origin by conjugating it as
// a pure quaternion, q·(0, v)·q⁻¹, and taking the vector part.
func (t Translation3d) RotateBy(rotation Rotation3d) Translation3d {
	p := Quaternion{X: t.X, Y: t.Y, Z: t.Z}
	q := rotation.Quaternion()
	qprime := q.Times(p).Times(q.Inverse())
	return Translation3d{X: qprime.X, Y: qprime.Y, Z: qprime.Z}
}

// RotateAround rotates the translation about the given pivot point:
// (t - pivot).RotateBy(rotation) + pivot.
func (t Translation3d) RotateAround(pivot Translation3d, rotation Rotation3d) Translation3d {
	return t.Minus(pivot).RotateBy(rotation).Plus(pivot)
}

// Interpolate linearly interpolates from t toward end, with param clamped
// to [0, 1].
func (t Translation3d) Interpolate(end Translation3d, param float64) Translation3d {
	param = clamp(param, 0, 1)
	return t.Plus(end.Minus(t).Times(param))
}

// ApproxEqual reports whether the two translations are component-wise
// equal within tolerance.
func (t Translation3d) ApproxEqual(other Translation3d) bool {
	return math.Abs(t.X-other.X) < epsilon &&
		math.Abs(t.Y-other.Y) < epsilon &&
		math.Abs(t.Z-other.Z) < epsilon
}

func (t Translation3d) String() string {
	return fmt.Sprintf("Translation3d(%v, %v, %v)", t.X, t.Y, t.Z)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
