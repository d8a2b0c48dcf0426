package geometry

import "fmt"

// Transform3d is a relative transform between two poses, expressed in the
// initial pose's local frame rather than the global frame. The zero value
// is the identity transform: pose.Plus(Transform3d{}) == pose.
type Transform3d struct {
	Translation Translation3d `json:"translation"`
	Rotation    Rotation3d    `json:"rotation"`
}

// NewTransform3d returns the transform with the given local-frame
// translation and rotation deltas.
func NewTransform3d(translation Translation3d, rotation Rotation3d) Transform3d {
	return Transform3d{Translation: translation, Rotation: rotation}
}

// NewTransform3dBetween returns the transform that carries the initial
// pose to the final pose. The global translation difference is rotated by
// the inverse of the initial rotation to express it in the initial pose's
// local frame.
func NewTransform3dBetween(initial, final Pose3d) Transform3d {
	return Transform3d{
		Translation: final.Translation.Minus(initial.Translation).RotateBy(initial.Rotation.Inverse()),
		Rotation:    final.Rotation.Minus(initial.Rotation),
	}
}

// Plus composes two transforms by round-tripping through the origin pose:
// the result carries a pose through t, then through other. Routing through
// the pose transform law keeps composition consistent with TransformBy by
// construction, with no second formula to keep in sync.
func (t Transform3d) Plus(other Transform3d) Transform3d {
	return NewTransform3dBetween(Pose3d{}, Pose3d{}.TransformBy(t).TransformBy(other))
}

// Inverse returns the transform that undoes t.
func (t Transform3d) Inverse() Transform3d {
	invRotation := t.Rotation.Inverse()
	return Transform3d{
		Translation: t.Translation.Neg().RotateBy(invRotation),
		Rotation:    invRotation,
	}
}

// ApproxEqual reports whether two transforms are equal within tolerance.
func (t Transform3d) ApproxEqual(other Transform3d) bool {
	return t.Translation.ApproxEqual(other.Translation) && t.Rotation.ApproxEqual(other.Rotation)
}

func (t Transform3d) String() string {
	return fmt.Sprintf("Transform3d(%v, %v)", t.Translation, t.Rotation)
}
