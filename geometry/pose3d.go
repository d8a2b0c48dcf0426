package geometry

import "fmt"

// Pose3d is an absolute position and orientation in a single ambient
// frame. The zero value is the origin pose with identity rotation.
type Pose3d struct {
	Translation Translation3d `json:"translation"`
	Rotation    Rotation3d    `json:"rotation"`
}

// NewPose3d returns the pose at the given translation and rotation.
func NewPose3d(translation Translation3d, rotation Rotation3d) Pose3d {
	return Pose3d{Translation: translation, Rotation: rotation}
}

// TransformBy applies a transform expressed in the pose's own frame: the
// translation delta is rotated into the ambient frame by the pose's
// rotation before being added, and the rotation delta composes onto the
// pose's rotation.
func (p Pose3d) TransformBy(transform Transform3d) Pose3d {
	return Pose3d{
		Translation: p.Translation.Plus(transform.Translation.RotateBy(p.Rotation)),
		Rotation:    transform.Rotation.RotateBy(p.Rotation),
	}
}

// Plus is an alias for TransformBy.
func (p Pose3d) Plus(transform Transform3d) Pose3d {
	return p.TransformBy(transform)
}

// Minus returns the transform carrying other to p, expressed in other's
// local frame.
func (p Pose3d) Minus(other Pose3d) Transform3d {
	pose := p.RelativeTo(other)
	return Transform3d{Translation: pose.Translation, Rotation: pose.Rotation}
}

// RelativeTo re-expresses p in other's local frame: the "error pose" used
// for feedback control. p.RelativeTo(p) is the zero pose.
func (p Pose3d) RelativeTo(other Pose3d) Pose3d {
	transform := NewTransform3dBetween(other, p)
	return Pose3d{Translation: transform.Translation, Rotation: transform.Rotation}
}

// RotateBy rotates the pose about the global origin: both the position and
// the orientation rotate. Contrast with TransformBy, which works in the
// pose's own frame.
func (p Pose3d) RotateBy(rotation Rotation3d) Pose3d {
	return Pose3d{
		Translation: p.Translation.RotateBy(rotation),
		Rotation:    p.Rotation.RotateBy(rotation),
	}
}

// ApproxEqual reports whether two poses are equal within tolerance.
func (p Pose3d) ApproxEqual(other Pose3d) bool {
	return p.Translation.ApproxEqual(other.Translation) && p.Rotation.ApproxEqual(other.Rotation)
}

func (p Pose3d) String() string {
	return fmt.Sprintf("Pose3d(%v, %v)", p.Translation, p.Rotation)
}
