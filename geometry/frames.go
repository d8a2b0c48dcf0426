package geometry

// Frame conversions between the FRC field frame (right-handed, Z-up,
// X toward the opposing alliance), the Unity engine frame (left-handed,
// Y-up, Z forward) and the computer-vision camera frame (Z out of the
// lens, X right, Y down).
//
// Each conversion permutes axes and flips signs in a single step. The
// handedness change cannot be separated from the axis remap: splitting the
// two would pass through an intermediate quaternion that represents a
// rotation in neither frame.

// FrcToUnityTranslation maps a field-frame translation into the engine
// frame: (x, y, z) -> (-y, z, x).
func FrcToUnityTranslation(t Translation3d) Translation3d {
	return Translation3d{X: -t.Y, Y: t.Z, Z: t.X}
}

// FrcToUnityQuaternion maps a field-frame quaternion into the engine
// frame: (x, y, z, w) -> (y, -z, -x, w).
func FrcToUnityQuaternion(q Quaternion) Quaternion {
	return Quaternion{W: q.W, X: q.Y, Y: -q.Z, Z: -q.X}
}

// FrcToUnityRotation maps a field-frame rotation into the engine frame.
func FrcToUnityRotation(r Rotation3d) Rotation3d {
	return NewRotation3d(FrcToUnityQuaternion(r.Quaternion()))
}

// FrcToUnityPose maps a field-frame pose into the engine frame.
func FrcToUnityPose(p Pose3d) Pose3d {
	return Pose3d{
		Translation: FrcToUnityTranslation(p.Translation),
		Rotation:    FrcToUnityRotation(p.Rotation),
	}
}

// UnityToFrcTranslation maps an engine-frame translation into the field
// frame, the algebraic inverse of FrcToUnityTranslation:
// x_field = z_engine, y_field = -x_engine, z_field = y_engine.
func UnityToFrcTranslation(t Translation3d) Translation3d {
	return Translation3d{X: t.Z, Y: -t.X, Z: t.Y}
}

// UnityToFrcQuaternion maps an engine-frame quaternion into the field
// frame: (x, y, z, w)_field = (-z, x, -y, w)_engine.
func UnityToFrcQuaternion(q Quaternion) Quaternion {
	return Quaternion{W: q.W, X: -q.Z, Y: q.X, Z: -q.Y}
}

// UnityToFrcRotation maps an engine-frame rotation into the field frame.
func UnityToFrcRotation(r Rotation3d) Rotation3d {
	return NewRotation3d(UnityToFrcQuaternion(r.Quaternion()))
}

// UnityToFrcPose maps an engine-frame pose into the field frame.
func UnityToFrcPose(p Pose3d) Pose3d {
	return Pose3d{
		Translation: UnityToFrcTranslation(p.Translation),
		Rotation:    UnityToFrcRotation(p.Rotation),
	}
}

// cvOpticalToBody encodes the camera's optical axes relative to the body
// axes (forward, left, up), as (x, y, z, w) = (0.5, -0.5, 0.5, 0.5).
var cvOpticalToBody = Quaternion{W: 0.5, X: 0.5, Y: -0.5, Z: 0.5}

// CvToFrcPose converts a world-to-camera transform from a vision pipeline
// into the camera-in-world pose: position -(R⁻¹·t), orientation R⁻¹
// composed with the fixed optical-to-body quaternion. This is a
// coordinate-frame inversion, not an axis-convention remap like the
// Unity conversions.
func CvToFrcPose(translation Translation3d, rotation Rotation3d) Pose3d {
	inverse := rotation.Inverse()
	return Pose3d{
		Translation: translation.RotateBy(inverse).Neg(),
		Rotation:    NewRotation3d(inverse.Quaternion().Times(cvOpticalToBody)),
	}
}
