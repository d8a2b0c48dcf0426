package geometry

import "github.com/questrig/questrig/geometry/pb"

// Boundary conversions between the geometry values and their wire-format
// messages. Missing nested messages decode as the corresponding identity,
// matching proto3 zero-value semantics.

// ToProto converts the quaternion to its wire message.
func (q Quaternion) ToProto() *pb.Quaternion {
	return &pb.Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

// NewQuaternionFromProto converts a wire message to a Quaternion. A nil
// message yields the zero quaternion.
func NewQuaternionFromProto(m *pb.Quaternion) Quaternion {
	if m == nil {
		return Quaternion{}
	}
	return Quaternion{W: m.W, X: m.X, Y: m.Y, Z: m.Z}
}

// ToProto converts the translation to its wire message.
func (t Translation3d) ToProto() *pb.Translation3d {
	return &pb.Translation3d{X: t.X, Y: t.Y, Z: t.Z}
}

// NewTranslation3dFromProto converts a wire message to a Translation3d. A
// nil message yields the origin.
func NewTranslation3dFromProto(m *pb.Translation3d) Translation3d {
	if m == nil {
		return Translation3d{}
	}
	return Translation3d{X: m.X, Y: m.Y, Z: m.Z}
}

// ToProto converts the rotation to its wire message.
func (r Rotation3d) ToProto() *pb.Rotation3d {
	return &pb.Rotation3d{Q: r.Quaternion().ToProto()}
}

// NewRotation3dFromProto converts a wire message to a Rotation3d,
// normalizing on the way in. A nil or empty message yields the identity.
func NewRotation3dFromProto(m *pb.Rotation3d) Rotation3d {
	if m == nil {
		return Rotation3d{}
	}
	return NewRotation3d(NewQuaternionFromProto(m.Q))
}

// ToProto converts the pose to its wire message.
func (p Pose3d) ToProto() *pb.Pose3d {
	return &pb.Pose3d{
		Translation: p.Translation.ToProto(),
		Rotation:    p.Rotation.ToProto(),
	}
}

// NewPose3dFromProto converts a wire message to a Pose3d. A nil message
// yields the origin pose.
func NewPose3dFromProto(m *pb.Pose3d) Pose3d {
	if m == nil {
		return Pose3d{}
	}
	return Pose3d{
		Translation: NewTranslation3dFromProto(m.Translation),
		Rotation:    NewRotation3dFromProto(m.Rotation),
	}
}

// ToProto converts the transform to its wire message.
func (t Transform3d) ToProto() *pb.Transform3d {
	return &pb.Transform3d{
		Translation: t.Translation.ToProto(),
		Rotation:    t.Rotation.ToProto(),
	}
}

// NewTransform3dFromProto converts a wire message to a Transform3d. A nil
// message yields the identity transform.
func NewTransform3dFromProto(m *pb.Transform3d) Transform3d {
	if m == nil {
		return Transform3d{}
	}
	return Transform3d{
		Translation: NewTranslation3dFromProto(m.Translation),
		Rotation:    NewRotation3dFromProto(m.Rotation),
	}
}
