// Package pb holds the wire-format messages for the geometry types,
// encoded with the canonical protobuf wire format. The codec is
// maintained by hand on top of google.golang.org/protobuf/encoding/protowire;
// the schema is small and frozen enough that generated code would be more
// churn than help. proto/geometry3d.proto is the canonical schema for
// interop with other languages.
//
// Wire compatibility rules: zero-valued scalar fields are omitted on
// encode, unknown fields are skipped on decode, truncated input is an
// error.
package pb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Quaternion mirrors the Quaternion message: doubles x=1, y=2, z=3, w=4.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

// Translation3d mirrors the Translation3d message: doubles x=1, y=2, z=3.
type Translation3d struct {
	X float64
	Y float64
	Z float64
}

// Rotation3d mirrors the Rotation3d message: Quaternion q=1.
type Rotation3d struct {
	Q *Quaternion
}

// Pose3d mirrors the Pose3d message: Translation3d translation=1,
// Rotation3d rotation=2.
type Pose3d struct {
	Translation *Translation3d
	Rotation    *Rotation3d
}

// Transform3d mirrors the Transform3d message: Translation3d translation=1,
// Rotation3d rotation=2.
type Transform3d struct {
	Translation *Translation3d
	Rotation    *Rotation3d
}

// Marshal encodes the quaternion in protobuf wire format.
func (m *Quaternion) Marshal() ([]byte, error) {
	var b []byte
	b = AppendDouble(b, 1, m.X)
	b = AppendDouble(b, 2, m.Y)
	b = AppendDouble(b, 3, m.Z)
	b = AppendDouble(b, 4, m.W)
	return b, nil
}

// Unmarshal decodes the quaternion from protobuf wire format.
func (m *Quaternion) Unmarshal(data []byte) error {
	return WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.X)
		case num == 2 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.Y)
		case num == 3 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.Z)
		case num == 4 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.W)
		}
		return SkipField(num, typ, field)
	})
}

// Marshal encodes the translation in protobuf wire format.
func (m *Translation3d) Marshal() ([]byte, error) {
	var b []byte
	b = AppendDouble(b, 1, m.X)
	b = AppendDouble(b, 2, m.Y)
	b = AppendDouble(b, 3, m.Z)
	return b, nil
}

// Unmarshal decodes the translation from protobuf wire format.
func (m *Translation3d) Unmarshal(data []byte) error {
	return WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.X)
		case num == 2 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.Y)
		case num == 3 && typ == protowire.Fixed64Type:
			return ConsumeDouble(field, &m.Z)
		}
		return SkipField(num, typ, field)
	})
}

// Marshal encodes the rotation in protobuf wire format.
func (m *Rotation3d) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if m.Q != nil {
		if b, err = AppendMessage(b, 1, m.Q); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the rotation from protobuf wire format.
func (m *Rotation3d) Unmarshal(data []byte) error {
	return WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			m.Q = new(Quaternion)
			return ConsumeEmbedded(field, m.Q)
		}
		return SkipField(num, typ, field)
	})
}

// Marshal encodes the pose in protobuf wire format.
func (m *Pose3d) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if m.Translation != nil {
		if b, err = AppendMessage(b, 1, m.Translation); err != nil {
			return nil, err
		}
	}
	if m.Rotation != nil {
		if b, err = AppendMessage(b, 2, m.Rotation); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the pose from protobuf wire format.
func (m *Pose3d) Unmarshal(data []byte) error {
	return WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Translation = new(Translation3d)
			return ConsumeEmbedded(field, m.Translation)
		case num == 2 && typ == protowire.BytesType:
			m.Rotation = new(Rotation3d)
			return ConsumeEmbedded(field, m.Rotation)
		}
		return SkipField(num, typ, field)
	})
}

// Marshal encodes the transform in protobuf wire format.
func (m *Transform3d) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if m.Translation != nil {
		if b, err = AppendMessage(b, 1, m.Translation); err != nil {
			return nil, err
		}
	}
	if m.Rotation != nil {
		if b, err = AppendMessage(b, 2, m.Rotation); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the transform from protobuf wire format.
func (m *Transform3d) Unmarshal(data []byte) error {
	return WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Translation = new(Translation3d)
			return ConsumeEmbedded(field, m.Translation)
		case num == 2 && typ == protowire.BytesType:
			m.Rotation = new(Rotation3d)
			return ConsumeEmbedded(field, m.Rotation)
		}
		return SkipField(num, typ, field)
	})
}
