// Package pb holds the wire-format messages for the headset stream and
// the pose stream service, maintained by hand on the protowire primitives
// shared with geometry/pb. proto/questrig.proto is the canonical schema.
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	geometrypb "github.com/questrig/questrig/geometry/pb"
)

// CommandType discriminates the command union.
type CommandType int32

const (
	CommandTypeUnspecified CommandType = 0
	CommandTypePoseReset   CommandType = 1
)

func (t CommandType) String() string {
	switch t {
	case CommandTypeUnspecified:
		return "UNSPECIFIED"
	case CommandTypePoseReset:
		return "POSE_RESET"
	}
	return fmt.Sprintf("CommandType(%d)", int32(t))
}

// FrameData is one tracking sample from the headset. The pose is in the
// Unity engine frame.
type FrameData struct {
	FrameCount int32
	Timestamp  float64
	Pose       *geometrypb.Pose3d
}

// DeviceData is the headset's slow-changing health state.
type DeviceData struct {
	CurrentlyTracking   bool
	TrackingLostCounter int32
	BatteryPercent      int32
}

// PoseResetPayload carries the target pose of a reset command, already
// converted to the Unity engine frame.
type PoseResetPayload struct {
	TargetPose *geometrypb.Pose3d
}

// Command is a robot-to-headset request.
type Command struct {
	Type             CommandType
	CommandID        int32
	PoseResetPayload *PoseResetPayload
}

// CommandResponse reports the headset's handling of a command.
type CommandResponse struct {
	CommandID    int32
	Success      bool
	ErrorMessage string
}

// StreamRequest opens a pose subscription.
type StreamRequest struct {
	DeviceID          string
	IncludeDeviceData bool
}

// StreamFrame is one fan-out update.
type StreamFrame struct {
	Frame  *FrameData
	Device *DeviceData
}

// StatusRequest asks for a status snapshot.
type StatusRequest struct{}

// StatusResponse is a point-in-time summary of tracker and stream state.
type StatusResponse struct {
	Connected           bool
	CurrentlyTracking   bool
	BatteryPercent      int32
	FrameCount          int32
	TrackingLostCounter int32
	LatencyMs           float64
	ClientCount         int32
}

// ResetPoseRequest asks the server to re-seat the headset's pose. The
// target is in the field frame; the server converts before encoding the
// headset command.
type ResetPoseRequest struct {
	TargetPose  *geometrypb.Pose3d
	TimestampMs float64
}

// Marshal encodes the frame in protobuf wire format.
func (m *FrameData) Marshal() ([]byte, error) {
	var b []byte
	var err error
	b = geometrypb.AppendInt32(b, 1, m.FrameCount)
	b = geometrypb.AppendDouble(b, 2, m.Timestamp)
	if m.Pose != nil {
		if b, err = geometrypb.AppendMessage(b, 3, m.Pose); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the frame from protobuf wire format.
func (m *FrameData) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.FrameCount)
		case num == 2 && typ == protowire.Fixed64Type:
			return geometrypb.ConsumeDouble(field, &m.Timestamp)
		case num == 3 && typ == protowire.BytesType:
			m.Pose = new(geometrypb.Pose3d)
			return geometrypb.ConsumeEmbedded(field, m.Pose)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the device state in protobuf wire format.
func (m *DeviceData) Marshal() ([]byte, error) {
	var b []byte
	b = geometrypb.AppendBool(b, 1, m.CurrentlyTracking)
	b = geometrypb.AppendInt32(b, 2, m.TrackingLostCounter)
	b = geometrypb.AppendInt32(b, 3, m.BatteryPercent)
	return b, nil
}

// Unmarshal decodes the device state from protobuf wire format.
func (m *DeviceData) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return geometrypb.ConsumeBool(field, &m.CurrentlyTracking)
		case num == 2 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.TrackingLostCounter)
		case num == 3 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.BatteryPercent)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the payload in protobuf wire format.
func (m *PoseResetPayload) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if m.TargetPose != nil {
		if b, err = geometrypb.AppendMessage(b, 1, m.TargetPose); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the payload from protobuf wire format.
func (m *PoseResetPayload) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			m.TargetPose = new(geometrypb.Pose3d)
			return geometrypb.ConsumeEmbedded(field, m.TargetPose)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the command in protobuf wire format.
func (m *Command) Marshal() ([]byte, error) {
	var b []byte
	var err error
	b = geometrypb.AppendInt32(b, 1, int32(m.Type))
	b = geometrypb.AppendInt32(b, 2, m.CommandID)
	if m.PoseResetPayload != nil {
		if b, err = geometrypb.AppendMessage(b, 3, m.PoseResetPayload); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the command from protobuf wire format.
func (m *Command) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			var v int32
			n, err := geometrypb.ConsumeInt32(field, &v)
			m.Type = CommandType(v)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.CommandID)
		case num == 3 && typ == protowire.BytesType:
			m.PoseResetPayload = new(PoseResetPayload)
			return geometrypb.ConsumeEmbedded(field, m.PoseResetPayload)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the response in protobuf wire format.
func (m *CommandResponse) Marshal() ([]byte, error) {
	var b []byte
	b = geometrypb.AppendInt32(b, 1, m.CommandID)
	b = geometrypb.AppendBool(b, 2, m.Success)
	b = geometrypb.AppendString(b, 3, m.ErrorMessage)
	return b, nil
}

// Unmarshal decodes the response from protobuf wire format.
func (m *CommandResponse) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.CommandID)
		case num == 2 && typ == protowire.VarintType:
			return geometrypb.ConsumeBool(field, &m.Success)
		case num == 3 && typ == protowire.BytesType:
			return geometrypb.ConsumeString(field, &m.ErrorMessage)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the request in protobuf wire format.
func (m *StreamRequest) Marshal() ([]byte, error) {
	var b []byte
	b = geometrypb.AppendString(b, 1, m.DeviceID)
	b = geometrypb.AppendBool(b, 2, m.IncludeDeviceData)
	return b, nil
}

// Unmarshal decodes the request from protobuf wire format.
func (m *StreamRequest) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return geometrypb.ConsumeString(field, &m.DeviceID)
		case num == 2 && typ == protowire.VarintType:
			return geometrypb.ConsumeBool(field, &m.IncludeDeviceData)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the stream frame in protobuf wire format.
func (m *StreamFrame) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if m.Frame != nil {
		if b, err = geometrypb.AppendMessage(b, 1, m.Frame); err != nil {
			return nil, err
		}
	}
	if m.Device != nil {
		if b, err = geometrypb.AppendMessage(b, 2, m.Device); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes the stream frame from protobuf wire format.
func (m *StreamFrame) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Frame = new(FrameData)
			return geometrypb.ConsumeEmbedded(field, m.Frame)
		case num == 2 && typ == protowire.BytesType:
			m.Device = new(DeviceData)
			return geometrypb.ConsumeEmbedded(field, m.Device)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the request in protobuf wire format.
func (m *StatusRequest) Marshal() ([]byte, error) {
	return nil, nil
}

// Unmarshal decodes the request from protobuf wire format.
func (m *StatusRequest) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the status in protobuf wire format.
func (m *StatusResponse) Marshal() ([]byte, error) {
	var b []byte
	b = geometrypb.AppendBool(b, 1, m.Connected)
	b = geometrypb.AppendBool(b, 2, m.CurrentlyTracking)
	b = geometrypb.AppendInt32(b, 3, m.BatteryPercent)
	b = geometrypb.AppendInt32(b, 4, m.FrameCount)
	b = geometrypb.AppendInt32(b, 5, m.TrackingLostCounter)
	b = geometrypb.AppendDouble(b, 6, m.LatencyMs)
	b = geometrypb.AppendInt32(b, 7, m.ClientCount)
	return b, nil
}

// Unmarshal decodes the status from protobuf wire format.
func (m *StatusResponse) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return geometrypb.ConsumeBool(field, &m.Connected)
		case num == 2 && typ == protowire.VarintType:
			return geometrypb.ConsumeBool(field, &m.CurrentlyTracking)
		case num == 3 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.BatteryPercent)
		case num == 4 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.FrameCount)
		case num == 5 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.TrackingLostCounter)
		case num == 6 && typ == protowire.Fixed64Type:
			return geometrypb.ConsumeDouble(field, &m.LatencyMs)
		case num == 7 && typ == protowire.VarintType:
			return geometrypb.ConsumeInt32(field, &m.ClientCount)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}

// Marshal encodes the request in protobuf wire format.
func (m *ResetPoseRequest) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if m.TargetPose != nil {
		if b, err = geometrypb.AppendMessage(b, 1, m.TargetPose); err != nil {
			return nil, err
		}
	}
	b = geometrypb.AppendDouble(b, 2, m.TimestampMs)
	return b, nil
}

// Unmarshal decodes the request from protobuf wire format.
func (m *ResetPoseRequest) Unmarshal(data []byte) error {
	return geometrypb.WalkMessage(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.TargetPose = new(geometrypb.Pose3d)
			return geometrypb.ConsumeEmbedded(field, m.TargetPose)
		case num == 2 && typ == protowire.Fixed64Type:
			return geometrypb.ConsumeDouble(field, &m.TimestampMs)
		}
		return geometrypb.SkipField(num, typ, field)
	})
}
