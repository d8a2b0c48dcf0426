package pb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"

	geometrypb "github.com/questrig/questrig/geometry/pb"
)

func unityPose() *geometrypb.Pose3d {
	return &geometrypb.Pose3d{
		Translation: &geometrypb.Translation3d{X: 1.25, Y: 1.6, Z: -3.5},
		Rotation:    &geometrypb.Rotation3d{Q: &geometrypb.Quaternion{Y: 0.7071067811865476, W: 0.7071067811865476}},
	}
}

func TestFrameDataRoundTrip(t *testing.T) {
	in := &FrameData{FrameCount: 1234, Timestamp: 45.678, Pose: unityPose()}
	b, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := new(FrameData)
	if err := out.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	in := &Command{
		Type:             CommandTypePoseReset,
		CommandID:        7,
		PoseResetPayload: &PoseResetPayload{TargetPose: unityPose()},
	}
	b, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := new(Command)
	if err := out.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandResponseRoundTrip(t *testing.T) {
	in := &CommandResponse{CommandID: 7, Success: false, ErrorMessage: "command expired"}
	b, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := new(CommandResponse)
	if err := out.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamFrameWithoutDevice(t *testing.T) {
	in := &StreamFrame{Frame: &FrameData{FrameCount: 9, Timestamp: 0.09, Pose: unityPose()}}
	b, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := new(StreamFrame)
	if err := out.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if out.Device != nil {
		t.Errorf("Device = %+v, want nil when not sent", out.Device)
	}
	if diff := cmp.Diff(in.Frame, out.Frame); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusResponseRoundTrip(t *testing.T) {
	in := &StatusResponse{
		Connected:           true,
		CurrentlyTracking:   true,
		BatteryPercent:      87,
		FrameCount:          100000,
		TrackingLostCounter: 3,
		LatencyMs:           4.25,
		ClientCount:         2,
	}
	b, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := new(StatusResponse)
	if err := out.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameDataSkipsUnknownFields(t *testing.T) {
	in := &FrameData{FrameCount: 5, Timestamp: 1.5}
	b, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b = protowire.AppendTag(b, 50, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0xDE, 0xAD})

	out := new(FrameData)
	if err := out.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal with unknown fields: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("known fields mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandTypeString(t *testing.T) {
	if got := CommandTypePoseReset.String(); got != "POSE_RESET" {
		t.Errorf("String() = %q, want POSE_RESET", got)
	}
	if got := CommandType(9).String(); got != "CommandType(9)" {
		t.Errorf("String() = %q, want CommandType(9)", got)
	}
}
