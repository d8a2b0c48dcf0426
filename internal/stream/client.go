package stream

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/questrig/questrig/geometry"
	"github.com/questrig/questrig/internal/quest/pb"
)

// PoseStreamClient is the client side of the PoseStream service,
// hand-maintained against proto/questrig.proto like the server half.
type PoseStreamClient struct {
	cc grpc.ClientConnInterface
}

func NewPoseStreamClient(cc grpc.ClientConnInterface) *PoseStreamClient {
	return &PoseStreamClient{cc: cc}
}

func (c *PoseStreamClient) Subscribe(ctx context.Context, in *pb.StreamRequest, opts ...grpc.CallOption) (*PoseStreamSubscribeClient, error) {
	opts = append([]grpc.CallOption{grpc.ForceCodec(rawCodec{})}, opts...)
	stream, err := c.cc.NewStream(ctx, &PoseStreamServiceDesc.Streams[0], "/questrig.PoseStream/Subscribe", opts...)
	if err != nil {
		return nil, err
	}
	x := &PoseStreamSubscribeClient{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// PoseStreamSubscribeClient receives frames from a Subscribe call.
type PoseStreamSubscribeClient struct {
	grpc.ClientStream
}

func (x *PoseStreamSubscribeClient) Recv() (*pb.StreamFrame, error) {
	m := new(pb.StreamFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *PoseStreamClient) GetStatus(ctx context.Context, in *pb.StatusRequest, opts ...grpc.CallOption) (*pb.StatusResponse, error) {
	opts = append([]grpc.CallOption{grpc.ForceCodec(rawCodec{})}, opts...)
	out := new(pb.StatusResponse)
	if err := c.cc.Invoke(ctx, "/questrig.PoseStream/GetStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PoseStreamClient) ResetPose(ctx context.Context, in *pb.ResetPoseRequest, opts ...grpc.CallOption) (*pb.CommandResponse, error) {
	opts = append([]grpc.CallOption{grpc.ForceCodec(rawCodec{})}, opts...)
	out := new(pb.CommandResponse)
	if err := c.cc.Invoke(ctx, "/questrig.PoseStream/ResetPose", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetForwarder relays accepted pose resets to an upstream PoseStream
// server. Daemons that bridge a remote headset rather than owning the
// frame source use it as their ResetHandler.
type ResetForwarder struct {
	client *PoseStreamClient

	// Timeout bounds each relayed call.
	Timeout time.Duration
}

func NewResetForwarder(client *PoseStreamClient) *ResetForwarder {
	return &ResetForwarder{client: client, Timeout: 2 * time.Second}
}

// ResetPose relays a field-frame reset upstream. The relayed request
// carries no timestamp: the local TTL gate has already passed, so the
// upstream gate sees a freshly issued command.
func (f *ResetForwarder) ResetPose(target geometry.Pose3d) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.Timeout)
	defer cancel()

	resp, err := f.client.ResetPose(ctx, &pb.ResetPoseRequest{TargetPose: target.ToProto()})
	if err != nil {
		return fmt.Errorf("relay pose reset: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("upstream refused pose reset: %s", resp.ErrorMessage)
	}
	return nil
}
