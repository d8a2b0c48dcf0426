package stream

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/questrig/questrig/geometry"
	geometrypb "github.com/questrig/questrig/geometry/pb"
	"github.com/questrig/questrig/internal/monitoring"
	"github.com/questrig/questrig/internal/quest"
	"github.com/questrig/questrig/internal/quest/pb"
)

// The service descriptor and handlers below are maintained by hand
// against proto/questrig.proto, mirroring what protoc-gen-go-grpc would
// emit. The raw codec lets the server speak the hand-maintained wire
// messages without generated stubs.

// rawCodec (un)marshals any message implementing the questrig wire
// interfaces.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(geometrypb.Marshaler)
	if !ok {
		return nil, fmt.Errorf("message %T does not implement Marshal", v)
	}
	return m.Marshal()
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(geometrypb.Unmarshaler)
	if !ok {
		return fmt.Errorf("message %T does not implement Unmarshal", v)
	}
	return m.Unmarshal(data)
}

func (rawCodec) Name() string { return "questrig-raw" }

// PoseStreamServer is the server API for the questrig.PoseStream service.
type PoseStreamServer interface {
	// Subscribe streams pose frames until the client goes away.
	Subscribe(*pb.StreamRequest, PoseStreamSubscribeServer) error

	// GetStatus reports tracker and publisher state.
	GetStatus(context.Context, *pb.StatusRequest) (*pb.StatusResponse, error)

	// ResetPose runs the pose-reset command protocol for a field-frame
	// target.
	ResetPose(context.Context, *pb.ResetPoseRequest) (*pb.CommandResponse, error)
}

// PoseStreamSubscribeServer is the send side of the Subscribe stream.
type PoseStreamSubscribeServer interface {
	Send(*pb.StreamFrame) error
	grpc.ServerStream
}

type poseStreamSubscribeServer struct {
	grpc.ServerStream
}

func (x *poseStreamSubscribeServer) Send(m *pb.StreamFrame) error {
	return x.ServerStream.SendMsg(m)
}

func poseStreamSubscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(pb.StreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(PoseStreamServer).Subscribe(m, &poseStreamSubscribeServer{stream})
}

func poseStreamGetStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(pb.StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PoseStreamServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/questrig.PoseStream/GetStatus",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PoseStreamServer).GetStatus(ctx, req.(*pb.StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func poseStreamResetPoseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(pb.ResetPoseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PoseStreamServer).ResetPose(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/questrig.PoseStream/ResetPose",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PoseStreamServer).ResetPose(ctx, req.(*pb.ResetPoseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// PoseStreamServiceDesc is the grpc.ServiceDesc for the PoseStream
// service.
var PoseStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: "questrig.PoseStream",
	HandlerType: (*PoseStreamServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    poseStreamGetStatusHandler,
		},
		{
			MethodName: "ResetPose",
			Handler:    poseStreamResetPoseHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       poseStreamSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "proto/questrig.proto",
}

// RegisterService registers the PoseStream service with the gRPC server.
// Call before Publisher.Start.
func RegisterService(grpcServer *grpc.Server, server PoseStreamServer) {
	grpcServer.RegisterService(&PoseStreamServiceDesc, server)
}

// ResetHandler applies an accepted pose reset to the frame source.
type ResetHandler interface {
	ResetPose(target geometry.Pose3d) error
}

// Ensure Server implements the service interface.
var _ PoseStreamServer = (*Server)(nil)

// Server implements the PoseStream service over a Publisher and a
// Tracker. Pose resets run the full command protocol in-process: issue,
// TTL gate, execute, resolve.
type Server struct {
	publisher *Publisher
	tracker   *quest.Tracker
	commands  *quest.CommandQueue
	reset     ResetHandler
}

// NewServer creates a PoseStream server.
func NewServer(publisher *Publisher, tracker *quest.Tracker, commands *quest.CommandQueue, reset ResetHandler) *Server {
	return &Server{
		publisher: publisher,
		tracker:   tracker,
		commands:  commands,
		reset:     reset,
	}
}

// Subscribe implements the streaming RPC.
func (s *Server) Subscribe(req *pb.StreamRequest, stream PoseStreamSubscribeServer) error {
	clientID := fmt.Sprintf("grpc-%d", time.Now().UnixNano())
	if req.DeviceID != "" {
		clientID = fmt.Sprintf("%s-%d", req.DeviceID, time.Now().UnixNano())
	}

	client := s.publisher.addClient(clientID, req.IncludeDeviceData)
	defer s.publisher.removeClient(clientID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-client.frameCh:
			if !client.includeDevice && frame.Device != nil {
				trimmed := *frame
				trimmed.Device = nil
				frame = &trimmed
			}
			if err := stream.Send(frame); err != nil {
				return err
			}
		}
	}
}

// GetStatus implements the status RPC.
func (s *Server) GetStatus(ctx context.Context, req *pb.StatusRequest) (*pb.StatusResponse, error) {
	status := s.tracker.Status()
	stats := s.publisher.Stats()
	return &pb.StatusResponse{
		Connected:           status.Connected,
		CurrentlyTracking:   status.Tracking,
		BatteryPercent:      status.BatteryPercent,
		FrameCount:          status.FrameCount,
		TrackingLostCounter: status.TrackingLost,
		LatencyMs:           status.LatencyMs,
		ClientCount:         stats.ClientCount,
	}, nil
}

// ResetPose implements the pose-reset RPC. The request timestamp feeds
// the TTL gate; a zero timestamp means "issued now".
func (s *Server) ResetPose(ctx context.Context, req *pb.ResetPoseRequest) (*pb.CommandResponse, error) {
	target := geometry.NewPose3dFromProto(req.TargetPose)

	issuedAt := time.Now()
	if req.TimestampMs != 0 {
		issuedAt = time.Unix(0, int64(req.TimestampMs*1e6))
	}

	cmd := s.commands.IssuePoseReset(target)
	pose, err := s.commands.Accept(cmd, issuedAt)
	if err == nil {
		if s.reset == nil {
			err = fmt.Errorf("no frame source accepts pose resets")
		} else {
			err = s.reset.ResetPose(pose)
		}
	}

	resp := quest.NewResponse(cmd.CommandID, err)
	s.commands.Resolve(resp)
	if err != nil {
		monitoring.Logf("[Stream] Pose reset %d rejected: %v", cmd.CommandID, err)
	} else {
		monitoring.Logf("[Stream] Pose reset %d applied: %v", cmd.CommandID, pose)
	}
	return resp, nil
}
