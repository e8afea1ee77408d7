package rpcpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Sequence_LiveStream_FullMethodName is the fully qualified method name
	// used to register and invoke the streaming RPC.
	Sequence_LiveStream_FullMethodName = "/rpcpb.Sequence/LiveStream"
)

// SequenceClient is the client API for the Sequence service.
type SequenceClient interface {
	LiveStream(ctx context.Context, in *SequenceRequest, opts ...grpc.CallOption) (Sequence_LiveStreamClient, error)
}

type sequenceClient struct {
	cc grpc.ClientConnInterface
}

// NewSequenceClient constructs a SequenceClient bound to cc. Callers should
// pass grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpcpb.CodecName))
// when dialing, so requests and replies are framed with this package's codec.
func NewSequenceClient(cc grpc.ClientConnInterface) SequenceClient {
	return &sequenceClient{cc: cc}
}

func (c *sequenceClient) LiveStream(ctx context.Context, in *SequenceRequest, opts ...grpc.CallOption) (Sequence_LiveStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &_Sequence_serviceDesc.Streams[0], Sequence_LiveStream_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &sequenceLiveStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Sequence_LiveStreamClient is the client-side handle for the streaming
// LiveStream RPC.
type Sequence_LiveStreamClient interface {
	Recv() (*SequenceReply, error)
	grpc.ClientStream
}

type sequenceLiveStreamClient struct {
	grpc.ClientStream
}

func (x *sequenceLiveStreamClient) Recv() (*SequenceReply, error) {
	m := new(SequenceReply)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SequenceServer is the server API for the Sequence service.
type SequenceServer interface {
	LiveStream(*SequenceRequest, Sequence_LiveStreamServer) error
}

// UnimplementedSequenceServer can be embedded for forward compatibility;
// unimplemented methods return codes.Unimplemented.
type UnimplementedSequenceServer struct{}

func (UnimplementedSequenceServer) LiveStream(*SequenceRequest, Sequence_LiveStreamServer) error {
	return status.Error(codes.Unimplemented, "method LiveStream not implemented")
}

// Sequence_LiveStreamServer is the server-side handle for the streaming
// LiveStream RPC.
type Sequence_LiveStreamServer interface {
	Send(*SequenceReply) error
	grpc.ServerStream
}

type sequenceLiveStreamServer struct {
	grpc.ServerStream
}

func (x *sequenceLiveStreamServer) Send(m *SequenceReply) error {
	return x.ServerStream.SendMsg(m)
}

func _Sequence_LiveStream_Handler(srv any, stream grpc.ServerStream) error {
	m := new(SequenceRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SequenceServer).LiveStream(m, &sequenceLiveStreamServer{stream})
}

// RegisterSequenceServer registers srv as the implementation backing the
// Sequence service on s.
func RegisterSequenceServer(s grpc.ServiceRegistrar, srv SequenceServer) {
	s.RegisterService(&_Sequence_serviceDesc, srv)
}

var _Sequence_serviceDesc = grpc.ServiceDesc{
	ServiceName: "rpcpb.Sequence",
	HandlerType: (*SequenceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "LiveStream",
			Handler:       _Sequence_LiveStream_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "sequence.proto",
}
