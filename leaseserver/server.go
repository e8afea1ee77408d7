// Package leaseserver implements the gRPC-facing half of component C7: a
// server that hands node-ID sequence values out over long-lived streams and
// reclaims them when the stream ends, for any reason.
package leaseserver

import (
	"math/rand"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/sxyafiq/easyflake/internal/xlog"
	"github.com/sxyafiq/easyflake/rpcpb"
	"github.com/sxyafiq/easyflake/sequence"
)

// replyInterval is roughly how often a lease is re-announced on an open
// stream, jittered to avoid every client waking in lockstep.
const replyInterval = time.Second

// Server implements rpcpb.SequenceServer, leasing sequence values out of one
// sequence.Pool shared across every bit width a client may request.
type Server struct {
	rpcpb.UnimplementedSequenceServer

	pool *sequence.Pool
}

// NewServer creates a Server with a fresh, empty sequence pool.
func NewServer() *Server {
	return &Server{pool: sequence.NewPool()}
}

// LiveStream implements rpcpb.SequenceServer. It reserves a sequence value
// for the bit width in req, streams it to the client at replyInterval until
// the stream ends, and always releases the value back to the pool on exit.
func (s *Server) LiveStream(req *rpcpb.SequenceRequest, stream rpcpb.Sequence_LiveStreamServer) error {
	bits := int(req.GetBits())

	value, err := s.pool.Pop(bits)
	if err != nil {
		return status.Error(codes.OutOfRange, err.Error())
	}

	connID := uuid.New()
	xlog.Debug("connection %s established (bits=%d, sequence=%d)", connID, bits, value)

	defer func() {
		s.pool.Push(bits, value)
		xlog.Debug("connection %s closed (bits=%d, sequence=%d)", connID, bits, value)
	}()

	reply := &rpcpb.SequenceReply{Sequence: uint64(value)}

	for {
		if err := stream.Send(reply); err != nil {
			return err
		}

		select {
		case <-stream.Context().Done():
			return nil
		case <-time.After(jitter(replyInterval)):
		}
	}
}

func jitter(base time.Duration) time.Duration {
	return time.Duration(rand.Float64() * float64(base))
}

// NewGRPCServer builds a *grpc.Server with the Sequence service and the
// standard gRPC health-check service registered, ready for Serve.
func NewGRPCServer() *grpc.Server {
	srv := grpc.NewServer()

	rpcpb.RegisterSequenceServer(srv, NewServer())

	health := health.NewServer()
	health.SetServingStatus("rpcpb.Sequence", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, health)

	return srv
}

// ListenAndServe is a convenience wrapper combining NewGRPCServer with
// net.Listen, for callers that don't need to customize server construction.
func ListenAndServe(endpoint string) error {
	lis, err := net.Listen("tcp", endpoint)
	if err != nil {
		return err
	}
	xlog.Success("start gRPC server => %s", endpoint)
	return NewGRPCServer().Serve(lis)
}
