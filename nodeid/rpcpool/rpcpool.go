// Package rpcpool implements a nodeid.Listener backed by a gRPC connection
// to a leaseserver.Server, realizing component C6.
package rpcpool

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/sxyafiq/easyflake/nodeid"
	"github.com/sxyafiq/easyflake/rpcpb"
)

// Pool implements nodeid.Listener by subscribing to a LiveStream RPC and
// forwarding the reserved sequence values it receives. A single stream is
// kept open for the life of the context; if the server reports OUT_OF_RANGE
// the pool keeps the connection open and yields no value until capacity
// frees up, per spec §4.6.
type Pool struct {
	Endpoint string
	Bits     uint32

	// DialOptions are appended after the package's required codec/transport
	// options, letting callers add TLS credentials, interceptors, etc.
	DialOptions []grpc.DialOption
}

// New creates a Pool dialing endpoint lazily on the first Listen call.
func New(endpoint string, bits uint32) *Pool {
	return &Pool{Endpoint: endpoint, Bits: bits}
}

// Listen implements nodeid.Listener.
func (p *Pool) Listen(ctx context.Context) (<-chan nodeid.OptionalInt, <-chan error) {
	values := make(chan nodeid.OptionalInt)
	errs := make(chan error, 1)

	go p.run(ctx, values, errs)

	return values, errs
}

func (p *Pool) run(ctx context.Context, values chan<- nodeid.OptionalInt, errs chan<- error) {
	defer close(values)

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpcpb.CodecName)),
	}, p.DialOptions...)

	conn, err := grpc.NewClient(p.Endpoint, opts...)
	if err != nil {
		select {
		case errs <- fmt.Errorf("rpcpool: dialing %s: %w", p.Endpoint, err):
		default:
		}
		return
	}
	defer conn.Close()

	client := rpcpb.NewSequenceClient(conn)

	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := client.LiveStream(ctx, &rpcpb.SequenceRequest{Bits: p.Bits})
		if err != nil {
			if !p.forward(ctx, err, values, errs) {
				return
			}
			continue
		}

		if !p.drain(ctx, stream, values, errs) {
			return
		}
	}
}

// drain reads replies off stream until it ends, forwarding sequence values.
// It returns false when the caller should stop retrying entirely.
func (p *Pool) drain(ctx context.Context, stream rpcpb.Sequence_LiveStreamClient, values chan<- nodeid.OptionalInt, errs chan<- error) bool {
	for {
		reply, err := stream.Recv()
		if err != nil {
			return p.forward(ctx, err, values, errs)
		}

		v := int64(reply.GetSequence())
		select {
		case values <- &v:
		case <-ctx.Done():
			return false
		}
	}
}

// forward classifies a stream error per spec §4.6's status-code table and
// reports it appropriately, returning whether the caller should keep
// retrying the connection.
func (p *Pool) forward(ctx context.Context, err error, values chan<- nodeid.OptionalInt, errs chan<- error) bool {
	if ctx.Err() != nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		select {
		case errs <- err:
		default:
		}
		return false
	}

	switch st.Code() {
	case codes.Canceled:
		return false

	case codes.Unavailable:
		select {
		case errs <- fmt.Errorf("rpcpool: connection to %s is closed: %w", p.Endpoint, err):
		default:
		}
		return false

	case codes.OutOfRange:
		select {
		case values <- nil:
		case <-ctx.Done():
			return false
		}
		return true

	default:
		select {
		case errs <- fmt.Errorf("rpcpool: %s: %w", p.Endpoint, err):
		default:
		}
		return false
	}
}
