// Package rpcpb holds the wire types and gRPC client/server bindings for the
// Sequence service defined in sequence.proto.
//
// These bindings are hand-maintained rather than produced by protoc: the
// message set is two fields, and keeping them as plain Go structs lets the
// service use grpc-go's pluggable codec (see codec.go) instead of pulling in
// the full protobuf code-generation toolchain for a contract this small.
// The wire shape and RPC contract match sequence.proto exactly.
package rpcpb

import "fmt"

// SequenceRequest asks the server to reserve a sequence value of the given
// bit width for the lifetime of the stream.
type SequenceRequest struct {
	Bits uint32 `json:"bits"`
}

// GetBits returns the requested bit width, following the generated-code
// convention of nil-safe field accessors.
func (r *SequenceRequest) GetBits() uint32 {
	if r == nil {
		return 0
	}
	return r.Bits
}

func (r *SequenceRequest) String() string {
	return fmt.Sprintf("SequenceRequest{Bits: %d}", r.GetBits())
}

// SequenceReply carries the sequence value reserved for the stream's
// current lease. The server sends one reply per lease, repeating the same
// value until the lease is renewed or the stream ends.
type SequenceReply struct {
	Sequence uint64 `json:"sequence"`
}

// GetSequence returns the reserved value, following the generated-code
// convention of nil-safe field accessors.
func (r *SequenceReply) GetSequence() uint64 {
	if r == nil {
		return 0
	}
	return r.Sequence
}

func (r *SequenceReply) String() string {
	return fmt.Sprintf("SequenceReply{Sequence: %d}", r.GetSequence())
}
