package rpcpb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc-go's codec registry and selected on both
// ends of the connection via grpc.CallContentSubtype / grpc.ForceServerCodec,
// so SequenceRequest/SequenceReply can travel as plain JSON instead of wire
// protobuf.
const codecName = "easyflake-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcpb: marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcpb: unmarshal into %T: %w", v, err)
	}
	return nil
}

// CodecName exposes the registered codec's name for dial/server options, e.g.
// grpc.Dial(addr, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpcpb.CodecName))).
const CodecName = codecName
